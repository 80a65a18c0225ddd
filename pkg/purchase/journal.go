package purchase

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tokenmart/storefront-sdk/pkg/types"
)

// Journal state constants
const (
	JournalStateConfirming = "CONFIRMING"
	JournalStateGranting   = "GRANTING"
)

// JournalEntry records an asset purchase between payment submission and
// ownership grant. Entries are keyed by transaction hash; one that survives
// a crash marks a payment whose grant must be retried, never repaid.
type JournalEntry struct {
	TxHash    string      `json:"tx_hash"`
	Wallet    string      `json:"wallet"`
	Asset     types.Asset `json:"asset"`
	State     string      `json:"state"` // CONFIRMING, GRANTING
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Journal handles pending-grant journal operations
type Journal struct {
	dir string
}

// NewJournal creates a journal in the default directory
func NewJournal() *Journal {
	// Default journal directory: ~/.storefront/journal/
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return &Journal{
		dir: filepath.Join(homeDir, ".storefront", "journal"),
	}
}

// NewJournalWithDir creates a journal with a custom directory
func NewJournalWithDir(dir string) *Journal {
	return &Journal{dir: dir}
}

// getPath returns the journal file path for a transaction
func (j *Journal) getPath(txHash string) string {
	return filepath.Join(j.dir, txHash+".json")
}

// ensureDir ensures the journal directory exists
func (j *Journal) ensureDir() error {
	return os.MkdirAll(j.dir, 0700)
}

// Load loads the journal entry for a transaction
func (j *Journal) Load(txHash string) (*JournalEntry, error) {
	path := j.getPath(txHash)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No entry exists
		}
		return nil, fmt.Errorf("failed to read journal file: %w", err)
	}

	var entry JournalEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to parse journal file: %w", err)
	}

	return &entry, nil
}

// Save saves a journal entry
func (j *Journal) Save(entry *JournalEntry) error {
	if err := j.ensureDir(); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}

	entry.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}

	path := j.getPath(entry.TxHash)

	// Write atomically using temp file + rename
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write journal temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename journal temp file: %w", err)
	}

	return nil
}

// Delete removes a journal entry
func (j *Journal) Delete(txHash string) error {
	path := j.getPath(txHash)

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete journal file: %w", err)
	}

	return nil
}

// Exists checks if a journal entry exists
func (j *Journal) Exists(txHash string) bool {
	path := j.getPath(txHash)
	_, err := os.Stat(path)
	return err == nil
}

// List lists all journal entries
func (j *Journal) List() ([]*JournalEntry, error) {
	if err := j.ensureDir(); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	files, err := os.ReadDir(j.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal directory: %w", err)
	}

	var entries []*JournalEntry
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		if filepath.Ext(file.Name()) != ".json" {
			continue
		}

		txHash := file.Name()[:len(file.Name())-5] // Remove .json
		entry, err := j.Load(txHash)
		if err != nil {
			continue // Skip invalid entries
		}

		if entry != nil {
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

// CleanupOld removes journal entries older than the specified duration
func (j *Journal) CleanupOld(maxAge time.Duration) (int, error) {
	entries, err := j.List()
	if err != nil {
		return 0, err
	}

	now := time.Now()
	deleted := 0

	for _, entry := range entries {
		if now.Sub(entry.UpdatedAt) > maxAge {
			if err := j.Delete(entry.TxHash); err == nil {
				deleted++
			}
		}
	}

	return deleted, nil
}
