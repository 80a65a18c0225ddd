// Package ledger records which catalog assets each wallet owns. Grants are
// idempotent on transaction hash so a retried grant never duplicates an
// ownership entry.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/tokenmart/storefront-sdk/pkg/types"
)

// Store is the persistence capability behind the ledger.
type Store interface {
	GetUser(ctx context.Context, wallet string) (*types.UserRecord, error)
	SaveUser(ctx context.Context, record *types.UserRecord) error
}

// Ledger grants asset ownership and serves owned-asset queries.
type Ledger struct {
	store Store
}

// New creates a ledger over the given store.
func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// Grant appends the asset to the wallet's owned list, stamped with the
// purchase date and the receipt's explorer link, then returns the re-read
// record. Granting the same transaction hash twice is a no-op: the stored
// record is returned unchanged.
func (l *Ledger) Grant(ctx context.Context, wallet string, asset types.Asset, receipt *types.Receipt) (*types.UserRecord, error) {
	if receipt == nil || receipt.TransactionHash == "" {
		return nil, fmt.Errorf("grant requires a transaction hash")
	}

	record, err := l.store.GetUser(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to load owner record: %w", err)
	}

	for _, owned := range record.OwnedAssets {
		if owned.TxHash == receipt.TransactionHash {
			return record, nil
		}
	}

	record.OwnedAssets = append(record.OwnedAssets, types.OwnedAsset{
		Asset:        asset,
		TxHash:       receipt.TransactionHash,
		PurchaseDate: time.Now().UTC(),
		ReceiptLink:  receipt.ExplorerLink,
	})

	if err := l.store.SaveUser(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save owner record: %w", err)
	}

	// Re-read so the caller sees exactly what was persisted.
	record, err = l.store.GetUser(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to reload owner record: %w", err)
	}

	return record, nil
}

// OwnedAssets returns the wallet's owned assets in grant order.
func (l *Ledger) OwnedAssets(ctx context.Context, wallet string) ([]types.OwnedAsset, error) {
	record, err := l.store.GetUser(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to load owner record: %w", err)
	}
	return record.OwnedAssets, nil
}

// SetNickname updates the wallet's profile nickname.
func (l *Ledger) SetNickname(ctx context.Context, wallet, nickname string) error {
	if nickname == "" {
		return fmt.Errorf("cannot set empty nickname")
	}

	record, err := l.store.GetUser(ctx, wallet)
	if err != nil {
		return fmt.Errorf("failed to load owner record: %w", err)
	}

	record.Nickname = nickname

	if err := l.store.SaveUser(ctx, record); err != nil {
		return fmt.Errorf("failed to save owner record: %w", err)
	}

	return nil
}
