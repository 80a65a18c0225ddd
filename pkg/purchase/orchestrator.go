// Package purchase drives buy flows end to end: authentication, pricing,
// on-chain submission, confirmation, and ownership bookkeeping.
package purchase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tokenmart/storefront-sdk/pkg/chain"
	"github.com/tokenmart/storefront-sdk/pkg/pricing"
	"github.com/tokenmart/storefront-sdk/pkg/session"
	"github.com/tokenmart/storefront-sdk/pkg/types"
)

// State is a purchase attempt's position in its lifecycle.
type State string

const (
	StateIdle           State = "IDLE"
	StateAuthenticating State = "AUTHENTICATING"
	StatePricing        State = "PRICING"
	StateSubmitting     State = "SUBMITTING"
	StateConfirming     State = "CONFIRMING"
	StateSucceeded      State = "SUCCEEDED"
	StateFailed         State = "FAILED"
)

// confirmTimeout bounds the confirmation wait for a submitted transaction.
const confirmTimeout = 5 * time.Minute

// Chain is the on-chain capability the orchestrator drives.
type Chain interface {
	Mint(ctx context.Context, quantity uint64, payment *big.Int) (chain.Pending, error)
	Transfer(ctx context.Context, payment *big.Int) (chain.Pending, error)
	ExplorerTxURL(txHash string) string
}

// Authenticator is the wallet authentication capability.
type Authenticator interface {
	Authenticate() (sessionToken string, expiresAt int64, err error)
	SessionValid() bool
	GetAddress() string
}

// BalanceRefresher re-syncs the session balance after purchases.
type BalanceRefresher interface {
	Refresh(ctx context.Context) (string, error)
}

// Granter records asset ownership after a confirmed payment.
type Granter interface {
	Grant(ctx context.Context, wallet string, asset types.Asset, receipt *types.Receipt) (*types.UserRecord, error)
	SetNickname(ctx context.Context, wallet, nickname string) error
}

// Config wires an orchestrator's collaborators.
type Config struct {
	Session *session.Session
	Auth    Authenticator
	Chain   Chain
	Balance BalanceRefresher
	Ledger  Granter
	Journal *Journal
	// OnStateChanged observes attempt lifecycle transitions. Optional.
	OnStateChanged func(attemptID string, state State)
}

// Orchestrator runs purchase attempts. At most one attempt per account is
// allowed at a time.
type Orchestrator struct {
	sess    *session.Session
	auth    Authenticator
	chain   Chain
	balance BalanceRefresher
	ledger  Granter
	journal *Journal

	onStateChanged func(attemptID string, state State)

	mu       sync.Mutex
	inFlight map[string]string // wallet address -> attempt ID
}

// New creates an orchestrator.
func New(cfg *Config) (*Orchestrator, error) {
	if cfg.Session == nil {
		return nil, fmt.Errorf("session is required")
	}
	if cfg.Auth == nil {
		return nil, fmt.Errorf("authenticator is required")
	}
	if cfg.Chain == nil {
		return nil, fmt.Errorf("chain client is required")
	}
	if cfg.Balance == nil {
		return nil, fmt.Errorf("balance syncer is required")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}

	journal := cfg.Journal
	if journal == nil {
		journal = NewJournal()
	}

	return &Orchestrator{
		sess:           cfg.Session,
		auth:           cfg.Auth,
		chain:          cfg.Chain,
		balance:        cfg.Balance,
		ledger:         cfg.Ledger,
		journal:        journal,
		onStateChanged: cfg.OnStateChanged,
		inFlight:       make(map[string]string),
	}, nil
}

// BuyTokens purchases the quantity of tokens currently entered on the
// session: a mint call with the exact payment attached, confirmed to
// finality, then a balance re-sync. Returns the confirmed receipt with its
// explorer link.
func (o *Orchestrator) BuyTokens(ctx context.Context) (*types.Receipt, error) {
	attemptID, wallet, err := o.begin()
	if err != nil {
		return nil, err
	}
	defer o.end(wallet)

	receipt, err := o.buyTokens(ctx, attemptID)
	if err != nil {
		o.setState(attemptID, StateFailed)
		return nil, err
	}

	o.setState(attemptID, StateSucceeded)
	return receipt, nil
}

func (o *Orchestrator) buyTokens(ctx context.Context, attemptID string) (*types.Receipt, error) {
	if err := o.ensureAuthenticated(attemptID); err != nil {
		return nil, err
	}

	o.setState(attemptID, StatePricing)
	quantity, err := parseQuantity(o.sess.Quantity())
	if err != nil {
		return nil, &Failure{Kind: FailValidation, Err: err}
	}
	payment := pricing.OnChainAmount(quantity)

	o.setState(attemptID, StateSubmitting)
	log.Printf("Submitting token purchase: quantity=%d payment=%s wei", quantity, payment.String())
	pending, err := o.chain.Mint(ctx, quantity, payment)
	if err != nil {
		return nil, &Failure{Kind: FailSubmission, Err: err}
	}

	o.setState(attemptID, StateConfirming)
	receipt, err := o.awaitConfirmations(ctx, pending)
	if err != nil {
		return nil, err
	}

	log.Printf("Token purchase confirmed: %s", receipt.TransactionHash)
	o.finish(ctx, receipt)
	return receipt, nil
}

// BuyAsset purchases a catalog asset: a value transfer to the treasury,
// confirmed to finality, then an ownership grant. Payment and grant are
// not atomic; if the grant fails after a confirmed payment, the error is a
// Failure of kind FailGrantPending carrying the transaction hash, the
// journal retains the entry, and RetryGrant completes the grant without a
// second payment.
func (o *Orchestrator) BuyAsset(ctx context.Context, asset types.Asset) (*types.Receipt, error) {
	attemptID, wallet, err := o.begin()
	if err != nil {
		return nil, err
	}
	defer o.end(wallet)

	receipt, err := o.buyAsset(ctx, attemptID, wallet, asset)
	if err != nil {
		o.setState(attemptID, StateFailed)
		return nil, err
	}

	o.setState(attemptID, StateSucceeded)
	return receipt, nil
}

func (o *Orchestrator) buyAsset(ctx context.Context, attemptID, wallet string, asset types.Asset) (*types.Receipt, error) {
	if err := o.ensureAuthenticated(attemptID); err != nil {
		return nil, err
	}

	o.setState(attemptID, StatePricing)
	price, ok := new(big.Int).SetString(asset.PriceWei, 10)
	if !ok || price.Sign() <= 0 {
		return nil, failf(FailValidation, "asset %s has invalid price %q", asset.ID, asset.PriceWei)
	}

	o.setState(attemptID, StateSubmitting)
	log.Printf("Submitting asset purchase: asset=%s payment=%s wei", asset.ID, price.String())
	pending, err := o.chain.Transfer(ctx, price)
	if err != nil {
		return nil, &Failure{Kind: FailSubmission, Err: err}
	}

	entry := &JournalEntry{
		TxHash:    pending.Hash(),
		Wallet:    wallet,
		Asset:     asset,
		State:     JournalStateConfirming,
		CreatedAt: time.Now(),
	}
	if err := o.journal.Save(entry); err != nil {
		log.Printf("Warning: failed to journal pending grant for %s: %v", pending.Hash(), err)
	}

	o.setState(attemptID, StateConfirming)
	receipt, err := o.awaitConfirmations(ctx, pending)
	if err != nil {
		// A reverted payment needs no grant. A timed-out one may still
		// confirm, so its journal entry stays for manual follow-up.
		if !IsKind(err, FailConfirmationTimeout) {
			if delErr := o.journal.Delete(pending.Hash()); delErr != nil {
				log.Printf("Warning: failed to drop journal entry for %s: %v", pending.Hash(), delErr)
			}
		}
		return nil, err
	}

	entry.State = JournalStateGranting
	if err := o.journal.Save(entry); err != nil {
		log.Printf("Warning: failed to update journal entry for %s: %v", receipt.TransactionHash, err)
	}

	if _, err := o.ledger.Grant(ctx, wallet, asset, receipt); err != nil {
		return nil, &Failure{Kind: FailGrantPending, TxHash: receipt.TransactionHash, Err: err}
	}

	if err := o.journal.Delete(receipt.TransactionHash); err != nil {
		log.Printf("Warning: failed to clear journal entry for %s: %v", receipt.TransactionHash, err)
	}

	log.Printf("Asset purchase confirmed: asset=%s tx=%s", asset.ID, receipt.TransactionHash)
	o.finish(ctx, receipt)
	return receipt, nil
}

// RetryGrant completes the ownership grant for a payment recorded in the
// journal, without submitting a new payment. For entries still in the
// CONFIRMING state the caller must first establish that the payment
// actually landed.
func (o *Orchestrator) RetryGrant(ctx context.Context, txHash string) (*types.UserRecord, error) {
	entry, err := o.journal.Load(txHash)
	if err != nil {
		return nil, &Failure{Kind: FailPersistence, TxHash: txHash, Err: err}
	}
	if entry == nil {
		return nil, failf(FailValidation, "no pending grant for transaction %s", txHash)
	}

	receipt := &types.Receipt{
		TransactionHash: entry.TxHash,
		ExplorerLink:    o.chain.ExplorerTxURL(entry.TxHash),
	}

	record, err := o.ledger.Grant(ctx, entry.Wallet, entry.Asset, receipt)
	if err != nil {
		return nil, &Failure{Kind: FailGrantPending, TxHash: txHash, Err: err}
	}

	if err := o.journal.Delete(txHash); err != nil {
		log.Printf("Warning: failed to clear journal entry for %s: %v", txHash, err)
	}

	return record, nil
}

// PendingGrants lists journal entries awaiting grant completion.
func (o *Orchestrator) PendingGrants() ([]*JournalEntry, error) {
	return o.journal.List()
}

// RefreshBalance re-syncs the session balance on demand.
func (o *Orchestrator) RefreshBalance(ctx context.Context) (string, error) {
	balance, err := o.balance.Refresh(ctx)
	if err != nil {
		return balance, &Failure{Kind: FailQuery, Err: err}
	}
	return balance, nil
}

// SetNickname persists the profile nickname and mirrors it on the session.
func (o *Orchestrator) SetNickname(ctx context.Context, nickname string) error {
	wallet := o.auth.GetAddress()
	if err := o.ledger.SetNickname(ctx, wallet, nickname); err != nil {
		return &Failure{Kind: FailPersistence, Err: err}
	}
	o.sess.SetNickname(nickname)
	return nil
}

// begin claims the per-account in-flight slot for a new attempt.
func (o *Orchestrator) begin() (attemptID, wallet string, err error) {
	wallet = o.auth.GetAddress()

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, busy := o.inFlight[wallet]; busy {
		return "", "", ErrPurchaseInFlight
	}

	attemptID = uuid.NewString()
	o.inFlight[wallet] = attemptID
	return attemptID, wallet, nil
}

// end releases the in-flight slot.
func (o *Orchestrator) end(wallet string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, wallet)
}

// ensureAuthenticated makes exactly one authentication attempt when the
// session is not usable. A failed attempt fails the purchase; the entered
// quantity is left intact so the user can retry without re-typing.
func (o *Orchestrator) ensureAuthenticated(attemptID string) error {
	o.setState(attemptID, StateAuthenticating)

	if o.sess.Account().Authenticated && o.auth.SessionValid() {
		return nil
	}

	if _, _, err := o.auth.Authenticate(); err != nil {
		return &Failure{Kind: FailAuthentication, Err: err}
	}

	o.sess.MarkAuthenticated(o.auth.GetAddress())
	return nil
}

// awaitConfirmations waits for finality and stamps the explorer link.
func (o *Orchestrator) awaitConfirmations(ctx context.Context, pending chain.Pending) (*types.Receipt, error) {
	cctx, cancel := context.WithTimeout(ctx, confirmTimeout)
	defer cancel()

	receipt, err := pending.Wait(cctx, chain.Confirmations)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &Failure{Kind: FailConfirmationTimeout, TxHash: pending.Hash(), Err: err}
		}
		return nil, &Failure{Kind: FailSubmission, TxHash: pending.Hash(), Err: err}
	}

	receipt.ExplorerLink = o.chain.ExplorerTxURL(receipt.TransactionHash)
	return receipt, nil
}

// finish applies post-purchase bookkeeping shared by both buy flows. A
// failed balance refresh is recoverable and never fails the purchase.
func (o *Orchestrator) finish(ctx context.Context, receipt *types.Receipt) {
	o.sess.SetReceiptLink(receipt.ExplorerLink)

	if _, err := o.balance.Refresh(ctx); err != nil {
		log.Printf("Warning: balance refresh after purchase failed: %v", err)
	}
}

func (o *Orchestrator) setState(attemptID string, state State) {
	if o.onStateChanged != nil {
		o.onStateChanged(attemptID, state)
	}
}

// parseQuantity validates the entered quantity as a positive whole number.
func parseQuantity(raw string) (uint64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, fmt.Errorf("no quantity entered")
	}

	quantity, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q: %w", raw, err)
	}
	if quantity == 0 {
		return 0, fmt.Errorf("quantity must be positive")
	}

	return quantity, nil
}
