// Package session holds the SDK's mutable user-facing state: the active
// account, the purchase request being composed, and the callbacks a
// presentation layer hooks to observe changes.
package session

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/tokenmart/storefront-sdk/pkg/pricing"
	"github.com/tokenmart/storefront-sdk/pkg/types"
)

// Callbacks are invoked synchronously after the corresponding state change.
// All fields are optional.
type Callbacks struct {
	// OnAuthChanged fires when the account authenticates or logs out.
	OnAuthChanged func(account types.Account)
	// OnAccountChanged fires when the active wallet address changes.
	OnAccountChanged func(account types.Account)
	// OnQuantityChanged fires when the entered quantity or the derived
	// amount due changes, including on Dismiss.
	OnQuantityChanged func(quantity string, amountDue decimal.Decimal)
}

// Session is safe for concurrent use.
type Session struct {
	mu          sync.Mutex
	account     types.Account
	nickname    string
	quantity    string
	amountDue   decimal.Decimal
	receiptLink string
	callbacks   Callbacks
}

// New creates an empty unauthenticated session.
func New(callbacks Callbacks) *Session {
	return &Session{callbacks: callbacks}
}

// Account returns a copy of the current account state.
func (s *Session) Account() types.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account
}

// SetAccount switches the active wallet address. Authentication and balance
// do not carry over to the new account.
func (s *Session) SetAccount(address string) {
	s.mu.Lock()
	if s.account.Address == address {
		s.mu.Unlock()
		return
	}
	s.account = types.Account{Address: address}
	account := s.account
	cb := s.callbacks.OnAccountChanged
	s.mu.Unlock()

	if cb != nil {
		cb(account)
	}
}

// MarkAuthenticated records a successful authentication for the address.
func (s *Session) MarkAuthenticated(address string) {
	s.mu.Lock()
	s.account.Address = address
	s.account.Authenticated = true
	account := s.account
	cb := s.callbacks.OnAuthChanged
	s.mu.Unlock()

	if cb != nil {
		cb(account)
	}
}

// Logout clears the authenticated flag, keeping the address.
func (s *Session) Logout() {
	s.mu.Lock()
	s.account.Authenticated = false
	s.account.Balance = ""
	account := s.account
	cb := s.callbacks.OnAuthChanged
	s.mu.Unlock()

	if cb != nil {
		cb(account)
	}
}

// SetBalance stores the latest synced token balance.
func (s *Session) SetBalance(balance string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account.Balance = balance
}

// SetQuantity records the quantity the user entered and recomputes the
// amount due. The quantity is kept as entered; validation happens at
// purchase time.
func (s *Session) SetQuantity(quantity string) {
	s.mu.Lock()
	s.quantity = quantity
	s.amountDue = pricing.DisplayPrice(quantity)
	amountDue := s.amountDue
	cb := s.callbacks.OnQuantityChanged
	s.mu.Unlock()

	if cb != nil {
		cb(quantity, amountDue)
	}
}

// Quantity returns the entered quantity as-is.
func (s *Session) Quantity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quantity
}

// AmountDue returns the display amount due for the entered quantity.
func (s *Session) AmountDue() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.amountDue
}

// SetReceiptLink stores the explorer link of the last confirmed purchase.
func (s *Session) SetReceiptLink(link string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receiptLink = link
}

// ReceiptLink returns the explorer link of the last confirmed purchase.
func (s *Session) ReceiptLink() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.receiptLink
}

// SetNickname stores the profile nickname locally. Persistence goes through
// the ledger.
func (s *Session) SetNickname(nickname string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nickname = nickname
}

// Nickname returns the profile nickname.
func (s *Session) Nickname() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nickname
}

// Dismiss resets the purchase request: quantity, amount due and receipt
// link are cleared. Account and authentication state are untouched.
func (s *Session) Dismiss() {
	s.mu.Lock()
	s.quantity = ""
	s.amountDue = decimal.Zero
	s.receiptLink = ""
	cb := s.callbacks.OnQuantityChanged
	s.mu.Unlock()

	if cb != nil {
		cb("", decimal.Zero)
	}
}
