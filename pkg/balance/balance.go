// Package balance keeps the session's token balance in sync with the chain.
package balance

import (
	"context"
	"fmt"
	"math/big"

	"github.com/tokenmart/storefront-sdk/pkg/session"
)

// Reader is the chain-side balance query.
type Reader interface {
	BalanceOf(ctx context.Context, account string) (*big.Int, error)
}

// Syncer refreshes the session balance from the chain. Refresh is triggered
// on authentication, on account change, and after every confirmed purchase.
type Syncer struct {
	reader Reader
	sess   *session.Session
}

// NewSyncer creates a balance syncer bound to a session.
func NewSyncer(reader Reader, sess *session.Session) *Syncer {
	return &Syncer{reader: reader, sess: sess}
}

// Refresh queries the chain for the active account's token balance and
// stores it on the session as a decimal string. For an unauthenticated or
// absent account the cached value is returned untouched.
func (s *Syncer) Refresh(ctx context.Context) (string, error) {
	account := s.sess.Account()
	if !account.Authenticated || account.Address == "" {
		return account.Balance, nil
	}

	bal, err := s.reader.BalanceOf(ctx, account.Address)
	if err != nil {
		return account.Balance, fmt.Errorf("failed to refresh balance: %w", err)
	}

	value := bal.String()
	s.sess.SetBalance(value)
	return value, nil
}
