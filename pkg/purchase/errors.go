package purchase

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a purchase attempt failed.
type FailureKind string

const (
	FailAuthentication      FailureKind = "AUTHENTICATION"
	FailValidation          FailureKind = "VALIDATION"
	FailSubmission          FailureKind = "SUBMISSION"
	FailConfirmationTimeout FailureKind = "CONFIRMATION_TIMEOUT"
	FailQuery               FailureKind = "QUERY"
	FailPersistence         FailureKind = "PERSISTENCE"
	FailSubscription        FailureKind = "SUBSCRIPTION"
	// FailGrantPending means payment confirmed on-chain but the ownership
	// grant did not complete. The failure carries the transaction hash so
	// RetryGrant can finish the grant without paying again.
	FailGrantPending FailureKind = "GRANT_PENDING"
)

// ErrPurchaseInFlight is returned when a buy is attempted while another
// purchase for the same account is still running.
var ErrPurchaseInFlight = errors.New("purchase already in flight for this account")

// Failure is a classified purchase error.
type Failure struct {
	Kind   FailureKind
	TxHash string // set when a transaction was submitted before the failure
	Err    error
}

func (f *Failure) Error() string {
	if f.TxHash != "" {
		return fmt.Sprintf("purchase failed (%s, tx %s): %v", f.Kind, f.TxHash, f.Err)
	}
	return fmt.Sprintf("purchase failed (%s): %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// AsFailure extracts the Failure from an error chain, if any.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// IsKind reports whether err is a purchase failure of the given kind.
func IsKind(err error, kind FailureKind) bool {
	f, ok := AsFailure(err)
	return ok && f.Kind == kind
}

func failf(kind FailureKind, format string, args ...interface{}) *Failure {
	return &Failure{Kind: kind, Err: fmt.Errorf(format, args...)}
}
