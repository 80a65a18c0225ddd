package session

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tokenmart/storefront-sdk/pkg/types"
)

func TestSetQuantityRecomputesAmountDue(t *testing.T) {
	var gotQuantity string
	var gotAmount decimal.Decimal
	calls := 0

	s := New(Callbacks{
		OnQuantityChanged: func(quantity string, amountDue decimal.Decimal) {
			gotQuantity = quantity
			gotAmount = amountDue
			calls++
		},
	})

	s.SetQuantity("10")

	if calls != 1 {
		t.Fatalf("OnQuantityChanged fired %d times, want 1", calls)
	}
	if gotQuantity != "10" {
		t.Errorf("quantity = %s, want 10", gotQuantity)
	}
	if gotAmount.String() != "0.001" {
		t.Errorf("amount due = %s, want 0.001", gotAmount.String())
	}
	if s.AmountDue().String() != "0.001" {
		t.Errorf("stored amount due = %s, want 0.001", s.AmountDue().String())
	}
}

func TestSetQuantityInvalidInputClearsAmount(t *testing.T) {
	s := New(Callbacks{})

	s.SetQuantity("10")
	s.SetQuantity("abc")

	if !s.AmountDue().IsZero() {
		t.Errorf("amount due = %s after invalid input, want 0", s.AmountDue().String())
	}
	if s.Quantity() != "abc" {
		t.Errorf("quantity = %s, want raw input preserved", s.Quantity())
	}
}

func TestDismissResetsPurchaseRequest(t *testing.T) {
	s := New(Callbacks{})
	s.MarkAuthenticated("0xf39F")
	s.SetQuantity("25")
	s.SetReceiptLink("https://sepolia.etherscan.io/tx/0xabc")

	s.Dismiss()

	if s.Quantity() != "" {
		t.Errorf("quantity = %q after dismiss, want empty", s.Quantity())
	}
	if !s.AmountDue().IsZero() {
		t.Errorf("amount due = %s after dismiss, want 0", s.AmountDue().String())
	}
	if s.ReceiptLink() != "" {
		t.Errorf("receipt link = %q after dismiss, want empty", s.ReceiptLink())
	}
	if !s.Account().Authenticated {
		t.Error("dismiss must not touch authentication state")
	}
}

func TestMarkAuthenticatedFiresCallback(t *testing.T) {
	var got types.Account
	s := New(Callbacks{
		OnAuthChanged: func(account types.Account) { got = account },
	})

	s.MarkAuthenticated("0xf39F")

	if !got.Authenticated || got.Address != "0xf39F" {
		t.Errorf("OnAuthChanged got %+v, want authenticated 0xf39F", got)
	}
}

func TestSetAccountResetsAuth(t *testing.T) {
	changed := 0
	s := New(Callbacks{
		OnAccountChanged: func(account types.Account) { changed++ },
	})

	s.MarkAuthenticated("0xf39F")
	s.SetBalance("100")
	s.SetAccount("0x7099")

	account := s.Account()
	if account.Authenticated {
		t.Error("authentication must not carry over to a new account")
	}
	if account.Balance != "" {
		t.Errorf("balance = %q after account switch, want empty", account.Balance)
	}
	if changed != 1 {
		t.Errorf("OnAccountChanged fired %d times, want 1", changed)
	}

	// Same address again is a no-op.
	s.SetAccount("0x7099")
	if changed != 1 {
		t.Errorf("OnAccountChanged fired %d times after no-op switch, want 1", changed)
	}
}
