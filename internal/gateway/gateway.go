// Package gateway is the boundary to the external checkout provider. The
// rest of the system only creates checkout sessions and reads payment status
// back; it never trusts anything else the provider sends.
package gateway

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ProviderDoku    = "doku"
	ProviderXendit  = "xendit"
	ProviderSandbox = "sandbox"
)

type CheckoutRequest struct {
	BookingID  uuid.UUID
	BuyerID    uuid.UUID
	Title      string
	Quantity   int
	UnitPrice  decimal.Decimal
	Amount     decimal.Decimal
	Currency   string
	SuccessURL string
}

type Session struct {
	Ref         string
	RedirectURL string
}

// Status is the provider's view of a session. Once a session reaches a
// terminal state repeated reads report the same values.
type Status struct {
	Paid          bool
	TransactionID string
	Amount        decimal.Decimal
	PayerEmail    string
}

type Gateway interface {
	Provider() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (Session, error)
	GetPaymentStatus(ctx context.Context, sessionRef string) (Status, error)
}
