// Package store is the persistence boundary for tickets, bookings, checkout
// sessions and payments.
//
// Two implementations share one contract: GormStore (PostgreSQL) and
// MemoryStore. Both must guarantee that
//
//   - UpsertPendingBooking is a single atomic upsert-with-increment on the
//     (buyer, ticket, pending, unpaid) key,
//   - InsertPayment fails with models.ErrDuplicateTransaction when the
//     transaction id already exists,
//   - WithinTx applies every write made through the Tx or none of them.
package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/ticketbari/marketplace/internal/models"
)

type TicketFilter struct {
	VendorID       uuid.UUID
	ApprovedOnly   bool
	AdvertisedOnly bool
	Limit          int
}

type ListingUpdate struct {
	ApprovalState models.ApprovalState
	Visible       bool
	Advertised    bool
}

type VendorSales struct {
	Revenue       decimal.Decimal
	UnitsSold     int64
	TicketsListed int64
}

// Tx is the set of operations available inside the settlement critical
// section.
type Tx interface {
	GetTicket(ctx context.Context, id uuid.UUID) (models.Ticket, error)
	GetBookingForUpdate(ctx context.Context, id uuid.UUID) (models.Booking, error)
	GetPaymentByTransaction(ctx context.Context, transactionID string) (models.Payment, error)
	InsertPayment(ctx context.Context, payment *models.Payment) error
	MarkBookingPaid(ctx context.Context, id uuid.UUID) (models.Booking, error)
	DecrementTicketQuantity(ctx context.Context, id uuid.UUID, quantity int) (models.Ticket, error)
}

type Store interface {
	CreateTicket(ctx context.Context, ticket *models.Ticket) error
	GetTicket(ctx context.Context, id uuid.UUID) (models.Ticket, error)
	ListTickets(ctx context.Context, filter TicketFilter) ([]models.Ticket, error)
	// UpdateTicketListing loads the ticket under lock, lets fn compute the new
	// listing fields and writes only those fields back.
	UpdateTicketListing(ctx context.Context, id uuid.UUID, fn func(models.Ticket) (ListingUpdate, error)) (models.Ticket, error)

	UpsertPendingBooking(ctx context.Context, buyerID, ticketID uuid.UUID, quantity int) (booking models.Booking, merged bool, err error)
	GetBooking(ctx context.Context, id uuid.UUID) (models.Booking, error)
	ListBookingsByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Booking, error)
	ListBookingsByVendor(ctx context.Context, vendorID uuid.UUID) ([]models.Booking, error)
	// SetBookingLifecycle fails with models.ErrInvalidState once the booking is paid.
	SetBookingLifecycle(ctx context.Context, id uuid.UUID, state models.LifecycleState) (models.Booking, error)

	SaveCheckoutSession(ctx context.Context, session *models.CheckoutSession) error
	GetCheckoutSession(ctx context.Context, ref string) (models.CheckoutSession, error)
	GetCheckoutSessionByID(ctx context.Context, id uuid.UUID) (models.CheckoutSession, error)
	// LatestCheckoutSession returns the most recently opened session for the
	// booking, or models.ErrNotFound.
	LatestCheckoutSession(ctx context.Context, bookingID uuid.UUID) (models.CheckoutSession, error)

	GetPaymentByTransaction(ctx context.Context, transactionID string) (models.Payment, error)
	GetPaymentByBooking(ctx context.Context, bookingID uuid.UUID) (models.Payment, error)

	VendorSales(ctx context.Context, vendorID uuid.UUID) (VendorSales, error)

	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	Ping(ctx context.Context) error
	Close() error
}
