// Package booking holds buyer bookings and the rule that repeated requests
// for the same ticket fold into the buyer's single pending, unpaid booking.
package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/ticketbari/marketplace/internal/models"
	"github.com/ticketbari/marketplace/internal/monitoring"
	"github.com/ticketbari/marketplace/internal/store"
)

type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

func (d Decision) lifecycle() (models.LifecycleState, bool) {
	switch d {
	case DecisionAccept:
		return models.LifecycleAccepted, true
	case DecisionReject:
		return models.LifecycleRejected, true
	}
	return "", false
}

// Result is a booking together with whether the request was folded into an
// existing pending booking.
type Result struct {
	Booking models.Booking `json:"booking"`
	Merged  bool           `json:"merged"`
}

type Ledger struct {
	store  store.Store
	logger *logrus.Logger
}

func NewLedger(s store.Store, logger *logrus.Logger) *Ledger {
	return &Ledger{store: s, logger: logger}
}

// CreateOrMergeBooking books quantity units of a ticket for a buyer. The
// merge is delegated to the store's atomic upsert so concurrent requests on
// the same buyer and ticket can never produce two pending rows.
func (l *Ledger) CreateOrMergeBooking(ctx context.Context, buyerID, ticketID uuid.UUID, quantity int) (Result, error) {
	if buyerID == uuid.Nil || ticketID == uuid.Nil {
		return Result{}, fmt.Errorf("buyer and ticket ids are required: %w", models.ErrInvalidInput)
	}
	if quantity <= 0 {
		return Result{}, fmt.Errorf("quantity must be positive, got %d: %w", quantity, models.ErrInvalidInput)
	}

	if _, err := l.store.GetTicket(ctx, ticketID); err != nil {
		return Result{}, err
	}

	booking, merged, err := l.store.UpsertPendingBooking(ctx, buyerID, ticketID, quantity)
	if err != nil {
		monitoring.TrackBookingRequest("error")
		return Result{}, err
	}

	result := "created"
	if merged {
		result = "merged"
	}
	monitoring.TrackBookingRequest(result)

	l.logger.WithContext(ctx).WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"buyer_id":   buyerID,
		"ticket_id":  ticketID,
		"requested":  quantity,
		"quantity":   booking.Quantity,
		"result":     result,
	}).Info("booking recorded")

	return Result{Booking: booking, Merged: merged}, nil
}

// SetVendorDecision accepts or rejects a booking that has not been paid yet.
func (l *Ledger) SetVendorDecision(ctx context.Context, bookingID uuid.UUID, decision Decision) (models.Booking, error) {
	state, ok := decision.lifecycle()
	if !ok {
		return models.Booking{}, fmt.Errorf("decision %q: %w", decision, models.ErrInvalidInput)
	}

	booking, err := l.store.SetBookingLifecycle(ctx, bookingID, state)
	if err != nil {
		return models.Booking{}, err
	}

	l.logger.WithContext(ctx).WithFields(logrus.Fields{
		"booking_id": bookingID,
		"state":      state,
	}).Info("vendor decision applied")
	return booking, nil
}

func (l *Ledger) Get(ctx context.Context, bookingID uuid.UUID) (models.Booking, error) {
	return l.store.GetBooking(ctx, bookingID)
}

func (l *Ledger) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Booking, error) {
	return l.store.ListBookingsByBuyer(ctx, buyerID)
}

// Payment returns the settled payment for a booking.
func (l *Ledger) Payment(ctx context.Context, bookingID uuid.UUID) (models.Payment, error) {
	return l.store.GetPaymentByBooking(ctx, bookingID)
}

// ListForVendor returns bookings made against any of the vendor's tickets.
func (l *Ledger) ListForVendor(ctx context.Context, vendorID uuid.UUID) ([]models.Booking, error) {
	return l.store.ListBookingsByVendor(ctx, vendorID)
}
