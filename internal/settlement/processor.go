// Package settlement turns a confirmed provider payment into exactly one
// Payment record, one booking payment-state flip and one inventory decrement.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/ticketbari/marketplace/internal/gateway"
	"github.com/ticketbari/marketplace/internal/models"
	"github.com/ticketbari/marketplace/internal/monitoring"
	"github.com/ticketbari/marketplace/internal/store"
)

// RevenueInvalidator is told when a vendor's paid bookings change.
type RevenueInvalidator interface {
	Invalidate(ctx context.Context, vendorID uuid.UUID)
}

type Processor struct {
	store   store.Store
	gateway gateway.Gateway
	revenue RevenueInvalidator
	logger  *logrus.Logger
	now     func() time.Time
}

func NewProcessor(s store.Store, gw gateway.Gateway, revenue RevenueInvalidator, logger *logrus.Logger) *Processor {
	return &Processor{
		store:   s,
		gateway: gw,
		revenue: revenue,
		logger:  logger,
		now:     time.Now,
	}
}

type settled struct {
	payment models.Payment
	booking models.Booking
	ticket  models.Ticket
}

// Settle reconciles one checkout session with the provider. It is safe to
// call any number of times, concurrently, for the same session.
func (p *Processor) Settle(ctx context.Context, sessionRef string) (Result, error) {
	res, err := p.settle(ctx, sessionRef)
	if err != nil {
		monitoring.TrackSettlement(failureKind(err))
		return Result{}, err
	}
	monitoring.TrackSettlement(string(res.Outcome))
	return res, nil
}

func (p *Processor) settle(ctx context.Context, sessionRef string) (Result, error) {
	log := p.logger.WithContext(ctx).WithField("session_ref", sessionRef)

	session, err := p.store.GetCheckoutSession(ctx, sessionRef)
	if err != nil {
		return Result{}, err
	}

	status, err := p.gateway.GetPaymentStatus(ctx, sessionRef)
	if err != nil {
		return Result{}, err
	}
	if !status.Paid {
		return Result{Outcome: OutcomeIncomplete, SessionRef: sessionRef}, nil
	}
	if status.TransactionID == "" {
		err := fmt.Errorf("session %s reported paid without a transaction id: %w", sessionRef, models.ErrInconsistentState)
		log.WithError(err).Error("settlement aborted")
		return Result{}, err
	}
	log = log.WithField("transaction_id", status.TransactionID)

	existing, err := p.store.GetPaymentByTransaction(ctx, status.TransactionID)
	switch {
	case err == nil:
		return p.alreadySettled(ctx, log, sessionRef, existing)
	case !errors.Is(err, models.ErrNotFound):
		return Result{}, err
	}

	amount := status.Amount
	if !amount.IsPositive() {
		amount = session.Amount
	}

	var out settled
	err = p.store.WithinTx(ctx, func(tx store.Tx) error {
		booking, err := tx.GetBookingForUpdate(ctx, session.BookingID)
		if err != nil {
			return inconsistent(err, "booking %s for session %s", session.BookingID, sessionRef)
		}

		if booking.IsPaid() {
			if _, err := tx.GetPaymentByTransaction(ctx, status.TransactionID); err == nil {
				return models.ErrDuplicateTransaction
			}
			return fmt.Errorf("booking %s was paid by another transaction: %w", booking.ID, models.ErrInconsistentState)
		}
		if booking.LifecycleState == models.LifecycleRejected {
			return fmt.Errorf("booking %s was rejected after checkout: %w", booking.ID, models.ErrInconsistentState)
		}

		ticket, err := tx.GetTicket(ctx, booking.TicketID)
		if err != nil {
			return inconsistent(err, "ticket %s for booking %s", booking.TicketID, booking.ID)
		}

		payment := models.Payment{
			TransactionID: status.TransactionID,
			BookingID:     booking.ID,
			SessionRef:    sessionRef,
			Provider:      session.Provider,
			Amount:        amount,
			Currency:      session.Currency,
			PayerEmail:    status.PayerEmail,
			SettledAt:     p.now().UTC(),
		}
		if err := tx.InsertPayment(ctx, &payment); err != nil {
			return err
		}

		paid, err := tx.MarkBookingPaid(ctx, booking.ID)
		if err != nil {
			return inconsistent(err, "booking %s", booking.ID)
		}

		updated, err := tx.DecrementTicketQuantity(ctx, ticket.ID, booking.Quantity)
		if err != nil {
			return err
		}

		out = settled{payment: payment, booking: paid, ticket: updated}
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, models.ErrDuplicateTransaction):
		existing, lookupErr := p.store.GetPaymentByTransaction(ctx, status.TransactionID)
		if lookupErr != nil {
			return Result{}, lookupErr
		}
		return p.alreadySettled(ctx, log, sessionRef, existing)
	case errors.Is(err, models.ErrOversold), errors.Is(err, models.ErrInconsistentState):
		log.WithError(err).WithField("booking_id", session.BookingID).Error("settlement aborted: integrity fault")
		return Result{}, err
	default:
		return Result{}, err
	}

	if !out.payment.Amount.Equal(session.Amount) || out.booking.Quantity != session.Quantity {
		log.WithFields(logrus.Fields{
			"booking_id":        out.booking.ID,
			"charged_amount":    out.payment.Amount.String(),
			"checkout_amount":   session.Amount.String(),
			"checkout_quantity": session.Quantity,
			"settled_quantity":  out.booking.Quantity,
		}).Warn("settled booking differs from its checkout")
	}

	if p.revenue != nil {
		p.revenue.Invalidate(ctx, out.ticket.VendorID)
	}

	log.WithFields(logrus.Fields{
		"booking_id":         out.booking.ID,
		"ticket_id":          out.ticket.ID,
		"quantity":           out.booking.Quantity,
		"quantity_remaining": out.ticket.QuantityAvailable,
	}).Info("payment settled")

	return Result{
		Outcome:    OutcomeSettled,
		SessionRef: sessionRef,
		Payment:    &out.payment,
		Booking:    &out.booking,
	}, nil
}

func (p *Processor) alreadySettled(ctx context.Context, log *logrus.Entry, sessionRef string, payment models.Payment) (Result, error) {
	booking, err := p.store.GetBooking(ctx, payment.BookingID)
	if err != nil {
		return Result{}, inconsistent(err, "booking %s for payment %s", payment.BookingID, payment.TransactionID)
	}

	log.WithField("booking_id", booking.ID).Info("duplicate settlement ignored")
	return Result{
		Outcome:    OutcomeAlreadySettled,
		SessionRef: sessionRef,
		Payment:    &payment,
		Booking:    &booking,
	}, nil
}

// inconsistent marks a missing or unexpectedly changed record as an
// integrity fault while keeping the underlying cause.
func inconsistent(err error, format string, args ...interface{}) error {
	if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrInvalidState) {
		return fmt.Errorf("%s: %w: %w", fmt.Sprintf(format, args...), models.ErrInconsistentState, err)
	}
	return err
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, models.ErrGatewayUnavailable):
		return "gateway_unavailable"
	case errors.Is(err, models.ErrOversold):
		return "oversold"
	case errors.Is(err, models.ErrInconsistentState):
		return "inconsistent_state"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	}
	return "error"
}
