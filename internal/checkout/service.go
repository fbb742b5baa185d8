// Package checkout opens provider checkout sessions for bookings.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/ticketbari/marketplace/internal/gateway"
	"github.com/ticketbari/marketplace/internal/helpers"
	"github.com/ticketbari/marketplace/internal/models"
	"github.com/ticketbari/marketplace/internal/store"
)

const returnPath = "/v1/settlements/return"

type Config struct {
	Currency      string
	PublicBaseURL string
}

type Service struct {
	store   store.Store
	gateway gateway.Gateway
	tokens  *helpers.ReturnTokenSigner
	cfg     Config
	logger  *logrus.Logger
}

func NewService(s store.Store, gw gateway.Gateway, tokens *helpers.ReturnTokenSigner, cfg Config, logger *logrus.Logger) *Service {
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &Service{store: s, gateway: gw, tokens: tokens, cfg: cfg, logger: logger}
}

// CreateCheckout opens a provider session charging pricePerUnit * quantity
// for the booking as it stands now. The charged amount and quantity are
// frozen on the stored session.
func (s *Service) CreateCheckout(ctx context.Context, bookingID uuid.UUID) (models.CheckoutSession, error) {
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return models.CheckoutSession{}, err
	}
	if booking.IsPaid() {
		return models.CheckoutSession{}, fmt.Errorf("booking %s is already paid: %w", bookingID, models.ErrInvalidState)
	}
	if booking.LifecycleState == models.LifecycleRejected {
		return models.CheckoutSession{}, fmt.Errorf("booking %s was rejected: %w", bookingID, models.ErrInvalidState)
	}

	ticket, err := s.store.GetTicket(ctx, booking.TicketID)
	if err != nil {
		return models.CheckoutSession{}, err
	}

	amount := ticket.PricePerUnit.Mul(decimal.NewFromInt(int64(booking.Quantity))).Round(2)

	existing, err := s.reusableSession(ctx, booking, amount)
	if err != nil {
		return models.CheckoutSession{}, err
	}
	if existing != nil {
		s.logger.WithContext(ctx).WithFields(logrus.Fields{
			"booking_id":  booking.ID,
			"session_ref": existing.Ref,
		}).Info("reusing open checkout session")
		return *existing, nil
	}

	checkoutID := uuid.New()

	token, err := s.tokens.Sign(helpers.ReturnClaims{CheckoutID: checkoutID, BookingID: booking.ID})
	if err != nil {
		return models.CheckoutSession{}, fmt.Errorf("sign return token: %w", err)
	}

	providerSession, err := s.gateway.CreateCheckout(ctx, gateway.CheckoutRequest{
		BookingID:  booking.ID,
		BuyerID:    booking.BuyerID,
		Title:      ticket.Title,
		Quantity:   booking.Quantity,
		UnitPrice:  ticket.PricePerUnit,
		Amount:     amount,
		Currency:   s.cfg.Currency,
		SuccessURL: s.cfg.PublicBaseURL + returnPath + "?token=" + url.QueryEscape(token),
	})
	if err != nil {
		return models.CheckoutSession{}, err
	}

	session := models.CheckoutSession{
		ID:          checkoutID,
		Ref:         providerSession.Ref,
		BookingID:   booking.ID,
		Provider:    s.gateway.Provider(),
		Amount:      amount,
		Currency:    s.cfg.Currency,
		Quantity:    booking.Quantity,
		RedirectURL: providerSession.RedirectURL,
	}
	if err := s.store.SaveCheckoutSession(ctx, &session); err != nil {
		return models.CheckoutSession{}, err
	}

	s.logger.WithContext(ctx).WithFields(logrus.Fields{
		"booking_id":  booking.ID,
		"session_ref": session.Ref,
		"provider":    session.Provider,
		"amount":      amount.String(),
	}).Info("checkout session created")
	return session, nil
}

// reusableSession returns the booking's latest session when it still charges
// the booking as it stands, so a repeated checkout does not open a second
// payable session at the provider.
func (s *Service) reusableSession(ctx context.Context, booking models.Booking, amount decimal.Decimal) (*models.CheckoutSession, error) {
	latest, err := s.store.LatestCheckoutSession(ctx, booking.ID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if latest.Provider != s.gateway.Provider() ||
		latest.Currency != s.cfg.Currency ||
		latest.Quantity != booking.Quantity ||
		!latest.Amount.Equal(amount) {
		return nil, nil
	}
	return &latest, nil
}

// ResolveReturn maps a signed return token back to its checkout session.
func (s *Service) ResolveReturn(ctx context.Context, token string) (models.CheckoutSession, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return models.CheckoutSession{}, err
	}

	session, err := s.store.GetCheckoutSessionByID(ctx, claims.CheckoutID)
	if err != nil {
		return models.CheckoutSession{}, err
	}
	if session.BookingID != claims.BookingID {
		return models.CheckoutSession{}, fmt.Errorf("return token does not match checkout %s: %w", session.ID, models.ErrInvalidInput)
	}
	return session, nil
}
