// Package inventory manages vendor ticket listings: creation, the approval
// workflow and the public listing queries.
package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/ticketbari/marketplace/internal/models"
	"github.com/ticketbari/marketplace/internal/store"
)

const (
	AdvertisedLimit = 6
	LatestLimit     = 8
)

type NewTicket struct {
	VendorID     uuid.UUID
	Title        string
	PricePerUnit decimal.Decimal
	Quantity     int
}

type Service struct {
	store  store.Store
	logger *logrus.Logger
}

func NewService(s store.Store, logger *logrus.Logger) *Service {
	return &Service{store: s, logger: logger}
}

// CreateTicket lists a new ticket for a vendor. Listings start pending
// approval and hidden.
func (s *Service) CreateTicket(ctx context.Context, req NewTicket) (models.Ticket, error) {
	title := strings.TrimSpace(req.Title)
	switch {
	case req.VendorID == uuid.Nil:
		return models.Ticket{}, fmt.Errorf("vendor id is required: %w", models.ErrInvalidInput)
	case title == "":
		return models.Ticket{}, fmt.Errorf("title is required: %w", models.ErrInvalidInput)
	case req.PricePerUnit.IsNegative():
		return models.Ticket{}, fmt.Errorf("price must not be negative: %w", models.ErrInvalidInput)
	case req.Quantity < 0:
		return models.Ticket{}, fmt.Errorf("quantity must not be negative: %w", models.ErrInvalidInput)
	}

	ticket := models.Ticket{
		VendorID:          req.VendorID,
		Title:             title,
		PricePerUnit:      req.PricePerUnit.Round(2),
		QuantityAvailable: req.Quantity,
		ApprovalState:     models.ApprovalPending,
	}
	if err := s.store.CreateTicket(ctx, &ticket); err != nil {
		return models.Ticket{}, err
	}

	s.logger.WithContext(ctx).WithFields(logrus.Fields{
		"ticket_id": ticket.ID,
		"vendor_id": ticket.VendorID,
	}).Info("ticket listed")
	return ticket, nil
}

// SetApproval records the review decision. Approval makes the ticket
// visible; rejection hides it and withdraws any advertisement.
func (s *Service) SetApproval(ctx context.Context, ticketID uuid.UUID, state models.ApprovalState) (models.Ticket, error) {
	if state != models.ApprovalApproved && state != models.ApprovalRejected {
		return models.Ticket{}, fmt.Errorf("approval state %q: %w", state, models.ErrInvalidInput)
	}

	return s.store.UpdateTicketListing(ctx, ticketID, func(t models.Ticket) (store.ListingUpdate, error) {
		update := store.ListingUpdate{ApprovalState: state, Advertised: t.Advertised}
		if state == models.ApprovalApproved {
			update.Visible = true
		} else {
			update.Advertised = false
		}
		return update, nil
	})
}

func (s *Service) SetAdvertised(ctx context.Context, ticketID uuid.UUID, advertised bool) (models.Ticket, error) {
	return s.store.UpdateTicketListing(ctx, ticketID, func(t models.Ticket) (store.ListingUpdate, error) {
		if advertised && t.ApprovalState != models.ApprovalApproved {
			return store.ListingUpdate{}, fmt.Errorf("ticket %s is %s: %w", t.ID, t.ApprovalState, models.ErrInvalidState)
		}
		return store.ListingUpdate{
			ApprovalState: t.ApprovalState,
			Visible:       t.Visible,
			Advertised:    advertised,
		}, nil
	})
}

func (s *Service) Get(ctx context.Context, ticketID uuid.UUID) (models.Ticket, error) {
	return s.store.GetTicket(ctx, ticketID)
}

func (s *Service) ListByVendor(ctx context.Context, vendorID uuid.UUID) ([]models.Ticket, error) {
	if vendorID == uuid.Nil {
		return nil, fmt.Errorf("vendor id is required: %w", models.ErrInvalidInput)
	}
	return s.store.ListTickets(ctx, store.TicketFilter{VendorID: vendorID})
}

func (s *Service) ListAdvertised(ctx context.Context) ([]models.Ticket, error) {
	return s.store.ListTickets(ctx, store.TicketFilter{
		ApprovedOnly:   true,
		AdvertisedOnly: true,
		Limit:          AdvertisedLimit,
	})
}

func (s *Service) ListLatest(ctx context.Context) ([]models.Ticket, error) {
	return s.store.ListTickets(ctx, store.TicketFilter{
		ApprovedOnly: true,
		Limit:        LatestLimit,
	})
}
