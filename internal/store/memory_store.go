package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/ticketbari/marketplace/internal/models"
)

type memoryState struct {
	tickets  map[uuid.UUID]models.Ticket
	bookings map[uuid.UUID]models.Booking
	sessions map[string]models.CheckoutSession
	payments map[string]models.Payment
}

func newMemoryState() memoryState {
	return memoryState{
		tickets:  make(map[uuid.UUID]models.Ticket),
		bookings: make(map[uuid.UUID]models.Booking),
		sessions: make(map[string]models.CheckoutSession),
		payments: make(map[string]models.Payment),
	}
}

func (m memoryState) clone() memoryState {
	c := newMemoryState()
	for k, v := range m.tickets {
		c.tickets[k] = v
	}
	for k, v := range m.bookings {
		c.bookings[k] = v
	}
	for k, v := range m.sessions {
		c.sessions[k] = v
	}
	for k, v := range m.payments {
		c.payments[k] = v
	}
	return c
}

// MemoryStore keeps everything in process. A single mutex serializes all
// operations; transactions run against a copy that replaces the live state
// only when the callback succeeds.
type MemoryStore struct {
	mu    sync.Mutex
	state memoryState
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: newMemoryState(),
		now:   time.Now,
	}
}

func (s *MemoryStore) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ticket.ID == uuid.Nil {
		ticket.ID = uuid.New()
	}
	if _, exists := s.state.tickets[ticket.ID]; exists {
		return fmt.Errorf("ticket %s: %w", ticket.ID, models.ErrInvalidState)
	}
	now := s.now()
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = now
	}
	ticket.UpdatedAt = now
	s.state.tickets[ticket.ID] = *ticket
	return nil
}

func (s *MemoryStore) GetTicket(ctx context.Context, id uuid.UUID) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ticket(id)
}

func (m memoryState) ticket(id uuid.UUID) (models.Ticket, error) {
	ticket, ok := m.tickets[id]
	if !ok {
		return models.Ticket{}, fmt.Errorf("ticket %s: %w", id, models.ErrNotFound)
	}
	return ticket, nil
}

func (m memoryState) booking(id uuid.UUID) (models.Booking, error) {
	booking, ok := m.bookings[id]
	if !ok {
		return models.Booking{}, fmt.Errorf("booking %s: %w", id, models.ErrNotFound)
	}
	return booking, nil
}

func (m memoryState) payment(transactionID string) (models.Payment, error) {
	payment, ok := m.payments[transactionID]
	if !ok {
		return models.Payment{}, fmt.Errorf("payment %s: %w", transactionID, models.ErrNotFound)
	}
	return payment, nil
}

func (s *MemoryStore) ListTickets(ctx context.Context, filter TicketFilter) ([]models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tickets := make([]models.Ticket, 0)
	for _, t := range s.state.tickets {
		if filter.VendorID != uuid.Nil && t.VendorID != filter.VendorID {
			continue
		}
		if filter.ApprovedOnly && t.ApprovalState != models.ApprovalApproved {
			continue
		}
		if filter.AdvertisedOnly && !t.Advertised {
			continue
		}
		tickets = append(tickets, t)
	}

	sort.Slice(tickets, func(i, j int) bool {
		if tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].ID.String() < tickets[j].ID.String()
		}
		return tickets[i].CreatedAt.After(tickets[j].CreatedAt)
	})

	if filter.Limit > 0 && len(tickets) > filter.Limit {
		tickets = tickets[:filter.Limit]
	}
	return tickets, nil
}

func (s *MemoryStore) UpdateTicketListing(ctx context.Context, id uuid.UUID, fn func(models.Ticket) (ListingUpdate, error)) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, err := s.state.ticket(id)
	if err != nil {
		return models.Ticket{}, err
	}

	update, err := fn(ticket)
	if err != nil {
		return models.Ticket{}, err
	}

	ticket.ApprovalState = update.ApprovalState
	ticket.Visible = update.Visible
	ticket.Advertised = update.Advertised
	ticket.UpdatedAt = s.now()
	s.state.tickets[id] = ticket
	return ticket, nil
}

func (s *MemoryStore) UpsertPendingBooking(ctx context.Context, buyerID, ticketID uuid.UUID, quantity int) (models.Booking, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, b := range s.state.bookings {
		if b.BuyerID == buyerID && b.TicketID == ticketID &&
			b.LifecycleState == models.LifecyclePending && b.PaymentState == models.PaymentUnpaid {
			b.Quantity += quantity
			b.UpdatedAt = now
			s.state.bookings[id] = b
			return b, true, nil
		}
	}

	booking := models.Booking{
		ID:             uuid.New(),
		BuyerID:        buyerID,
		TicketID:       ticketID,
		Quantity:       quantity,
		LifecycleState: models.LifecyclePending,
		PaymentState:   models.PaymentUnpaid,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.state.bookings[booking.ID] = booking
	return booking, false, nil
}

func (s *MemoryStore) GetBooking(ctx context.Context, id uuid.UUID) (models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.booking(id)
}

func (s *MemoryStore) ListBookingsByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Booking, error) {
	return s.listBookings(func(b models.Booking) bool { return b.BuyerID == buyerID }), nil
}

func (s *MemoryStore) ListBookingsByVendor(ctx context.Context, vendorID uuid.UUID) ([]models.Booking, error) {
	s.mu.Lock()
	owned := make(map[uuid.UUID]bool)
	for id, t := range s.state.tickets {
		if t.VendorID == vendorID {
			owned[id] = true
		}
	}
	s.mu.Unlock()

	return s.listBookings(func(b models.Booking) bool { return owned[b.TicketID] }), nil
}

func (s *MemoryStore) listBookings(keep func(models.Booking) bool) []models.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookings := make([]models.Booking, 0)
	for _, b := range s.state.bookings {
		if keep(b) {
			bookings = append(bookings, b)
		}
	}
	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].ID.String() < bookings[j].ID.String()
		}
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})
	return bookings
}

func (s *MemoryStore) SetBookingLifecycle(ctx context.Context, id uuid.UUID, state models.LifecycleState) (models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	booking, err := s.state.booking(id)
	if err != nil {
		return models.Booking{}, err
	}
	if booking.IsPaid() {
		return booking, fmt.Errorf("booking %s is already paid: %w", id, models.ErrInvalidState)
	}

	booking.LifecycleState = state
	booking.UpdatedAt = s.now()
	s.state.bookings[id] = booking
	return booking, nil
}

func (s *MemoryStore) SaveCheckoutSession(ctx context.Context, session *models.CheckoutSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.state.sessions[session.Ref]; exists {
		return fmt.Errorf("checkout session %s: %w", session.Ref, models.ErrInvalidState)
	}
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = s.now()
	}
	s.state.sessions[session.Ref] = *session
	return nil
}

func (s *MemoryStore) GetCheckoutSession(ctx context.Context, ref string) (models.CheckoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.state.sessions[ref]
	if !ok {
		return models.CheckoutSession{}, fmt.Errorf("checkout session %s: %w", ref, models.ErrNotFound)
	}
	return session, nil
}

func (s *MemoryStore) GetCheckoutSessionByID(ctx context.Context, id uuid.UUID) (models.CheckoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, session := range s.state.sessions {
		if session.ID == id {
			return session, nil
		}
	}
	return models.CheckoutSession{}, fmt.Errorf("checkout session %s: %w", id, models.ErrNotFound)
}

func (s *MemoryStore) LatestCheckoutSession(ctx context.Context, bookingID uuid.UUID) (models.CheckoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest models.CheckoutSession
	found := false
	for _, session := range s.state.sessions {
		if session.BookingID != bookingID {
			continue
		}
		if !found || session.CreatedAt.After(latest.CreatedAt) {
			latest, found = session, true
		}
	}
	if !found {
		return models.CheckoutSession{}, fmt.Errorf("checkout session for booking %s: %w", bookingID, models.ErrNotFound)
	}
	return latest, nil
}

func (s *MemoryStore) GetPaymentByTransaction(ctx context.Context, transactionID string) (models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.payment(transactionID)
}

func (s *MemoryStore) GetPaymentByBooking(ctx context.Context, bookingID uuid.UUID) (models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.state.payments {
		if p.BookingID == bookingID {
			return p, nil
		}
	}
	return models.Payment{}, fmt.Errorf("payment for booking %s: %w", bookingID, models.ErrNotFound)
}

func (s *MemoryStore) VendorSales(ctx context.Context, vendorID uuid.UUID) (VendorSales, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sales := VendorSales{Revenue: decimal.Zero}
	for _, t := range s.state.tickets {
		if t.VendorID == vendorID {
			sales.TicketsListed++
		}
	}
	for _, b := range s.state.bookings {
		if !b.IsPaid() {
			continue
		}
		t, ok := s.state.tickets[b.TicketID]
		if !ok || t.VendorID != vendorID {
			continue
		}
		sales.UnitsSold += int64(b.Quantity)
		sales.Revenue = sales.Revenue.Add(t.PricePerUnit.Mul(decimal.NewFromInt(int64(b.Quantity))))
	}
	return sales, nil
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memoryTx{state: s.state.clone(), now: s.now}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) Close() error {
	return nil
}

type memoryTx struct {
	state memoryState
	now   func() time.Time
}

func (tx *memoryTx) GetTicket(ctx context.Context, id uuid.UUID) (models.Ticket, error) {
	return tx.state.ticket(id)
}

func (tx *memoryTx) GetBookingForUpdate(ctx context.Context, id uuid.UUID) (models.Booking, error) {
	return tx.state.booking(id)
}

func (tx *memoryTx) GetPaymentByTransaction(ctx context.Context, transactionID string) (models.Payment, error) {
	return tx.state.payment(transactionID)
}

func (tx *memoryTx) InsertPayment(ctx context.Context, payment *models.Payment) error {
	if _, exists := tx.state.payments[payment.TransactionID]; exists {
		return fmt.Errorf("insert payment %s: %w", payment.TransactionID, models.ErrDuplicateTransaction)
	}
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	tx.state.payments[payment.TransactionID] = *payment
	return nil
}

func (tx *memoryTx) MarkBookingPaid(ctx context.Context, id uuid.UUID) (models.Booking, error) {
	booking, err := tx.state.booking(id)
	if err != nil {
		return models.Booking{}, err
	}
	if booking.IsPaid() {
		return models.Booking{}, fmt.Errorf("booking %s is not awaiting payment: %w", id, models.ErrInvalidState)
	}
	booking.PaymentState = models.PaymentPaid
	booking.UpdatedAt = tx.now()
	tx.state.bookings[id] = booking
	return booking, nil
}

func (tx *memoryTx) DecrementTicketQuantity(ctx context.Context, id uuid.UUID, quantity int) (models.Ticket, error) {
	ticket, err := tx.state.ticket(id)
	if err != nil {
		return models.Ticket{}, err
	}
	if ticket.QuantityAvailable < quantity {
		return ticket, fmt.Errorf("ticket %s has %d left, need %d: %w", id, ticket.QuantityAvailable, quantity, models.ErrOversold)
	}
	ticket.QuantityAvailable -= quantity
	ticket.UpdatedAt = tx.now()
	tx.state.tickets[id] = ticket
	return ticket, nil
}
