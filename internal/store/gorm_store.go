package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/ticketbari/marketplace/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const upsertPendingBookingQuery = `
	INSERT INTO bookings
		(id, buyer_id, ticket_id, quantity, lifecycle_state, payment_state, created_at, updated_at)
	VALUES
		(?, ?, ?, ?, 'pending', 'unpaid', ?, ?)
	ON CONFLICT (buyer_id, ticket_id) WHERE lifecycle_state = 'pending' AND payment_state = 'unpaid'
	DO UPDATE SET
		quantity = bookings.quantity + EXCLUDED.quantity,
		updated_at = EXCLUDED.updated_at
	RETURNING
		id, buyer_id, ticket_id, quantity, lifecycle_state, payment_state, created_at, updated_at,
		(xmax <> 0) AS merged
`

const vendorSalesQuery = `
	SELECT
		COALESCE(SUM(b.quantity * t.price_per_unit), 0) AS revenue,
		COALESCE(SUM(b.quantity), 0) AS units_sold
	FROM bookings b
	JOIN tickets t ON t.id = b.ticket_id
	WHERE t.vendor_id = ? AND b.payment_state = 'paid'
`

type GormStore struct {
	db     *gorm.DB
	logger *logrus.Logger
	now    func() time.Time
}

func NewGormStore(db *gorm.DB, logger *logrus.Logger) *GormStore {
	return &GormStore{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

func (s *GormStore) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// fail maps gorm errors onto the model taxonomy and logs anything unexpected.
func (s *GormStore) fail(ctx context.Context, err error, what string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s already exists: %w", what, models.ErrInvalidState)
	}
	s.logger.WithContext(ctx).WithError(err).WithField("op", what).Error("store operation failed")
	return fmt.Errorf("%s: %w", what, err)
}

func (s *GormStore) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	if err := s.conn(ctx).Create(ticket).Error; err != nil {
		return s.fail(ctx, err, "create ticket")
	}
	return nil
}

func (s *GormStore) GetTicket(ctx context.Context, id uuid.UUID) (models.Ticket, error) {
	var ticket models.Ticket
	if err := s.conn(ctx).Where("id = ?", id).First(&ticket).Error; err != nil {
		return models.Ticket{}, s.fail(ctx, err, "ticket "+id.String())
	}
	return ticket, nil
}

func (s *GormStore) ListTickets(ctx context.Context, filter TicketFilter) ([]models.Ticket, error) {
	query := s.conn(ctx).Model(&models.Ticket{})
	if filter.VendorID != uuid.Nil {
		query = query.Where("vendor_id = ?", filter.VendorID)
	}
	if filter.ApprovedOnly {
		query = query.Where("approval_state = ?", models.ApprovalApproved)
	}
	if filter.AdvertisedOnly {
		query = query.Where("advertised = ?", true)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	tickets := make([]models.Ticket, 0)
	if err := query.Order("created_at DESC").Find(&tickets).Error; err != nil {
		return nil, s.fail(ctx, err, "list tickets")
	}
	return tickets, nil
}

func (s *GormStore) UpdateTicketListing(ctx context.Context, id uuid.UUID, fn func(models.Ticket) (ListingUpdate, error)) (models.Ticket, error) {
	var updated models.Ticket
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var ticket models.Ticket
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&ticket).Error; err != nil {
			return s.fail(ctx, err, "ticket "+id.String())
		}

		update, err := fn(ticket)
		if err != nil {
			return err
		}

		err = tx.Model(&ticket).Select("approval_state", "visible", "advertised", "updated_at").Updates(map[string]interface{}{
			"approval_state": update.ApprovalState,
			"visible":        update.Visible,
			"advertised":     update.Advertised,
			"updated_at":     s.now(),
		}).Error
		if err != nil {
			return s.fail(ctx, err, "update ticket listing")
		}

		return tx.Where("id = ?", id).First(&updated).Error
	})
	if err != nil {
		return models.Ticket{}, err
	}
	return updated, nil
}

type upsertedBooking struct {
	models.Booking
	Merged bool
}

func (s *GormStore) UpsertPendingBooking(ctx context.Context, buyerID, ticketID uuid.UUID, quantity int) (models.Booking, bool, error) {
	now := s.now()

	var row upsertedBooking
	err := s.conn(ctx).Raw(upsertPendingBookingQuery, uuid.New(), buyerID, ticketID, quantity, now, now).Scan(&row).Error
	if err != nil {
		return models.Booking{}, false, s.fail(ctx, err, "upsert pending booking")
	}
	return row.Booking, row.Merged, nil
}

func (s *GormStore) GetBooking(ctx context.Context, id uuid.UUID) (models.Booking, error) {
	var booking models.Booking
	if err := s.conn(ctx).Where("id = ?", id).First(&booking).Error; err != nil {
		return models.Booking{}, s.fail(ctx, err, "booking "+id.String())
	}
	return booking, nil
}

func (s *GormStore) ListBookingsByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Booking, error) {
	bookings := make([]models.Booking, 0)
	if err := s.conn(ctx).Where("buyer_id = ?", buyerID).Order("created_at DESC").Find(&bookings).Error; err != nil {
		return nil, s.fail(ctx, err, "list bookings by buyer")
	}
	return bookings, nil
}

func (s *GormStore) ListBookingsByVendor(ctx context.Context, vendorID uuid.UUID) ([]models.Booking, error) {
	bookings := make([]models.Booking, 0)
	err := s.conn(ctx).
		Joins("JOIN tickets ON tickets.id = bookings.ticket_id").
		Where("tickets.vendor_id = ?", vendorID).
		Order("bookings.created_at DESC").
		Find(&bookings).Error
	if err != nil {
		return nil, s.fail(ctx, err, "list bookings by vendor")
	}
	return bookings, nil
}

func (s *GormStore) SetBookingLifecycle(ctx context.Context, id uuid.UUID, state models.LifecycleState) (models.Booking, error) {
	result := s.conn(ctx).Exec(
		`UPDATE bookings SET lifecycle_state = ?, updated_at = ? WHERE id = ? AND payment_state = 'unpaid'`,
		state, s.now(), id,
	)
	if result.Error != nil {
		return models.Booking{}, s.fail(ctx, result.Error, "set booking lifecycle")
	}

	booking, err := s.GetBooking(ctx, id)
	if err != nil {
		return models.Booking{}, err
	}
	if result.RowsAffected == 0 {
		return booking, fmt.Errorf("booking %s is already paid: %w", id, models.ErrInvalidState)
	}
	return booking, nil
}

func (s *GormStore) SaveCheckoutSession(ctx context.Context, session *models.CheckoutSession) error {
	if err := s.conn(ctx).Create(session).Error; err != nil {
		return s.fail(ctx, err, "save checkout session")
	}
	return nil
}

func (s *GormStore) GetCheckoutSession(ctx context.Context, ref string) (models.CheckoutSession, error) {
	var session models.CheckoutSession
	if err := s.conn(ctx).Where("ref = ?", ref).First(&session).Error; err != nil {
		return models.CheckoutSession{}, s.fail(ctx, err, "checkout session "+ref)
	}
	return session, nil
}

func (s *GormStore) GetCheckoutSessionByID(ctx context.Context, id uuid.UUID) (models.CheckoutSession, error) {
	var session models.CheckoutSession
	if err := s.conn(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		return models.CheckoutSession{}, s.fail(ctx, err, "checkout session "+id.String())
	}
	return session, nil
}

func (s *GormStore) LatestCheckoutSession(ctx context.Context, bookingID uuid.UUID) (models.CheckoutSession, error) {
	var session models.CheckoutSession
	err := s.conn(ctx).Where("booking_id = ?", bookingID).Order("created_at DESC").First(&session).Error
	if err != nil {
		return models.CheckoutSession{}, s.fail(ctx, err, "latest checkout session for booking "+bookingID.String())
	}
	return session, nil
}

func (s *GormStore) GetPaymentByTransaction(ctx context.Context, transactionID string) (models.Payment, error) {
	var payment models.Payment
	if err := s.conn(ctx).Where("transaction_id = ?", transactionID).First(&payment).Error; err != nil {
		return models.Payment{}, s.fail(ctx, err, "payment "+transactionID)
	}
	return payment, nil
}

func (s *GormStore) GetPaymentByBooking(ctx context.Context, bookingID uuid.UUID) (models.Payment, error) {
	var payment models.Payment
	if err := s.conn(ctx).Where("booking_id = ?", bookingID).First(&payment).Error; err != nil {
		return models.Payment{}, s.fail(ctx, err, "payment for booking "+bookingID.String())
	}
	return payment, nil
}

func (s *GormStore) VendorSales(ctx context.Context, vendorID uuid.UUID) (VendorSales, error) {
	var sales VendorSales
	if err := s.conn(ctx).Raw(vendorSalesQuery, vendorID).Row().Scan(&sales.Revenue, &sales.UnitsSold); err != nil {
		return VendorSales{}, s.fail(ctx, err, "vendor sales")
	}

	if err := s.conn(ctx).Model(&models.Ticket{}).Where("vendor_id = ?", vendorID).Count(&sales.TicketsListed).Error; err != nil {
		return VendorSales{}, s.fail(ctx, err, "vendor tickets listed")
	}
	return sales, nil
}

func (s *GormStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx, logger: s.logger, now: s.now})
	})
}

func (s *GormStore) GetBookingForUpdate(ctx context.Context, id uuid.UUID) (models.Booking, error) {
	var booking models.Booking
	if err := s.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&booking).Error; err != nil {
		return models.Booking{}, s.fail(ctx, err, "booking "+id.String())
	}
	return booking, nil
}

func (s *GormStore) InsertPayment(ctx context.Context, payment *models.Payment) error {
	if err := s.conn(ctx).Create(payment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("insert payment %s: %w", payment.TransactionID, models.ErrDuplicateTransaction)
		}
		return s.fail(ctx, err, "insert payment "+payment.TransactionID)
	}
	return nil
}

func (s *GormStore) MarkBookingPaid(ctx context.Context, id uuid.UUID) (models.Booking, error) {
	result := s.conn(ctx).Exec(
		`UPDATE bookings SET payment_state = 'paid', updated_at = ? WHERE id = ? AND payment_state = 'unpaid'`,
		s.now(), id,
	)
	if result.Error != nil {
		return models.Booking{}, s.fail(ctx, result.Error, "mark booking paid")
	}
	if result.RowsAffected == 0 {
		return models.Booking{}, fmt.Errorf("booking %s is not awaiting payment: %w", id, models.ErrInvalidState)
	}
	return s.GetBooking(ctx, id)
}

func (s *GormStore) DecrementTicketQuantity(ctx context.Context, id uuid.UUID, quantity int) (models.Ticket, error) {
	result := s.conn(ctx).Exec(
		`UPDATE tickets SET quantity_available = quantity_available - ?, updated_at = ? WHERE id = ? AND quantity_available >= ?`,
		quantity, s.now(), id, quantity,
	)
	if result.Error != nil {
		return models.Ticket{}, s.fail(ctx, result.Error, "decrement ticket quantity")
	}

	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return models.Ticket{}, err
	}
	if result.RowsAffected == 0 {
		return ticket, fmt.Errorf("ticket %s has %d left, need %d: %w", id, ticket.QuantityAvailable, quantity, models.ErrOversold)
	}
	return ticket, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
