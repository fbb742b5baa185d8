package booking

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ticketbari/marketplace/internal/models"
	"github.com/ticketbari/marketplace/internal/store"
)

func setupLedger(t *testing.T) (*Ledger, *store.MemoryStore, models.Ticket) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s := store.NewMemoryStore()
	ticket := models.Ticket{
		VendorID:          uuid.New(),
		Title:             "Festival pass",
		PricePerUnit:      decimal.NewFromInt(100),
		QuantityAvailable: 5,
		ApprovalState:     models.ApprovalApproved,
		Visible:           true,
	}
	require.NoError(t, s.CreateTicket(context.Background(), &ticket))
	return NewLedger(s, logger), s, ticket
}

func TestLedger_CreateOrMergeBooking_MergesRepeatedRequests(t *testing.T) {
	ledger, _, ticket := setupLedger(t)
	ctx := context.Background()
	buyerID := uuid.New()

	first, err := ledger.CreateOrMergeBooking(ctx, buyerID, ticket.ID, 2)
	require.NoError(t, err)
	assert.False(t, first.Merged)

	second, err := ledger.CreateOrMergeBooking(ctx, buyerID, ticket.ID, 2)
	require.NoError(t, err)
	assert.True(t, second.Merged)
	assert.Equal(t, first.Booking.ID, second.Booking.ID)
	assert.Equal(t, 4, second.Booking.Quantity)

	bookings, err := ledger.ListByBuyer(ctx, buyerID)
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
}

func TestLedger_CreateOrMergeBooking_ConcurrentRequestsProduceOneBooking(t *testing.T) {
	ledger, _, ticket := setupLedger(t)
	ctx := context.Background()
	buyerID := uuid.New()

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := ledger.CreateOrMergeBooking(ctx, buyerID, ticket.ID, 1)
			assert.NoError(t, err)
		}()
	}
	close(start)
	wg.Wait()

	bookings, err := ledger.ListByBuyer(ctx, buyerID)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, 2, bookings[0].Quantity)
}

func TestLedger_CreateOrMergeBooking_Validation(t *testing.T) {
	ledger, _, ticket := setupLedger(t)
	ctx := context.Background()

	_, err := ledger.CreateOrMergeBooking(ctx, uuid.New(), ticket.ID, 0)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = ledger.CreateOrMergeBooking(ctx, uuid.Nil, ticket.ID, 1)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = ledger.CreateOrMergeBooking(ctx, uuid.New(), uuid.New(), 1)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestLedger_SetVendorDecision(t *testing.T) {
	ledger, s, ticket := setupLedger(t)
	ctx := context.Background()
	buyerID := uuid.New()

	res, err := ledger.CreateOrMergeBooking(ctx, buyerID, ticket.ID, 1)
	require.NoError(t, err)

	accepted, err := ledger.SetVendorDecision(ctx, res.Booking.ID, DecisionAccept)
	require.NoError(t, err)
	assert.Equal(t, models.LifecycleAccepted, accepted.LifecycleState)

	next, err := ledger.CreateOrMergeBooking(ctx, buyerID, ticket.ID, 1)
	require.NoError(t, err)
	assert.False(t, next.Merged)

	_, err = ledger.SetVendorDecision(ctx, res.Booking.ID, Decision("maybe"))
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = ledger.SetVendorDecision(ctx, uuid.New(), DecisionReject)
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, s.WithinTx(ctx, func(tx store.Tx) error {
		_, err := tx.MarkBookingPaid(ctx, next.Booking.ID)
		return err
	}))
	_, err = ledger.SetVendorDecision(ctx, next.Booking.ID, DecisionReject)
	assert.ErrorIs(t, err, models.ErrInvalidState)

	forVendor, err := ledger.ListForVendor(ctx, ticket.VendorID)
	require.NoError(t, err)
	assert.Len(t, forVendor, 2)
}
