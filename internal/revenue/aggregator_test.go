package revenue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ticketbari/marketplace/internal/models"
	"github.com/ticketbari/marketplace/internal/store"
)

const testTTL = 30 * time.Second

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// seedSales lists two tickets for the vendor and settles 2 x 100 + 1 x 250.
func seedSales(t *testing.T, s *store.MemoryStore, vendorID uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	for _, sale := range []struct {
		price int64
		qty   int
	}{{100, 2}, {250, 1}} {
		ticket := models.Ticket{VendorID: vendorID, Title: "x", PricePerUnit: decimal.NewFromInt(sale.price), QuantityAvailable: 10}
		require.NoError(t, s.CreateTicket(ctx, &ticket))

		booking, _, err := s.UpsertPendingBooking(ctx, uuid.New(), ticket.ID, sale.qty)
		require.NoError(t, err)
		require.NoError(t, s.WithinTx(ctx, func(tx store.Tx) error {
			_, err := tx.MarkBookingPaid(ctx, booking.ID)
			return err
		}))
	}
}

func TestAggregator_SummarizeForVendor_WithoutCache(t *testing.T) {
	s := store.NewMemoryStore()
	vendorID := uuid.New()
	seedSales(t, s, vendorID)
	agg := NewAggregator(s, nil, quietLogger())
	ctx := context.Background()

	summary, err := agg.SummarizeForVendor(ctx, vendorID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(450).Equal(summary.TotalRevenue))
	assert.Equal(t, int64(3), summary.TotalUnitsSold)
	assert.Equal(t, int64(2), summary.TotalTicketsListed)

	empty, err := agg.SummarizeForVendor(ctx, uuid.New())
	require.NoError(t, err)
	assert.True(t, empty.TotalRevenue.IsZero())
	assert.Zero(t, empty.TotalUnitsSold)

	_, err = agg.SummarizeForVendor(ctx, uuid.Nil)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	agg.Invalidate(ctx, vendorID)
}

func TestAggregator_SummarizeForVendor_MissPopulatesCache(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer mock.ClearExpect()

	s := store.NewMemoryStore()
	vendorID := uuid.New()
	seedSales(t, s, vendorID)
	agg := NewAggregator(s, NewCache(db, testTTL), quietLogger())

	expected := Summary{
		VendorID:           vendorID,
		TotalRevenue:       decimal.NewFromInt(450),
		TotalUnitsSold:     3,
		TotalTicketsListed: 2,
	}
	payload, err := json.Marshal(expected)
	require.NoError(t, err)

	key := "revenue:vendor:" + vendorID.String()
	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, string(payload), testTTL).SetVal("OK")

	summary, err := agg.SummarizeForVendor(context.Background(), vendorID)
	require.NoError(t, err)
	assert.True(t, expected.TotalRevenue.Equal(summary.TotalRevenue))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregator_SummarizeForVendor_HitSkipsStore(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer mock.ClearExpect()

	vendorID := uuid.New()
	agg := NewAggregator(store.NewMemoryStore(), NewCache(db, testTTL), quietLogger())

	cached := Summary{VendorID: vendorID, TotalRevenue: decimal.NewFromInt(999), TotalUnitsSold: 9, TotalTicketsListed: 1}
	payload, err := json.Marshal(cached)
	require.NoError(t, err)
	mock.ExpectGet("revenue:vendor:" + vendorID.String()).SetVal(string(payload))

	summary, err := agg.SummarizeForVendor(context.Background(), vendorID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(999).Equal(summary.TotalRevenue))
	assert.Equal(t, int64(9), summary.TotalUnitsSold)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregator_CacheFailureFallsBackToStore(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer mock.ClearExpect()

	s := store.NewMemoryStore()
	vendorID := uuid.New()
	seedSales(t, s, vendorID)
	agg := NewAggregator(s, NewCache(db, testTTL), quietLogger())

	mock.ExpectGet("revenue:vendor:" + vendorID.String()).SetErr(errors.New("connection refused"))

	summary, err := agg.SummarizeForVendor(context.Background(), vendorID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.TotalUnitsSold)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregator_Invalidate(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer mock.ClearExpect()

	vendorID := uuid.New()
	agg := NewAggregator(store.NewMemoryStore(), NewCache(db, testTTL), quietLogger())

	mock.ExpectDel("revenue:vendor:" + vendorID.String()).SetVal(1)
	agg.Invalidate(context.Background(), vendorID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
