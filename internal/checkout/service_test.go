package checkout

import (
	"context"
	"io"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ticketbari/marketplace/internal/gateway"
	"github.com/ticketbari/marketplace/internal/helpers"
	"github.com/ticketbari/marketplace/internal/models"
	"github.com/ticketbari/marketplace/internal/store"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Provider() string {
	return "mock"
}

func (m *MockGateway) CreateCheckout(ctx context.Context, req gateway.CheckoutRequest) (gateway.Session, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(gateway.Session), args.Error(1)
}

func (m *MockGateway) GetPaymentStatus(ctx context.Context, sessionRef string) (gateway.Status, error) {
	args := m.Called(ctx, sessionRef)
	return args.Get(0).(gateway.Status), args.Error(1)
}

type fixture struct {
	svc     *Service
	store   *store.MemoryStore
	gateway *MockGateway
	booking models.Booking
}

func setupFixture(t *testing.T) fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	ctx := context.Background()

	s := store.NewMemoryStore()
	ticket := models.Ticket{
		VendorID:          uuid.New(),
		Title:             "T1",
		PricePerUnit:      decimal.NewFromInt(100),
		QuantityAvailable: 5,
		ApprovalState:     models.ApprovalApproved,
	}
	require.NoError(t, s.CreateTicket(ctx, &ticket))

	buyerID := uuid.New()
	_, _, err := s.UpsertPendingBooking(ctx, buyerID, ticket.ID, 2)
	require.NoError(t, err)
	booking, _, err := s.UpsertPendingBooking(ctx, buyerID, ticket.ID, 2)
	require.NoError(t, err)

	gw := &MockGateway{}
	svc := NewService(s, gw, helpers.NewReturnTokenSigner("secret"), Config{Currency: "IDR", PublicBaseURL: "https://tickets.example/"}, logger)
	return fixture{svc: svc, store: s, gateway: gw, booking: booking}
}

func TestService_CreateCheckout_ChargesCurrentQuantity(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	var sent gateway.CheckoutRequest
	f.gateway.On("CreateCheckout", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(gateway.CheckoutRequest) }).
		Return(gateway.Session{Ref: "sess-1", RedirectURL: "https://pay.example/sess-1"}, nil)

	session, err := f.svc.CreateCheckout(ctx, f.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", session.Ref)
	assert.Equal(t, "mock", session.Provider)
	assert.Equal(t, 4, session.Quantity)
	assert.True(t, decimal.NewFromInt(400).Equal(session.Amount))
	assert.True(t, decimal.NewFromInt(400).Equal(sent.Amount))
	assert.Equal(t, "IDR", sent.Currency)
	assert.Equal(t, "T1", sent.Title)

	stored, err := f.store.GetCheckoutSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, session.ID, stored.ID)

	successURL, err := url.Parse(sent.SuccessURL)
	require.NoError(t, err)
	assert.Equal(t, "/v1/settlements/return", successURL.Path)

	resolved, err := f.svc.ResolveReturn(ctx, successURL.Query().Get("token"))
	require.NoError(t, err)
	assert.Equal(t, "sess-1", resolved.Ref)

	_, err = f.svc.ResolveReturn(ctx, "not-a-token")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	f.gateway.AssertExpectations(t)
}

func TestService_CreateCheckout_RefusesSettledOrRejected(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	_, err := f.store.SetBookingLifecycle(ctx, f.booking.ID, models.LifecycleRejected)
	require.NoError(t, err)
	_, err = f.svc.CreateCheckout(ctx, f.booking.ID)
	assert.ErrorIs(t, err, models.ErrInvalidState)

	_, err = f.store.SetBookingLifecycle(ctx, f.booking.ID, models.LifecycleAccepted)
	require.NoError(t, err)
	require.NoError(t, f.store.WithinTx(ctx, func(tx store.Tx) error {
		_, err := tx.MarkBookingPaid(ctx, f.booking.ID)
		return err
	}))
	_, err = f.svc.CreateCheckout(ctx, f.booking.ID)
	assert.ErrorIs(t, err, models.ErrInvalidState)

	_, err = f.svc.CreateCheckout(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
	f.gateway.AssertNotCalled(t, "CreateCheckout", mock.Anything, mock.Anything)
}

func TestService_CreateCheckout_GatewayFailureStoresNothing(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	f.gateway.On("CreateCheckout", mock.Anything, mock.Anything).
		Return(gateway.Session{}, models.ErrGatewayUnavailable)

	_, err := f.svc.CreateCheckout(ctx, f.booking.ID)
	assert.ErrorIs(t, err, models.ErrGatewayUnavailable)

	_, err = f.store.GetCheckoutSession(ctx, "")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestService_CreateCheckout_ReusesMatchingOpenSession(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	f.gateway.On("CreateCheckout", mock.Anything, mock.Anything).
		Return(gateway.Session{Ref: "sess-1", RedirectURL: "https://pay.example/sess-1"}, nil).Once()
	f.gateway.On("CreateCheckout", mock.Anything, mock.Anything).
		Return(gateway.Session{Ref: "sess-2", RedirectURL: "https://pay.example/sess-2"}, nil).Once()

	first, err := f.svc.CreateCheckout(ctx, f.booking.ID)
	require.NoError(t, err)

	again, err := f.svc.CreateCheckout(ctx, f.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "sess-1", again.Ref)
	f.gateway.AssertNumberOfCalls(t, "CreateCheckout", 1)

	// A merge changes what the booking costs, so the old session no longer fits.
	_, merged, err := f.store.UpsertPendingBooking(ctx, f.booking.BuyerID, f.booking.TicketID, 1)
	require.NoError(t, err)
	require.True(t, merged)

	fresh, err := f.svc.CreateCheckout(ctx, f.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, "sess-2", fresh.Ref)
	assert.Equal(t, 5, fresh.Quantity)
	assert.True(t, decimal.NewFromInt(500).Equal(fresh.Amount))
	f.gateway.AssertNumberOfCalls(t, "CreateCheckout", 2)
}
