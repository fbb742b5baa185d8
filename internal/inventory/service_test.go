package inventory

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ticketbari/marketplace/internal/models"
	"github.com/ticketbari/marketplace/internal/store"
)

func setupService() (*Service, *store.MemoryStore) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	s := store.NewMemoryStore()
	return NewService(s, logger), s
}

func TestService_CreateTicket_StartsPendingAndHidden(t *testing.T) {
	svc, _ := setupService()

	ticket, err := svc.CreateTicket(context.Background(), NewTicket{
		VendorID:     uuid.New(),
		Title:        "  Jazz night ",
		PricePerUnit: decimal.RequireFromString("150000.00"),
		Quantity:     40,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, ticket.ID)
	assert.Equal(t, "Jazz night", ticket.Title)
	assert.Equal(t, models.ApprovalPending, ticket.ApprovalState)
	assert.False(t, ticket.Visible)
	assert.False(t, ticket.Advertised)
}

func TestService_CreateTicket_RejectsInvalidInput(t *testing.T) {
	svc, _ := setupService()
	ctx := context.Background()

	cases := map[string]NewTicket{
		"missing vendor":    {Title: "x", Quantity: 1},
		"blank title":       {VendorID: uuid.New(), Title: " ", Quantity: 1},
		"negative price":    {VendorID: uuid.New(), Title: "x", PricePerUnit: decimal.NewFromInt(-1)},
		"negative quantity": {VendorID: uuid.New(), Title: "x", Quantity: -1},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateTicket(ctx, req)
			assert.ErrorIs(t, err, models.ErrInvalidInput)
		})
	}
}

func TestService_ApprovalWorkflow(t *testing.T) {
	svc, _ := setupService()
	ctx := context.Background()

	ticket, err := svc.CreateTicket(ctx, NewTicket{VendorID: uuid.New(), Title: "Rock", Quantity: 5})
	require.NoError(t, err)

	_, err = svc.SetAdvertised(ctx, ticket.ID, true)
	assert.ErrorIs(t, err, models.ErrInvalidState)

	approved, err := svc.SetApproval(ctx, ticket.ID, models.ApprovalApproved)
	require.NoError(t, err)
	assert.True(t, approved.Visible)

	advertised, err := svc.SetAdvertised(ctx, ticket.ID, true)
	require.NoError(t, err)
	assert.True(t, advertised.Advertised)

	rejected, err := svc.SetApproval(ctx, ticket.ID, models.ApprovalRejected)
	require.NoError(t, err)
	assert.False(t, rejected.Visible)
	assert.False(t, rejected.Advertised)
	assert.Equal(t, 5, rejected.QuantityAvailable)

	_, err = svc.SetApproval(ctx, ticket.ID, models.ApprovalPending)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.SetApproval(ctx, uuid.New(), models.ApprovalApproved)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestService_PublicListingsAreLimited(t *testing.T) {
	svc, s := setupService()
	ctx := context.Background()
	vendorID := uuid.New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		ticket := models.Ticket{
			VendorID:      vendorID,
			Title:         "Show",
			ApprovalState: models.ApprovalApproved,
			Visible:       true,
			Advertised:    true,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, s.CreateTicket(ctx, &ticket))
	}
	pending := models.Ticket{VendorID: vendorID, ApprovalState: models.ApprovalPending, Advertised: true, CreatedAt: base.Add(time.Hour)}
	require.NoError(t, s.CreateTicket(ctx, &pending))

	advertised, err := svc.ListAdvertised(ctx)
	require.NoError(t, err)
	assert.Len(t, advertised, AdvertisedLimit)

	latest, err := svc.ListLatest(ctx)
	require.NoError(t, err)
	require.Len(t, latest, LatestLimit)
	assert.Equal(t, base.Add(9*time.Minute), latest[0].CreatedAt)

	mine, err := svc.ListByVendor(ctx, vendorID)
	require.NoError(t, err)
	assert.Len(t, mine, 11)

	_, err = svc.ListByVendor(ctx, uuid.Nil)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}
