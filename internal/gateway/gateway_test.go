package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ticketbari/marketplace/internal/models"
	"github.com/xendit/xendit-go/v6/invoice"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestDokuSigner_HeadersAreVerifiable(t *testing.T) {
	signer := dokuSigner{
		clientID:  "client-1",
		secretKey: "secret",
		now:       func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) },
	}
	body := []byte(`{"order":{}}`)

	headers := signer.headers(dokuCheckoutPath, body)
	assert.Equal(t, "client-1", headers["Client-Id"])
	assert.Equal(t, "2024-05-01T08:00:00Z", headers["Request-Timestamp"])
	assert.Equal(t, signer.digest(body), headers["Digest"])
	assert.Equal(t,
		signer.signature(headers["Request-Id"], headers["Request-Timestamp"], dokuCheckoutPath, headers["Digest"]),
		headers["Signature"],
	)

	getHeaders := signer.headers(dokuStatusPath+"INV-1", nil)
	assert.NotContains(t, getHeaders, "Digest")
	assert.NotEqual(t, headers["Signature"], getHeaders["Signature"])
}

func TestDoku_CreateCheckoutAndStatus(t *testing.T) {
	signer := dokuSigner{clientID: "client-1", secretKey: "secret"}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		digest := r.Header.Get("Digest")
		expected := signer.signature(r.Header.Get("Request-Id"), r.Header.Get("Request-Timestamp"), r.URL.Path, digest)
		if r.Header.Get("Signature") != expected {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		switch {
		case r.Method == http.MethodPost && r.URL.Path == dokuCheckoutPath:
			var body map[string]map[string]interface{}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, float64(400), body["order"]["amount"])
			assert.Equal(t, "IDR", body["order"]["currency"])
			invoiceNumber := body["order"]["invoice_number"].(string)
			w.Write([]byte(`{"response":{"order":{"invoice_number":"` + invoiceNumber + `"},"payment":{"url":"https://pay.example/abc"}}}`))
		case r.Method == http.MethodGet && r.URL.Path == dokuStatusPath+"INV-PAID":
			w.Write([]byte(`{"order":{"invoice_number":"INV-PAID","amount":400},"transaction":{"status":"SUCCESS"},"customer":{"email":"b1@example.com"}}`))
		case r.Method == http.MethodGet && r.URL.Path == dokuStatusPath+"INV-PENDING":
			w.Write([]byte(`{"order":{"invoice_number":"INV-PENDING","amount":400},"transaction":{"status":"PENDING"}}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	doku := NewDoku(DokuConfig{BaseURL: srv.URL, ClientID: "client-1", SecretKey: "secret"}, srv.Client())
	ctx := context.Background()

	session, err := doku.CreateCheckout(ctx, CheckoutRequest{
		BookingID: uuid.New(),
		BuyerID:   uuid.New(),
		Title:     "T1",
		Quantity:  4,
		UnitPrice: decimal.NewFromInt(100),
		Amount:    decimal.NewFromInt(400),
		Currency:  "IDR",
	})
	require.NoError(t, err)
	assert.Contains(t, session.Ref, "INV-")
	assert.Equal(t, "https://pay.example/abc", session.RedirectURL)

	status, err := doku.GetPaymentStatus(ctx, "INV-PAID")
	require.NoError(t, err)
	assert.True(t, status.Paid)
	assert.Equal(t, "INV-PAID", status.TransactionID)
	assert.True(t, decimal.NewFromInt(400).Equal(status.Amount))
	assert.Equal(t, "b1@example.com", status.PayerEmail)

	status, err = doku.GetPaymentStatus(ctx, "INV-PENDING")
	require.NoError(t, err)
	assert.False(t, status.Paid)

	_, err = doku.GetPaymentStatus(ctx, "INV-BROKEN")
	assert.ErrorIs(t, err, models.ErrGatewayUnavailable)
}

func TestStatusFromInvoice(t *testing.T) {
	paid := invoice.Invoice{Status: invoice.InvoiceStatus("SETTLED"), Amount: 400}
	paid.SetId("inv-123")
	paid.SetPayerEmail("b1@example.com")

	status := statusFromInvoice(&paid)
	assert.True(t, status.Paid)
	assert.Equal(t, "inv-123", status.TransactionID)
	assert.True(t, decimal.NewFromInt(400).Equal(status.Amount))
	assert.Equal(t, "b1@example.com", status.PayerEmail)

	pending := invoice.Invoice{Status: invoice.InvoiceStatus("PENDING"), Amount: 400}
	assert.False(t, statusFromInvoice(&pending).Paid)
}

func TestSandbox_MarkPaidIsStable(t *testing.T) {
	sandbox := NewSandbox("http://localhost:8080/")
	ctx := context.Background()

	session, err := sandbox.CreateCheckout(ctx, CheckoutRequest{Amount: decimal.NewFromInt(400), SuccessURL: "http://localhost/return"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/v1/sandbox/sessions/"+session.Ref+"/pay", session.RedirectURL)

	status, err := sandbox.GetPaymentStatus(ctx, session.Ref)
	require.NoError(t, err)
	assert.False(t, status.Paid)

	first, returnURL, err := sandbox.MarkPaid(session.Ref, "b1@example.com")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost/return", returnURL)

	second, _, err := sandbox.MarkPaid(session.Ref, "other@example.com")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	status, err = sandbox.GetPaymentStatus(ctx, session.Ref)
	require.NoError(t, err)
	assert.Equal(t, first, status)

	_, _, err = sandbox.MarkPaid("sbx_unknown", "")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

type slowGateway struct {
	delay time.Duration
}

func (s slowGateway) Provider() string { return "slow" }

func (s slowGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (Session, error) {
	select {
	case <-time.After(s.delay):
		return Session{Ref: "late"}, nil
	case <-ctx.Done():
		return Session{}, ctx.Err()
	}
}

func (s slowGateway) GetPaymentStatus(ctx context.Context, sessionRef string) (Status, error) {
	time.Sleep(s.delay)
	return Status{Paid: true, TransactionID: "late"}, nil
}

func TestBounded_TimeoutIsGatewayUnavailable(t *testing.T) {
	bounded := NewBounded(slowGateway{delay: time.Second}, 20*time.Millisecond, quietLogger())
	ctx := context.Background()

	start := time.Now()
	status, err := bounded.GetPaymentStatus(ctx, "ref")
	assert.ErrorIs(t, err, models.ErrGatewayUnavailable)
	assert.False(t, status.Paid)
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	_, err = bounded.CreateCheckout(ctx, CheckoutRequest{})
	assert.ErrorIs(t, err, models.ErrGatewayUnavailable)

	fast := NewBounded(slowGateway{}, time.Second, quietLogger())
	status, err = fast.GetPaymentStatus(ctx, "ref")
	require.NoError(t, err)
	assert.Equal(t, "late", status.TransactionID)
	assert.Equal(t, "slow", fast.Provider())
}
