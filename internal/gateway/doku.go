package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ticketbari/marketplace/internal/models"
)

const (
	dokuCheckoutPath = "/checkout/v1/payment"
	dokuStatusPath   = "/orders/v1/status/"

	dokuPaymentDueMinutes = 60
)

type DokuConfig struct {
	BaseURL   string
	ClientID  string
	SecretKey string
}

// Doku talks to the DOKU Checkout API. The invoice number it generates is
// used as both the session reference and the transaction id.
type Doku struct {
	baseURL string
	signer  dokuSigner
	client  *http.Client
}

func NewDoku(cfg DokuConfig, client *http.Client) *Doku {
	if client == nil {
		client = &http.Client{}
	}
	return &Doku{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		signer:  dokuSigner{clientID: cfg.ClientID, secretKey: cfg.SecretKey, now: time.Now},
		client:  client,
	}
}

func (d *Doku) Provider() string {
	return ProviderDoku
}

type dokuCheckoutResponse struct {
	Response struct {
		Order struct {
			InvoiceNumber string `json:"invoice_number"`
		} `json:"order"`
		Payment struct {
			URL string `json:"url"`
		} `json:"payment"`
	} `json:"response"`
}

func (d *Doku) CreateCheckout(ctx context.Context, req CheckoutRequest) (Session, error) {
	invoiceNumber := fmt.Sprintf("INV-%s-%d", strings.ReplaceAll(req.BookingID.String(), "-", "")[:12], d.signer.now().UnixNano())

	paymentBody := map[string]interface{}{
		"order": map[string]interface{}{
			"amount":                req.Amount.IntPart(),
			"invoice_number":        invoiceNumber,
			"currency":              req.Currency,
			"callback_url":          req.SuccessURL,
			"language":              "EN",
			"auto_redirect":         true,
			"disable_retry_payment": true,
			"line_items": []map[string]interface{}{
				{
					"id":       req.BookingID.String(),
					"name":     req.Title,
					"quantity": req.Quantity,
					"price":    req.UnitPrice.IntPart(),
				},
			},
		},
		"payment": map[string]interface{}{
			"payment_due_date": dokuPaymentDueMinutes,
		},
		"customer": map[string]interface{}{
			"id": req.BuyerID.String(),
		},
	}

	jsonBody, err := json.Marshal(paymentBody)
	if err != nil {
		return Session{}, fmt.Errorf("encode doku checkout: %w", err)
	}

	var out dokuCheckoutResponse
	if err := d.do(ctx, http.MethodPost, dokuCheckoutPath, jsonBody, &out); err != nil {
		return Session{}, err
	}

	if out.Response.Payment.URL == "" {
		return Session{}, fmt.Errorf("doku checkout response has no payment url: %w", models.ErrGatewayUnavailable)
	}
	ref := out.Response.Order.InvoiceNumber
	if ref == "" {
		ref = invoiceNumber
	}
	return Session{Ref: ref, RedirectURL: out.Response.Payment.URL}, nil
}

type dokuStatusResponse struct {
	Order struct {
		InvoiceNumber string          `json:"invoice_number"`
		Amount        decimal.Decimal `json:"amount"`
	} `json:"order"`
	Transaction struct {
		Status string `json:"status"`
	} `json:"transaction"`
	Customer struct {
		Email string `json:"email"`
	} `json:"customer"`
}

func (d *Doku) GetPaymentStatus(ctx context.Context, sessionRef string) (Status, error) {
	var out dokuStatusResponse
	if err := d.do(ctx, http.MethodGet, dokuStatusPath+sessionRef, nil, &out); err != nil {
		return Status{}, err
	}

	if !strings.EqualFold(out.Transaction.Status, "SUCCESS") {
		return Status{}, nil
	}
	return Status{
		Paid:          true,
		TransactionID: sessionRef,
		Amount:        out.Order.Amount,
		PayerEmail:    out.Customer.Email,
	}, nil
}

func (d *Doku) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build doku request: %w", err)
	}
	for key, value := range d.signer.headers(path, body) {
		httpReq.Header.Set(key, value)
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("doku %s %s: %w: %w", method, path, models.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read doku response: %w: %w", models.ErrGatewayUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("doku %s %s returned %d: %w", method, path, resp.StatusCode, models.ErrGatewayUnavailable)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode doku response: %w: %w", models.ErrGatewayUnavailable, err)
	}
	return nil
}
