package gateway

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/ticketbari/marketplace/internal/models"
	"github.com/xendit/xendit-go/v6"
	"github.com/xendit/xendit-go/v6/invoice"
)

// Xendit opens a Xendit invoice per checkout. The invoice id is the session
// reference and the transaction id.
type Xendit struct {
	client *xendit.APIClient
}

func NewXendit(client *xendit.APIClient) *Xendit {
	return &Xendit{client: client}
}

func (x *Xendit) Provider() string {
	return ProviderXendit
}

func (x *Xendit) CreateCheckout(ctx context.Context, req CheckoutRequest) (Session, error) {
	amount, _ := req.Amount.Float64()

	invoiceReq := *invoice.NewCreateInvoiceRequest("booking-"+req.BookingID.String(), amount)
	invoiceReq.SetDescription(fmt.Sprintf("%s x%d", req.Title, req.Quantity))
	invoiceReq.SetCurrency(req.Currency)
	if req.SuccessURL != "" {
		invoiceReq.SetSuccessRedirectUrl(req.SuccessURL)
	}

	inv, _, xerr := x.client.InvoiceApi.CreateInvoice(ctx).CreateInvoiceRequest(invoiceReq).Execute()
	if xerr != nil {
		return Session{}, fmt.Errorf("xendit create invoice: %s: %w", xerr.Error(), models.ErrGatewayUnavailable)
	}

	return Session{Ref: inv.GetId(), RedirectURL: inv.GetInvoiceUrl()}, nil
}

func (x *Xendit) GetPaymentStatus(ctx context.Context, sessionRef string) (Status, error) {
	inv, _, xerr := x.client.InvoiceApi.GetInvoiceById(ctx, sessionRef).Execute()
	if xerr != nil {
		return Status{}, fmt.Errorf("xendit get invoice %s: %s: %w", sessionRef, xerr.Error(), models.ErrGatewayUnavailable)
	}
	return statusFromInvoice(inv), nil
}

func statusFromInvoice(inv *invoice.Invoice) Status {
	switch string(inv.GetStatus()) {
	case "PAID", "SETTLED":
		return Status{
			Paid:          true,
			TransactionID: inv.GetId(),
			Amount:        decimal.NewFromFloat(inv.GetAmount()).Round(2),
			PayerEmail:    inv.GetPayerEmail(),
		}
	}
	return Status{}
}
