package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ticketbari/marketplace/internal/checkout"
	"github.com/ticketbari/marketplace/internal/gateway"
	"github.com/ticketbari/marketplace/internal/helpers"
	"github.com/ticketbari/marketplace/internal/settlement"
)

type PaymentHandler struct {
	checkout   *checkout.Service
	settlement *settlement.Processor
	sandbox    *gateway.Sandbox
}

// NewPaymentHandler wires the payment endpoints. sandbox is nil unless the
// sandbox provider is active.
func NewPaymentHandler(checkout *checkout.Service, settlement *settlement.Processor, sandbox *gateway.Sandbox) *PaymentHandler {
	return &PaymentHandler{checkout: checkout, settlement: settlement, sandbox: sandbox}
}

type CheckoutRequest struct {
	BookingID uuid.UUID `json:"booking_id" binding:"required"`
}

type SettlementRequest struct {
	SessionRef string `json:"session_ref" binding:"required"`
}

// PaymentNotification covers the reference fields of the notification
// bodies we accept. Only the reference is read; status always comes from
// the provider API.
type PaymentNotification struct {
	SessionRef string `json:"session_ref"`
	ID         string `json:"id"`
	Order      struct {
		InvoiceNumber string `json:"invoice_number"`
	} `json:"order"`
}

func (n PaymentNotification) ref() string {
	switch {
	case n.SessionRef != "":
		return n.SessionRef
	case n.Order.InvoiceNumber != "":
		return n.Order.InvoiceNumber
	}
	return n.ID
}

type SandboxPayRequest struct {
	PayerEmail string `json:"payer_email"`
}

func (h *PaymentHandler) CreateCheckout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	session, err := h.checkout.CreateCheckout(c.Request.Context(), req.BookingID)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_ref": session.Ref,
		"payment_url": session.RedirectURL,
		"amount":      session.Amount,
		"currency":    session.Currency,
	})
}

func (h *PaymentHandler) Settle(c *gin.Context) {
	var req SettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	h.respondSettlement(c, req.SessionRef)
}

// SettleReturn is the success-page target of a checkout redirect. Reloading
// it replays the settlement and reports the same payment.
func (h *PaymentHandler) SettleReturn(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		helpers.RespondWithError(c, http.StatusBadRequest, "token is required.")
		return
	}

	session, err := h.checkout.ResolveReturn(c.Request.Context(), token)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	h.respondSettlement(c, session.Ref)
}

func (h *PaymentHandler) Webhook(c *gin.Context) {
	var notification PaymentNotification
	if err := c.ShouldBindJSON(&notification); err != nil || notification.ref() == "" {
		helpers.RespondWithError(c, http.StatusBadRequest, "Notification does not reference a session.")
		return
	}

	h.respondSettlement(c, notification.ref())
}

func (h *PaymentHandler) respondSettlement(c *gin.Context, sessionRef string) {
	result, err := h.settlement.Settle(c.Request.Context(), sessionRef)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	status := http.StatusOK
	if result.Outcome == settlement.OutcomeIncomplete {
		status = http.StatusAccepted
	}
	c.JSON(status, result)
}

// SandboxPay simulates the buyer completing payment on the sandbox provider.
func (h *PaymentHandler) SandboxPay(c *gin.Context) {
	if h.sandbox == nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Sandbox provider is not enabled.")
		return
	}

	var req SandboxPayRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
			return
		}
	}

	status, returnURL, err := h.sandbox.MarkPaid(c.Param("ref"), req.PayerEmail)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_ref":    c.Param("ref"),
		"transaction_id": status.TransactionID,
		"return_url":     returnURL,
	})
}
