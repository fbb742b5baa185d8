package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ticketbari/marketplace/internal/booking"
	"github.com/ticketbari/marketplace/internal/helpers"
	"github.com/ticketbari/marketplace/internal/inventory"
	"github.com/ticketbari/marketplace/internal/models"
)

type PassHandler struct {
	ledger    *booking.Ledger
	inventory *inventory.Service
	passes    *helpers.PassSigner
}

func NewPassHandler(ledger *booking.Ledger, inventory *inventory.Service, passes *helpers.PassSigner) *PassHandler {
	return &PassHandler{ledger: ledger, inventory: inventory, passes: passes}
}

type VerifyPassRequest struct {
	QRData string `json:"qr_data" binding:"required"`
}

// GeneratePass renders the QR pass for a paid booking as a PNG.
func (h *PassHandler) GeneratePass(c *gin.Context) {
	bookingID, err := helpers.ParamUUID(c, "id")
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	ctx := c.Request.Context()
	b, err := h.ledger.Get(ctx, bookingID)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}
	if !b.IsPaid() {
		helpers.RespondWithError(c, http.StatusConflict, "Booking has not been paid.")
		return
	}

	payment, err := h.ledger.Payment(ctx, b.ID)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	qrImage, err := h.passes.QRCode(b, payment)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.Data(http.StatusOK, "image/png", qrImage)
}

func (h *PassHandler) VerifyPass(c *gin.Context) {
	var req VerifyPassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	bookingID, err := helpers.BookingIDFromPayload(req.QRData)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	ctx := c.Request.Context()
	b, err := h.ledger.Get(ctx, bookingID)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	payment, err := h.ledger.Payment(ctx, b.ID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		helpers.RespondWithDomainError(c, err)
		return
	}

	if !h.passes.Verify(b, payment, req.QRData) {
		helpers.RespondWithError(c, http.StatusForbidden, "Invalid pass signature")
		return
	}

	ticket, err := h.inventory.Get(ctx, b.TicketID)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Pass is valid",
		"pass": gin.H{
			"booking_id":     b.ID,
			"buyer_id":       b.BuyerID,
			"ticket_title":   ticket.Title,
			"quantity":       b.Quantity,
			"transaction_id": payment.TransactionID,
		},
	})
}
