package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ticketbari/marketplace/internal/booking"
	"github.com/ticketbari/marketplace/internal/helpers"
)

type BookingHandler struct {
	ledger *booking.Ledger
}

func NewBookingHandler(ledger *booking.Ledger) *BookingHandler {
	return &BookingHandler{ledger: ledger}
}

type BookingRequest struct {
	BuyerID  uuid.UUID `json:"buyer_id" binding:"required"`
	TicketID uuid.UUID `json:"ticket_id" binding:"required"`
	Quantity int       `json:"quantity" binding:"required,min=1"`
}

type DecisionRequest struct {
	Decision booking.Decision `json:"decision" binding:"required,oneof=accept reject"`
}

func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	result, err := h.ledger.CreateOrMergeBooking(c.Request.Context(), req.BuyerID, req.TicketID, req.Quantity)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Merged {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

func (h *BookingHandler) GetBooking(c *gin.Context) {
	bookingID, err := helpers.ParamUUID(c, "id")
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	b, err := h.ledger.Get(c.Request.Context(), bookingID)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// ListBookings lists by buyer_id or, for a vendor's dashboard, by vendor_id.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	buyerID, err := helpers.QueryUUID(c, "buyer_id")
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}
	vendorID, err := helpers.QueryUUID(c, "vendor_id")
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	ctx := c.Request.Context()
	switch {
	case buyerID != uuid.Nil && vendorID != uuid.Nil:
		helpers.RespondWithError(c, http.StatusBadRequest, "Use either buyer_id or vendor_id, not both.")
	case buyerID != uuid.Nil:
		bookings, err := h.ledger.ListByBuyer(ctx, buyerID)
		if err != nil {
			helpers.RespondWithDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"bookings": bookings})
	case vendorID != uuid.Nil:
		bookings, err := h.ledger.ListForVendor(ctx, vendorID)
		if err != nil {
			helpers.RespondWithDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"bookings": bookings})
	default:
		helpers.RespondWithError(c, http.StatusBadRequest, "buyer_id or vendor_id is required.")
	}
}

func (h *BookingHandler) SetDecision(c *gin.Context) {
	bookingID, err := helpers.ParamUUID(c, "id")
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Decision must be accept or reject.")
		return
	}

	b, err := h.ledger.SetVendorDecision(c.Request.Context(), bookingID, req.Decision)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Booking updated.",
		"booking": b,
	})
}
