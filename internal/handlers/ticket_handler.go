package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/ticketbari/marketplace/internal/helpers"
	"github.com/ticketbari/marketplace/internal/inventory"
	"github.com/ticketbari/marketplace/internal/models"
)

type TicketHandler struct {
	inventory *inventory.Service
}

func NewTicketHandler(inventory *inventory.Service) *TicketHandler {
	return &TicketHandler{inventory: inventory}
}

type TicketRequest struct {
	VendorID     uuid.UUID       `json:"vendor_id" binding:"required"`
	Title        string          `json:"title" binding:"required"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Quantity     int             `json:"quantity" binding:"min=0"`
}

type ApprovalRequest struct {
	ApprovalState models.ApprovalState `json:"approval_state" binding:"required"`
}

type AdvertiseRequest struct {
	Advertised *bool `json:"advertised" binding:"required"`
}

func (h *TicketHandler) CreateTicket(c *gin.Context) {
	var req TicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	ticket, err := h.inventory.CreateTicket(c.Request.Context(), inventory.NewTicket{
		VendorID:     req.VendorID,
		Title:        req.Title,
		PricePerUnit: req.PricePerUnit,
		Quantity:     req.Quantity,
	})
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Ticket created successfully.",
		"ticket":  ticket,
	})
}

func (h *TicketHandler) GetTicket(c *gin.Context) {
	ticketID, err := helpers.ParamUUID(c, "id")
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	ticket, err := h.inventory.Get(c.Request.Context(), ticketID)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) ListTickets(c *gin.Context) {
	vendorID, err := helpers.QueryUUID(c, "vendor_id")
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}
	if vendorID == uuid.Nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "vendor_id is required.")
		return
	}

	tickets, err := h.inventory.ListByVendor(c.Request.Context(), vendorID)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

func (h *TicketHandler) ListAdvertised(c *gin.Context) {
	tickets, err := h.inventory.ListAdvertised(c.Request.Context())
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

func (h *TicketHandler) ListLatest(c *gin.Context) {
	tickets, err := h.inventory.ListLatest(c.Request.Context())
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

func (h *TicketHandler) SetApproval(c *gin.Context) {
	ticketID, err := helpers.ParamUUID(c, "id")
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	var req ApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	ticket, err := h.inventory.SetApproval(c.Request.Context(), ticketID, req.ApprovalState)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Ticket approval updated.",
		"ticket":  ticket,
	})
}

func (h *TicketHandler) SetAdvertised(c *gin.Context) {
	ticketID, err := helpers.ParamUUID(c, "id")
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	var req AdvertiseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	ticket, err := h.inventory.SetAdvertised(c.Request.Context(), ticketID, *req.Advertised)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Ticket advertisement updated.",
		"ticket":  ticket,
	})
}
