package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ticketbari/marketplace/internal/helpers"
	"github.com/ticketbari/marketplace/internal/revenue"
)

type RevenueHandler struct {
	aggregator *revenue.Aggregator
}

func NewRevenueHandler(aggregator *revenue.Aggregator) *RevenueHandler {
	return &RevenueHandler{aggregator: aggregator}
}

func (h *RevenueHandler) GetVendorRevenue(c *gin.Context) {
	vendorID, err := helpers.ParamUUID(c, "id")
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	summary, err := h.aggregator.SummarizeForVendor(c.Request.Context(), vendorID)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
