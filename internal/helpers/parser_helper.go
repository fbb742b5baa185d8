package helpers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ticketbari/marketplace/internal/models"
)

func ParseUUID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%s must be a valid id: %w", field, models.ErrInvalidInput)
	}
	return id, nil
}

func ParamUUID(c *gin.Context, name string) (uuid.UUID, error) {
	return ParseUUID(c.Param(name), name)
}

// QueryUUID returns uuid.Nil when the parameter is absent.
func QueryUUID(c *gin.Context, name string) (uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return uuid.Nil, nil
	}
	return ParseUUID(raw, name)
}
