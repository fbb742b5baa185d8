package helpers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ticketbari/marketplace/internal/models"
)

const RequestIDKey = "request_id"

type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func HTTPStatusText(code int) string {
	return http.StatusText(code)
}

func RespondWithError(c *gin.Context, statusCode int, customMessage string) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Error:     HTTPStatusText(statusCode),
		Message:   customMessage,
		RequestID: c.GetString(RequestIDKey),
	})
}

// StatusForError maps the model error taxonomy onto HTTP status codes.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrInconsistentState):
		return http.StatusInternalServerError
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInvalidState), errors.Is(err, models.ErrOversold):
		return http.StatusConflict
	case errors.Is(err, models.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// RespondWithDomainError writes err using the taxonomy status. Internal
// failures get a generic message; the detail stays in the logs.
func RespondWithDomainError(c *gin.Context, err error) {
	status := StatusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Something went wrong. Please try again later."
	}
	_ = c.Error(err)
	RespondWithError(c, status, message)
}
