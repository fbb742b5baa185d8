package settlement

import (
	"github.com/ticketbari/marketplace/internal/models"
)

type Outcome string

const (
	// OutcomeSettled means this call recorded the payment and applied its
	// effects.
	OutcomeSettled Outcome = "settled"
	// OutcomeAlreadySettled means the transaction had been recorded before;
	// nothing was written.
	OutcomeAlreadySettled Outcome = "already_settled"
	// OutcomeIncomplete means the provider does not report the session as
	// paid yet.
	OutcomeIncomplete Outcome = "incomplete"
)

type Result struct {
	Outcome    Outcome         `json:"outcome"`
	SessionRef string          `json:"session_ref"`
	Payment    *models.Payment `json:"payment,omitempty"`
	Booking    *models.Booking `json:"booking,omitempty"`
}
