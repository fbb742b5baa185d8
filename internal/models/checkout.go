package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CheckoutSession remembers which booking a provider session was opened for
// and the amount that was charged at that time. ID is assigned before the
// provider is called so the return URL can reference it.
type CheckoutSession struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	Ref         string          `gorm:"not null;uniqueIndex" json:"session_ref"`
	BookingID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"booking_id"`
	Provider    string          `gorm:"type:varchar(16);not null" json:"provider"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Currency    string          `gorm:"type:varchar(3);not null" json:"currency"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	RedirectURL string          `gorm:"not null" json:"redirect_url"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (session *CheckoutSession) BeforeCreate(tx *gorm.DB) (err error) {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	return
}
