package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment is written once per provider transaction and never updated.
type Payment struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	TransactionID string          `gorm:"not null;uniqueIndex" json:"transaction_id"`
	BookingID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"booking_id"`
	SessionRef    string          `gorm:"not null;index" json:"session_ref"`
	Provider      string          `gorm:"type:varchar(16);not null" json:"provider"`
	Amount        decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Currency      string          `gorm:"type:varchar(3);not null" json:"currency"`
	PayerEmail    string          `json:"payer_email"`
	SettledAt     time.Time       `gorm:"not null" json:"settled_at"`
}

func (payment *Payment) BeforeCreate(tx *gorm.DB) (err error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	return
}
