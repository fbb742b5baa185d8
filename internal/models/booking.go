package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LifecycleState string

const (
	LifecyclePending  LifecycleState = "pending"
	LifecycleAccepted LifecycleState = "accepted"
	LifecycleRejected LifecycleState = "rejected"
)

type PaymentState string

const (
	PaymentUnpaid PaymentState = "unpaid"
	PaymentPaid   PaymentState = "paid"
)

// Booking is a buyer's request for a quantity of one ticket. At most one
// pending, unpaid booking exists per (buyer, ticket); repeated requests are
// merged into it.
type Booking struct {
	ID             uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	BuyerID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"buyer_id"`
	TicketID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"ticket_id"`
	Quantity       int            `gorm:"not null;check:quantity > 0" json:"quantity"`
	LifecycleState LifecycleState `gorm:"type:varchar(16);not null" json:"lifecycle_state"`
	PaymentState   PaymentState   `gorm:"type:varchar(16);not null" json:"payment_state"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (booking *Booking) BeforeCreate(tx *gorm.DB) (err error) {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	return
}

func (booking Booking) IsPaid() bool {
	return booking.PaymentState == PaymentPaid
}
