package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ApprovalState string

const (
	ApprovalPending  ApprovalState = "pending"
	ApprovalApproved ApprovalState = "approved"
	ApprovalRejected ApprovalState = "rejected"
)

func (s ApprovalState) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

type Ticket struct {
	ID                uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	VendorID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"vendor_id"`
	Title             string          `gorm:"not null" json:"title"`
	PricePerUnit      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"price_per_unit"`
	QuantityAvailable int             `gorm:"not null;check:quantity_available >= 0" json:"quantity_available"`
	ApprovalState     ApprovalState   `gorm:"type:varchar(16);not null;index" json:"approval_state"`
	Visible           bool            `gorm:"not null" json:"visible"`
	Advertised        bool            `gorm:"not null" json:"advertised"`
	CreatedAt         time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (ticket *Ticket) BeforeCreate(tx *gorm.DB) (err error) {
	if ticket.ID == uuid.Nil {
		ticket.ID = uuid.New()
	}
	return
}
