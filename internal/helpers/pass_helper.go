package helpers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"github.com/ticketbari/marketplace/internal/models"
)

const passQRSize = 256

// PassSigner produces and checks the payload encoded in a ticket pass QR
// code: "booking:<id>;ticket:<id>;tx:<transaction>;signature:<hmac>".
type PassSigner struct {
	secret []byte
}

func NewPassSigner(secret string) *PassSigner {
	return &PassSigner{secret: []byte(secret)}
}

func (p *PassSigner) signature(bookingID, buyerID uuid.UUID, transactionID string) string {
	data := fmt.Sprintf("%s:%s:%s", bookingID.String(), buyerID.String(), transactionID)
	h := hmac.New(sha256.New, p.secret)
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func (p *PassSigner) Payload(booking models.Booking, payment models.Payment) string {
	return fmt.Sprintf("booking:%s;ticket:%s;tx:%s;signature:%s",
		booking.ID.String(),
		booking.TicketID.String(),
		payment.TransactionID,
		p.signature(booking.ID, booking.BuyerID, payment.TransactionID),
	)
}

func (p *PassSigner) QRCode(booking models.Booking, payment models.Payment) ([]byte, error) {
	return qrcode.Encode(p.Payload(booking, payment), qrcode.Medium, passQRSize)
}

// BookingIDFromPayload extracts the booking id without checking the
// signature; call Verify once the booking has been loaded.
func BookingIDFromPayload(payload string) (uuid.UUID, error) {
	parts := strings.Split(payload, ";")
	if len(parts) != 4 || !strings.HasPrefix(parts[0], "booking:") || !strings.HasPrefix(parts[3], "signature:") {
		return uuid.Nil, fmt.Errorf("invalid pass format: %w", models.ErrInvalidInput)
	}
	return ParseUUID(strings.TrimPrefix(parts[0], "booking:"), "booking")
}

func (p *PassSigner) Verify(booking models.Booking, payment models.Payment, payload string) bool {
	parts := strings.Split(payload, ";")
	if len(parts) != 4 || !strings.HasPrefix(parts[3], "signature:") {
		return false
	}
	if !booking.IsPaid() || payment.BookingID != booking.ID {
		return false
	}
	signature := strings.TrimPrefix(parts[3], "signature:")
	expected := p.signature(booking.ID, booking.BuyerID, payment.TransactionID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
