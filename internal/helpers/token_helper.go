package helpers

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/ticketbari/marketplace/internal/models"
)

const returnTokenTTL = 24 * time.Hour

// ReturnClaims binds a checkout return link to the checkout it was issued for.
type ReturnClaims struct {
	CheckoutID uuid.UUID
	BookingID  uuid.UUID
}

type ReturnTokenSigner struct {
	secret []byte
	now    func() time.Time
}

func NewReturnTokenSigner(secret string) *ReturnTokenSigner {
	return &ReturnTokenSigner{secret: []byte(secret), now: time.Now}
}

func (s *ReturnTokenSigner) Sign(claims ReturnClaims) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"checkout_id": claims.CheckoutID.String(),
		"booking_id":  claims.BookingID.String(),
		"iat":         now.Unix(),
		"exp":         now.Add(returnTokenTTL).Unix(),
	})
	return token.SignedString(s.secret)
}

func (s *ReturnTokenSigner) Parse(tokenString string) (ReturnClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return ReturnClaims{}, fmt.Errorf("return token rejected: %w", models.ErrInvalidInput)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ReturnClaims{}, fmt.Errorf("return token claims: %w", models.ErrInvalidInput)
	}

	checkoutID, err := claimUUID(mapClaims, "checkout_id")
	if err != nil {
		return ReturnClaims{}, err
	}
	bookingID, err := claimUUID(mapClaims, "booking_id")
	if err != nil {
		return ReturnClaims{}, err
	}
	return ReturnClaims{CheckoutID: checkoutID, BookingID: bookingID}, nil
}

func claimUUID(claims jwt.MapClaims, name string) (uuid.UUID, error) {
	raw, _ := claims[name].(string)
	return ParseUUID(raw, name)
}
