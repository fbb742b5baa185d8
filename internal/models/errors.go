package models

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidState         = errors.New("invalid state")
	ErrGatewayUnavailable   = errors.New("payment gateway unavailable")
	ErrInconsistentState    = errors.New("inconsistent state")
	ErrOversold             = errors.New("ticket oversold")
	ErrDuplicateTransaction = errors.New("duplicate transaction")
)
