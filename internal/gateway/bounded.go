package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ticketbari/marketplace/internal/models"
	"github.com/ticketbari/marketplace/internal/monitoring"
)

// Bounded limits every provider call to a fixed timeout. A timeout is
// reported as models.ErrGatewayUnavailable, never as an unpaid session.
type Bounded struct {
	next    Gateway
	timeout time.Duration
	logger  *logrus.Logger
}

func NewBounded(next Gateway, timeout time.Duration, logger *logrus.Logger) *Bounded {
	return &Bounded{next: next, timeout: timeout, logger: logger}
}

func (b *Bounded) Provider() string {
	return b.next.Provider()
}

func (b *Bounded) CreateCheckout(ctx context.Context, req CheckoutRequest) (Session, error) {
	return callBounded(ctx, b, "create_checkout", func(ctx context.Context) (Session, error) {
		return b.next.CreateCheckout(ctx, req)
	})
}

func (b *Bounded) GetPaymentStatus(ctx context.Context, sessionRef string) (Status, error) {
	return callBounded(ctx, b, "get_payment_status", func(ctx context.Context) (Status, error) {
		return b.next.GetPaymentStatus(ctx, sessionRef)
	})
}

type boundedResult[T any] struct {
	value T
	err   error
}

func callBounded[T any](ctx context.Context, b *Bounded, operation string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan boundedResult[T], 1)
	go func() {
		value, err := fn(ctx)
		done <- boundedResult[T]{value: value, err: err}
	}()

	var res boundedResult[T]
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = ctx.Err()
	}

	status := "ok"
	switch {
	case res.err == nil:
	case errors.Is(res.err, context.DeadlineExceeded) || errors.Is(res.err, context.Canceled):
		status = "timeout"
		if !errors.Is(res.err, models.ErrGatewayUnavailable) {
			res.err = fmt.Errorf("%s %s: %w: %w", b.next.Provider(), operation, models.ErrGatewayUnavailable, res.err)
		}
	default:
		status = "error"
	}
	monitoring.TrackGatewayRequest(b.next.Provider(), operation, status, time.Since(start))

	if res.err != nil {
		var zero T
		b.logger.WithContext(ctx).WithError(res.err).WithFields(logrus.Fields{
			"provider":  b.next.Provider(),
			"operation": operation,
		}).Warn("payment gateway call failed")
		return zero, res.err
	}
	return res.value, nil
}
