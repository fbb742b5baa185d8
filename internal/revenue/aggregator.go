// Package revenue reports what each vendor has sold through settled bookings.
package revenue

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/ticketbari/marketplace/internal/models"
	"github.com/ticketbari/marketplace/internal/monitoring"
	"github.com/ticketbari/marketplace/internal/store"
)

type Summary struct {
	VendorID           uuid.UUID       `json:"vendor_id"`
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	TotalUnitsSold     int64           `json:"total_units_sold"`
	TotalTicketsListed int64           `json:"total_tickets_listed"`
}

type Aggregator struct {
	store  store.Store
	cache  *Cache
	logger *logrus.Logger
}

// NewAggregator builds an aggregator; cache may be nil.
func NewAggregator(s store.Store, cache *Cache, logger *logrus.Logger) *Aggregator {
	return &Aggregator{store: s, cache: cache, logger: logger}
}

// SummarizeForVendor sums quantity * current price over the vendor's paid
// bookings. Unknown vendors get a zero summary.
func (a *Aggregator) SummarizeForVendor(ctx context.Context, vendorID uuid.UUID) (Summary, error) {
	if vendorID == uuid.Nil {
		return Summary{}, fmt.Errorf("vendor id is required: %w", models.ErrInvalidInput)
	}

	cacheUsable := a.cache != nil
	if cacheUsable {
		summary, found, err := a.cache.Get(ctx, vendorID)
		switch {
		case err != nil:
			monitoring.TrackRevenueCache("error")
			a.logger.WithContext(ctx).WithError(err).WithField("vendor_id", vendorID).Warn("revenue cache read failed")
			cacheUsable = false
		case found:
			monitoring.TrackRevenueCache("hit")
			return summary, nil
		default:
			monitoring.TrackRevenueCache("miss")
		}
	}

	sales, err := a.store.VendorSales(ctx, vendorID)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{
		VendorID:           vendorID,
		TotalRevenue:       sales.Revenue,
		TotalUnitsSold:     sales.UnitsSold,
		TotalTicketsListed: sales.TicketsListed,
	}

	if cacheUsable {
		if err := a.cache.Set(ctx, summary); err != nil {
			a.logger.WithContext(ctx).WithError(err).WithField("vendor_id", vendorID).Warn("revenue cache write failed")
		}
	}
	return summary, nil
}

// Invalidate drops the vendor's cached summary after a settlement.
func (a *Aggregator) Invalidate(ctx context.Context, vendorID uuid.UUID) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Delete(ctx, vendorID); err != nil {
		a.logger.WithContext(ctx).WithError(err).WithField("vendor_id", vendorID).Warn("revenue cache invalidation failed")
	}
}
