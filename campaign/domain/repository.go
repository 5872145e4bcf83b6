package domain

import (
	"context"
	"time"
)

type ICampaignStore interface {
	Save(ctx context.Context, c *Campaign) error
	GetByID(ctx context.Context, id string) (Campaign, error)
	ListByTenant(ctx context.Context, tenantID string) ([]Campaign, error)
	Delete(ctx context.Context, id string) error

	// FindDueForDispatch returns RUNNING campaigns whose next dispatch
	// time has elapsed, dispatched sets loaded.
	FindDueForDispatch(ctx context.Context, now time.Time) ([]Campaign, error)
}
