package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/zapleads/zapleads/campaign/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepo(t *testing.T) *CampaignGormRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	repo := NewCampaignGormRepository(db)
	if err := repo.Init(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo
}

func TestCampaignRepository_RoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	next := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := domain.Campaign{
		ID:               "camp-1",
		TenantID:         "t1",
		Name:             "promo",
		MessageTemplate:  "oferta",
		ChatsPerDispatch: 3,
		IntervalMinutes:  15,
		Status:           domain.StatusRunning,
		TotalTargets:     10,
		NextDispatchAt:   &next,
		Selector:         domain.TargetSelector{TagIDs: []string{"vip", "q3"}},
	}
	c.MarkDispatched("conv-a")
	c.MarkDispatched("conv-b")
	if err := repo.Save(ctx, &c); err != nil {
		t.Fatalf("Save(): %v", err)
	}

	got, err := repo.GetByID(ctx, "camp-1")
	if err != nil {
		t.Fatalf("GetByID(): %v", err)
	}
	if got.Status != domain.StatusRunning || got.TotalTargets != 10 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.DispatchedCount() != 2 || !got.WasDispatched("conv-a") || !got.WasDispatched("conv-b") {
		t.Fatalf("dispatched set lost: count=%d", got.DispatchedCount())
	}
	if len(got.Selector.TagIDs) != 2 {
		t.Fatalf("selector tags = %v, want 2 entries", got.Selector.TagIDs)
	}
	if got.NextDispatchAt == nil || !got.NextDispatchAt.Equal(next) {
		t.Fatalf("NextDispatchAt = %v, want %v", got.NextDispatchAt, next)
	}
}

func TestCampaignRepository_DispatchedRowsAreAppendOnly(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c := domain.Campaign{ID: "camp-1", TenantID: "t1", Name: "promo", Status: domain.StatusRunning}
	c.MarkDispatched("conv-a")
	if err := repo.Save(ctx, &c); err != nil {
		t.Fatalf("Save() 1: %v", err)
	}
	// Saving again with the same member must not duplicate the row, and
	// new members accumulate.
	c.MarkDispatched("conv-b")
	if err := repo.Save(ctx, &c); err != nil {
		t.Fatalf("Save() 2: %v", err)
	}

	got, err := repo.GetByID(ctx, "camp-1")
	if err != nil {
		t.Fatalf("GetByID(): %v", err)
	}
	if got.DispatchedCount() != 2 {
		t.Fatalf("count = %d, want 2", got.DispatchedCount())
	}
}

func TestCampaignRepository_FindDueForDispatch(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)
	seed := []domain.Campaign{
		{ID: "due", TenantID: "t1", Status: domain.StatusRunning, NextDispatchAt: &past},
		{ID: "exact", TenantID: "t1", Status: domain.StatusRunning, NextDispatchAt: &now},
		{ID: "later", TenantID: "t1", Status: domain.StatusRunning, NextDispatchAt: &future},
		{ID: "paused", TenantID: "t1", Status: domain.StatusPaused, NextDispatchAt: &past},
		{ID: "done", TenantID: "t1", Status: domain.StatusCompleted},
	}
	for i := range seed {
		if err := repo.Save(ctx, &seed[i]); err != nil {
			t.Fatalf("seed %s: %v", seed[i].ID, err)
		}
	}

	due, err := repo.FindDueForDispatch(ctx, now)
	if err != nil {
		t.Fatalf("FindDueForDispatch(): %v", err)
	}
	found := make(map[string]bool, len(due))
	for _, c := range due {
		found[c.ID] = true
	}
	if len(due) != 2 || !found["due"] || !found["exact"] {
		t.Fatalf("due = %v, want exactly [due exact]", found)
	}
}

func TestCampaignRepository_ListByTenant(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, c := range []domain.Campaign{
		{ID: "a", TenantID: "t1", Name: "uno", Status: domain.StatusCreated},
		{ID: "b", TenantID: "t1", Name: "dos", Status: domain.StatusCreated},
		{ID: "c", TenantID: "t2", Name: "ajeno", Status: domain.StatusCreated},
	} {
		c := c
		if err := repo.Save(ctx, &c); err != nil {
			t.Fatalf("seed %s: %v", c.ID, err)
		}
	}

	list, err := repo.ListByTenant(ctx, "t1")
	if err != nil {
		t.Fatalf("ListByTenant(): %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d campaigns for t1, want 2", len(list))
	}
}

func TestCampaignRepository_NotFoundAndDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, "ghost"); !errors.Is(err, domain.ErrCampaignNotFound) {
		t.Fatalf("err = %v, want ErrCampaignNotFound", err)
	}

	c := domain.Campaign{ID: "camp-1", TenantID: "t1", Name: "promo", Status: domain.StatusCreated}
	c.MarkDispatched("conv-a")
	if err := repo.Save(ctx, &c); err != nil {
		t.Fatalf("Save(): %v", err)
	}
	if err := repo.Delete(ctx, "camp-1"); err != nil {
		t.Fatalf("Delete(): %v", err)
	}
	if _, err := repo.GetByID(ctx, "camp-1"); !errors.Is(err, domain.ErrCampaignNotFound) {
		t.Fatalf("campaign survived delete, err = %v", err)
	}
}
