package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	crm "github.com/zapleads/zapleads/crm/domain"
	"github.com/zapleads/zapleads/followup/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	return db
}

func newTestRepos(t *testing.T) (*RoutineGormRepository, *RoutineStateGormRepository) {
	t.Helper()
	db := newTestDB(t)
	defs := NewRoutineGormRepository(db)
	if err := defs.Init(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return defs, NewRoutineStateGormRepository(db)
}

func TestRoutineRepository_UpsertReplacesBySequence(t *testing.T) {
	defs, _ := newTestRepos(t)
	ctx := context.Background()

	first := domain.RoutineDefinition{ID: "d1", TenantID: "t1", Sequence: 1, Text: "hola", HoursDelay: 24}
	if err := defs.Upsert(ctx, &first); err != nil {
		t.Fatalf("Upsert(): %v", err)
	}
	// Same tenant and sequence: the row is replaced, not duplicated.
	second := domain.RoutineDefinition{ID: "d2", TenantID: "t1", Sequence: 1, Text: "hola de nuevo", HoursDelay: 48}
	if err := defs.Upsert(ctx, &second); err != nil {
		t.Fatalf("Upsert() conflict: %v", err)
	}

	all, err := defs.FindAll(ctx, "t1")
	if err != nil {
		t.Fatalf("FindAll(): %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d definitions, want 1", len(all))
	}
	if all[0].Text != "hola de nuevo" || all[0].HoursDelay != 48 {
		t.Fatalf("upsert did not replace: %+v", all[0])
	}
}

func TestRoutineRepository_FindAllOrderedAndScoped(t *testing.T) {
	defs, _ := newTestRepos(t)
	ctx := context.Background()

	for _, d := range []domain.RoutineDefinition{
		{ID: "d3", TenantID: "t1", Sequence: 3, Text: "tres", HoursDelay: 72},
		{ID: "d1", TenantID: "t1", Sequence: 1, Text: "uno", HoursDelay: 24},
		{ID: "d2", TenantID: "t1", Sequence: 2, Text: "dos", HoursDelay: 48},
		{ID: "x1", TenantID: "t2", Sequence: 1, Text: "otro", HoursDelay: 24},
	} {
		d := d
		if err := defs.Upsert(ctx, &d); err != nil {
			t.Fatalf("Upsert(%s): %v", d.ID, err)
		}
	}

	all, err := defs.FindAll(ctx, "t1")
	if err != nil {
		t.Fatalf("FindAll(): %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d definitions for t1, want 3", len(all))
	}
	for i, want := range []int{1, 2, 3} {
		if all[i].Sequence != want {
			t.Fatalf("position %d has sequence %d, want %d", i, all[i].Sequence, want)
		}
	}
}

func TestRoutineRepository_Delete(t *testing.T) {
	defs, _ := newTestRepos(t)
	ctx := context.Background()

	d := domain.RoutineDefinition{ID: "d1", TenantID: "t1", Sequence: 1, Text: "hola", HoursDelay: 24}
	if err := defs.Upsert(ctx, &d); err != nil {
		t.Fatalf("Upsert(): %v", err)
	}
	if err := defs.Delete(ctx, "t1", 1); err != nil {
		t.Fatalf("Delete(): %v", err)
	}
	all, err := defs.FindAll(ctx, "t1")
	if err != nil {
		t.Fatalf("FindAll(): %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("definition survived delete: %+v", all)
	}
}

func TestStateRepository_RoundTrip(t *testing.T) {
	_, states := newTestRepos(t)
	ctx := context.Background()

	sent := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	state := domain.RoutineState{
		ID:                  "s1",
		ConversationID:      "c1",
		TenantID:            "t1",
		PreviousColumn:      crm.ColumnHotLead,
		LastRoutineSent:     3,
		LastAutomatedSentAt: &sent,
		InFollowUp:          true,
	}
	if err := states.Save(ctx, &state); err != nil {
		t.Fatalf("Save(): %v", err)
	}

	got, err := states.FindByConversation(ctx, "c1")
	if err != nil {
		t.Fatalf("FindByConversation(): %v", err)
	}
	if got.LastRoutineSent != 3 || !got.InFollowUp || got.PreviousColumn != crm.ColumnHotLead {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.LastAutomatedSentAt == nil || !got.LastAutomatedSentAt.Equal(sent) {
		t.Fatalf("LastAutomatedSentAt = %v, want %v", got.LastAutomatedSentAt, sent)
	}

	// Update in place through the unique conversation key.
	got.LastRoutineSent = 4
	got.InFollowUp = false
	if err := states.Save(ctx, &got); err != nil {
		t.Fatalf("Save() update: %v", err)
	}
	updated, err := states.FindByConversation(ctx, "c1")
	if err != nil {
		t.Fatalf("FindByConversation() after update: %v", err)
	}
	if updated.LastRoutineSent != 4 || updated.InFollowUp {
		t.Fatalf("update lost: %+v", updated)
	}
}

func TestStateRepository_NotFound(t *testing.T) {
	_, states := newTestRepos(t)
	if _, err := states.FindByConversation(context.Background(), "ghost"); !errors.Is(err, domain.ErrStateNotFound) {
		t.Fatalf("err = %v, want ErrStateNotFound", err)
	}
}

func TestStateRepository_DeleteByConversation(t *testing.T) {
	_, states := newTestRepos(t)
	ctx := context.Background()

	state := domain.RoutineState{ID: "s1", ConversationID: "c1", TenantID: "t1"}
	if err := states.Save(ctx, &state); err != nil {
		t.Fatalf("Save(): %v", err)
	}
	if err := states.DeleteByConversation(ctx, "c1"); err != nil {
		t.Fatalf("DeleteByConversation(): %v", err)
	}
	if _, err := states.FindByConversation(ctx, "c1"); !errors.Is(err, domain.ErrStateNotFound) {
		t.Fatalf("state survived delete, err = %v", err)
	}
}
