package domain

import "context"

// IRoutineDefinitionStore is tenant CRUD over the nudge ladder.
// Read-only to the scheduler.
type IRoutineDefinitionStore interface {
	// FindAll returns the tenant's definitions ordered by sequence.
	FindAll(ctx context.Context, tenantID string) ([]RoutineDefinition, error)
	Upsert(ctx context.Context, def *RoutineDefinition) error
	Delete(ctx context.Context, tenantID string, sequence int) error
}

type IRoutineStateStore interface {
	// FindByConversation returns ErrStateNotFound when the conversation
	// never entered follow-up.
	FindByConversation(ctx context.Context, conversationID string) (RoutineState, error)
	Save(ctx context.Context, state *RoutineState) error
	DeleteByConversation(ctx context.Context, conversationID string) error
}
