package application

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zapleads/zapleads/followup/domain"
)

// Service is the tenant-facing surface over the nudge ladder:
// definition CRUD plus the manual reset escape hatch.
type Service struct {
	definitions domain.IRoutineDefinitionStore
	states      domain.IRoutineStateStore
	engine      *Engine
}

func NewService(definitions domain.IRoutineDefinitionStore, states domain.IRoutineStateStore, engine *Engine) *Service {
	return &Service{definitions: definitions, states: states, engine: engine}
}

func (s *Service) ListDefinitions(ctx context.Context, tenantID string) ([]domain.RoutineDefinition, error) {
	return s.definitions.FindAll(ctx, tenantID)
}

func (s *Service) UpsertDefinition(ctx context.Context, tenantID string, sequence, hoursDelay int, text, mediaURL string) (domain.RoutineDefinition, error) {
	if sequence < 1 || sequence > domain.MaxSequence {
		return domain.RoutineDefinition{}, domain.ErrInvalidSequence
	}
	def := domain.RoutineDefinition{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		Sequence:   sequence,
		Text:       strings.TrimSpace(text),
		MediaURL:   mediaURL,
		HoursDelay: hoursDelay,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.definitions.Upsert(ctx, &def); err != nil {
		return domain.RoutineDefinition{}, err
	}
	return def, nil
}

func (s *Service) DeleteDefinition(ctx context.Context, tenantID string, sequence int) error {
	if sequence < 1 || sequence > domain.MaxSequence {
		return domain.ErrInvalidSequence
	}
	return s.definitions.Delete(ctx, tenantID, sequence)
}

func (s *Service) GetState(ctx context.Context, conversationID string) (domain.RoutineState, error) {
	return s.states.FindByConversation(ctx, conversationID)
}

func (s *Service) Reset(ctx context.Context, conversationID string) error {
	return s.engine.ManualReset(ctx, conversationID)
}
