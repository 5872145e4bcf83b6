package notify

import "context"

const (
	EventFollowUpCompleted = "followup-completed"
	EventTaskCompleted     = "task-completed"
)

// Event is the state-change notification published towards the
// tenant's push channel. Consumers live outside this service.
type Event struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	NewColumn      string `json:"new_column"`
}

// ISink delivers events fire-and-forget. Implementations must never
// block the caller and must swallow delivery failures.
type ISink interface {
	Publish(ctx context.Context, tenantID string, ev Event)
}

// NopSink discards everything. Used when no push channel is configured.
type NopSink struct{}

func (NopSink) Publish(context.Context, string, Event) {}
