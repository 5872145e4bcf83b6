package domain

import "context"

// IConversationStore gives the schedulers query-by-predicate access to
// conversations. All queries exclude inactive (soft-deleted) rows: a
// conversation must be live to be scheduled.
type IConversationStore interface {
	Save(ctx context.Context, conv *Conversation) error
	GetByID(ctx context.Context, id string) (Conversation, error)
	Delete(ctx context.Context, id string) error

	// FindByColumn returns the tenant's active conversations in one column.
	FindByColumn(ctx context.Context, tenantID string, column BoardColumn) ([]Conversation, error)

	// FindMonitored returns the tenant's active conversations across the
	// given columns, in no particular order.
	FindMonitored(ctx context.Context, tenantID string, columns []BoardColumn) ([]Conversation, error)

	// FindTargets resolves a campaign selector: conversations carrying any
	// of the given tags, or every trusted conversation when allTrusted is
	// set. Tag filtering is ignored when allTrusted is true.
	FindTargets(ctx context.Context, tenantID string, tagIDs []string, allTrusted bool) ([]Conversation, error)

	// ListTenants enumerates the tenant ids that own at least one active
	// conversation. Used by the follow-up scheduler to fan out per tenant.
	ListTenants(ctx context.Context) ([]string, error)
}

type IMessageStore interface {
	Save(ctx context.Context, msg *Message) error

	// LastMessage returns the single most recent message of any author.
	// ErrMessageNotFound when the conversation has no messages yet.
	LastMessage(ctx context.Context, conversationID string) (Message, error)

	// LastMessageBy returns the most recent message filtered by author side.
	LastMessageBy(ctx context.Context, conversationID string, fromCustomer bool) (Message, error)
}
