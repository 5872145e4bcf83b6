package domain

import "time"

// BoardColumn is the kanban bucket a conversation currently sits in.
// It is the single source of truth for which monitoring bucket the
// follow-up scheduler places a conversation into.
type BoardColumn string

const (
	ColumnInbox    BoardColumn = "inbox"
	ColumnHotLead  BoardColumn = "hot_lead"
	ColumnColdLead BoardColumn = "cold_lead"
	ColumnFollowUp BoardColumn = "follow_up"
	ColumnTask     BoardColumn = "task"
)

func (c BoardColumn) Valid() bool {
	switch c {
	case ColumnInbox, ColumnHotLead, ColumnColdLead, ColumnFollowUp, ColumnTask:
		return true
	}
	return false
}

// Restorable reports whether the column may be stored as the
// "previous column" of a follow-up episode and restored on reply.
func (c BoardColumn) Restorable() bool {
	return c.Valid() && c != ColumnFollowUp && c != ColumnColdLead
}

type Conversation struct {
	ID            string      `json:"id"`
	TenantID      string      `json:"tenant_id"`
	Phone         string      `json:"phone"`
	ContactName   string      `json:"contact_name"`
	Column        BoardColumn `json:"column"`
	Trusted       bool        `json:"trusted"`
	TagIDs        []string    `json:"tag_ids,omitempty"`
	LastMessageAt time.Time   `json:"last_message_at"`
	Active        bool        `json:"active"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

type MessageStatus string

const (
	MessageStatusPending MessageStatus = "pending"
	MessageStatusSent    MessageStatus = "sent"
	MessageStatusFailed  MessageStatus = "failed"
)

type Message struct {
	ID                string        `json:"id"`
	ConversationID    string        `json:"conversation_id"`
	TenantID          string        `json:"tenant_id"`
	FromCustomer      bool          `json:"from_customer"`
	Body              string        `json:"body"`
	ProviderMessageID string        `json:"provider_message_id,omitempty"`
	Status            MessageStatus `json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}
