package domain

import (
	"strings"
	"time"

	crm "github.com/zapleads/zapleads/crm/domain"
)

// MaxSequence bounds the repescagem ladder: up to seven automated
// nudges before a conversation is written off as a cold lead.
const MaxSequence = 7

// RoutineDefinition is one step of a tenant's nudge ladder: the text to
// send and how many hours of silence must pass before it fires.
// At most one definition exists per (tenant, sequence).
type RoutineDefinition struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	Sequence   int       `json:"sequence"`
	Text       string    `json:"text"`
	MediaURL   string    `json:"media_url,omitempty"`
	HoursDelay int       `json:"hours_delay"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Usable reports whether the step can actually be sent. A blank text is
// treated the same as a missing step: the ladder ends there.
func (d RoutineDefinition) Usable() bool {
	return d.Sequence >= 1 && d.Sequence <= MaxSequence && strings.TrimSpace(d.Text) != ""
}

// RoutineSet indexes a tenant's definitions by sequence number.
type RoutineSet map[int]RoutineDefinition

func BuildRoutineSet(defs []RoutineDefinition) RoutineSet {
	set := make(RoutineSet, len(defs))
	for _, d := range defs {
		set[d.Sequence] = d
	}
	return set
}

func (s RoutineSet) Get(sequence int) (RoutineDefinition, bool) {
	d, ok := s[sequence]
	return d, ok
}

// Usable reports whether step n exists and carries a sendable text.
func (s RoutineSet) Usable(sequence int) bool {
	d, ok := s[sequence]
	return ok && d.Usable()
}

// RoutineState is the per-conversation follow-up record. A conversation
// owns at most one; it is created lazily on the first entry into
// follow-up and survives exits so the history is auditable.
type RoutineState struct {
	ID                  string          `json:"id"`
	ConversationID      string          `json:"conversation_id"`
	TenantID            string          `json:"tenant_id"`
	ScheduledSendAt     *time.Time      `json:"scheduled_send_at,omitempty"`
	PreviousColumn      crm.BoardColumn `json:"previous_column"`
	LastRoutineSent     int             `json:"last_routine_sent"`
	LastAutomatedSentAt *time.Time      `json:"last_automated_sent_at,omitempty"`
	LastUserMessageAt   *time.Time      `json:"last_user_message_at,omitempty"`
	InFollowUp          bool            `json:"in_follow_up"`
	Completed           bool            `json:"completed"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// RestoreColumn is where the conversation goes when it leaves follow-up
// on a customer reply.
func (s RoutineState) RestoreColumn() crm.BoardColumn {
	if s.PreviousColumn.Restorable() {
		return s.PreviousColumn
	}
	return crm.ColumnInbox
}

// MonitoredColumns are the buckets scanned for follow-up entry.
var MonitoredColumns = []crm.BoardColumn{crm.ColumnInbox, crm.ColumnHotLead}
