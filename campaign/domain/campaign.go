package domain

import (
	"time"
)

type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusRunning   Status = "RUNNING"
	StatusPaused    Status = "PAUSED"
	StatusCompleted Status = "COMPLETED"
	StatusCanceled  Status = "CANCELED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusRunning, StatusPaused, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// Terminal statuses accept no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// TargetSelector picks the campaign audience: conversations carrying
// any of the tags, or the whole trusted base when AllTrusted is set.
type TargetSelector struct {
	TagIDs     []string `json:"tag_ids,omitempty"`
	AllTrusted bool     `json:"all_trusted"`
}

// Campaign is a bulk, rate-limited send job. The dispatched set is the
// only bookkeeping; the count is always derived from it, never stored,
// so the two cannot drift.
type Campaign struct {
	ID               string         `json:"id"`
	TenantID         string         `json:"tenant_id"`
	Name             string         `json:"name"`
	MessageTemplate  string         `json:"message_template"`
	ChatsPerDispatch int            `json:"chats_per_dispatch"`
	IntervalMinutes  int            `json:"interval_minutes"`
	Status           Status         `json:"status"`
	TotalTargets     int            `json:"total_targets"`
	NextDispatchAt   *time.Time     `json:"next_dispatch_at,omitempty"`
	Selector         TargetSelector `json:"selector"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`

	dispatched map[string]struct{}
}

// DispatchedCount is derived from the set on every read.
func (c *Campaign) DispatchedCount() int {
	return len(c.dispatched)
}

func (c *Campaign) WasDispatched(conversationID string) bool {
	_, ok := c.dispatched[conversationID]
	return ok
}

func (c *Campaign) MarkDispatched(conversationID string) {
	if c.dispatched == nil {
		c.dispatched = make(map[string]struct{})
	}
	c.dispatched[conversationID] = struct{}{}
}

// DispatchedIDs returns a copy of the set for persistence.
func (c *Campaign) DispatchedIDs() []string {
	ids := make([]string, 0, len(c.dispatched))
	for id := range c.dispatched {
		ids = append(ids, id)
	}
	return ids
}

// SetDispatchedIDs replaces the set wholesale. Repository load path.
func (c *Campaign) SetDispatchedIDs(ids []string) {
	c.dispatched = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		c.dispatched[id] = struct{}{}
	}
}

// Progress in percent; 0 when the campaign has no targets.
func (c *Campaign) Progress() float64 {
	if c.TotalTargets == 0 {
		return 0
	}
	return float64(c.DispatchedCount()) / float64(c.TotalTargets) * 100
}

// Start moves CREATED or PAUSED to RUNNING and arms the next dispatch.
func (c *Campaign) Start(now time.Time) error {
	if c.Status != StatusCreated && c.Status != StatusPaused {
		return ErrInvalidTransition
	}
	c.Status = StatusRunning
	c.NextDispatchAt = &now
	return nil
}

func (c *Campaign) Pause() error {
	if c.Status != StatusRunning {
		return ErrInvalidTransition
	}
	c.Status = StatusPaused
	c.NextDispatchAt = nil
	return nil
}

func (c *Campaign) Cancel() error {
	if c.Status.Terminal() {
		return ErrInvalidTransition
	}
	c.Status = StatusCanceled
	c.NextDispatchAt = nil
	return nil
}

func (c *Campaign) Complete() {
	c.Status = StatusCompleted
	c.NextDispatchAt = nil
}

// Reschedule arms the next dispatch window of a running campaign.
func (c *Campaign) Reschedule(at time.Time) {
	c.NextDispatchAt = &at
}
