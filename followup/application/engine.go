package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	crmApp "github.com/zapleads/zapleads/crm/application"
	crm "github.com/zapleads/zapleads/crm/domain"
	"github.com/zapleads/zapleads/followup/domain"
	"github.com/zapleads/zapleads/gateway"
	"github.com/zapleads/zapleads/notify"
)

// Engine evaluates the repescagem transitions for a single
// conversation. It is purely reactive: the scheduler decides when and
// for which conversations to call it.
//
// State and counter updates are persisted before the send attempt, the
// attempt timestamp after it. A hung or crashed gateway call can
// therefore never double-advance a conversation; it only delays the
// timestamp that the next window is measured from.
type Engine struct {
	conversations crm.IConversationStore
	messages      crm.IMessageStore
	states        domain.IRoutineStateStore
	outbox        *crmApp.Outbox
	sink          notify.ISink
	now           func() time.Time
}

func NewEngine(
	conversations crm.IConversationStore,
	messages crm.IMessageStore,
	states domain.IRoutineStateStore,
	outbox *crmApp.Outbox,
	sink notify.ISink,
) *Engine {
	if sink == nil {
		sink = notify.NopSink{}
	}
	return &Engine{
		conversations: conversations,
		messages:      messages,
		states:        states,
		outbox:        outbox,
		sink:          sink,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Tests only.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// EvaluateEntry decides whether a monitored conversation has gone quiet
// long enough to enter follow-up with nudge #1.
func (e *Engine) EvaluateEntry(ctx context.Context, session gateway.Session, conv crm.Conversation, set domain.RoutineSet) error {
	last, err := e.messages.LastMessage(ctx, conv.ID)
	if err != nil {
		if errors.Is(err, crm.ErrMessageNotFound) {
			return nil
		}
		return err
	}
	// A customer-authored last message keeps the conversation out of
	// follow-up unconditionally.
	if last.FromCustomer {
		return nil
	}

	first, ok := set.Get(1)
	if !ok || !first.Usable() {
		// Misconfigured first step: retire instead of silently stalling.
		return e.retire(ctx, conv, domain.RoutineState{
			ConversationID: conv.ID,
			TenantID:       conv.TenantID,
			PreviousColumn: conv.Column,
		})
	}

	elapsed := e.now().Sub(last.CreatedAt)
	if elapsed < time.Duration(first.HoursDelay)*time.Hour {
		return nil
	}

	state, err := e.states.FindByConversation(ctx, conv.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrStateNotFound) {
			return err
		}
		state = domain.RoutineState{
			ID:             uuid.NewString(),
			ConversationID: conv.ID,
			TenantID:       conv.TenantID,
			CreatedAt:      e.now(),
		}
	}

	state.PreviousColumn = conv.Column
	state.LastRoutineSent = 1
	state.InFollowUp = true
	state.Completed = false
	state.LastAutomatedSentAt = nil
	if err := e.states.Save(ctx, &state); err != nil {
		return err
	}

	conv.Column = crm.ColumnFollowUp
	if err := e.conversations.Save(ctx, &conv); err != nil {
		return err
	}

	logrus.Infof("[FOLLOWUP] Conversation %s entered follow-up (nudge 1)", conv.ID)
	e.attemptSend(ctx, session, conv, &state, first.Text)
	return nil
}

// EvaluateFollowUp runs the in-follow-up rules for one conversation,
// in priority order: customer reply exits, then timer advance, then
// the terminal cold transition.
func (e *Engine) EvaluateFollowUp(ctx context.Context, session gateway.Session, conv crm.Conversation, set domain.RoutineSet) error {
	state, err := e.states.FindByConversation(ctx, conv.ID)
	if err != nil {
		return err
	}
	if !state.InFollowUp {
		// Board says follow-up but the state disagrees; trust the state
		// record and pull the conversation back where it belongs.
		conv.Column = state.RestoreColumn()
		return e.conversations.Save(ctx, &conv)
	}

	last, err := e.messages.LastMessage(ctx, conv.ID)
	if err != nil && !errors.Is(err, crm.ErrMessageNotFound) {
		return err
	}
	// Reply short-circuit: the customer answering always wins over an
	// advance-eligible timer in the same tick.
	if err == nil && last.FromCustomer {
		return e.exitOnReply(ctx, conv, state, last.CreatedAt)
	}

	if state.LastAutomatedSentAt == nil {
		// Entry persisted the counter but the attempt timestamp never
		// landed (crash mid-send). Re-arm the window from now.
		t := e.now()
		state.LastAutomatedSentAt = &t
		return e.states.Save(ctx, &state)
	}

	if state.LastRoutineSent >= domain.MaxSequence {
		final, _ := set.Get(domain.MaxSequence)
		if e.elapsedSince(*state.LastAutomatedSentAt) >= time.Duration(final.HoursDelay)*time.Hour {
			return e.retire(ctx, conv, state)
		}
		return nil
	}

	next := state.LastRoutineSent + 1
	if !set.Usable(next) {
		// The ladder ends early; the conversation is as cold as it gets.
		return e.retire(ctx, conv, state)
	}

	def, _ := set.Get(next)
	if e.elapsedSince(*state.LastAutomatedSentAt) < time.Duration(def.HoursDelay)*time.Hour {
		return nil
	}

	state.LastRoutineSent = next
	if err := e.states.Save(ctx, &state); err != nil {
		return err
	}

	logrus.Infof("[FOLLOWUP] Conversation %s advanced to nudge %d", conv.ID, next)
	e.attemptSend(ctx, session, conv, &state, def.Text)
	return nil
}

// ManualReset is the operator escape hatch: wipe the ladder progress
// and, if the conversation is parked in follow-up, restore it.
func (e *Engine) ManualReset(ctx context.Context, conversationID string) error {
	state, err := e.states.FindByConversation(ctx, conversationID)
	if err != nil {
		return err
	}

	wasInFollowUp := state.InFollowUp
	state.LastRoutineSent = 0
	state.LastAutomatedSentAt = nil
	state.InFollowUp = false
	state.Completed = false
	if err := e.states.Save(ctx, &state); err != nil {
		return err
	}

	conv, err := e.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if wasInFollowUp || conv.Column == crm.ColumnFollowUp {
		conv.Column = state.RestoreColumn()
		if err := e.conversations.Save(ctx, &conv); err != nil {
			return err
		}
	}
	logrus.Infof("[FOLLOWUP] Conversation %s manually reset", conversationID)
	return nil
}

// exitOnReply restores the conversation to its pre-follow-up column.
// LastRoutineSent is kept for history.
func (e *Engine) exitOnReply(ctx context.Context, conv crm.Conversation, state domain.RoutineState, repliedAt time.Time) error {
	state.InFollowUp = false
	state.LastUserMessageAt = &repliedAt
	if err := e.states.Save(ctx, &state); err != nil {
		return err
	}

	conv.Column = state.RestoreColumn()
	if err := e.conversations.Save(ctx, &conv); err != nil {
		return err
	}
	logrus.Infof("[FOLLOWUP] Conversation %s replied, restored to %s", conv.ID, conv.Column)
	return nil
}

// retire moves the conversation to the cold bucket and closes the
// follow-up episode. Repeated calls are no-ops at the board level: a
// cold conversation is in no monitored column, so the scheduler never
// hands it back to the engine until a manual reset.
func (e *Engine) retire(ctx context.Context, conv crm.Conversation, state domain.RoutineState) error {
	if state.ID == "" {
		state.ID = uuid.NewString()
		state.CreatedAt = e.now()
	}
	state.InFollowUp = false
	state.Completed = true
	if err := e.states.Save(ctx, &state); err != nil {
		return err
	}

	conv.Column = crm.ColumnColdLead
	if err := e.conversations.Save(ctx, &conv); err != nil {
		return err
	}

	logrus.Infof("[FOLLOWUP] Conversation %s retired to cold leads", conv.ID)
	e.sink.Publish(ctx, conv.TenantID, notify.Event{
		Type:           notify.EventFollowUpCompleted,
		ConversationID: conv.ID,
		NewColumn:      string(crm.ColumnColdLead),
	})
	return nil
}

// attemptSend fires the nudge and stamps the attempt time, success or
// not. A gateway failure is logged and absorbed: the advanced counter
// stays, the next window is measured from this attempt.
func (e *Engine) attemptSend(ctx context.Context, session gateway.Session, conv crm.Conversation, state *domain.RoutineState, text string) {
	if _, err := e.outbox.SendText(ctx, session, conv, text); err != nil {
		logrus.WithError(err).Warnf("[FOLLOWUP] Nudge %d for conversation %s failed", state.LastRoutineSent, conv.ID)
	}
	t := e.now()
	state.LastAutomatedSentAt = &t
	if err := e.states.Save(ctx, state); err != nil {
		logrus.WithError(err).Errorf("[FOLLOWUP] Could not stamp attempt time for conversation %s", conv.ID)
	}
}

func (e *Engine) elapsedSince(t time.Time) time.Duration {
	return e.now().Sub(t)
}
