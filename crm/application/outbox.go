package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/zapleads/zapleads/crm/domain"
	"github.com/zapleads/zapleads/gateway"
)

// Outbox is the single outbound path for automated texts. It persists a
// pending message record before calling the gateway, then reconciles
// the record with the provider message id. A crash between the two
// steps leaves a recoverable pending row, never a silent send.
type Outbox struct {
	conversations domain.IConversationStore
	messages      domain.IMessageStore
	gateway       gateway.IClient
	now           func() time.Time
}

func NewOutbox(conversations domain.IConversationStore, messages domain.IMessageStore, gw gateway.IClient) *Outbox {
	return &Outbox{
		conversations: conversations,
		messages:      messages,
		gateway:       gw,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Tests only.
func (o *Outbox) WithClock(now func() time.Time) *Outbox {
	o.now = now
	return o
}

// SendText runs the save-then-send sequence for one conversation.
// The returned message reflects the final reconciled state; err is
// non-nil when the gateway call failed or was rejected.
func (o *Outbox) SendText(ctx context.Context, session gateway.Session, conv domain.Conversation, text string) (domain.Message, error) {
	msg := domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		TenantID:       conv.TenantID,
		FromCustomer:   false,
		Body:           text,
		Status:         domain.MessageStatusPending,
		CreatedAt:      o.now(),
	}
	if err := o.messages.Save(ctx, &msg); err != nil {
		return domain.Message{}, err
	}

	res, err := o.gateway.SendText(ctx, session, conv.Phone, text)
	if err != nil || !res.Success {
		msg.Status = domain.MessageStatusFailed
		if saveErr := o.messages.Save(ctx, &msg); saveErr != nil {
			logrus.WithError(saveErr).Errorf("[OUTBOX] Failed to mark message %s as failed", msg.ID)
		}
		if err == nil {
			err = domain.ErrSendFailed
		}
		return msg, err
	}

	msg.Status = domain.MessageStatusSent
	msg.ProviderMessageID = res.ProviderMessageID
	if err := o.messages.Save(ctx, &msg); err != nil {
		return msg, err
	}

	conv.LastMessageAt = o.now()
	if err := o.conversations.Save(ctx, &conv); err != nil {
		logrus.WithError(err).Warnf("[OUTBOX] Sent but could not touch conversation %s", conv.ID)
	}
	return msg, nil
}
