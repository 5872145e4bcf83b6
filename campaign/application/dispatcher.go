package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zapleads/zapleads/campaign/domain"
	crmApp "github.com/zapleads/zapleads/crm/application"
	crm "github.com/zapleads/zapleads/crm/domain"
	"github.com/zapleads/zapleads/gateway"
)

const (
	DefaultDispatchInterval = 60 * time.Second
	// DefaultSendDelay throttles consecutive sends inside one batch.
	DefaultSendDelay = 2 * time.Second
)

// Dispatcher advances due campaigns one batch per tick. Each campaign
// is processed independently; a failure on one target or one campaign
// never aborts the rest of the tick.
type Dispatcher struct {
	campaigns     domain.ICampaignStore
	conversations crm.IConversationStore
	outbox        *crmApp.Outbox
	sessions      gateway.ISessionProvider
	sendDelay     time.Duration
	now           func() time.Time
}

func NewDispatcher(
	campaigns domain.ICampaignStore,
	conversations crm.IConversationStore,
	outbox *crmApp.Outbox,
	sessions gateway.ISessionProvider,
	sendDelay time.Duration,
) *Dispatcher {
	if sendDelay < 0 {
		sendDelay = DefaultSendDelay
	}
	return &Dispatcher{
		campaigns:     campaigns,
		conversations: conversations,
		outbox:        outbox,
		sessions:      sessions,
		sendDelay:     sendDelay,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Tests only.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Tick processes every campaign due at this instant.
func (d *Dispatcher) Tick(ctx context.Context) {
	due, err := d.campaigns.FindDueForDispatch(ctx, d.now())
	if err != nil {
		logrus.WithError(err).Error("[CAMPAIGN] Could not load due campaigns")
		return
	}
	for i := range due {
		if err := d.dispatchBatch(ctx, &due[i]); err != nil {
			logrus.WithError(err).Warnf("[CAMPAIGN] Dispatch of %s failed", due[i].ID)
		}
	}
}

func (d *Dispatcher) dispatchBatch(ctx context.Context, c *domain.Campaign) error {
	session, err := d.sessions.ActiveSession(ctx, c.TenantID)
	if err != nil {
		if errors.Is(err, gateway.ErrNoActiveSession) {
			// No session to send through: park the campaign instead of
			// burning ticks against a dead instance.
			logrus.Warnf("[CAMPAIGN] Tenant %s has no active session, pausing campaign %s", c.TenantID, c.ID)
			if perr := c.Pause(); perr != nil {
				return perr
			}
			return d.campaigns.Save(ctx, c)
		}
		return err
	}

	targets, err := d.conversations.FindTargets(ctx, c.TenantID, c.Selector.TagIDs, c.Selector.AllTrusted)
	if err != nil {
		return err
	}

	eligible := make([]crm.Conversation, 0, len(targets))
	for _, t := range targets {
		if !c.WasDispatched(t.ID) {
			eligible = append(eligible, t)
		}
	}

	if len(eligible) == 0 {
		c.Complete()
		logrus.Infof("[CAMPAIGN] %s completed (%d/%d dispatched)", c.ID, c.DispatchedCount(), c.TotalTargets)
		return d.campaigns.Save(ctx, c)
	}

	batchSize := c.ChatsPerDispatch
	if batchSize > len(eligible) {
		batchSize = len(eligible)
	}

	for i, target := range eligible[:batchSize] {
		if i > 0 && d.sendDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.sendDelay):
			}
		}
		if _, err := d.outbox.SendText(ctx, session, target, c.MessageTemplate); err != nil {
			// Per-target isolation: log and move on to the next one.
			logrus.WithError(err).Warnf("[CAMPAIGN] Send to conversation %s failed", target.ID)
			continue
		}
		c.MarkDispatched(target.ID)
	}

	if c.DispatchedCount() >= c.TotalTargets {
		c.Complete()
		logrus.Infof("[CAMPAIGN] %s completed (%d/%d dispatched)", c.ID, c.DispatchedCount(), c.TotalTargets)
	} else {
		c.Reschedule(d.now().Add(time.Duration(c.IntervalMinutes) * time.Minute))
		logrus.Infof("[CAMPAIGN] %s dispatched batch, %0.f%% done", c.ID, c.Progress())
	}
	return d.campaigns.Save(ctx, c)
}
