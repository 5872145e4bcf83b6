package notify

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
	"github.com/zapleads/zapleads/infrastructure/valkey"
)

// ValkeySink publishes events on a per-tenant pub/sub channel so the
// (external) push-notification service can fan them out. Best-effort:
// errors are logged and dropped.
type ValkeySink struct {
	client *valkey.Client
}

func NewValkeySink(client *valkey.Client) *ValkeySink {
	return &ValkeySink{client: client}
}

func (s *ValkeySink) Publish(ctx context.Context, tenantID string, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		logrus.WithError(err).Error("[NOTIFY] Could not encode event")
		return
	}
	if err := s.client.PublishJSON(ctx, "events:"+tenantID, string(payload)); err != nil {
		logrus.WithError(err).Warnf("[NOTIFY] Publish for tenant %s failed", tenantID)
	}
}
