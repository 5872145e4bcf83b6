package gateway

import (
	"context"
	"errors"
)

var (
	ErrNoActiveSession = errors.New("no active messaging session for tenant")
	ErrGatewayTimeout  = errors.New("gateway request timed out")
)

// Session identifies one connected provider instance for a tenant.
type Session struct {
	TenantID   string
	InstanceID string
	Token      string
}

type SendResult struct {
	Success           bool
	ProviderMessageID string
}

// IClient is the minimal contract the schedulers depend on: send a text
// through an active provider session, get back success and the
// provider-assigned message id.
type IClient interface {
	SendText(ctx context.Context, session Session, phone, text string) (SendResult, error)
}

// ISessionProvider resolves the active provider session of a tenant.
// Returns ErrNoActiveSession when the tenant has no connected instance.
type ISessionProvider interface {
	ActiveSession(ctx context.Context, tenantID string) (Session, error)
}
