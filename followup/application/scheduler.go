package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	crm "github.com/zapleads/zapleads/crm/domain"
	"github.com/zapleads/zapleads/followup/domain"
	"github.com/zapleads/zapleads/gateway"
	"github.com/zapleads/zapleads/pkg/scanworker"
)

const DefaultScanInterval = 30 * time.Second

// LockFunc guards a tick against concurrent replicas. A nil LockFunc
// means single-instance deployment, every tick proceeds.
type LockFunc func(ctx context.Context, key string, expiration time.Duration) bool

// Scheduler is the periodic driver of the repescagem engine. Per tick
// it fans the per-tenant scans out to the shard pool; within a tenant
// the scan is sequential, across tenants there is no ordering.
type Scheduler struct {
	engine        *Engine
	conversations crm.IConversationStore
	definitions   domain.IRoutineDefinitionStore
	sessions      gateway.ISessionProvider
	pool          *scanworker.Pool
	acquireLock   LockFunc
}

func NewScheduler(
	engine *Engine,
	conversations crm.IConversationStore,
	definitions domain.IRoutineDefinitionStore,
	sessions gateway.ISessionProvider,
	pool *scanworker.Pool,
	lockFunc LockFunc,
) *Scheduler {
	return &Scheduler{
		engine:        engine,
		conversations: conversations,
		definitions:   definitions,
		sessions:      sessions,
		pool:          pool,
		acquireLock:   lockFunc,
	}
}

// Tick scans every tenant once. Designed to run under a tick.Runner.
func (s *Scheduler) Tick(ctx context.Context) {
	if s.acquireLock != nil && !s.acquireLock(ctx, "followup:tick", DefaultScanInterval) {
		logrus.Debug("[FOLLOWUP] Another instance holds the tick lock, skipping")
		return
	}

	tenants, err := s.conversations.ListTenants(ctx)
	if err != nil {
		logrus.WithError(err).Error("[FOLLOWUP] Could not enumerate tenants")
		return
	}

	for _, tenantID := range tenants {
		tenantID := tenantID
		if s.pool != nil {
			s.pool.TryDispatch(scanworker.ScanJob{
				Key:     tenantID,
				Handler: func(ctx context.Context) error { return s.ScanTenant(ctx, tenantID) },
			})
			continue
		}
		if err := s.ScanTenant(ctx, tenantID); err != nil {
			logrus.WithError(err).Warnf("[FOLLOWUP] Scan for tenant %s failed", tenantID)
		}
	}
}

// ScanTenant applies the follow-up rules to one tenant's board:
// first the conversations already in follow-up (reply short-circuit,
// advance, terminal), then the monitored columns for new entries.
func (s *Scheduler) ScanTenant(ctx context.Context, tenantID string) error {
	defs, err := s.definitions.FindAll(ctx, tenantID)
	if err != nil {
		return err
	}
	set := domain.BuildRoutineSet(defs)
	if _, ok := set.Get(1); !ok {
		// Tenant never configured the ladder; nothing to do.
		return nil
	}

	session, err := s.sessions.ActiveSession(ctx, tenantID)
	if err != nil {
		if errors.Is(err, gateway.ErrNoActiveSession) {
			logrus.Warnf("[FOLLOWUP] Tenant %s has no active session, skipping tick", tenantID)
			return nil
		}
		return err
	}

	inFollowUp, err := s.conversations.FindByColumn(ctx, tenantID, crm.ColumnFollowUp)
	if err != nil {
		return err
	}
	for _, conv := range inFollowUp {
		if err := s.engine.EvaluateFollowUp(ctx, session, conv, set); err != nil {
			// Per-entity isolation: one broken row never aborts the scan.
			logrus.WithError(err).Warnf("[FOLLOWUP] Evaluation of conversation %s failed", conv.ID)
		}
	}

	monitored, err := s.conversations.FindMonitored(ctx, tenantID, domain.MonitoredColumns)
	if err != nil {
		return err
	}
	for _, conv := range monitored {
		if err := s.engine.EvaluateEntry(ctx, session, conv, set); err != nil {
			logrus.WithError(err).Warnf("[FOLLOWUP] Entry evaluation of conversation %s failed", conv.ID)
		}
	}
	return nil
}
