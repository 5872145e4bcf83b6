package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/zapleads/zapleads/campaign/domain"
	crm "github.com/zapleads/zapleads/crm/domain"
)

// Service owns the user-facing campaign lifecycle. Status transitions
// go through the domain methods; the scheduler and the user mutate the
// same row through the same store, so writes stay transactional.
type Service struct {
	campaigns     domain.ICampaignStore
	conversations crm.IConversationStore
	now           func() time.Time
}

func NewService(campaigns domain.ICampaignStore, conversations crm.IConversationStore) *Service {
	return &Service{
		campaigns:     campaigns,
		conversations: conversations,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Create(ctx context.Context, tenantID, name, template string, chatsPerDispatch, intervalMinutes int, selector domain.TargetSelector) (domain.Campaign, error) {
	if chatsPerDispatch < 1 {
		chatsPerDispatch = 1
	}
	if intervalMinutes < 1 {
		intervalMinutes = 1
	}
	c := domain.Campaign{
		ID:               uuid.NewString(),
		TenantID:         tenantID,
		Name:             name,
		MessageTemplate:  template,
		ChatsPerDispatch: chatsPerDispatch,
		IntervalMinutes:  intervalMinutes,
		Status:           domain.StatusCreated,
		Selector:         selector,
		CreatedAt:        s.now(),
	}
	if err := s.campaigns.Save(ctx, &c); err != nil {
		return domain.Campaign{}, err
	}
	return c, nil
}

// Start freezes the target count at start time and arms the dispatcher.
// Restarting a paused campaign keeps the original count.
func (s *Service) Start(ctx context.Context, id string) (domain.Campaign, error) {
	c, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return domain.Campaign{}, err
	}
	if c.Status == domain.StatusCreated {
		targets, err := s.conversations.FindTargets(ctx, c.TenantID, c.Selector.TagIDs, c.Selector.AllTrusted)
		if err != nil {
			return domain.Campaign{}, err
		}
		c.TotalTargets = len(targets)
	}
	if err := c.Start(s.now()); err != nil {
		return domain.Campaign{}, err
	}
	if err := s.campaigns.Save(ctx, &c); err != nil {
		return domain.Campaign{}, err
	}
	logrus.Infof("[CAMPAIGN] %s started (%d targets)", c.ID, c.TotalTargets)
	return c, nil
}

func (s *Service) Pause(ctx context.Context, id string) (domain.Campaign, error) {
	c, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return domain.Campaign{}, err
	}
	if err := c.Pause(); err != nil {
		return domain.Campaign{}, err
	}
	if err := s.campaigns.Save(ctx, &c); err != nil {
		return domain.Campaign{}, err
	}
	logrus.Infof("[CAMPAIGN] %s paused", c.ID)
	return c, nil
}

func (s *Service) Cancel(ctx context.Context, id string) (domain.Campaign, error) {
	c, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return domain.Campaign{}, err
	}
	if err := c.Cancel(); err != nil {
		return domain.Campaign{}, err
	}
	if err := s.campaigns.Save(ctx, &c); err != nil {
		return domain.Campaign{}, err
	}
	logrus.Infof("[CAMPAIGN] %s canceled", c.ID)
	return c, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Campaign, error) {
	return s.campaigns.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, tenantID string) ([]domain.Campaign, error) {
	return s.campaigns.ListByTenant(ctx, tenantID)
}
