package application

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/zapleads/zapleads/campaign/domain"
	crmApp "github.com/zapleads/zapleads/crm/application"
	crm "github.com/zapleads/zapleads/crm/domain"
	"github.com/zapleads/zapleads/gateway"
)

type memCampaignStore struct {
	mu        sync.Mutex
	campaigns map[string]domain.Campaign
}

func newMemCampaignStore() *memCampaignStore {
	return &memCampaignStore{campaigns: make(map[string]domain.Campaign)}
}

func (s *memCampaignStore) Save(_ context.Context, c *domain.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *c
	stored.SetDispatchedIDs(c.DispatchedIDs())
	s.campaigns[c.ID] = stored
	return nil
}

func (s *memCampaignStore) GetByID(_ context.Context, id string) (domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return domain.Campaign{}, domain.ErrCampaignNotFound
	}
	out := c
	out.SetDispatchedIDs(c.DispatchedIDs())
	return out, nil
}

func (s *memCampaignStore) ListByTenant(_ context.Context, tenantID string) ([]domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Campaign
	for _, c := range s.campaigns {
		if c.TenantID == tenantID {
			copied := c
			copied.SetDispatchedIDs(c.DispatchedIDs())
			out = append(out, copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memCampaignStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.campaigns, id)
	return nil
}

func (s *memCampaignStore) FindDueForDispatch(_ context.Context, now time.Time) ([]domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Campaign
	for _, c := range s.campaigns {
		if c.Status != domain.StatusRunning || c.NextDispatchAt == nil {
			continue
		}
		if !c.NextDispatchAt.After(now) {
			copied := c
			copied.SetDispatchedIDs(c.DispatchedIDs())
			out = append(out, copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memConvStore struct {
	mu    sync.Mutex
	convs map[string]crm.Conversation
}

func newMemConvStore() *memConvStore {
	return &memConvStore{convs: make(map[string]crm.Conversation)}
}

func (s *memConvStore) Save(_ context.Context, conv *crm.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[conv.ID] = *conv
	return nil
}

func (s *memConvStore) GetByID(_ context.Context, id string) (crm.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return crm.Conversation{}, crm.ErrConversationNotFound
	}
	return c, nil
}

func (s *memConvStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, id)
	return nil
}

func (s *memConvStore) FindByColumn(_ context.Context, tenantID string, column crm.BoardColumn) ([]crm.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []crm.Conversation
	for _, c := range s.convs {
		if c.TenantID == tenantID && c.Column == column && c.Active {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memConvStore) FindMonitored(_ context.Context, tenantID string, columns []crm.BoardColumn) ([]crm.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []crm.Conversation
	for _, c := range s.convs {
		if c.TenantID != tenantID || !c.Active {
			continue
		}
		for _, col := range columns {
			if c.Column == col {
				out = append(out, c)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memConvStore) FindTargets(_ context.Context, tenantID string, tagIDs []string, allTrusted bool) ([]crm.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []crm.Conversation
	for _, c := range s.convs {
		if c.TenantID != tenantID || !c.Active {
			continue
		}
		if allTrusted {
			if c.Trusted {
				out = append(out, c)
			}
			continue
		}
		for _, want := range tagIDs {
			matched := false
			for _, have := range c.TagIDs {
				if want == have {
					out = append(out, c)
					matched = true
					break
				}
			}
			if matched {
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memConvStore) ListTenants(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{})
	var out []string
	for _, c := range s.convs {
		if _, ok := seen[c.TenantID]; !ok {
			seen[c.TenantID] = struct{}{}
			out = append(out, c.TenantID)
		}
	}
	sort.Strings(out)
	return out, nil
}

type memMsgStore struct {
	mu   sync.Mutex
	msgs []crm.Message
}

func (s *memMsgStore) Save(_ context.Context, msg *crm.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.msgs {
		if s.msgs[i].ID == msg.ID {
			s.msgs[i] = *msg
			return nil
		}
	}
	s.msgs = append(s.msgs, *msg)
	return nil
}

func (s *memMsgStore) LastMessage(_ context.Context, conversationID string) (crm.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *crm.Message
	for i := range s.msgs {
		if s.msgs[i].ConversationID != conversationID {
			continue
		}
		if best == nil || s.msgs[i].CreatedAt.After(best.CreatedAt) {
			best = &s.msgs[i]
		}
	}
	if best == nil {
		return crm.Message{}, crm.ErrMessageNotFound
	}
	return *best, nil
}

func (s *memMsgStore) LastMessageBy(_ context.Context, conversationID string, fromCustomer bool) (crm.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *crm.Message
	for i := range s.msgs {
		if s.msgs[i].ConversationID != conversationID || s.msgs[i].FromCustomer != fromCustomer {
			continue
		}
		if best == nil || s.msgs[i].CreatedAt.After(best.CreatedAt) {
			best = &s.msgs[i]
		}
	}
	if best == nil {
		return crm.Message{}, crm.ErrMessageNotFound
	}
	return *best, nil
}

type stubGateway struct {
	mu      sync.Mutex
	sent    []string // phones in send order
	failFor map[string]bool
	sendErr error
}

func (g *stubGateway) SendText(_ context.Context, _ gateway.Session, phone, _ string) (gateway.SendResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return gateway.SendResult{}, g.sendErr
	}
	if g.failFor[phone] {
		return gateway.SendResult{Success: false}, nil
	}
	g.sent = append(g.sent, phone)
	return gateway.SendResult{Success: true, ProviderMessageID: "prov"}, nil
}

func (g *stubGateway) sentCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sent)
}

type stubSessions struct {
	err error
}

func (s *stubSessions) ActiveSession(_ context.Context, tenantID string) (gateway.Session, error) {
	if s.err != nil {
		return gateway.Session{}, s.err
	}
	return gateway.Session{TenantID: tenantID, InstanceID: "inst", Token: "tok"}, nil
}

type dispatcherFixture struct {
	campaigns  *memCampaignStore
	convs      *memConvStore
	msgs       *memMsgStore
	gw         *stubGateway
	sessions   *stubSessions
	dispatcher *Dispatcher
	now        time.Time
}

func newDispatcherFixture(start time.Time) *dispatcherFixture {
	f := &dispatcherFixture{
		campaigns: newMemCampaignStore(),
		convs:     newMemConvStore(),
		msgs:      &memMsgStore{},
		gw:        &stubGateway{failFor: make(map[string]bool)},
		sessions:  &stubSessions{},
		now:       start,
	}
	clock := func() time.Time { return f.now }
	outbox := crmApp.NewOutbox(f.convs, f.msgs, f.gw).WithClock(clock)
	f.dispatcher = NewDispatcher(f.campaigns, f.convs, outbox, f.sessions, 0).WithClock(clock)
	return f
}

func (f *dispatcherFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}
