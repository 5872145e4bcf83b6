package application

import (
	"context"
	"sort"
	"sync"
	"time"

	crmApp "github.com/zapleads/zapleads/crm/application"
	crm "github.com/zapleads/zapleads/crm/domain"
	"github.com/zapleads/zapleads/followup/domain"
	"github.com/zapleads/zapleads/gateway"
	"github.com/zapleads/zapleads/notify"
)

// In-memory stores used across the engine and scheduler tests. They
// mirror the repository contracts closely enough that the application
// layer cannot tell the difference.

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
		if hasAnyTag(c.TagIDs, tagIDs) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func hasAnyTag(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if w == h {
				return true
			}
		}
	}
	return false
}

func (s *memConvStore) ListTenants(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{})
	var out []string
	for _, c := range s.convs {
		if !c.Active {
			continue
		}
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

func newMemMsgStore() *memMsgStore {
	return &memMsgStore{}
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
		m := &s.msgs[i]
		if m.ConversationID != conversationID {
			continue
		}
		if best == nil || m.CreatedAt.After(best.CreatedAt) {
			best = m
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
		m := &s.msgs[i]
		if m.ConversationID != conversationID || m.FromCustomer != fromCustomer {
			continue
		}
		if best == nil || m.CreatedAt.After(best.CreatedAt) {
			best = m
		}
	}
	if best == nil {
		return crm.Message{}, crm.ErrMessageNotFound
	}
	return *best, nil
}

type memStateStore struct {
	mu     sync.Mutex
	states map[string]domain.RoutineState
}

func newMemStateStore() *memStateStore {
	return &memStateStore{states: make(map[string]domain.RoutineState)}
}

func (s *memStateStore) FindByConversation(_ context.Context, conversationID string) (domain.RoutineState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[conversationID]
	if !ok {
		return domain.RoutineState{}, domain.ErrStateNotFound
	}
	return st, nil
}

func (s *memStateStore) Save(_ context.Context, state *domain.RoutineState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.ConversationID] = *state
	return nil
}

func (s *memStateStore) DeleteByConversation(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, conversationID)
	return nil
}

type memDefStore struct {
	mu   sync.Mutex
	defs map[string][]domain.RoutineDefinition
}

func newMemDefStore() *memDefStore {
	return &memDefStore{defs: make(map[string][]domain.RoutineDefinition)}
}

func (s *memDefStore) FindAll(_ context.Context, tenantID string) ([]domain.RoutineDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]domain.RoutineDefinition(nil), s.defs[tenantID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (s *memDefStore) Upsert(_ context.Context, def *domain.RoutineDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.defs[def.TenantID]
	for i := range list {
		if list[i].Sequence == def.Sequence {
			list[i] = *def
			return nil
		}
	}
	s.defs[def.TenantID] = append(list, *def)
	return nil
}

func (s *memDefStore) Delete(_ context.Context, tenantID string, sequence int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.defs[tenantID]
	for i := range list {
		if list[i].Sequence == sequence {
			s.defs[tenantID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return domain.ErrDefinitionNotFound
}

// sentText records one gateway call for assertions.
type sentText struct {
	Phone string
	Text  string
}

type stubGateway struct {
	mu    sync.Mutex
	sent  []sentText
	fail  bool
	errBy map[string]error
}

func (g *stubGateway) SendText(_ context.Context, _ gateway.Session, phone, text string) (gateway.SendResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err, ok := g.errBy[phone]; ok {
		return gateway.SendResult{}, err
	}
	if g.fail {
		return gateway.SendResult{Success: false}, nil
	}
	g.sent = append(g.sent, sentText{Phone: phone, Text: text})
	return gateway.SendResult{Success: true, ProviderMessageID: "prov-1"}, nil
}

func (g *stubGateway) sentCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sent)
}

type stubSessions struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (s *stubSessions) ActiveSession(_ context.Context, tenantID string) (gateway.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return gateway.Session{}, s.err
	}
	return gateway.Session{TenantID: tenantID, InstanceID: "inst-1", Token: "tok"}, nil
}

type recordSink struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordSink) Publish(_ context.Context, _ string, ev notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// engineFixture bundles the wired engine with every fake it talks to.
type engineFixture struct {
	engine *Engine
	convs  *memConvStore
	msgs   *memMsgStore
	states *memStateStore
	gw     *stubGateway
	sink   *recordSink
	now    time.Time
}

func newEngineFixture(now time.Time) *engineFixture {
	f := &engineFixture{
		convs:  newMemConvStore(),
		msgs:   newMemMsgStore(),
		states: newMemStateStore(),
		gw:     &stubGateway{},
		sink:   &recordSink{},
		now:    now,
	}
	clock := func() time.Time { return f.now }
	outbox := crmApp.NewOutbox(f.convs, f.msgs, f.gw).WithClock(clock)
	f.engine = NewEngine(f.convs, f.msgs, f.states, outbox, f.sink).WithClock(clock)
	return f
}

func (f *engineFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}
