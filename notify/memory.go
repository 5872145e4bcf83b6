package notify

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// MemoryHub fans events out to in-process subscribers over buffered
// channels. Slow subscribers drop events instead of blocking the
// schedulers.
type MemoryHub struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Event
	bufferSize  int
}

func NewMemoryHub(bufferSize int) *MemoryHub {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &MemoryHub{
		subscribers: make(map[string][]chan Event),
		bufferSize:  bufferSize,
	}
}

func (h *MemoryHub) Publish(_ context.Context, tenantID string, ev Event) {
	h.mu.RLock()
	subs := h.subscribers[tenantID]
	h.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
			logrus.Warnf("[NOTIFY] Subscriber of tenant %s is full, dropping %s", tenantID, ev.Type)
		}
	}
}

// Subscribe registers a listener for one tenant. The returned cancel
// func detaches the listener and closes its channel.
func (h *MemoryHub) Subscribe(tenantID string) (<-chan Event, func()) {
	ch := make(chan Event, h.bufferSize)

	h.mu.Lock()
	h.subscribers[tenantID] = append(h.subscribers[tenantID], ch)
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs := h.subscribers[tenantID]
		for i, c := range subs {
			if c == ch {
				h.subscribers[tenantID] = append(subs[:i], subs[i+1:]...)
				close(ch)
				break
			}
		}
	}
	return ch, cancel
}
