package web

import (
	"strings"
	"sync"
)

type resourceKey struct {
	kind string
	id   string
}

func (k resourceKey) String() string {
	kind := strings.TrimSpace(k.kind)
	id := strings.TrimSpace(k.id)
	if id == "" {
		return kind
	}
	return kind + ":" + id
}

func projectKey(id string) resourceKey { return resourceKey{kind: "project", id: id} }

// resourceHub fans a "something changed" tick out to every subscriber.
// Ticks coalesce: a slow subscriber sees at most one pending tick.
type resourceHub struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

func newResourceHub() *resourceHub {
	return &resourceHub{subs: map[chan struct{}]struct{}{}}
}

func (h *resourceHub) subscribe() (ch chan struct{}, cancel func()) {
	ch = make(chan struct{}, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *resourceHub) broadcast() {
	h.mu.Lock()
	for ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	h.mu.Unlock()
}

func (h *resourceHub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// resourceBroadcaster owns one hub per resource key.
type resourceBroadcaster struct {
	mu   sync.Mutex
	hubs map[string]*resourceHub
}

func newResourceBroadcaster() *resourceBroadcaster {
	return &resourceBroadcaster{hubs: map[string]*resourceHub{}}
}

func (b *resourceBroadcaster) hubFor(key resourceKey) *resourceHub {
	k := key.String()
	b.mu.Lock()
	h := b.hubs[k]
	if h == nil {
		h = newResourceHub()
		b.hubs[k] = h
	}
	b.mu.Unlock()
	return h
}

// projectChanged is installed as the project service's change hook.
func (b *resourceBroadcaster) projectChanged(projectID string) {
	b.hubFor(projectKey(projectID)).broadcast()
}
