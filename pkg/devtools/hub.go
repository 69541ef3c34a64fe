package devtools

import (
	"sync"
	"time"

	"github.com/reverb-dev/reverb/pkg/reverb"
)

// Event is one engine lifecycle event streamed to inspector clients.
type Event struct {
	// Type is one of "trigger", "effect_run", "flush_start",
	// "flush_end", "readonly_rejected", "budget_exceeded".
	Type string `json:"type"`

	At time.Time `json:"at"`

	TargetID    uint64 `json:"target_id,omitempty"`
	Key         string `json:"key,omitempty"`
	Subscribers int    `json:"subscribers,omitempty"`

	EffectID uint64 `json:"effect_id,omitempty"`
	Panicked bool   `json:"panicked,omitempty"`

	Jobs      int `json:"jobs,omitempty"`
	Remaining int `json:"remaining,omitempty"`

	DurationMicros int64 `json:"duration_us,omitempty"`
}

// clientBuffer is the per-client event buffer. A client that falls this
// far behind starts losing events rather than stalling the engine.
const clientBuffer = 256

// Hub fans engine lifecycle events out to inspector clients. It
// implements reverb.Instrumentation, so wire it into the engine and
// mount the inspector over it:
//
//	hub := devtools.NewHub()
//	e := reverb.New(reverb.WithInstrumentation(hub))
//	http.ListenAndServe(":6060", devtools.New(e, devtools.WithHub(hub)).Handler())
//
// Broadcasts never block: the engine's hot path only does a non-blocking
// channel send per client.
type Hub struct {
	mu      sync.RWMutex
	clients map[chan Event]struct{}
	dropped uint64
}

// NewHub creates an event hub with no clients.
func NewHub() *Hub {
	return &Hub{clients: make(map[chan Event]struct{})}
}

func (h *Hub) subscribe() chan Event {
	ch := make(chan Event, clientBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan Event) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

// ClientCount reports the number of connected inspector clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped reports how many events were discarded because a client's
// buffer was full.
func (h *Hub) Dropped() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

func (h *Hub) broadcast(ev Event) {
	ev.At = time.Now()

	h.mu.Lock()
	for ch := range h.clients {
		select {
		case ch <- ev:
		default:
			h.dropped++
		}
	}
	h.mu.Unlock()
}

// Trigger implements reverb.Instrumentation.
func (h *Hub) Trigger(targetID uint64, key string, subscribers int) {
	h.broadcast(Event{Type: "trigger", TargetID: targetID, Key: key, Subscribers: subscribers})
}

// EffectRun implements reverb.Instrumentation.
func (h *Hub) EffectRun(effectID uint64, d time.Duration, recovered any) {
	h.broadcast(Event{
		Type:           "effect_run",
		EffectID:       effectID,
		Panicked:       recovered != nil,
		DurationMicros: d.Microseconds(),
	})
}

// FlushStart implements reverb.Instrumentation.
func (h *Hub) FlushStart() {
	h.broadcast(Event{Type: "flush_start"})
}

// FlushEnd implements reverb.Instrumentation.
func (h *Hub) FlushEnd(jobs int, d time.Duration) {
	h.broadcast(Event{Type: "flush_end", Jobs: jobs, DurationMicros: d.Microseconds()})
}

// ReadonlyRejected implements reverb.Instrumentation.
func (h *Hub) ReadonlyRejected(targetID uint64, key string) {
	h.broadcast(Event{Type: "readonly_rejected", TargetID: targetID, Key: key})
}

// BudgetExceeded implements reverb.Instrumentation.
func (h *Hub) BudgetExceeded(remaining int) {
	h.broadcast(Event{Type: "budget_exceeded", Remaining: remaining})
}

var _ reverb.Instrumentation = (*Hub)(nil)
