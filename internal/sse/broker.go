// Package sse implements a Server-Sent Events broker for change
// notifications.
package sse

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"sync/atomic"
	"time"
)

const (
	defaultHeartbeat = 25 * time.Second
	reconnectDelay   = 3 * time.Second
)

type event struct {
	Type string
	Data any
}

// Change describes a mutation of a catalog or project resource.
type Change struct {
	Resource  string // dataset, project, graph, report
	Action    string // created, updated, deleted
	ID        string
	ProjectID string
	// AffectsResults marks changes that can alter computed totals.
	AffectsResults bool
}

// Type returns the event name, e.g. "dataset.created".
func (c Change) Type() string {
	return c.Resource + "." + c.Action
}

func (c Change) payload() map[string]string {
	data := map[string]string{}
	if c.ID != "" {
		data["id"] = c.ID
	}
	if c.ProjectID != "" {
		data["projectId"] = c.ProjectID
	}
	return data
}

// Publisher receives change notifications.
type Publisher interface {
	PublishChange(c Change)
}

// Discard is a Publisher that drops every change.
var Discard Publisher = discard{}

type discard struct{}

func (discard) PublishChange(Change) {}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable
// state (clients + results throttle window). Public methods communicate
// with this loop through channels, so no mutexes are required.
type Broker struct {
	resultsMin time.Duration
	heartbeat  time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	changeCh      chan Change
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. results.invalidated is emitted at
// most once per project per resultsThrottle window; changes arriving inside
// a window are held back and sent when it closes.
func NewBroker(resultsThrottle time.Duration) *Broker {
	if resultsThrottle <= 0 {
		resultsThrottle = 2 * time.Second
	}

	b := &Broker{
		resultsMin:    resultsThrottle,
		heartbeat:     defaultHeartbeat,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		changeCh:      make(chan Change, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var seq uint64

	// pending holds project ids waiting for the window to close; the empty
	// id means every project.
	var lastResults time.Time
	pending := make(map[string]struct{})
	var window *time.Timer
	var windowC <-chan time.Time

	broadcast := func(e event) {
		payload, err := json.Marshal(e.Data)
		if err != nil {
			return
		}
		seq++
		raw := fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", seq, e.Type, payload)

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	invalidate := func(projectID string) {
		data := map[string]string{}
		if projectID != "" {
			data["projectId"] = projectID
		}
		broadcast(event{Type: "results.invalidated", Data: data})
	}

	for {
		select {
		case <-b.stopCh:
			if window != nil {
				window.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case c := <-b.changeCh:
			broadcast(event{Type: c.Type(), Data: c.payload()})
			if !c.AffectsResults {
				continue
			}
			if windowC == nil && time.Since(lastResults) >= b.resultsMin {
				lastResults = time.Now()
				invalidate(c.ProjectID)
				continue
			}
			pending[c.ProjectID] = struct{}{}
			if windowC == nil {
				window = time.NewTimer(b.resultsMin - time.Since(lastResults))
				windowC = window.C
			}

		case <-windowC:
			windowC = nil
			lastResults = time.Now()
			if _, all := pending[""]; all {
				invalidate("")
			} else {
				for _, id := range slices.Sorted(maps.Keys(pending)) {
					invalidate(id)
				}
			}
			clear(pending)

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// PublishChange broadcasts c and, when it affects results, schedules a
// throttled results.invalidated event.
func (b *Broker) PublishChange(c Change) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- c:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). Idle streams get
// a comment line every heartbeat so proxies keep the connection open.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", reconnectDelay.Milliseconds())
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.heartbeat)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
