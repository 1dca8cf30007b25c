// Package sse implements a Server-Sent Events broker for word and session updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/wordmaster/internal/models"
	"github.com/starford/wordmaster/internal/session"
	"github.com/starford/wordmaster/internal/store"
)

// Event types sent to clients.
const (
	EventWordsChanged   = "words.changed"
	EventSessionChanged = "session.changed"
	EventStatsUpdated   = "stats.updated"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type wordChange struct {
	Kind  string       `json:"kind"`
	ID    int64        `json:"id,omitempty"`
	stats models.Stats
}

type sessionChange struct {
	Kind  string           `json:"kind"`
	State session.Snapshot `json:"state"`
}

// Broker manages SSE client connections and broadcasts events.
//
// A single event loop owns the client set and the stats throttle state. Public
// methods talk to it over channels.
type Broker struct {
	statsMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	wordCh        chan wordChange
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that sends at most one stats.updated event per
// statsThrottle. A throttled update is delivered when the window closes.
func NewBroker(statsThrottle time.Duration) *Broker {
	if statsThrottle <= 0 {
		statsThrottle = 2 * time.Second
	}

	b := &Broker{
		statsMin:      statsThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		wordCh:        make(chan wordChange, 256),
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

	var (
		lastStats time.Time
		pending   *models.Stats
		flush     *time.Timer
		flushC    <-chan time.Time
	)

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than stall the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			if flush != nil {
				flush.Stop()
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

		case event := <-b.publishCh:
			broadcast(event)

		case ch := <-b.wordCh:
			broadcast(Event{Type: EventWordsChanged, Data: ch})

			stats := ch.stats
			now := time.Now()
			if wait := b.statsMin - now.Sub(lastStats); wait > 0 {
				pending = &stats
				if flushC == nil {
					flush = time.NewTimer(wait)
					flushC = flush.C
				}
				continue
			}
			lastStats = now
			broadcast(Event{Type: EventStatsUpdated, Data: stats})

		case <-flushC:
			flushC = nil
			if pending != nil {
				lastStats = time.Now()
				broadcast(Event{Type: EventStatsUpdated, Data: *pending})
				pending = nil
			}

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

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishWordChange publishes a collection change and a throttled stats.updated event.
func (b *Broker) PublishWordChange(ch store.Change, stats models.Stats) {
	if b.closed.Load() {
		return
	}
	select {
	case b.wordCh <- wordChange{Kind: string(ch.Kind), ID: ch.ID, stats: stats}:
	case <-b.stopped:
	}
}

// PublishSession publishes the session state after a command.
func (b *Broker) PublishSession(kind string, snap session.Snapshot) {
	b.Publish(Event{Type: EventSessionChanged, Data: sessionChange{Kind: kind, State: snap}})
}

// Attach forwards store and session notifications of c to the broker.
func (b *Broker) Attach(c *session.Controller) {
	s := c.Store()
	s.Subscribe(func(ch store.Change) {
		b.PublishWordChange(ch, s.Stats())
	})
	c.Subscribe(b.PublishSession)
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
