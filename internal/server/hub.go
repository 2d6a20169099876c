package server

import (
	"context"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

const (
	// hubBuffer absorbs broadcast bursts, subscriberBuffer absorbs one
	// consumer's lag. Past either, events are dropped rather than ever
	// blocking the tick loop.
	hubBuffer        = 256
	subscriberBuffer = 64
)

// Subscriber receives one table's events. The hub closes the channel when
// the subscriber is dropped or the hub shuts down.
type Subscriber struct {
	tableID string
	ch      chan Event
}

// C is the event stream.
func (s *Subscriber) C() <-chan Event { return s.ch }

// Hub fans table events out to websocket subscribers. All bookkeeping
// happens on the Run goroutine; Broadcast and Subscribe only touch
// channels, so the engine never waits on a consumer.
type Hub struct {
	logger      *log.Logger
	register    chan *Subscriber
	unregister  chan *Subscriber
	events      chan Event
	done        chan struct{}
	dropped     atomic.Uint64
	subscribers atomic.Int64

	subs map[string]map[*Subscriber]bool
}

// NewHub creates a hub. Call Run to start delivery.
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		logger:     logger.WithPrefix("hub"),
		register:   make(chan *Subscriber),
		unregister: make(chan *Subscriber),
		events:     make(chan Event, hubBuffer),
		done:       make(chan struct{}),
		subs:       make(map[string]map[*Subscriber]bool),
	}
}

// Subscribe registers for one table's events. Returns nil after shutdown.
func (h *Hub) Subscribe(tableID string) *Subscriber {
	sub := &Subscriber{tableID: tableID, ch: make(chan Event, subscriberBuffer)}
	select {
	case h.register <- sub:
		return sub
	case <-h.done:
		return nil
	}
}

// Unsubscribe removes a subscriber. Safe to call for one the hub already
// dropped.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	select {
	case h.unregister <- sub:
	case <-h.done:
	}
}

// Broadcast queues an event for delivery. Never blocks; under sustained
// pressure the event is counted as dropped instead.
func (h *Hub) Broadcast(ev Event) {
	select {
	case h.events <- ev:
	default:
		h.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded at the hub buffer.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Subscribers reports how many consumers are currently connected.
func (h *Hub) Subscribers() int { return int(h.subscribers.Load()) }

// Run delivers events until ctx is cancelled, then closes every
// subscriber channel.
func (h *Hub) Run(ctx context.Context) error {
	defer func() {
		close(h.done)
		for _, set := range h.subs {
			for sub := range set {
				close(sub.ch)
				h.subscribers.Add(-1)
			}
		}
	}()

	for {
		select {
		case sub := <-h.register:
			set := h.subs[sub.tableID]
			if set == nil {
				set = make(map[*Subscriber]bool)
				h.subs[sub.tableID] = set
			}
			set[sub] = true
			h.subscribers.Add(1)
			h.logger.Debug("subscriber joined", "table", sub.tableID, "subscribers", len(set))

		case sub := <-h.unregister:
			h.drop(sub)

		case ev := <-h.events:
			for sub := range h.subs[ev.TableID] {
				select {
				case sub.ch <- ev:
				default:
					// Consumer lagged a full buffer behind.
					h.logger.Warn("dropping slow subscriber", "table", ev.TableID)
					h.drop(sub)
				}
			}

		case <-ctx.Done():
			return nil
		}
	}
}

func (h *Hub) drop(sub *Subscriber) {
	set, ok := h.subs[sub.tableID]
	if !ok || !set[sub] {
		return
	}
	delete(set, sub)
	close(sub.ch)
	h.subscribers.Add(-1)
	if len(set) == 0 {
		delete(h.subs, sub.tableID)
	}
}
