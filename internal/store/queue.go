package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/feltlabs/pitboss/internal/game"
)

const defaultQueueSize = 256

// Queue hands store writes to a background worker over a fixed-size
// buffer. When the buffer is full the oldest pending write is dropped
// and counted: the ledger is best-effort history and must never stall a
// table. Write failures are logged and go nowhere else.
type Queue struct {
	store   Store
	logger  *log.Logger
	jobs    chan job
	mu      sync.Mutex
	dropped atomic.Uint64
}

type job struct {
	name string
	run  func() error
}

// NewQueue wraps a store with an async writer buffering up to size
// pending writes.
func NewQueue(s Store, size int, logger *log.Logger) *Queue {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Queue{
		store:  s,
		logger: logger.WithPrefix("store"),
		jobs:   make(chan job, size),
	}
}

// EnqueueHand schedules a completed hand for persistence.
func (q *Queue) EnqueueHand(h *game.CompletedHand) {
	q.enqueue(job{
		name: fmt.Sprintf("hand %s", h.Hand.ID),
		run:  func() error { return q.store.PersistCompletedHand(h) },
	})
}

// EnqueueChipTx schedules a chip movement for persistence.
func (q *Queue) EnqueueChipTx(tx ChipTx) {
	q.enqueue(job{
		name: fmt.Sprintf("chiptx %s", tx.ID),
		run:  func() error { return q.store.PersistChipTx(tx) },
	})
}

// EnqueueAgent schedules an agent identity upsert.
func (q *Queue) EnqueueAgent(a *game.Agent) {
	clone := *a
	q.enqueue(job{
		name: fmt.Sprintf("agent %s", a.ID),
		run:  func() error { return q.store.UpsertAgent(&clone) },
	})
}

func (q *Queue) enqueue(j job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		select {
		case q.jobs <- j:
			return
		default:
		}
		select {
		case old := <-q.jobs:
			q.dropped.Add(1)
			q.logger.Error("persist queue full, dropping oldest", "job", old.name)
		default:
		}
	}
}

// Run processes writes until ctx is cancelled, then drains whatever is
// already buffered before returning.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			q.drainBuffered()
			return nil
		case j := <-q.jobs:
			q.exec(j)
		}
	}
}

func (q *Queue) drainBuffered() {
	for {
		select {
		case j := <-q.jobs:
			q.exec(j)
		default:
			return
		}
	}
}

func (q *Queue) exec(j job) {
	if err := j.run(); err != nil {
		q.logger.Error("persist failed", "job", j.name, "error", err)
	}
}

// Dropped reports how many pending writes were discarded under pressure.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}
