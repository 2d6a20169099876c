package store

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feltlabs/pitboss/internal/game"
)

// recordingStore captures writes for inspection.
type recordingStore struct {
	mu       sync.Mutex
	failWith error
	hands    []string
	chipTxs  []string
	agents   []string
}

func (r *recordingStore) GetMaxHandNumbers() (map[string]uint64, error) { return nil, nil }

func (r *recordingStore) PersistCompletedHand(h *game.CompletedHand) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	r.hands = append(r.hands, h.Hand.ID)
	return nil
}

func (r *recordingStore) PersistChipTx(tx ChipTx) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	r.chipTxs = append(r.chipTxs, tx.ID)
	return nil
}

func (r *recordingStore) UpsertAgent(a *game.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents = append(r.agents, a.ID)
	return nil
}

func (r *recordingStore) SaveTableConfig(string, string, game.TableConfig) error { return nil }
func (r *recordingStore) CumulativeProfits() ([]ProfitRow, error)                { return nil, nil }
func (r *recordingStore) Agent(string) (*game.Agent, error)                      { return nil, ErrNotFound }
func (r *recordingStore) AgentIDForKeyHash(string) (string, error)               { return "", ErrNotFound }
func (r *recordingStore) UpsertAgentKey(string, string) error                    { return nil }
func (r *recordingStore) Close() error                                           { return nil }

func queueLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func TestQueueWritesThrough(t *testing.T) {
	rec := &recordingStore{}
	q := NewQueue(rec, 8, queueLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx) }()

	q.EnqueueHand(&game.CompletedHand{Hand: &game.HandState{ID: "hand-1"}})
	q.EnqueueChipTx(ChipTx{ID: "tx-1"})
	q.EnqueueAgent(&game.Agent{ID: "a-1"})

	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []string{"hand-1"}, rec.hands)
	assert.Equal(t, []string{"tx-1"}, rec.chipTxs)
	assert.Equal(t, []string{"a-1"}, rec.agents)
	assert.Zero(t, q.Dropped())
}

func TestQueueDropsOldestWhenFull(t *testing.T) {
	rec := &recordingStore{}
	q := NewQueue(rec, 2, queueLogger())

	// No worker running: the third write evicts the first.
	q.EnqueueChipTx(ChipTx{ID: "tx-1"})
	q.EnqueueChipTx(ChipTx{ID: "tx-2"})
	q.EnqueueChipTx(ChipTx{ID: "tx-3"})
	assert.Equal(t, uint64(1), q.Dropped())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, q.Run(ctx))

	assert.Equal(t, []string{"tx-2", "tx-3"}, rec.chipTxs)
}

func TestQueueSwallowsStoreFailures(t *testing.T) {
	rec := &recordingStore{failWith: errors.New("disk on fire")}
	q := NewQueue(rec, 4, queueLogger())

	q.EnqueueChipTx(ChipTx{ID: "tx-1"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, q.Run(ctx))

	assert.Empty(t, rec.chipTxs)
}

func TestQueueDefaultSize(t *testing.T) {
	q := NewQueue(&recordingStore{}, 0, queueLogger())
	assert.Equal(t, defaultQueueSize, cap(q.jobs))
}
