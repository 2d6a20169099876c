package escrow

import (
	"context"
	"fmt"
	"sync"
)

// Op records one mock operation for test assertions.
type Op struct {
	Kind          string
	TableID       string
	PlayerAddress string
	Amount        int64
}

// Mock is an in-memory Client for tests and local development. It keeps
// per-table balances, hands out deterministic tx hashes, and can be
// programmed to fail.
type Mock struct {
	mu       sync.Mutex
	balances map[string]map[string]int64
	ops      []Op
	err      error
	txSeq    int
}

// NewMock creates an empty mock custody service.
func NewMock() *Mock {
	return &Mock{balances: make(map[string]map[string]int64)}
}

// Fail makes every subsequent call return err until called with nil.
func (m *Mock) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Balance reads a held balance without the Client ceremony.
func (m *Mock) Balance(tableID, playerAddress string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[tableID][playerAddress]
}

// Ops returns a copy of the recorded operation log.
func (m *Mock) Ops() []Op {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Op, len(m.ops))
	copy(out, m.ops)
	return out
}

func (m *Mock) nextHash() string {
	m.txSeq++
	return fmt.Sprintf("0xmock%04d", m.txSeq)
}

func (m *Mock) Deposit(_ context.Context, tableID, playerAddress string, amount int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	if amount <= 0 {
		return "", fmt.Errorf("%w: non-positive deposit", ErrRejected)
	}
	tbl := m.balances[tableID]
	if tbl == nil {
		tbl = make(map[string]int64)
		m.balances[tableID] = tbl
	}
	tbl[playerAddress] += amount
	m.ops = append(m.ops, Op{Kind: "deposit", TableID: tableID, PlayerAddress: playerAddress, Amount: amount})
	return m.nextHash(), nil
}

func (m *Mock) Settle(_ context.Context, tableID, playerAddress string, finalStack int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	if err := m.settleLocked(tableID, playerAddress, finalStack); err != nil {
		return "", err
	}
	return m.nextHash(), nil
}

func (m *Mock) BatchSettle(_ context.Context, tableID string, settlements []Settlement) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	for _, s := range settlements {
		if _, ok := m.balances[tableID][s.PlayerAddress]; !ok {
			return "", fmt.Errorf("%w: no escrow for %s", ErrRejected, s.PlayerAddress)
		}
	}
	for _, s := range settlements {
		if err := m.settleLocked(tableID, s.PlayerAddress, s.Amount); err != nil {
			return "", err
		}
	}
	return m.nextHash(), nil
}

func (m *Mock) settleLocked(tableID, playerAddress string, amount int64) error {
	if _, ok := m.balances[tableID][playerAddress]; !ok {
		return fmt.Errorf("%w: no escrow for %s", ErrRejected, playerAddress)
	}
	delete(m.balances[tableID], playerAddress)
	m.ops = append(m.ops, Op{Kind: "settle", TableID: tableID, PlayerAddress: playerAddress, Amount: amount})
	return nil
}

func (m *Mock) EmergencyRefundTable(_ context.Context, tableID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for addr, held := range m.balances[tableID] {
		m.ops = append(m.ops, Op{Kind: "refund", TableID: tableID, PlayerAddress: addr, Amount: held})
	}
	delete(m.balances, tableID)
	return nil
}

func (m *Mock) EscrowedBalance(_ context.Context, tableID, playerAddress string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	return m.balances[tableID][playerAddress], nil
}
