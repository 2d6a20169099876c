// Package store persists the history ledger: completed hands, chip
// movements, agent totals, and API keys. Live table state is
// authoritative in memory; the store is consulted at startup to resume
// hand numbering and by read endpoints, so every write path here is
// allowed to fail without touching a game.
package store

import (
	"errors"
	"time"

	"github.com/feltlabs/pitboss/internal/game"
)

// ErrNotFound is returned by lookups that match nothing.
var ErrNotFound = errors.New("store: not found")

// ChipTxType classifies a chip movement.
type ChipTxType string

const (
	TxBuyIn    ChipTxType = "buy_in"
	TxRebuy    ChipTxType = "rebuy"
	TxCashOut  ChipTxType = "cash_out"
	TxRefund   ChipTxType = "refund"
	TxBotRebuy ChipTxType = "bot_rebuy"
	TxPotWin   ChipTxType = "pot_win"
)

// ChipTx is one chip movement between an agent and a table.
type ChipTx struct {
	ID            string     `json:"id"`
	TableID       string     `json:"tableId"`
	AgentID       string     `json:"agentId"`
	Type          ChipTxType `json:"type"`
	Amount        int64      `json:"amount"`
	WalletAddress string     `json:"walletAddress,omitempty"`
	TxHash        string     `json:"txHash,omitempty"`
	At            time.Time  `json:"at"`
}

// ProfitRow is one leaderboard line of persisted cumulative totals.
type ProfitRow struct {
	AgentID     string         `json:"agentId"`
	AgentName   string         `json:"agentName"`
	AgentType   game.AgentType `json:"agentType"`
	HandsPlayed int            `json:"handsPlayed"`
	HandsWon    int            `json:"handsWon"`
	Profit      int64          `json:"profit"`
}

// Store is the persistence boundary.
type Store interface {
	// GetMaxHandNumbers returns the highest persisted hand number per
	// table id, so counters resume monotonically across restarts.
	GetMaxHandNumbers() (map[string]uint64, error)

	// PersistCompletedHand writes a hand, its per-seat results and
	// action log, pot wins, bot rebuys, and the per-agent total deltas
	// in one transaction.
	PersistCompletedHand(h *game.CompletedHand) error

	// PersistChipTx records a buy-in, rebuy, cash-out, or refund.
	PersistChipTx(tx ChipTx) error

	// UpsertAgent stores agent identity. Cumulative counters are only
	// ever advanced by PersistCompletedHand.
	UpsertAgent(a *game.Agent) error

	// Agent reads a persisted agent by id. ErrNotFound when unknown.
	Agent(id string) (*game.Agent, error)

	// SaveTableConfig records a table's stakes so hands can be read in
	// context later.
	SaveTableConfig(id, name string, cfg game.TableConfig) error

	// CumulativeProfits returns persisted totals ordered by profit,
	// highest first.
	CumulativeProfits() ([]ProfitRow, error)

	// AgentIDForKeyHash resolves a hashed API key. ErrNotFound when the
	// key is unknown.
	AgentIDForKeyHash(hash string) (string, error)

	// UpsertAgentKey binds a key hash to an agent.
	UpsertAgentKey(hash, agentID string) error

	Close() error
}
