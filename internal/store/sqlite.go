package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/feltlabs/pitboss/internal/deck"
	"github.com/feltlabs/pitboss/internal/game"
)

// SQLite implements Store on a single sqlite database file.
type SQLite struct {
	*sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and
// bootstraps the schema.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db}, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS agents (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			wallet_address TEXT NOT NULL DEFAULT '',
			hands_played INTEGER NOT NULL DEFAULT 0,
			hands_won INTEGER NOT NULL DEFAULT 0,
			total_profit INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS table_configs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			stakes TEXT NOT NULL,
			small_blind INTEGER NOT NULL,
			big_blind INTEGER NOT NULL,
			min_buy_in INTEGER NOT NULL,
			max_buy_in INTEGER NOT NULL,
			max_seats INTEGER NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS hands (
			id TEXT PRIMARY KEY,
			table_id TEXT NOT NULL,
			hand_number INTEGER NOT NULL,
			community TEXT NOT NULL DEFAULT '',
			pot INTEGER NOT NULL,
			started_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS hand_players (
			hand_id TEXT NOT NULL,
			seat_number INTEGER NOT NULL,
			agent_id TEXT NOT NULL,
			agent_name TEXT NOT NULL,
			agent_type TEXT NOT NULL,
			starting_stack INTEGER NOT NULL,
			ending_stack INTEGER NOT NULL,
			profit INTEGER NOT NULL,
			hole_cards TEXT NOT NULL DEFAULT '',
			folded INTEGER NOT NULL DEFAULT 0,
			won_amount INTEGER NOT NULL DEFAULT 0,
			hand_name TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (hand_id, seat_number)
		)`,
		`CREATE TABLE IF NOT EXISTS hand_actions (
			hand_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			seat_number INTEGER NOT NULL,
			agent_id TEXT NOT NULL,
			action TEXT NOT NULL,
			amount INTEGER NOT NULL,
			phase TEXT NOT NULL,
			at TIMESTAMP NOT NULL,
			PRIMARY KEY (hand_id, idx)
		)`,
		`CREATE TABLE IF NOT EXISTS chip_transactions (
			id TEXT PRIMARY KEY,
			table_id TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			type TEXT NOT NULL,
			amount INTEGER NOT NULL,
			wallet_address TEXT NOT NULL DEFAULT '',
			tx_hash TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS agent_keys (
			key_hash TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_hands_table ON hands(table_id, hand_number)`,
		`CREATE INDEX IF NOT EXISTS idx_chip_tx_agent ON chip_transactions(agent_id)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

func (s *SQLite) GetMaxHandNumbers() (map[string]uint64, error) {
	rows, err := s.Query(`SELECT table_id, MAX(hand_number) FROM hands GROUP BY table_id`)
	if err != nil {
		return nil, fmt.Errorf("max hand numbers: %w", err)
	}
	defer rows.Close()

	out := make(map[string]uint64)
	for rows.Next() {
		var tableID string
		var n uint64
		if err := rows.Scan(&tableID, &n); err != nil {
			return nil, err
		}
		out[tableID] = n
	}
	return out, rows.Err()
}

func (s *SQLite) PersistCompletedHand(h *game.CompletedHand) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	hand := h.Hand
	_, err = tx.Exec(`
		INSERT INTO hands (id, table_id, hand_number, community, pot, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, hand.ID, h.TableID, hand.HandNumber, deck.Cards(hand.CommunityCards).String(),
		hand.Pot, hand.StartedAt, hand.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert hand %s: %w", hand.ID, err)
	}

	wonAmount := make(map[int]int64)
	handName := make(map[int]string)
	for _, w := range hand.Winners {
		wonAmount[w.SeatNumber] += w.Amount
		handName[w.SeatNumber] = w.HandName
	}

	for _, seat := range h.Seats {
		_, err = tx.Exec(`
			INSERT INTO hand_players (hand_id, seat_number, agent_id, agent_name, agent_type,
				starting_stack, ending_stack, profit, hole_cards, folded, won_amount, hand_name)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, hand.ID, seat.SeatNumber, seat.AgentID, seat.AgentName, string(seat.AgentType),
			seat.StartingStack, seat.EndingStack, seat.Profit,
			deck.Cards(seat.HoleCards).String(), seat.Folded,
			wonAmount[seat.SeatNumber], handName[seat.SeatNumber])
		if err != nil {
			return fmt.Errorf("insert hand player: %w", err)
		}

		// Totals advance by this hand's delta only.
		won := 0
		if seat.Won {
			won = 1
		}
		_, err = tx.Exec(`
			INSERT INTO agents (id, name, type, hands_played, hands_won, total_profit, updated_at)
			VALUES (?, ?, ?, 1, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				hands_played = hands_played + 1,
				hands_won = hands_won + excluded.hands_won,
				total_profit = total_profit + excluded.total_profit,
				updated_at = excluded.updated_at
		`, seat.AgentID, seat.AgentName, string(seat.AgentType), won, seat.Profit, hand.CompletedAt)
		if err != nil {
			return fmt.Errorf("update agent totals: %w", err)
		}
	}

	for i, a := range hand.Actions {
		_, err = tx.Exec(`
			INSERT INTO hand_actions (hand_id, idx, seat_number, agent_id, action, amount, phase, at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, hand.ID, i, a.SeatNumber, a.AgentID, string(a.Action), a.Amount, string(a.Phase), a.At)
		if err != nil {
			return fmt.Errorf("insert hand action: %w", err)
		}
	}

	for i, w := range hand.Winners {
		_, err = tx.Exec(`
			INSERT INTO chip_transactions (id, table_id, agent_id, type, amount, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, fmt.Sprintf("%s-win-%d", hand.ID, i), h.TableID, w.AgentID,
			string(TxPotWin), w.Amount, hand.CompletedAt)
		if err != nil {
			return fmt.Errorf("insert pot win: %w", err)
		}
	}

	for i, r := range h.Rebuys {
		_, err = tx.Exec(`
			INSERT INTO chip_transactions (id, table_id, agent_id, type, amount, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, fmt.Sprintf("%s-rebuy-%d", hand.ID, i), h.TableID, r.AgentID,
			string(TxBotRebuy), r.Amount, hand.CompletedAt)
		if err != nil {
			return fmt.Errorf("insert bot rebuy: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLite) PersistChipTx(t ChipTx) error {
	_, err := s.Exec(`
		INSERT INTO chip_transactions (id, table_id, agent_id, type, amount, wallet_address, tx_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.TableID, t.AgentID, string(t.Type), t.Amount, t.WalletAddress, t.TxHash, t.At)
	if err != nil {
		return fmt.Errorf("insert chip tx %s: %w", t.ID, err)
	}
	return nil
}

func (s *SQLite) UpsertAgent(a *game.Agent) error {
	_, err := s.Exec(`
		INSERT INTO agents (id, name, type, wallet_address)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			wallet_address = excluded.wallet_address
	`, a.ID, a.Name, string(a.Type), a.WalletAddress)
	if err != nil {
		return fmt.Errorf("upsert agent %s: %w", a.ID, err)
	}
	return nil
}

func (s *SQLite) Agent(id string) (*game.Agent, error) {
	var a game.Agent
	var typ string
	err := s.QueryRow(`
		SELECT id, name, type, wallet_address, hands_played, hands_won, total_profit
		FROM agents WHERE id = ?
	`, id).Scan(&a.ID, &a.Name, &typ, &a.WalletAddress, &a.HandsPlayed, &a.HandsWon, &a.TotalProfit)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("agent lookup: %w", err)
	}
	a.Type = game.AgentType(typ)
	return &a, nil
}

func (s *SQLite) SaveTableConfig(id, name string, cfg game.TableConfig) error {
	_, err := s.Exec(`
		INSERT INTO table_configs (id, name, stakes, small_blind, big_blind, min_buy_in, max_buy_in, max_seats)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			stakes = excluded.stakes,
			small_blind = excluded.small_blind,
			big_blind = excluded.big_blind,
			min_buy_in = excluded.min_buy_in,
			max_buy_in = excluded.max_buy_in,
			max_seats = excluded.max_seats
	`, id, name, cfg.Stakes, cfg.SmallBlind, cfg.BigBlind, cfg.MinBuyIn, cfg.MaxBuyIn, cfg.MaxSeats)
	if err != nil {
		return fmt.Errorf("save table config %s: %w", id, err)
	}
	return nil
}

func (s *SQLite) CumulativeProfits() ([]ProfitRow, error) {
	rows, err := s.Query(`
		SELECT id, name, type, hands_played, hands_won, total_profit
		FROM agents
		ORDER BY total_profit DESC, name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("cumulative profits: %w", err)
	}
	defer rows.Close()

	var out []ProfitRow
	for rows.Next() {
		var r ProfitRow
		var typ string
		if err := rows.Scan(&r.AgentID, &r.AgentName, &typ, &r.HandsPlayed, &r.HandsWon, &r.Profit); err != nil {
			return nil, err
		}
		r.AgentType = game.AgentType(typ)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) AgentIDForKeyHash(hash string) (string, error) {
	var agentID string
	err := s.QueryRow(`SELECT agent_id FROM agent_keys WHERE key_hash = ?`, hash).Scan(&agentID)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("key lookup: %w", err)
	}
	return agentID, nil
}

func (s *SQLite) UpsertAgentKey(hash, agentID string) error {
	_, err := s.Exec(`
		INSERT INTO agent_keys (key_hash, agent_id)
		VALUES (?, ?)
		ON CONFLICT(key_hash) DO UPDATE SET agent_id = excluded.agent_id
	`, hash, agentID)
	if err != nil {
		return fmt.Errorf("upsert agent key: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.DB.Close()
}
