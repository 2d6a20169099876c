package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/feltlabs/pitboss/internal/game"
)

// Config is the complete server configuration, decoded from HCL.
type Config struct {
	Server    ServerSettings  `hcl:"server,block"`
	Tables    []TableSettings `hcl:"table,block"`
	Bots      []BotSeed       `hcl:"bot,block"`
	AgentKeys []AgentKeyEntry `hcl:"agent_key,block"`
	Escrow    *EscrowSettings `hcl:"escrow,block"`
	Store     *StoreSettings  `hcl:"store,block"`
}

// ServerSettings contains server-level configuration.
type ServerSettings struct {
	Addr     string `hcl:"addr,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// TableSettings defines one table. The label is the stakes name and
// becomes part of the table id.
type TableSettings struct {
	Stakes     string `hcl:"stakes,label"`
	Name       string `hcl:"name,optional"`
	SmallBlind int64  `hcl:"small_blind"`
	BigBlind   int64  `hcl:"big_blind"`
	MinBuyIn   int64  `hcl:"min_buy_in,optional"`
	MaxBuyIn   int64  `hcl:"max_buy_in,optional"`
	MaxSeats   int    `hcl:"max_seats,optional"`
}

// BotSeed describes a house bot seated at startup. One seed is one agent;
// listing several tables seats the same agent at each of them.
type BotSeed struct {
	Name     string   `hcl:"name,label"`
	Strategy string   `hcl:"strategy"`
	Tables   []string `hcl:"tables,optional"`
	BuyIn    int64    `hcl:"buy_in,optional"`
}

// AgentKeyEntry binds a pre-provisioned API key hash to an agent
// identity. The label is the agent id.
type AgentKeyEntry struct {
	AgentID       string `hcl:"agent_id,label"`
	Name          string `hcl:"name"`
	KeyHash       string `hcl:"key_hash"`
	WalletAddress string `hcl:"wallet_address,optional"`
}

// EscrowSettings points at the custody service. Absent block means the
// in-memory mock, which is what local development wants.
type EscrowSettings struct {
	BaseURL   string `hcl:"base_url"`
	TimeoutMs int    `hcl:"timeout_ms,optional"`
}

// Timeout returns the configured escrow call timeout.
func (e *EscrowSettings) Timeout() time.Duration {
	return time.Duration(e.TimeoutMs) * time.Millisecond
}

// StoreSettings configures the sqlite ledger.
type StoreSettings struct {
	Path      string `hcl:"path,optional"`
	QueueSize int    `hcl:"queue_size,optional"`
}

// DefaultConfig returns the stock four-table room with a spread of house
// bots, no escrow service, and a local database file.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Addr:     ":8080",
			LogLevel: "info",
		},
		Tables: []TableSettings{
			{Stakes: "micro", Name: "Micro", SmallBlind: 1, BigBlind: 2},
			{Stakes: "low", Name: "Low", SmallBlind: 5, BigBlind: 10},
			{Stakes: "mid", Name: "Mid", SmallBlind: 25, BigBlind: 50},
			{Stakes: "high", Name: "High", SmallBlind: 100, BigBlind: 200},
		},
		Bots: []BotSeed{
			{Name: "minnow", Strategy: "fish"},
			{Name: "rock", Strategy: "tag"},
			{Name: "gambler", Strategy: "lag"},
		},
		Store: &StoreSettings{Path: "pitboss.db"},
	}
}

// LoadConfig reads an HCL config file. A missing file yields the default
// configuration rather than an error.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyDefaults()
		return cfg, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %s", filename, diags.Error())
	}

	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("decode %s: %s", filename, diags.Error())
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	for i := range c.Tables {
		t := &c.Tables[i]
		if t.Name == "" {
			t.Name = t.Stakes
		}
		if t.MaxSeats == 0 {
			t.MaxSeats = 6
		}
		// Stock buy-in window is 20 to 100 big blinds.
		if t.MinBuyIn == 0 {
			t.MinBuyIn = t.BigBlind * 20
		}
		if t.MaxBuyIn == 0 {
			t.MaxBuyIn = t.BigBlind * 100
		}
	}
	for i := range c.Bots {
		if len(c.Bots[i].Tables) == 0 {
			for _, t := range c.Tables {
				c.Bots[i].Tables = append(c.Bots[i].Tables, t.Stakes)
			}
		}
	}
	if c.Store == nil {
		c.Store = &StoreSettings{}
	}
	if c.Store.Path == "" {
		c.Store.Path = "pitboss.db"
	}
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if len(c.Tables) == 0 {
		return fmt.Errorf("at least one table must be configured")
	}

	stakes := make(map[string]bool, len(c.Tables))
	for _, t := range c.Tables {
		if stakes[t.Stakes] {
			return fmt.Errorf("table %s: duplicate stakes label", t.Stakes)
		}
		stakes[t.Stakes] = true
		if t.SmallBlind <= 0 {
			return fmt.Errorf("table %s: small blind must be positive", t.Stakes)
		}
		if t.BigBlind <= t.SmallBlind {
			return fmt.Errorf("table %s: big blind must exceed small blind", t.Stakes)
		}
		if t.MaxSeats < 2 || t.MaxSeats > 10 {
			return fmt.Errorf("table %s: max seats must be between 2 and 10", t.Stakes)
		}
		if t.MinBuyIn <= 0 || t.MinBuyIn >= t.MaxBuyIn {
			return fmt.Errorf("table %s: buy-in minimum must be positive and below maximum", t.Stakes)
		}
	}

	for _, b := range c.Bots {
		if !game.AgentType(b.Strategy).IsBot() {
			return fmt.Errorf("bot %s: unknown strategy %q", b.Name, b.Strategy)
		}
		for _, ref := range b.Tables {
			if !stakes[ref] {
				return fmt.Errorf("bot %s: unknown table %q", b.Name, ref)
			}
		}
	}

	for _, k := range c.AgentKeys {
		if k.AgentID == "" || k.Name == "" {
			return fmt.Errorf("agent_key: agent id and name are required")
		}
		if len(k.KeyHash) != 64 {
			return fmt.Errorf("agent_key %s: key_hash must be a sha-256 hex digest", k.AgentID)
		}
	}

	if c.Escrow != nil && c.Escrow.BaseURL == "" {
		return fmt.Errorf("escrow: base_url is required")
	}
	if c.Store != nil && c.Store.QueueSize < 0 {
		return fmt.Errorf("store: queue_size cannot be negative")
	}

	return nil
}

// TableID derives the stable table id used in URLs and the store.
func TableID(stakes string) string { return "table-" + stakes }

// GameConfig converts table settings to the engine's table config.
func (t TableSettings) GameConfig() game.TableConfig {
	return game.TableConfig{
		Stakes:     t.Stakes,
		SmallBlind: t.SmallBlind,
		BigBlind:   t.BigBlind,
		MinBuyIn:   t.MinBuyIn,
		MaxBuyIn:   t.MaxBuyIn,
		MaxSeats:   t.MaxSeats,
	}
}
