package game

// AgentType distinguishes humans from the built-in bot styles.
type AgentType string

const (
	AgentHuman AgentType = "human"
	AgentFish  AgentType = "fish"
	AgentTAG   AgentType = "tag"
	AgentLAG   AgentType = "lag"
)

// IsBot reports whether the agent is machine-driven.
func (t AgentType) IsBot() bool {
	return t == AgentFish || t == AgentTAG || t == AgentLAG
}

// Valid reports whether t is one of the known agent types.
func (t AgentType) Valid() bool {
	switch t {
	case AgentHuman, AgentFish, AgentTAG, AgentLAG:
		return true
	}
	return false
}

// Agent is a participant identity. The same agent may appear at most once
// per table but can be seated at several tables; counters aggregate across
// all of them and seed the leaderboard baseline.
type Agent struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Type          AgentType `json:"type"`
	WalletAddress string    `json:"walletAddress,omitempty"`

	HandsPlayed int   `json:"handsPlayed"`
	HandsWon    int   `json:"handsWon"`
	TotalProfit int64 `json:"totalProfit"`
}
