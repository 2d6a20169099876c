package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/feltlabs/pitboss/internal/store"
)

// KeyPrefix marks pitboss agent API keys. Only the SHA-256 of a full key
// is ever stored or compared.
const KeyPrefix = "pa_sk_"

var (
	// ErrInvalidKey indicates the key is definitively unknown.
	ErrInvalidKey = errors.New("auth: invalid key")

	// ErrAuthUnavailable indicates key lookup failed for reasons other
	// than the key itself. Callers reject the request but should not
	// treat the key as burned.
	ErrAuthUnavailable = errors.New("auth: unavailable")
)

// Identity is the resolved owner of an API key.
type Identity struct {
	AgentID       string `json:"agentId"`
	Name          string `json:"name"`
	WalletAddress string `json:"walletAddress,omitempty"`
}

// KeyValidator resolves an API key to an identity.
//
// Returns (*Identity, nil) for a valid key, ErrInvalidKey for a
// definitively unknown one, and ErrAuthUnavailable when the lookup
// itself failed.
type KeyValidator interface {
	ValidateKey(ctx context.Context, key string) (*Identity, error)
}

// HashKey returns the hex SHA-256 digest of a key.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// StaticKeys validates keys against hashes provisioned in the config
// file.
type StaticKeys struct {
	byHash map[string]Identity
}

// NewStaticKeys builds a validator from config agent_key entries.
func NewStaticKeys(entries []AgentKeyEntry) *StaticKeys {
	byHash := make(map[string]Identity, len(entries))
	for _, e := range entries {
		byHash[strings.ToLower(e.KeyHash)] = Identity{
			AgentID:       e.AgentID,
			Name:          e.Name,
			WalletAddress: e.WalletAddress,
		}
	}
	return &StaticKeys{byHash: byHash}
}

func (s *StaticKeys) ValidateKey(_ context.Context, key string) (*Identity, error) {
	if !strings.HasPrefix(key, KeyPrefix) {
		return nil, ErrInvalidKey
	}
	id, ok := s.byHash[HashKey(key)]
	if !ok {
		return nil, ErrInvalidKey
	}
	return &id, nil
}

// StoreKeys validates keys against the persisted agent_keys table.
type StoreKeys struct {
	store store.Store
}

// NewStoreKeys builds a validator over the persistence layer.
func NewStoreKeys(s store.Store) *StoreKeys {
	return &StoreKeys{store: s}
}

func (s *StoreKeys) ValidateKey(_ context.Context, key string) (*Identity, error) {
	if !strings.HasPrefix(key, KeyPrefix) {
		return nil, ErrInvalidKey
	}
	agentID, err := s.store.AgentIDForKeyHash(HashKey(key))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidKey
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}
	agent, err := s.store.Agent(agentID)
	if errors.Is(err, store.ErrNotFound) {
		// Key bound to an agent that no longer exists.
		return nil, ErrInvalidKey
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}
	return &Identity{
		AgentID:       agent.ID,
		Name:          agent.Name,
		WalletAddress: agent.WalletAddress,
	}, nil
}

// Chain tries validators in order. The first match wins; a key rejected
// everywhere is invalid only if no validator was unavailable.
type Chain []KeyValidator

func (c Chain) ValidateKey(ctx context.Context, key string) (*Identity, error) {
	var unavailable error
	for _, v := range c {
		id, err := v.ValidateKey(ctx, key)
		if err == nil {
			return id, nil
		}
		if errors.Is(err, ErrAuthUnavailable) {
			unavailable = err
		}
	}
	if unavailable != nil {
		return nil, unavailable
	}
	return nil, ErrInvalidKey
}
