package server

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feltlabs/pitboss/internal/game"
	"github.com/feltlabs/pitboss/internal/store"
)

const testKey = KeyPrefix + "0c32f9a8e1b44d07"

func TestStaticKeysValidate(t *testing.T) {
	v := NewStaticKeys([]AgentKeyEntry{{
		AgentID:       "ag-1",
		Name:          "gto-3000",
		KeyHash:       HashKey(testKey),
		WalletAddress: "0xabc",
	}})

	id, err := v.ValidateKey(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, "ag-1", id.AgentID)
	assert.Equal(t, "gto-3000", id.Name)
	assert.Equal(t, "0xabc", id.WalletAddress)

	_, err = v.ValidateKey(context.Background(), KeyPrefix+"wrong")
	assert.ErrorIs(t, err, ErrInvalidKey)

	// Keys without the prefix are rejected before hashing.
	_, err = v.ValidateKey(context.Background(), "sk_other_scheme")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestStoreKeysValidate(t *testing.T) {
	s, err := store.OpenSQLite(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.UpsertAgent(&game.Agent{
		ID: "ag-2", Name: "river-rat", Type: game.AgentHuman, WalletAddress: "0xdef",
	}))
	require.NoError(t, s.UpsertAgentKey(HashKey(testKey), "ag-2"))

	v := NewStoreKeys(s)

	id, err := v.ValidateKey(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, "ag-2", id.AgentID)
	assert.Equal(t, "river-rat", id.Name)
	assert.Equal(t, "0xdef", id.WalletAddress)

	_, err = v.ValidateKey(context.Background(), KeyPrefix+"unknown")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

type stubValidator struct {
	id  *Identity
	err error
}

func (s stubValidator) ValidateKey(context.Context, string) (*Identity, error) {
	return s.id, s.err
}

func TestChainPrefersFirstMatch(t *testing.T) {
	c := Chain{
		stubValidator{err: ErrInvalidKey},
		stubValidator{id: &Identity{AgentID: "ag-3"}},
	}
	id, err := c.ValidateKey(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, "ag-3", id.AgentID)
}

func TestChainDistinguishesUnavailable(t *testing.T) {
	down := stubValidator{err: fmt.Errorf("%w: db on fire", ErrAuthUnavailable)}

	c := Chain{stubValidator{err: ErrInvalidKey}, down}
	_, err := c.ValidateKey(context.Background(), testKey)
	assert.ErrorIs(t, err, ErrAuthUnavailable)

	// All validators definitive: invalid, not unavailable.
	c = Chain{stubValidator{err: ErrInvalidKey}, stubValidator{err: ErrInvalidKey}}
	_, err = c.ValidateKey(context.Background(), testKey)
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.NotErrorIs(t, err, ErrAuthUnavailable)
}
