// Package escrow talks to the custody service holding player funds while
// they sit at a table. Chips map one to one to escrowed token units; the
// engine never sees token plumbing, only integer chip amounts. Escrow
// failures are surfaced to callers and never roll back table state.
package escrow

import (
	"context"
	"errors"
)

var (
	// ErrRejected indicates the custody service definitively refused the
	// operation. Retrying will not help.
	ErrRejected = errors.New("escrow: rejected")

	// ErrUnavailable indicates the custody service is unreachable or
	// failing. The operation may be retried.
	ErrUnavailable = errors.New("escrow: unavailable")
)

// Settlement is one player payout within a batch.
type Settlement struct {
	PlayerAddress string `json:"playerAddress"`
	Amount        int64  `json:"amount"`
}

// Client is the custody boundary.
type Client interface {
	// Deposit locks a buy-in for a table and returns the transaction
	// hash.
	Deposit(ctx context.Context, tableID, playerAddress string, amount int64) (string, error)

	// Settle closes a player's escrow for a table, paying out their
	// final stack.
	Settle(ctx context.Context, tableID, playerAddress string, finalStack int64) (string, error)

	// BatchSettle closes several players' escrows in one transaction.
	BatchSettle(ctx context.Context, tableID string, settlements []Settlement) (string, error)

	// EmergencyRefundTable returns every escrowed balance on the table
	// to its owner, regardless of stacks.
	EmergencyRefundTable(ctx context.Context, tableID string) error

	// EscrowedBalance reads what the service currently holds for a
	// player on a table.
	EscrowedBalance(ctx context.Context, tableID, playerAddress string) (int64, error)
}
