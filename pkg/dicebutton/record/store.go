package record

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Store persists flow records. Implementations must be safe for concurrent
// use. Lookups are exact-match on the full identity; writes are
// last-writer-wins, the framework issues at most one write per click.
type Store interface {
	// Get retrieves the record for a button message.
	// Returns ErrNotFound if no record exists.
	Get(ctx context.Context, ref MessageRef) (*FlowRecord, error)

	// ByFlowID retrieves the newest record for a flow identity.
	// Returns ErrNotFound if the flow is unknown.
	ByFlowID(ctx context.Context, flowID uuid.UUID) (*FlowRecord, error)

	// Put stores a record, replacing any record for the same message.
	Put(ctx context.Context, rec *FlowRecord) error

	// ClearProgress resets a record's progress portion to the at-rest
	// state, leaving the config portion untouched. Returns ErrNotFound if
	// no record exists for the message.
	ClearProgress(ctx context.Context, ref MessageRef) error

	// Delete removes the record for a message.
	// Returns nil if no record exists.
	Delete(ctx context.Context, ref MessageRef) error

	// MessageIDsForFlow returns the IDs of all button messages in a
	// channel that share a flow identity, for cleanup of superseded
	// messages. Returns an empty slice (not an error) for unknown flows.
	MessageIDsForFlow(ctx context.Context, flowID uuid.UUID, channelID int64) ([]int64, error)

	// Close releases any resources.
	Close() error
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates no record exists for the given identity.
	ErrNotFound = errors.New("flow record not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("record store closed")
)
