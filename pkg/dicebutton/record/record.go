// Package record provides persistent storage for flow records.
//
// A flow record binds a flow identity to the command kind that owns it, the
// immutable serialized Config chosen when the flow started, and the mutable
// serialized Progress of the flow. Progress is replaced wholesale on every
// transition; "no progress persisted" is an explicit state meaning the flow
// is at rest, not an error.
package record

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// NoProgress is the sentinel progress class tag for a flow at rest.
const NoProgress = "none"

// MessageRef identifies a posted button message. Legacy flow records are
// keyed by it directly; current records carry a flow UUID as well.
type MessageRef struct {
	ChannelID int64
	MessageID int64
}

func (r MessageRef) String() string {
	return fmt.Sprintf("%d/%d", r.ChannelID, r.MessageID)
}

// FlowRecord is one persistence row of the record store.
type FlowRecord struct {
	FlowID    uuid.UUID
	GuildID   int64
	Message   MessageRef
	CommandID string

	// ConfigClassID tags the Config payload; a mismatch with the command
	// kind resolving it fails the read.
	ConfigClassID string
	Config        []byte

	// ProgressClassID is NoProgress (and Progress nil) for a flow at rest.
	ProgressClassID string
	Progress        []byte

	CreatedAt time.Time
}

// AtRest reports whether the record carries no persisted progress.
func (r *FlowRecord) AtRest() bool {
	return r.ProgressClassID == NoProgress || r.ProgressClassID == ""
}

// ClassMismatchError is returned when a payload's declared class tag does
// not match the class the resolving command expects. The payload is treated
// as corrupted data; the read fails permanently.
type ClassMismatchError struct {
	Want string
	Got  string
}

func (e *ClassMismatchError) Error() string {
	return fmt.Sprintf("payload class %q does not match expected class %q", e.Got, e.Want)
}

// MarshalPayload serializes a Config or Progress value for storage.
func MarshalPayload(v any) ([]byte, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return data, nil
}

// UnmarshalPayload deserializes a stored payload into out after validating
// its class tag against the class the caller expects.
func UnmarshalPayload(want, got string, payload []byte, out any) error {
	if got != want {
		return &ClassMismatchError{Want: want, Got: got}
	}
	if err := yaml.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w", want, err)
	}
	return nil
}
