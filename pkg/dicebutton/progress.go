package dicebutton

// ProgressData is the in-flight state of a flow, owned by one command kind.
// Implementations are plain structs with yaml tags; ClassID returns the
// stable tag written next to the serialized payload so a record can be
// rejected when it was written by a different kind.
type ProgressData interface {
	ClassID() string
}

// Progress is either at rest (no click since creation or the last
// finalization) or in flight with kind-specific data. The zero value is
// at rest.
type Progress struct {
	data ProgressData
}

// AtRest returns the at-rest progress.
func AtRest() Progress { return Progress{} }

// InFlight wraps kind-specific data. InFlight(nil) is at rest.
func InFlight(d ProgressData) Progress { return Progress{data: d} }

// IsAtRest reports whether the flow has no in-flight state.
func (p Progress) IsAtRest() bool { return p.data == nil }

// Data returns the in-flight data, or nil when at rest.
func (p Progress) Data() ProgressData { return p.data }
