package dicebutton

import (
	"github.com/google/uuid"

	"github.com/twonirwana/dicebutton/pkg/dicebutton/customid"
)

// Config is the immutable configuration of one flow, fixed at creation.
// Implementations are plain structs with yaml tags.
type Config interface {
	// ClassID returns the stable tag written next to the serialized
	// payload.
	ClassID() string
	// TargetChannel returns the channel answers are routed to, or 0 to
	// answer in the flow's own channel.
	TargetChannel() int64
	// Format returns the answer presentation for this flow.
	Format() AnswerFormat
}

// Handler implements one command kind. Implementations hold their
// collaborators (a dice.Roller, an expression evaluator) but no per-flow
// state; Step is a pure transition over the values it is given.
type Handler interface {
	// CommandID returns the identifier clicks are routed by, e.g.
	// "hold_reroll".
	CommandID() string

	// LoadConfig decodes a persisted config payload after checking its
	// class tag.
	LoadConfig(classID string, payload []byte) (Config, error)

	// LoadProgress decodes persisted progress. The record.NoProgress tag
	// yields the at-rest progress.
	LoadProgress(classID string, payload []byte) (Progress, error)

	// Step advances the flow for one click and decides everything that
	// should happen, without performing any of it. The flow UUID is only
	// needed to render replacement buttons.
	Step(cfg Config, p Progress, flowID uuid.UUID, buttonValue, invoker string) StepResult

	// StartMessage renders the kind's ready-to-start button message for
	// the given flow.
	StartMessage(cfg Config, flowID uuid.UUID) Message
}

// LegacyBridge is implemented by kinds that can reconstruct a flow from a
// pre-UUID identifier. The returned config and progress describe the flow
// as it stood before the click; the router persists them under a fresh
// flow UUID and then steps as usual. Kinds that kept state in the visible
// message read it from the click's MessageContent and MessageButtons.
type LegacyBridge interface {
	DecodeLegacy(d customid.Decoded, click Click) (Config, Progress, error)
}
