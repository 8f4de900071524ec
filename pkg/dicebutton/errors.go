package dicebutton

import "errors"

var (
	// ErrUnknownCommand reports a click whose command identifier has no
	// registered handler.
	ErrUnknownCommand = errors.New("no handler registered for command")

	// ErrNoLegacyBridge reports a legacy-format click on a kind that
	// cannot reconstruct flows from legacy identifiers.
	ErrNoLegacyBridge = errors.New("command has no legacy bridge")

	// ErrCommandMismatch reports a stored record whose command does not
	// match the clicked identifier.
	ErrCommandMismatch = errors.New("stored record belongs to a different command")
)
