package dicebutton

import (
	"fmt"
	"strings"
)

// AnswerFormat controls how much of a finished roll is shown.
type AnswerFormat string

const (
	// FormatFull shows the expression, the total and the individual dice.
	FormatFull AnswerFormat = "full"
	// FormatCompact shows the expression and the total on one line.
	FormatCompact AnswerFormat = "compact"
	// FormatMinimal shows only the total.
	FormatMinimal AnswerFormat = "minimal"
)

// Answer is the outcome of a finalized flow, independent of presentation.
type Answer struct {
	// Expression is what was rolled, e.g. "8d10 target 6".
	Expression string
	// Result is the headline outcome, e.g. "3 successes".
	Result string
	// Details lists the individual dice, e.g. "[1,4,**6**,**9**]".
	Details string
}

// ImageRenderer illustrates a finished answer, e.g. with a picture of
// the rolled dice. The returned bytes are attached to the answer
// message; rendering internals are outside this framework. A nil
// renderer means text-only answers.
type ImageRenderer interface {
	RenderAnswer(a Answer) ([]byte, error)
}

// Render produces the chat text for the answer in the given format.
// Unknown formats fall back to full.
func (a *Answer) Render(format AnswerFormat) string {
	switch format {
	case FormatMinimal:
		return a.Result
	case FormatCompact:
		return fmt.Sprintf("%s: %s", a.Expression, a.Result)
	default:
		var b strings.Builder
		b.WriteString(a.Expression)
		b.WriteString(": ")
		b.WriteString(a.Result)
		if a.Details != "" {
			b.WriteString("\n")
			b.WriteString(a.Details)
		}
		return b.String()
	}
}
