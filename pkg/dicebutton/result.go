package dicebutton

// Outcome classifies a StepResult. Exactly one of the three applies.
type Outcome int

const (
	// OutcomeContinue keeps the flow alive: Progress replaces the stored
	// progress wholesale and the button message is edited in place.
	OutcomeContinue Outcome = iota
	// OutcomeFinalize ends the current interaction round: progress is
	// cleared, an Answer may be posted, and the button message is reset
	// or replaced according to the kind's policy.
	OutcomeFinalize
	// OutcomeReject ignores the click. Nothing is written; the adapter
	// receives a cheap acknowledgement only.
	OutcomeReject
)

func (o Outcome) String() string {
	switch o {
	case OutcomeContinue:
		return "continue"
	case OutcomeFinalize:
		return "finalize"
	case OutcomeReject:
		return "reject"
	default:
		return "unknown"
	}
}

// SpawnedFlow asks the router to start a new flow lineage as part of a
// finalization: a fresh flow UUID, a new button message rendered from
// Config, and delayed deletion of the old flow's record. The old flow's
// progress is left untouched.
type SpawnedFlow struct {
	Config Config
}

// StepResult is the complete decision of one transition step. Use the
// Continue, Finalize and Reject constructors rather than filling it in
// by hand.
type StepResult struct {
	Outcome Outcome

	// Continue fields.
	Progress Progress
	Content  string
	Controls [][]Button

	// Finalize fields. Answer may be nil (e.g. a bare "finish" that only
	// strips the buttons). Repost asks for a fresh button message in the
	// same channel instead of editing the clicked one back to its start
	// state. Spawn starts a new flow lineage; it implies no Repost.
	Answer *Answer
	Repost bool
	Spawn  *SpawnedFlow

	// Reject field.
	Reason string
}

// Continue builds a continue result. Controls may be nil to keep the
// clicked message's buttons unchanged.
func Continue(p Progress, content string, controls [][]Button) StepResult {
	return StepResult{Outcome: OutcomeContinue, Progress: p, Content: content, Controls: controls}
}

// Finalize builds a finalize result that posts answer and reposts the
// button message.
func Finalize(answer *Answer) StepResult {
	return StepResult{Outcome: OutcomeFinalize, Answer: answer, Repost: true}
}

// FinalizeInPlace builds a finalize result that resets the clicked
// message instead of reposting.
func FinalizeInPlace(answer *Answer) StepResult {
	return StepResult{Outcome: OutcomeFinalize, Answer: answer}
}

// FinalizeSpawn builds a finalize result that starts a new flow lineage.
func FinalizeSpawn(cfg Config) StepResult {
	return StepResult{Outcome: OutcomeFinalize, Spawn: &SpawnedFlow{Config: cfg}}
}

// FinalizeDone builds a finalize result with no answer and no repost:
// the clicked message keeps its content and loses its buttons.
func FinalizeDone() StepResult {
	return StepResult{Outcome: OutcomeFinalize}
}

// Reject builds a reject result with a short reason for logging.
func Reject(reason string) StepResult {
	return StepResult{Outcome: OutcomeReject, Reason: reason}
}
