// Package rerollanswer implements the reroll-answer command kind: a
// finished roll is posted with one toggle button per die, and the user
// who rolled may select dice and re-roll just those, spawning a fresh
// answer message each time.
package rerollanswer

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/twonirwana/dicebutton/pkg/dicebutton"
	"github.com/twonirwana/dicebutton/pkg/dicebutton/customid"
	"github.com/twonirwana/dicebutton/pkg/dicebutton/dice"
	"github.com/twonirwana/dicebutton/pkg/dicebutton/record"
)

// CommandID routes clicks to this kind.
const CommandID = "reroll_answer"

const (
	configClassID   = "RerollAnswerConfig"
	progressClassID = "RerollAnswerStateData"

	buttonRoll   = "roll"
	buttonFinish = "finish"

	// maxDieButtons caps the per-die toggles; larger rolls lose the
	// trailing dice from the selection.
	maxDieButtons = 20
	buttonsPerRow = 5
)

// Die is one rolled die of the answer, value included.
type Die struct {
	Sides int `yaml:"sides"`
	Value int `yaml:"value"`
}

// Config snapshots one answer: the expression, every rolled die and the
// owning user. Each reroll spawns a successor config with the re-rolled
// values and a bumped RerollCount.
type Config struct {
	TargetChannelID int64                   `yaml:"target_channel_id"`
	Expression      string                  `yaml:"expression"`
	Dice            []Die                   `yaml:"dice"`
	RerollCount     int                     `yaml:"reroll_count"`
	Owner           string                  `yaml:"owner"`
	AnswerFormat    dicebutton.AnswerFormat `yaml:"answer_format"`
}

func (c *Config) ClassID() string      { return configClassID }
func (c *Config) TargetChannel() int64 { return c.TargetChannelID }
func (c *Config) Format() dicebutton.AnswerFormat {
	if c.AnswerFormat == "" {
		return dicebutton.FormatFull
	}
	return c.AnswerFormat
}

// NewConfig builds the config for a freshly answered roll.
func NewConfig(expression string, rolled []Die, owner string, format dicebutton.AnswerFormat) *Config {
	return &Config{
		Expression:   expression,
		Dice:         rolled,
		RerollCount:  1,
		Owner:        owner,
		AnswerFormat: format,
	}
}

func (c *Config) Validate() error {
	if c.Expression == "" {
		return fmt.Errorf("expression is required")
	}
	if len(c.Dice) == 0 {
		return fmt.Errorf("at least one die is required")
	}
	if c.Owner == "" {
		return fmt.Errorf("owner is required")
	}
	for i, d := range c.Dice {
		if d.Sides < 2 {
			return fmt.Errorf("die %d has %d sides", i, d.Sides)
		}
	}
	return nil
}

// ProgressData is the current die selection, as indexes into the
// config's dice.
type ProgressData struct {
	Selected []int `yaml:"selected_dice,flow"`
}

func (ProgressData) ClassID() string { return progressClassID }

// Handler implements dicebutton.Handler for reroll-answer flows. The
// kind postdates the identifier migration, so there is no legacy bridge.
type Handler struct {
	roller dice.Roller
}

var _ dicebutton.Handler = (*Handler)(nil)

func New(roller dice.Roller) *Handler {
	return &Handler{roller: roller}
}

func (h *Handler) CommandID() string { return CommandID }

func (h *Handler) LoadConfig(classID string, payload []byte) (dicebutton.Config, error) {
	var c Config
	if err := record.UnmarshalPayload(configClassID, classID, payload, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (h *Handler) LoadProgress(classID string, payload []byte) (dicebutton.Progress, error) {
	if classID == record.NoProgress {
		return dicebutton.AtRest(), nil
	}
	var p ProgressData
	if err := record.UnmarshalPayload(progressClassID, classID, payload, &p); err != nil {
		return dicebutton.Progress{}, err
	}
	return dicebutton.InFlight(p), nil
}

func (h *Handler) Step(cfg dicebutton.Config, p dicebutton.Progress, flowID uuid.UUID, buttonValue, invoker string) dicebutton.StepResult {
	c, ok := cfg.(*Config)
	if !ok {
		return dicebutton.Reject("config of wrong kind")
	}
	if invoker != c.Owner {
		return dicebutton.Reject(fmt.Sprintf("answer belongs to %q", c.Owner))
	}
	data, _ := p.Data().(ProgressData)
	selected := dice.Set(data.Selected)

	switch buttonValue {
	case buttonFinish:
		return dicebutton.FinalizeDone()

	case buttonRoll:
		if len(selected) == 0 {
			return dicebutton.Reject("no dice selected")
		}
		next := make([]Die, len(c.Dice))
		for i, d := range c.Dice {
			if selected[i] {
				d.Value = h.roller.Roll(d.Sides)
			}
			next[i] = d
		}
		successor := &Config{
			TargetChannelID: c.TargetChannelID,
			Expression:      c.Expression,
			Dice:            next,
			RerollCount:     c.RerollCount + 1,
			Owner:           c.Owner,
			AnswerFormat:    c.AnswerFormat,
		}
		return dicebutton.FinalizeSpawn(successor)

	default:
		i, err := strconv.Atoi(buttonValue)
		if err != nil || i < 0 || i >= len(c.Dice) || i >= maxDieButtons {
			return dicebutton.Reject(fmt.Sprintf("unknown die %q", buttonValue))
		}
		if selected[i] {
			delete(selected, i)
		} else {
			selected[i] = true
		}
		var next dicebutton.Progress
		if len(selected) == 0 {
			next = dicebutton.AtRest()
		} else {
			next = dicebutton.InFlight(ProgressData{Selected: dice.SortedMembers(selected)})
		}
		// only the button styles change, the answer text stays
		return dicebutton.Continue(next, "", h.layout(c, flowID, selected))
	}
}

func (h *Handler) StartMessage(cfg dicebutton.Config, flowID uuid.UUID) dicebutton.Message {
	c := cfg.(*Config)
	return dicebutton.Message{
		Content:  h.content(c),
		Controls: h.layout(c, flowID, nil),
	}
}

func (h *Handler) content(c *Config) string {
	total := 0
	values := make([]int, len(c.Dice))
	for i, d := range c.Dice {
		total += d.Value
		values[i] = d.Value
	}
	answer := dicebutton.Answer{
		Expression: c.Expression,
		Result:     strconv.Itoa(total),
		Details:    dice.MarkIn(values, nil),
	}
	text := answer.Render(c.Format())
	if c.RerollCount > 1 {
		// successor answers count their reroll generation
		return fmt.Sprintf("%d: %s", c.RerollCount-1, text)
	}
	return text
}

func (h *Handler) layout(c *Config, flowID uuid.UUID, selected map[int]bool) [][]dicebutton.Button {
	var rows [][]dicebutton.Button
	var row []dicebutton.Button
	for i, d := range c.Dice {
		if i == maxDieButtons {
			break
		}
		style := dicebutton.StyleSecondary
		if selected[i] {
			style = dicebutton.StylePrimary
		}
		row = append(row, dicebutton.Button{
			CustomID: customid.Encode(CommandID, strconv.Itoa(i), flowID),
			Label:    fmt.Sprintf("%d ∈ d%d", d.Value, d.Sides),
			Style:    style,
		})
		if len(row) == buttonsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return append(rows, dicebutton.Row(
		dicebutton.Button{CustomID: customid.Encode(CommandID, buttonRoll, flowID), Label: "Reroll", Style: dicebutton.StyleSuccess, Disabled: len(selected) == 0},
		dicebutton.Button{CustomID: customid.Encode(CommandID, buttonFinish, flowID), Label: "Finish", Style: dicebutton.StyleDanger},
	))
}
