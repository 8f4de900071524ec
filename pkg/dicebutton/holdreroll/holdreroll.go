// Package holdreroll implements the hold-reroll command kind: roll a pool
// of dice, then repeatedly re-roll the results in the reroll set until
// the pool settles or the user finishes, then count successes and
// failures.
package holdreroll

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/twonirwana/dicebutton/pkg/dicebutton"
	"github.com/twonirwana/dicebutton/pkg/dicebutton/customid"
	"github.com/twonirwana/dicebutton/pkg/dicebutton/dice"
	"github.com/twonirwana/dicebutton/pkg/dicebutton/record"
)

// CommandID routes clicks to this kind.
const CommandID = "hold_reroll"

const (
	configClassID   = "HoldRerollConfig"
	progressClassID = "HoldRerollStateData"

	buttonReroll = "reroll"
	buttonFinish = "finish"
	buttonClear  = "clear"

	poolButtonCount = 15
	buttonsPerRow   = 5
	maxSides        = 1000
)

// Config fixes the die and the three value sets for the flow's lifetime.
type Config struct {
	TargetChannelID int64                   `yaml:"target_channel_id"`
	Sides           int                     `yaml:"sides_of_die"`
	RerollSet       []int                   `yaml:"reroll_set,flow"`
	SuccessSet      []int                   `yaml:"success_set,flow"`
	FailureSet      []int                   `yaml:"failure_set,flow"`
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

// Validate reports configurations no flow could ever finish with.
func (c *Config) Validate() error {
	if c.Sides < 2 || c.Sides > maxSides {
		return fmt.Errorf("sides of die must be between 2 and %d, got %d", maxSides, c.Sides)
	}
	for _, set := range []struct {
		name   string
		values []int
	}{
		{"reroll set", c.RerollSet},
		{"success set", c.SuccessSet},
		{"failure set", c.FailureSet},
	} {
		for _, v := range set.values {
			if v > c.Sides {
				return fmt.Errorf("%s contains %d, bigger than the sides of the die %d", set.name, v, c.Sides)
			}
		}
	}
	if len(c.RerollSet) >= c.Sides {
		return fmt.Errorf("the reroll set must not contain all numbers")
	}
	return nil
}

// ProgressData is the pool between clicks.
type ProgressData struct {
	CurrentResults []int `yaml:"current_results,flow"`
	RerollCounter  int   `yaml:"reroll_counter"`
}

func (ProgressData) ClassID() string { return progressClassID }

// Handler implements dicebutton.Handler for hold-reroll flows.
type Handler struct {
	roller dice.Roller
}

var (
	_ dicebutton.Handler      = (*Handler)(nil)
	_ dicebutton.LegacyBridge = (*Handler)(nil)
)

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

	results, rerolls := currentPool(p)
	rerollSet := dice.Set(c.RerollSet)

	switch {
	case buttonValue == buttonClear:
		return dicebutton.Continue(dicebutton.AtRest(), h.startContent(c), h.poolButtons(c, flowID))

	case buttonValue == buttonReroll:
		results = dice.RerollMatching(h.roller, results, rerollSet, c.Sides)
		rerolls++

	case buttonValue == buttonFinish:
		// keep the pool as it stands

	default:
		count, err := strconv.Atoi(buttonValue)
		if err != nil || count < 1 {
			return dicebutton.Reject(fmt.Sprintf("unknown button %q", buttonValue))
		}
		results = h.roller.RollN(count, c.Sides)
		rerolls = 0
	}

	data := ProgressData{CurrentResults: results, RerollCounter: rerolls}

	if buttonValue == buttonFinish || !dice.AnyIn(results, rerollSet) {
		if len(results) == 0 {
			// finish before any roll, nothing to answer
			return dicebutton.StepResult{Outcome: dicebutton.OutcomeFinalize, Repost: true}
		}
		return dicebutton.Finalize(h.answer(c, data))
	}

	content := fmt.Sprintf("%s = %d successes and %d failures",
		dice.MarkIn(results, h.toMark(c)),
		dice.CountEqual(results, dice.Set(c.SuccessSet)),
		dice.CountEqual(results, dice.Set(c.FailureSet)))
	controls := [][]dicebutton.Button{dicebutton.Row(
		dicebutton.Button{CustomID: customid.Encode(CommandID, buttonReroll, flowID), Label: "Reroll"},
		dicebutton.Button{CustomID: customid.Encode(CommandID, buttonFinish, flowID), Label: "Finish"},
		dicebutton.Button{CustomID: customid.Encode(CommandID, buttonClear, flowID), Label: "Clear"},
	)}
	return dicebutton.Continue(dicebutton.InFlight(data), content, controls)
}

func (h *Handler) StartMessage(cfg dicebutton.Config, flowID uuid.UUID) dicebutton.Message {
	c := cfg.(*Config)
	return dicebutton.Message{
		Content:  h.startContent(c),
		Controls: h.poolButtons(c, flowID),
	}
}

// DecodeLegacy reconstructs a flow from a pre-UUID identifier that
// carried the whole configuration and pool inline.
func (h *Handler) DecodeLegacy(d customid.Decoded, _ dicebutton.Click) (dicebutton.Config, dicebutton.Progress, error) {
	sides, err := d.IntField(3, 6)
	if err != nil {
		return nil, dicebutton.Progress{}, fmt.Errorf("sides field: %w", err)
	}
	rerollSet, err := d.SetField(4)
	if err != nil {
		return nil, dicebutton.Progress{}, fmt.Errorf("reroll set field: %w", err)
	}
	successSet, err := d.SetField(5)
	if err != nil {
		return nil, dicebutton.Progress{}, fmt.Errorf("success set field: %w", err)
	}
	failureSet, err := d.SetField(6)
	if err != nil {
		return nil, dicebutton.Progress{}, fmt.Errorf("failure set field: %w", err)
	}
	cfg := &Config{
		Sides:      sides,
		RerollSet:  dice.SortedMembers(rerollSet),
		SuccessSet: dice.SortedMembers(successSet),
		FailureSet: dice.SortedMembers(failureSet),
	}

	results, err := d.IntListField(2)
	if err != nil {
		return nil, dicebutton.Progress{}, fmt.Errorf("current results field: %w", err)
	}
	if len(results) == 0 {
		return cfg, dicebutton.AtRest(), nil
	}
	rerolls, err := d.IntField(7, 0)
	if err != nil {
		return nil, dicebutton.Progress{}, fmt.Errorf("reroll counter field: %w", err)
	}
	return cfg, dicebutton.InFlight(ProgressData{CurrentResults: results, RerollCounter: rerolls}), nil
}

func (h *Handler) answer(c *Config, data ProgressData) *dicebutton.Answer {
	successes := dice.CountEqual(data.CurrentResults, dice.Set(c.SuccessSet))
	failures := dice.CountEqual(data.CurrentResults, dice.Set(c.FailureSet))
	var result string
	if data.RerollCounter == 0 {
		result = fmt.Sprintf("Success: %d and Failure: %d", successes, failures)
	} else {
		result = fmt.Sprintf("Success: %d, Failure: %d and Rerolls: %d", successes, failures, data.RerollCounter)
	}
	return &dicebutton.Answer{
		Expression: fmt.Sprintf("%dd%d", len(data.CurrentResults), c.Sides),
		Result:     result,
		Details:    dice.MarkIn(data.CurrentResults, h.toMark(c)),
	}
}

// toMark holds every face that is kept, so the visible dice list bolds
// what will not be rerolled.
func (h *Handler) toMark(c *Config) map[int]bool {
	rerollSet := dice.Set(c.RerollSet)
	mark := make(map[int]bool, c.Sides)
	for i := 1; i <= c.Sides; i++ {
		if !rerollSet[i] {
			mark[i] = true
		}
	}
	return mark
}

func (h *Handler) startContent(c *Config) string {
	return fmt.Sprintf("Click on the buttons to roll dice. Reroll set: %s, Success Set: %s and Failure Set: %s",
		formatValues(c.RerollSet), formatValues(c.SuccessSet), formatValues(c.FailureSet))
}

func (h *Handler) poolButtons(c *Config, flowID uuid.UUID) [][]dicebutton.Button {
	var rows [][]dicebutton.Button
	var row []dicebutton.Button
	for i := 1; i <= poolButtonCount; i++ {
		row = append(row, dicebutton.Button{
			CustomID: customid.Encode(CommandID, strconv.Itoa(i), flowID),
			Label:    fmt.Sprintf("%dd%d", i, c.Sides),
		})
		if len(row) == buttonsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

func currentPool(p dicebutton.Progress) ([]int, int) {
	data, ok := p.Data().(ProgressData)
	if !ok {
		return nil, 0
	}
	return data.CurrentResults, data.RerollCounter
}

func formatValues(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
