// Package countsuccesses implements the count-successes command kind:
// each button rolls a fixed-size pool of same-sided dice against a
// target number and immediately answers with the number of successes.
// The kind keeps no progress between clicks.
package countsuccesses

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"github.com/twonirwana/dicebutton/pkg/dicebutton"
	"github.com/twonirwana/dicebutton/pkg/dicebutton/customid"
	"github.com/twonirwana/dicebutton/pkg/dicebutton/dice"
	"github.com/twonirwana/dicebutton/pkg/dicebutton/record"
)

// CommandID routes clicks to this kind.
const CommandID = "count_successes"

// Glitch options modify how ones interact with the success count.
const (
	GlitchNone         = "no_glitch"
	GlitchHalfOnes     = "half_dice_one"
	GlitchCountOnes    = "count_ones"
	GlitchSubtractOnes = "subtract_ones"
)

const (
	configClassID = "CountSuccessesConfig"

	DefaultMaxButtons = 15
	maxButtonsLimit   = 25
	maxSidesOrTarget  = 1000
	buttonsPerRow     = 5
)

// Config fixes the die, the target number and the glitch rule.
type Config struct {
	TargetChannelID int64                   `yaml:"target_channel_id"`
	Sides           int                     `yaml:"sides_of_die"`
	Target          int                     `yaml:"target_number"`
	GlitchOption    string                  `yaml:"glitch_option"`
	MaxButtons      int                     `yaml:"max_buttons"`
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

func (c *Config) glitch() string {
	if c.GlitchOption == "" {
		return GlitchNone
	}
	return c.GlitchOption
}

func (c *Config) maxButtons() int {
	if c.MaxButtons == 0 {
		return DefaultMaxButtons
	}
	return c.MaxButtons
}

func (c *Config) Validate() error {
	if c.Sides < 2 || c.Sides > maxSidesOrTarget {
		return fmt.Errorf("sides of die must be between 2 and %d, got %d", maxSidesOrTarget, c.Sides)
	}
	if c.Target < 1 || c.Target > maxSidesOrTarget {
		return fmt.Errorf("target number must be between 1 and %d, got %d", maxSidesOrTarget, c.Target)
	}
	if mb := c.maxButtons(); mb < 1 || mb > maxButtonsLimit {
		return fmt.Errorf("max buttons must be between 1 and %d, got %d", maxButtonsLimit, mb)
	}
	switch c.glitch() {
	case GlitchNone, GlitchHalfOnes, GlitchCountOnes, GlitchSubtractOnes:
		return nil
	default:
		return fmt.Errorf("unknown glitch option %q", c.GlitchOption)
	}
}

// Handler implements dicebutton.Handler for count-successes flows.
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

// LoadProgress always yields the at-rest progress, the kind is
// stateless.
func (h *Handler) LoadProgress(classID string, payload []byte) (dicebutton.Progress, error) {
	return dicebutton.AtRest(), nil
}

func (h *Handler) Step(cfg dicebutton.Config, _ dicebutton.Progress, _ uuid.UUID, buttonValue, _ string) dicebutton.StepResult {
	c, ok := cfg.(*Config)
	if !ok {
		return dicebutton.Reject("config of wrong kind")
	}
	count, err := strconv.Atoi(buttonValue)
	if err != nil || count < 1 || count > c.maxButtons() {
		return dicebutton.Reject(fmt.Sprintf("unknown button %q", buttonValue))
	}
	results := h.roller.RollN(count, c.Sides)
	sort.Ints(results)
	return dicebutton.Finalize(h.answer(c, count, results))
}

func (h *Handler) StartMessage(cfg dicebutton.Config, flowID uuid.UUID) dicebutton.Message {
	c := cfg.(*Config)
	var rows [][]dicebutton.Button
	var row []dicebutton.Button
	for i := 1; i <= c.maxButtons(); i++ {
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
	return dicebutton.Message{
		Content:  fmt.Sprintf("Click to roll the dice against %d%s", c.Target, glitchDescription(c.glitch())),
		Controls: rows,
	}
}

// DecodeLegacy reconstructs a flow from a pre-UUID identifier. The
// oldest messages predate the glitch and max dice fields.
func (h *Handler) DecodeLegacy(d customid.Decoded, _ dicebutton.Click) (dicebutton.Config, dicebutton.Progress, error) {
	sides, err := d.IntField(2, 6)
	if err != nil {
		return nil, dicebutton.Progress{}, fmt.Errorf("sides field: %w", err)
	}
	target, err := d.IntField(3, 6)
	if err != nil {
		return nil, dicebutton.Progress{}, fmt.Errorf("target field: %w", err)
	}
	maxButtons, err := d.IntField(5, DefaultMaxButtons)
	if err != nil {
		return nil, dicebutton.Progress{}, fmt.Errorf("max buttons field: %w", err)
	}
	cfg := &Config{
		Sides:        sides,
		Target:       target,
		GlitchOption: d.StringField(4, GlitchNone),
		MaxButtons:   maxButtons,
	}
	if f := d.StringField(6, ""); f != "" {
		channel, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, dicebutton.Progress{}, fmt.Errorf("target channel field: %w", err)
		}
		cfg.TargetChannelID = channel
	}
	return cfg, dicebutton.AtRest(), nil
}

func (h *Handler) answer(c *Config, count int, results []int) *dicebutton.Answer {
	successes := dice.CountGreaterEqual(results, c.Target)
	ones := dice.CountEqual(results, map[int]bool{1: true})

	toMark := make(map[int]bool, c.Sides)
	for v := c.Target; v <= c.Sides; v++ {
		toMark[v] = true
	}

	expression := fmt.Sprintf("%dd%d", count, c.Sides)
	switch c.glitch() {
	case GlitchCountOnes:
		toMark[1] = true
		return &dicebutton.Answer{
			Expression: expression,
			Result:     fmt.Sprintf("%d successes and %d ones", successes, ones),
			Details:    fmt.Sprintf("%s ≥%d = %d", dice.MarkIn(results, toMark), c.Target, successes),
		}
	case GlitchSubtractOnes:
		toMark[1] = true
		return &dicebutton.Answer{
			Expression: expression,
			Result:     strconv.Itoa(successes - ones),
			Details:    fmt.Sprintf("%s ≥%d -1s = %d", dice.MarkIn(results, toMark), c.Target, successes-ones),
		}
	case GlitchHalfOnes:
		isGlitch := ones > count/2
		result := strconv.Itoa(successes)
		description := ""
		if isGlitch {
			toMark[1] = true
			result += " - Glitch!"
			description = " and more then half of all dice show 1s"
		}
		return &dicebutton.Answer{
			Expression: expression,
			Result:     result,
			Details:    fmt.Sprintf("%s ≥%d = %d%s", dice.MarkIn(results, toMark), c.Target, successes, description),
		}
	default:
		return &dicebutton.Answer{
			Expression: expression,
			Result:     strconv.Itoa(successes),
			Details:    fmt.Sprintf("%s ≥%d = %d", dice.MarkIn(results, toMark), c.Target, successes),
		}
	}
}

func glitchDescription(glitch string) string {
	switch glitch {
	case GlitchHalfOnes:
		return " and check for more then half of dice 1s"
	case GlitchCountOnes:
		return " and count the 1s"
	case GlitchSubtractOnes:
		return " minus 1s"
	default:
		return ""
	}
}
