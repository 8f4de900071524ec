// Package sumcustomset implements the sum-custom-set command kind: the
// flow owner assembles a dice expression from configured building-block
// buttons, then rolls the combined expression for a single sum.
package sumcustomset

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
const CommandID = "sum_custom_set"

const (
	configClassID   = "SumCustomSetConfig"
	progressClassID = "SumCustomSetStateData"

	buttonRoll  = "roll"
	buttonClear = "clear"
	buttonBack  = "back"

	emptyMessage       = "Click the buttons to add dice to the set and then on Roll"
	legacyEmptyMessage = "Click on the buttons to add dice to the set"

	// lockDelimiter separates the owning user from the expression in the
	// visible message, e.g. "attacker∶ 2d6+3". U+2236 so a user name
	// containing a plain colon cannot shift the split.
	lockDelimiter = "∶ "

	labelDelimiter = "@"
	buttonsPerRow  = 5
	maxUserButtons = 22
)

// ButtonDef is one configured building block: a stable button id, the
// label shown to the user and the expression fragment the button appends.
type ButtonDef struct {
	ID         string `yaml:"id"`
	Label      string `yaml:"label"`
	Expression string `yaml:"expression"`
}

// Config fixes the building-block buttons for the flow's lifetime.
type Config struct {
	TargetChannelID int64                   `yaml:"target_channel_id"`
	Buttons         []ButtonDef             `yaml:"buttons"`
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

// Validate reports configurations whose buttons could never be routed
// back to their expression.
func (c *Config) Validate() error {
	if len(c.Buttons) == 0 {
		return fmt.Errorf("at least one button is required")
	}
	if len(c.Buttons) > maxUserButtons {
		return fmt.Errorf("at most %d buttons are allowed, got %d", maxUserButtons, len(c.Buttons))
	}
	seen := map[string]bool{buttonRoll: true, buttonClear: true, buttonBack: true}
	for _, b := range c.Buttons {
		if b.ID == "" {
			return fmt.Errorf("button with label %q has no id", b.Label)
		}
		if seen[b.ID] {
			return fmt.Errorf("button id %q is reserved or used twice", b.ID)
		}
		seen[b.ID] = true
		if b.Expression == "" {
			return fmt.Errorf("button %q has no expression", b.ID)
		}
	}
	return nil
}

// ParseButtons builds the button list from the start-option string: one
// or more ';'-separated entries, each "expression" or "expression@label".
func ParseButtons(input string) ([]ButtonDef, error) {
	var buttons []ButtonDef
	for _, entry := range strings.Split(input, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		expression, label, hasLabel := strings.Cut(entry, labelDelimiter)
		expression = strings.TrimSpace(expression)
		if expression == "" {
			return nil, fmt.Errorf("entry %q has no expression", entry)
		}
		if !hasLabel || strings.TrimSpace(label) == "" {
			label = expression
		}
		buttons = append(buttons, ButtonDef{
			ID:         fmt.Sprintf("%d_button", len(buttons)+1),
			Label:      strings.TrimSpace(label),
			Expression: expression,
		})
	}
	if len(buttons) == 0 {
		return nil, fmt.Errorf("no buttons in %q", input)
	}
	return buttons, nil
}

// ProgressData is the expression under construction between clicks.
// LockedForUser names the user the flow is reserved for; it is set by
// the first expression click and cleared when the set empties.
type ProgressData struct {
	DiceExpressions []string `yaml:"dice_expressions,flow"`
	LockedForUser   string   `yaml:"locked_for_user"`
}

func (ProgressData) ClassID() string { return progressClassID }

// Handler implements dicebutton.Handler for sum-custom-set flows.
type Handler struct {
	eval Evaluator
}

var (
	_ dicebutton.Handler      = (*Handler)(nil)
	_ dicebutton.LegacyBridge = (*Handler)(nil)
)

func New(eval Evaluator) *Handler {
	return &Handler{eval: eval}
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
	data, _ := p.Data().(ProgressData)

	// clear is open to everyone, everything else respects the lock
	if buttonValue == buttonClear {
		return dicebutton.Continue(dicebutton.AtRest(), emptyMessage, h.layout(c, flowID, true))
	}
	if data.LockedForUser != "" && data.LockedForUser != invoker {
		return dicebutton.Reject(fmt.Sprintf("locked for user %q", data.LockedForUser))
	}

	switch buttonValue {
	case buttonBack:
		remaining := stripLastTerm(combineExpressions(data.DiceExpressions))
		if remaining == "" {
			return dicebutton.Continue(dicebutton.AtRest(), emptyMessage, h.layout(c, flowID, true))
		}
		next := ProgressData{
			DiceExpressions: []string{remaining},
			LockedForUser:   data.LockedForUser,
		}
		return h.continueWith(c, flowID, next)

	case buttonRoll:
		if len(data.DiceExpressions) == 0 {
			return dicebutton.Reject("empty dice set")
		}
		combined := combineExpressions(data.DiceExpressions)
		rolled, err := h.eval.Evaluate(combined)
		if err != nil {
			return dicebutton.Reject(fmt.Sprintf("expression %q does not evaluate", combined))
		}
		return dicebutton.Finalize(&dicebutton.Answer{
			Expression: combined,
			Result:     strconv.Itoa(rolled.Sum),
			Details:    dice.MarkIn(rolled.Values, nil),
		})

	default:
		def := c.button(buttonValue)
		if def == nil {
			return dicebutton.Reject(fmt.Sprintf("unknown button %q", buttonValue))
		}
		next := ProgressData{
			DiceExpressions: append(append([]string(nil), data.DiceExpressions...), def.Expression),
			LockedForUser:   invoker,
		}
		return h.continueWith(c, flowID, next)
	}
}

func (h *Handler) StartMessage(cfg dicebutton.Config, flowID uuid.UUID) dicebutton.Message {
	c := cfg.(*Config)
	return dicebutton.Message{
		Content:  emptyMessage,
		Controls: h.layout(c, flowID, true),
	}
}

// DecodeLegacy reconstructs a flow from a pre-UUID identifier. The
// expression under construction lived in the visible message text and
// the button set in the message components, so both come from the click
// rather than the identifier.
func (h *Handler) DecodeLegacy(d customid.Decoded, click dicebutton.Click) (dicebutton.Config, dicebutton.Progress, error) {
	cfg := &Config{}
	if f := d.StringField(2, ""); f != "" {
		channel, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, dicebutton.Progress{}, fmt.Errorf("target channel field: %w", err)
		}
		cfg.TargetChannelID = channel
	}

	reserved := map[string]bool{buttonRoll: true, buttonClear: true, buttonBack: true}
	for _, b := range click.MessageButtons {
		bd, err := customid.Decode(b.CustomID)
		if err != nil {
			return nil, dicebutton.Progress{}, fmt.Errorf("message button %q: %w", b.Label, err)
		}
		value := bd.StringField(1, "")
		if value == "" || reserved[value] {
			continue
		}
		cfg.Buttons = append(cfg.Buttons, ButtonDef{
			ID:         fmt.Sprintf("%d_button", len(cfg.Buttons)+1),
			Label:      b.Label,
			Expression: value,
		})
	}

	content := click.MessageContent
	if i := strings.Index(content, lockDelimiter); i >= 0 {
		data := ProgressData{
			DiceExpressions: []string{content[i+len(lockDelimiter):]},
			LockedForUser:   content[:i],
		}
		return cfg, dicebutton.InFlight(data), nil
	}
	if content == "" || content == emptyMessage || content == legacyEmptyMessage {
		return cfg, dicebutton.AtRest(), nil
	}
	return cfg, dicebutton.InFlight(ProgressData{DiceExpressions: []string{content}}), nil
}

// button resolves a click to a configured building block. Flows migrated
// from legacy messages carry the raw expression as the button value, so
// expressions match as a fallback.
func (c *Config) button(value string) *ButtonDef {
	for i := range c.Buttons {
		if c.Buttons[i].ID == value {
			return &c.Buttons[i]
		}
	}
	for i := range c.Buttons {
		if c.Buttons[i].Expression == value {
			return &c.Buttons[i]
		}
	}
	return nil
}

func (h *Handler) continueWith(c *Config, flowID uuid.UUID, data ProgressData) dicebutton.StepResult {
	combined := combineExpressions(data.DiceExpressions)
	content := combined
	if data.LockedForUser != "" {
		owner := strings.ReplaceAll(data.LockedForUser, lockDelimiter, "")
		content = owner + lockDelimiter + combined
	}
	rollDisabled := h.eval.Validate(combined) != nil
	return dicebutton.Continue(dicebutton.InFlight(data), content, h.layout(c, flowID, rollDisabled))
}

func (h *Handler) layout(c *Config, flowID uuid.UUID, rollDisabled bool) [][]dicebutton.Button {
	var rows [][]dicebutton.Button
	var row []dicebutton.Button
	for _, def := range c.Buttons {
		row = append(row, dicebutton.Button{
			CustomID: customid.Encode(CommandID, def.ID, flowID),
			Label:    def.Label,
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
		dicebutton.Button{CustomID: customid.Encode(CommandID, buttonRoll, flowID), Label: "Roll", Style: dicebutton.StyleSuccess, Disabled: rollDisabled},
		dicebutton.Button{CustomID: customid.Encode(CommandID, buttonClear, flowID), Label: "Clear", Style: dicebutton.StyleDanger},
		dicebutton.Button{CustomID: customid.Encode(CommandID, buttonBack, flowID), Label: "Back", Style: dicebutton.StyleSecondary},
	))
}

func combineExpressions(expressions []string) string {
	return strings.TrimPrefix(strings.Join(expressions, ""), "+")
}

// stripLastTerm drops the trailing term of a signed expression. The cut
// is the rightmost + or -; a cut at position zero clears everything, so
// a lone negative term empties the set.
func stripLastTerm(expression string) string {
	if cut := strings.LastIndexAny(expression, "+-"); cut > 0 {
		return expression[:cut]
	}
	return ""
}
