// Package sumdiceset implements the sum-dice-set command kind: users
// build a set of standard dice (d4 to d20) plus a flat modifier with
// plus and minus buttons, then roll the whole set for a single sum.
package sumdiceset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/twonirwana/dicebutton/pkg/dicebutton"
	"github.com/twonirwana/dicebutton/pkg/dicebutton/customid"
	"github.com/twonirwana/dicebutton/pkg/dicebutton/dice"
	"github.com/twonirwana/dicebutton/pkg/dicebutton/record"
)

// CommandID routes clicks to this kind.
const CommandID = "sum_dice_set"

const (
	configClassID   = "SumDiceSetConfig"
	progressClassID = "SumDiceSetStateData"

	buttonRoll   = "roll"
	buttonClear  = "clear"
	buttonDouble = "x2"

	emptyMessage = "Click on the buttons to add dice to the set"

	// modifierKey is the dice-set key of the flat modifier.
	modifierKey = "m"

	// maxPerEntry caps each die count and the modifier, in both
	// directions.
	maxPerEntry = 100
)

// Config for this kind carries no per-flow options beyond the ambient
// ones; the dice set itself is progress.
type Config struct {
	TargetChannelID int64                   `yaml:"target_channel_id"`
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

// ProgressData is the dice set between clicks, keyed by die ("d6") or
// modifierKey, with signed counts. Keys with a zero count are removed.
type ProgressData struct {
	DiceSet map[string]int `yaml:"dice_set"`
}

func (ProgressData) ClassID() string { return progressClassID }

// Handler implements dicebutton.Handler for sum-dice-set flows.
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

func (h *Handler) Step(cfg dicebutton.Config, p dicebutton.Progress, _ uuid.UUID, buttonValue, _ string) dicebutton.StepResult {
	if _, ok := cfg.(*Config); !ok {
		return dicebutton.Reject("config of wrong kind")
	}
	data, _ := p.Data().(ProgressData)
	set := data.DiceSet

	var next map[string]int
	switch buttonValue {
	case buttonClear:
		return dicebutton.Continue(dicebutton.AtRest(), emptyMessage, nil)

	case buttonRoll:
		if len(set) == 0 {
			return dicebutton.Reject("empty dice set")
		}
		return dicebutton.Finalize(h.answer(set))

	case buttonDouble:
		next = make(map[string]int, len(set))
		for k, v := range set {
			next[k] = limit(v * 2)
		}

	default:
		key, delta, err := parseButton(buttonValue)
		if err != nil {
			return dicebutton.Reject(err.Error())
		}
		next = make(map[string]int, len(set)+1)
		for k, v := range set {
			next[k] = v
		}
		if v := limit(next[key] + delta); v == 0 {
			delete(next, key)
		} else {
			next[key] = v
		}
	}

	if len(next) == 0 {
		return dicebutton.Continue(dicebutton.AtRest(), emptyMessage, nil)
	}
	// the button layout is fixed, only the text changes
	return dicebutton.Continue(dicebutton.InFlight(ProgressData{DiceSet: next}), formatDiceSet(next), nil)
}

func (h *Handler) StartMessage(_ dicebutton.Config, flowID uuid.UUID) dicebutton.Message {
	return dicebutton.Message{
		Content:  emptyMessage,
		Controls: layout(flowID),
	}
}

// DecodeLegacy reconstructs a flow from a pre-UUID identifier. The dice
// set lived in the visible message text.
func (h *Handler) DecodeLegacy(d customid.Decoded, click dicebutton.Click) (dicebutton.Config, dicebutton.Progress, error) {
	cfg := &Config{}
	if f := d.StringField(2, ""); f != "" {
		channel, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, dicebutton.Progress{}, fmt.Errorf("target channel field: %w", err)
		}
		cfg.TargetChannelID = channel
	}

	content := click.MessageContent
	if content == "" || content == emptyMessage {
		return cfg, dicebutton.AtRest(), nil
	}
	set := map[string]int{}
	for _, part := range strings.Fields(content) {
		// the oldest messages joined dice with a bare "+"
		if part == "+" {
			continue
		}
		if i := strings.IndexAny(part, "d"); i >= 0 {
			count, err := strconv.Atoi(part[:i])
			if err != nil {
				return nil, dicebutton.Progress{}, fmt.Errorf("dice set entry %q in message", part)
			}
			set[part[i:]] += count
			continue
		}
		v, err := strconv.Atoi(strings.TrimPrefix(part, "+"))
		if err != nil {
			return nil, dicebutton.Progress{}, fmt.Errorf("dice set entry %q in message", part)
		}
		set[modifierKey] += v
	}
	if len(set) == 0 {
		return cfg, dicebutton.AtRest(), nil
	}
	return cfg, dicebutton.InFlight(ProgressData{DiceSet: set}), nil
}

func (h *Handler) answer(set map[string]int) *dicebutton.Answer {
	var values []int
	sum := 0
	for _, key := range sortedKeys(set) {
		count := set[key]
		if key == modifierKey {
			values = append(values, count)
			sum += count
			continue
		}
		sides, _ := strconv.Atoi(strings.TrimPrefix(key, "d"))
		for _, r := range h.roller.RollN(abs(count), sides) {
			if count < 0 {
				r = -r
			}
			values = append(values, r)
			sum += r
		}
	}
	return &dicebutton.Answer{
		Expression: formatDiceSet(set),
		Result:     strconv.Itoa(sum),
		Details:    dice.MarkIn(values, nil),
	}
}

// parseButton maps a plus/minus button to its dice-set key and delta.
func parseButton(value string) (string, int, error) {
	if strings.Contains(value, "d") {
		if len(value) < 3 || (value[0] != '+' && value[0] != '-') || value[1] != '1' || value[2] != 'd' {
			return "", 0, fmt.Errorf("unknown die button %q", value)
		}
		delta := 1
		if value[0] == '-' {
			delta = -1
		}
		return value[2:], delta, nil
	}
	delta, err := strconv.Atoi(value)
	if err != nil {
		return "", 0, fmt.Errorf("unknown button %q", value)
	}
	return modifierKey, delta, nil
}

// sortedKeys orders dice ascending by sides with the modifier last.
func sortedKeys(set map[string]int) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keyOrder(keys[i]) < keyOrder(keys[j]) })
	return keys
}

func keyOrder(key string) int {
	if key == modifierKey {
		return 1 << 30
	}
	v, _ := strconv.Atoi(strings.TrimPrefix(key, "d"))
	return v
}

func formatDiceSet(set map[string]int) string {
	parts := make([]string, 0, len(set))
	for _, key := range sortedKeys(set) {
		v := set[key]
		if key == modifierKey {
			parts = append(parts, fmt.Sprintf("%+d", v))
		} else if v > 0 {
			parts = append(parts, fmt.Sprintf("+%d%s", v, key))
		} else {
			parts = append(parts, fmt.Sprintf("%d%s", v, key))
		}
	}
	return strings.TrimPrefix(strings.Join(parts, " "), "+")
}

func layout(flowID uuid.UUID) [][]dicebutton.Button {
	b := func(value string) dicebutton.Button {
		return dicebutton.Button{CustomID: customid.Encode(CommandID, value, flowID), Label: value}
	}
	return [][]dicebutton.Button{
		dicebutton.Row(b("+1d4"), b("-1d4"), b("+1d6"), b("-1d6"),
			dicebutton.Button{CustomID: customid.Encode(CommandID, buttonDouble, flowID), Label: "x2", Style: dicebutton.StyleSecondary}),
		dicebutton.Row(b("+1d8"), b("-1d8"), b("+1d10"), b("-1d10"),
			dicebutton.Button{CustomID: customid.Encode(CommandID, buttonClear, flowID), Label: "Clear", Style: dicebutton.StyleDanger}),
		dicebutton.Row(b("+1d12"), b("-1d12"), b("+1d20"), b("-1d20"),
			dicebutton.Button{CustomID: customid.Encode(CommandID, buttonRoll, flowID), Label: "Roll", Style: dicebutton.StyleSuccess}),
		dicebutton.Row(b("+1"), b("-1"), b("+5"), b("-5"), b("+10")),
	}
}

func limit(v int) int {
	if v > maxPerEntry {
		return maxPerEntry
	}
	if v < -maxPerEntry {
		return -maxPerEntry
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
