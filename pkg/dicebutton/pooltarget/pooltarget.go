// Package pooltarget implements the pool-target command kind: the user
// fills two slots, pool size then target number, optionally answers a
// reroll question, and the finished roll counts successes against the
// target minus botches.
package pooltarget

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
const CommandID = "pool_target"

// Reroll variants: "always" explodes matching dice without asking,
// "ask" inserts a Reroll / No reroll question before the roll.
const (
	RerollAlways = "always"
	RerollAsk    = "ask"
)

const (
	configClassID   = "PoolTargetConfig"
	progressClassID = "PoolTargetStateData"

	buttonClear    = "clear"
	buttonDoReroll = "do_reroll"
	buttonNoReroll = "no_reroll"

	buttonsPerRow = 5
	maxDiceLimit  = 25
)

// Config fixes the die, the pool bound and the reroll policy for the
// flow's lifetime.
type Config struct {
	TargetChannelID int64                   `yaml:"target_channel_id"`
	Sides           int                     `yaml:"dice_sides"`
	MaxDice         int                     `yaml:"max_number_of_buttons"`
	RerollSet       []int                   `yaml:"reroll_set,flow"`
	BotchSet        []int                   `yaml:"botch_set,flow"`
	RerollVariant   string                  `yaml:"reroll_variant"`
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
	if c.Sides < 2 {
		return fmt.Errorf("dice sides must be at least 2, got %d", c.Sides)
	}
	if c.MaxDice < 1 || c.MaxDice > maxDiceLimit {
		return fmt.Errorf("max dice must be between 1 and %d, got %d", maxDiceLimit, c.MaxDice)
	}
	for _, v := range c.RerollSet {
		if v > c.Sides {
			return fmt.Errorf("reroll set contains %d, bigger than the sides of the die %d", v, c.Sides)
		}
	}
	for _, v := range c.BotchSet {
		if v > c.Sides {
			return fmt.Errorf("botch set contains %d, bigger than the sides of the die %d", v, c.Sides)
		}
	}
	if len(c.RerollSet) >= c.Sides {
		return fmt.Errorf("the reroll set must not contain all numbers")
	}
	if c.RerollVariant != RerollAlways && c.RerollVariant != RerollAsk {
		return fmt.Errorf("reroll variant must be %q or %q, got %q", RerollAlways, RerollAsk, c.RerollVariant)
	}
	return nil
}

// ProgressData is the slot-filling state between clicks. Nil means the
// slot has not been filled yet.
type ProgressData struct {
	DicePool     *int  `yaml:"dice_pool"`
	TargetNumber *int  `yaml:"target_number"`
	DoReroll     *bool `yaml:"do_reroll"`
}

func (ProgressData) ClassID() string { return progressClassID }

func (p ProgressData) complete() bool {
	return p.DicePool != nil && p.TargetNumber != nil && p.DoReroll != nil
}

// Handler implements dicebutton.Handler for pool-target flows.
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

	data, _ := p.Data().(ProgressData)
	next, ok := h.fillSlots(c, data, buttonValue)
	if !ok {
		return dicebutton.Reject(fmt.Sprintf("unexpected button %q", buttonValue))
	}

	switch {
	case next == (ProgressData{}):
		// cleared
		return dicebutton.Continue(dicebutton.AtRest(), h.startContent(c), h.poolButtons(c, flowID))

	case next.complete():
		return dicebutton.Finalize(h.answer(c, next))

	case next.TargetNumber != nil:
		rerolls := make([]string, len(c.RerollSet))
		for i, v := range c.RerollSet {
			rerolls[i] = fmt.Sprintf("%ds", v)
		}
		content := fmt.Sprintf("Should %s in %dd%d against %d be rerolled?",
			strings.Join(rerolls, ","), *next.DicePool, c.Sides, *next.TargetNumber)
		controls := [][]dicebutton.Button{dicebutton.Row(
			dicebutton.Button{CustomID: customid.Encode(CommandID, buttonDoReroll, flowID), Label: "Reroll"},
			dicebutton.Button{CustomID: customid.Encode(CommandID, buttonNoReroll, flowID), Label: "No reroll"},
		)}
		return dicebutton.Continue(dicebutton.InFlight(next), content, controls)

	default:
		content := fmt.Sprintf("Click on the target to roll %dd%d against it%s",
			*next.DicePool, c.Sides, h.configDescription(c))
		return dicebutton.Continue(dicebutton.InFlight(next), content, h.targetButtons(c, flowID))
	}
}

// fillSlots advances the slot-filling state machine for one button value.
func (h *Handler) fillSlots(c *Config, data ProgressData, buttonValue string) (ProgressData, bool) {
	if buttonValue == buttonClear {
		return ProgressData{}, true
	}
	if n, err := strconv.Atoi(buttonValue); err == nil && n > 0 {
		if data.DicePool == nil {
			return ProgressData{DicePool: &n}, true
		}
		if data.TargetNumber == nil {
			next := ProgressData{DicePool: data.DicePool, TargetNumber: &n}
			// Without a question to ask the reroll decision is implied.
			if c.RerollVariant == RerollAlways || len(c.RerollSet) == 0 {
				doReroll := c.RerollVariant == RerollAlways && len(c.RerollSet) > 0
				next.DoReroll = &doReroll
			}
			return next, true
		}
		return ProgressData{}, false
	}
	if (buttonValue == buttonDoReroll || buttonValue == buttonNoReroll) &&
		data.DicePool != nil && data.TargetNumber != nil {
		doReroll := buttonValue == buttonDoReroll
		return ProgressData{DicePool: data.DicePool, TargetNumber: data.TargetNumber, DoReroll: &doReroll}, true
	}
	return ProgressData{}, false
}

func (h *Handler) StartMessage(cfg dicebutton.Config, flowID uuid.UUID) dicebutton.Message {
	c := cfg.(*Config)
	return dicebutton.Message{
		Content:  h.startContent(c),
		Controls: h.poolButtons(c, flowID),
	}
}

// DecodeLegacy reconstructs a flow from a pre-UUID identifier that
// carried configuration and both slots inline.
func (h *Handler) DecodeLegacy(d customid.Decoded, _ dicebutton.Click) (dicebutton.Config, dicebutton.Progress, error) {
	sides, err := d.IntField(2, 10)
	if err != nil {
		return nil, dicebutton.Progress{}, fmt.Errorf("sides field: %w", err)
	}
	maxDice, err := d.IntField(3, 10)
	if err != nil {
		return nil, dicebutton.Progress{}, fmt.Errorf("max dice field: %w", err)
	}
	rerollSet, err := d.SetField(4)
	if err != nil {
		return nil, dicebutton.Progress{}, fmt.Errorf("reroll set field: %w", err)
	}
	botchSet, err := d.SetField(5)
	if err != nil {
		return nil, dicebutton.Progress{}, fmt.Errorf("botch set field: %w", err)
	}
	variant := d.StringField(6, RerollAlways)
	if variant != RerollAlways && variant != RerollAsk {
		return nil, dicebutton.Progress{}, fmt.Errorf("unknown reroll variant %q", variant)
	}
	cfg := &Config{
		Sides:         sides,
		MaxDice:       maxDice,
		RerollSet:     dice.SortedMembers(rerollSet),
		BotchSet:      dice.SortedMembers(botchSet),
		RerollVariant: variant,
	}

	var data ProgressData
	if raw, ok := d.Field(7); ok && raw != customid.Absent {
		pool, err := strconv.Atoi(raw)
		if err != nil {
			return nil, dicebutton.Progress{}, fmt.Errorf("pool field: %w", err)
		}
		data.DicePool = &pool
	}
	if raw, ok := d.Field(8); ok && raw != customid.Absent {
		target, err := strconv.Atoi(raw)
		if err != nil {
			return nil, dicebutton.Progress{}, fmt.Errorf("target field: %w", err)
		}
		data.TargetNumber = &target
	}
	if data == (ProgressData{}) {
		return cfg, dicebutton.AtRest(), nil
	}
	return cfg, dicebutton.InFlight(data), nil
}

// answer rolls the completed pool. Total is successes against the target
// minus botches and may be negative.
func (h *Handler) answer(c *Config, data ProgressData) *dicebutton.Answer {
	results := h.roller.RollN(*data.DicePool, c.Sides)
	if *data.DoReroll {
		results = dice.ExplodingReroll(h.roller, results, dice.Set(c.RerollSet), c.Sides)
	}
	sort.Ints(results)

	successes := dice.CountGreaterEqual(results, *data.TargetNumber)
	botches := dice.CountEqual(results, dice.Set(c.BotchSet))
	total := successes - botches

	toMark := dice.Set(c.BotchSet)
	for i := *data.TargetNumber; i <= c.Sides; i++ {
		toMark[i] = true
	}
	if *data.DoReroll {
		for _, v := range c.RerollSet {
			toMark[v] = true
		}
	}

	return &dicebutton.Answer{
		Expression: fmt.Sprintf("%dd%d ≥%d", *data.DicePool, c.Sides, *data.TargetNumber),
		Result:     strconv.Itoa(total),
		Details:    dice.MarkIn(results, toMark),
	}
}

func (h *Handler) startContent(c *Config) string {
	return "Click on the buttons to roll dice" + h.configDescription(c)
}

// configDescription summarizes the reroll and botch rules, e.g.
// ", with ask reroll:10 and botch:1".
func (h *Handler) configDescription(c *Config) string {
	var parts []string
	if len(c.RerollSet) > 0 {
		parts = append(parts, fmt.Sprintf("%s reroll:%s", c.RerollVariant, joinInts(c.RerollSet)))
	}
	if len(c.BotchSet) > 0 {
		parts = append(parts, "botch:"+joinInts(c.BotchSet))
	}
	if len(parts) == 0 {
		return ""
	}
	return ", with " + strings.Join(parts, " and ")
}

func (h *Handler) poolButtons(c *Config, flowID uuid.UUID) [][]dicebutton.Button {
	var buttons []dicebutton.Button
	for i := 1; i <= c.MaxDice; i++ {
		buttons = append(buttons, dicebutton.Button{
			CustomID: customid.Encode(CommandID, strconv.Itoa(i), flowID),
			Label:    fmt.Sprintf("%dd%d", i, c.Sides),
		})
	}
	return partition(buttons, buttonsPerRow)
}

func (h *Handler) targetButtons(c *Config, flowID uuid.UUID) [][]dicebutton.Button {
	var buttons []dicebutton.Button
	for i := 2; i <= c.Sides; i++ {
		buttons = append(buttons, dicebutton.Button{
			CustomID: customid.Encode(CommandID, strconv.Itoa(i), flowID),
			Label:    strconv.Itoa(i),
		})
	}
	buttons = append(buttons, dicebutton.Button{
		CustomID: customid.Encode(CommandID, buttonClear, flowID),
		Label:    "Clear",
	})
	return partition(buttons, buttonsPerRow)
}

func partition(buttons []dicebutton.Button, size int) [][]dicebutton.Button {
	var rows [][]dicebutton.Button
	for len(buttons) > size {
		rows = append(rows, buttons[:size])
		buttons = buttons[size:]
	}
	if len(buttons) > 0 {
		rows = append(rows, buttons)
	}
	return rows
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
