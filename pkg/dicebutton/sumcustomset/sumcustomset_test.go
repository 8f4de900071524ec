package sumcustomset

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twonirwana/dicebutton/pkg/dicebutton"
	"github.com/twonirwana/dicebutton/pkg/dicebutton/customid"
	"github.com/twonirwana/dicebutton/pkg/dicebutton/record"
)

// fakeRoller returns scripted values in order.
type fakeRoller struct {
	values []int
	next   int
}

func (r *fakeRoller) Roll(int) int {
	v := r.values[r.next%len(r.values)]
	r.next++
	return v
}

func (r *fakeRoller) RollN(count, sides int) []int {
	out := make([]int, count)
	for i := range out {
		out[i] = r.Roll(sides)
	}
	return out
}

func testConfig() *Config {
	return &Config{
		Buttons: []ButtonDef{
			{ID: "1_button", Label: "2d6", Expression: "+2d6"},
			{ID: "2_button", Label: "d20", Expression: "+1d20"},
			{ID: "3_button", Label: "+3", Expression: "+3"},
		},
	}
}

func newHandler(values ...int) *Handler {
	return New(NewDiceEvaluator(&fakeRoller{values: values}))
}

func TestStep_ExpressionClickLocksFlow(t *testing.T) {
	h := newHandler(1)
	flowID := uuid.New()

	res := h.Step(testConfig(), dicebutton.AtRest(), flowID, "1_button", "alice")

	require.Equal(t, dicebutton.OutcomeContinue, res.Outcome)
	data, ok := res.Progress.Data().(ProgressData)
	require.True(t, ok)
	assert.Equal(t, []string{"+2d6"}, data.DiceExpressions)
	assert.Equal(t, "alice", data.LockedForUser)
	assert.Equal(t, "alice∶ 2d6", res.Content)

	// config row plus the system row, roll enabled again
	require.Len(t, res.Controls, 2)
	require.Len(t, res.Controls[1], 3)
	assert.Equal(t, "Roll", res.Controls[1][0].Label)
	assert.False(t, res.Controls[1][0].Disabled)
}

func TestStep_SecondClickAppends(t *testing.T) {
	h := newHandler(1)
	p := dicebutton.InFlight(ProgressData{DiceExpressions: []string{"+2d6"}, LockedForUser: "alice"})

	res := h.Step(testConfig(), p, uuid.New(), "3_button", "alice")

	require.Equal(t, dicebutton.OutcomeContinue, res.Outcome)
	data := res.Progress.Data().(ProgressData)
	assert.Equal(t, []string{"+2d6", "+3"}, data.DiceExpressions)
	assert.Equal(t, "alice∶ 2d6+3", res.Content)
}

func TestStep_LockedAgainstOtherUsers(t *testing.T) {
	h := newHandler(1)
	p := dicebutton.InFlight(ProgressData{DiceExpressions: []string{"+2d6"}, LockedForUser: "alice"})

	for _, button := range []string{"1_button", "back", "roll"} {
		res := h.Step(testConfig(), p, uuid.New(), button, "bob")
		assert.Equal(t, dicebutton.OutcomeReject, res.Outcome, "button %s", button)
	}
}

func TestStep_ClearIsOpenToEveryone(t *testing.T) {
	h := newHandler(1)
	p := dicebutton.InFlight(ProgressData{DiceExpressions: []string{"+2d6"}, LockedForUser: "alice"})

	res := h.Step(testConfig(), p, uuid.New(), "clear", "bob")

	require.Equal(t, dicebutton.OutcomeContinue, res.Outcome)
	assert.True(t, res.Progress.IsAtRest())
	assert.Equal(t, emptyMessage, res.Content)
}

func TestStep_BackStripsLastTerm(t *testing.T) {
	h := newHandler(1)
	p := dicebutton.InFlight(ProgressData{DiceExpressions: []string{"+2d6", "+3"}, LockedForUser: "alice"})

	res := h.Step(testConfig(), p, uuid.New(), "back", "alice")

	require.Equal(t, dicebutton.OutcomeContinue, res.Outcome)
	data := res.Progress.Data().(ProgressData)
	assert.Equal(t, []string{"2d6"}, data.DiceExpressions)
	assert.Equal(t, "alice", data.LockedForUser)
	assert.Equal(t, "alice∶ 2d6", res.Content)
}

// Back works on terms, not clicks: one back on a multi-term button
// expression strips only its trailing term. Flows bridged from legacy
// messages store the whole expression as a single string and behave the
// same way.
func TestStep_BackStripsWithinSingleExpression(t *testing.T) {
	h := newHandler(1)

	t.Run("multi-term button expression", func(t *testing.T) {
		p := dicebutton.InFlight(ProgressData{DiceExpressions: []string{"2d6+3"}, LockedForUser: "alice"})

		res := h.Step(testConfig(), p, uuid.New(), "back", "alice")

		require.Equal(t, dicebutton.OutcomeContinue, res.Outcome)
		data := res.Progress.Data().(ProgressData)
		assert.Equal(t, []string{"2d6"}, data.DiceExpressions)
		assert.Equal(t, "alice∶ 2d6", res.Content)
	})

	t.Run("bridged expression", func(t *testing.T) {
		p := dicebutton.InFlight(ProgressData{DiceExpressions: []string{"1d6+2"}})

		res := h.Step(testConfig(), p, uuid.New(), "back", "alice")

		require.Equal(t, dicebutton.OutcomeContinue, res.Outcome)
		data := res.Progress.Data().(ProgressData)
		assert.Equal(t, []string{"1d6"}, data.DiceExpressions)
	})

	t.Run("lone negative term empties the set", func(t *testing.T) {
		p := dicebutton.InFlight(ProgressData{DiceExpressions: []string{"-1d6"}, LockedForUser: "alice"})

		res := h.Step(testConfig(), p, uuid.New(), "back", "alice")

		require.Equal(t, dicebutton.OutcomeContinue, res.Outcome)
		assert.True(t, res.Progress.IsAtRest())
	})
}

func TestStep_BackOnLastTermUnlocks(t *testing.T) {
	h := newHandler(1)
	p := dicebutton.InFlight(ProgressData{DiceExpressions: []string{"+2d6"}, LockedForUser: "alice"})

	res := h.Step(testConfig(), p, uuid.New(), "back", "alice")

	require.Equal(t, dicebutton.OutcomeContinue, res.Outcome)
	assert.True(t, res.Progress.IsAtRest())
	assert.Equal(t, emptyMessage, res.Content)
}

func TestStep_RollFinalizes(t *testing.T) {
	h := newHandler(3, 5)
	p := dicebutton.InFlight(ProgressData{DiceExpressions: []string{"+2d6", "+3"}, LockedForUser: "alice"})

	res := h.Step(testConfig(), p, uuid.New(), "roll", "alice")

	require.Equal(t, dicebutton.OutcomeFinalize, res.Outcome)
	require.NotNil(t, res.Answer)
	assert.Equal(t, "2d6+3", res.Answer.Expression)
	assert.Equal(t, "11", res.Answer.Result)
	assert.Equal(t, "[3,5,3]", res.Answer.Details)
	assert.True(t, res.Repost)
}

func TestStep_RollOnEmptySetRejected(t *testing.T) {
	h := newHandler(1)

	res := h.Step(testConfig(), dicebutton.AtRest(), uuid.New(), "roll", "alice")

	assert.Equal(t, dicebutton.OutcomeReject, res.Outcome)
}

func TestStep_UnknownButtonRejected(t *testing.T) {
	h := newHandler(1)

	res := h.Step(testConfig(), dicebutton.AtRest(), uuid.New(), "bogus", "alice")

	assert.Equal(t, dicebutton.OutcomeReject, res.Outcome)
}

func TestStep_LegacyClickMatchesByExpression(t *testing.T) {
	h := newHandler(1)

	res := h.Step(testConfig(), dicebutton.AtRest(), uuid.New(), "+1d20", "alice")

	require.Equal(t, dicebutton.OutcomeContinue, res.Outcome)
	data := res.Progress.Data().(ProgressData)
	assert.Equal(t, []string{"+1d20"}, data.DiceExpressions)
}

func TestStartMessage(t *testing.T) {
	h := newHandler(1)
	flowID := uuid.New()

	msg := h.StartMessage(testConfig(), flowID)

	assert.Equal(t, emptyMessage, msg.Content)
	require.Len(t, msg.Controls, 2)
	require.Len(t, msg.Controls[0], 3)
	require.Len(t, msg.Controls[1], 3)
	assert.Equal(t, "2d6", msg.Controls[0][0].Label)
	assert.True(t, msg.Controls[1][0].Disabled, "roll starts disabled")

	dec, err := customid.Decode(msg.Controls[0][0].CustomID)
	require.NoError(t, err)
	assert.Equal(t, CommandID, dec.CommandID)
	assert.Equal(t, "1_button", dec.ButtonValue)
	assert.Equal(t, flowID, dec.FlowID)
}

func TestParseButtons(t *testing.T) {
	buttons, err := ParseButtons("2d6@Attack; +3 ;1d20")
	require.NoError(t, err)
	require.Len(t, buttons, 3)
	assert.Equal(t, ButtonDef{ID: "1_button", Label: "Attack", Expression: "2d6"}, buttons[0])
	assert.Equal(t, ButtonDef{ID: "2_button", Label: "+3", Expression: "+3"}, buttons[1])
	assert.Equal(t, ButtonDef{ID: "3_button", Label: "1d20", Expression: "1d20"}, buttons[2])

	_, err = ParseButtons(" ; ;")
	assert.Error(t, err)

	_, err = ParseButtons("@Attack")
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, testConfig().Validate())

	assert.Error(t, (&Config{}).Validate(), "no buttons")

	dup := testConfig()
	dup.Buttons[1].ID = "1_button"
	assert.Error(t, dup.Validate(), "duplicate id")

	reserved := testConfig()
	reserved.Buttons[0].ID = "roll"
	assert.Error(t, reserved.Validate(), "reserved id")

	empty := testConfig()
	empty.Buttons[2].Expression = ""
	assert.Error(t, empty.Validate(), "empty expression")
}

func TestLoadConfigRoundTrip(t *testing.T) {
	h := newHandler(1)
	cfg := testConfig()
	cfg.TargetChannelID = 42

	payload, err := record.MarshalPayload(cfg)
	require.NoError(t, err)

	loaded, err := h.LoadConfig(configClassID, payload)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	_, err = h.LoadConfig("OtherConfig", payload)
	var mismatch *record.ClassMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestLoadProgress(t *testing.T) {
	h := newHandler(1)

	p, err := h.LoadProgress(record.NoProgress, nil)
	require.NoError(t, err)
	assert.True(t, p.IsAtRest())

	payload, err := record.MarshalPayload(ProgressData{
		DiceExpressions: []string{"+2d6"},
		LockedForUser:   "alice",
	})
	require.NoError(t, err)

	p, err = h.LoadProgress(progressClassID, payload)
	require.NoError(t, err)
	data := p.Data().(ProgressData)
	assert.Equal(t, []string{"+2d6"}, data.DiceExpressions)
	assert.Equal(t, "alice", data.LockedForUser)
}

func legacyButton(t *testing.T, label, value string) dicebutton.Button {
	t.Helper()
	raw, err := customid.EncodeLegacy(customid.EncodingLegacyNul, CommandID, value)
	require.NoError(t, err)
	return dicebutton.Button{CustomID: raw, Label: label}
}

func TestDecodeLegacy(t *testing.T) {
	h := newHandler(1)
	raw, err := customid.EncodeLegacy(customid.EncodingLegacyNul, CommandID, "1d6", "99")
	require.NoError(t, err)
	dec, err := customid.Decode(raw)
	require.NoError(t, err)

	click := dicebutton.Click{
		MessageButtons: []dicebutton.Button{
			legacyButton(t, "1d6", "1d6"),
			legacyButton(t, "+2", "+2"),
			legacyButton(t, "Roll", "roll"),
			legacyButton(t, "Clear", "clear"),
			legacyButton(t, "Back", "back"),
		},
	}

	t.Run("at rest from legacy empty message", func(t *testing.T) {
		click := click
		click.MessageContent = legacyEmptyMessage

		cfg, p, err := h.DecodeLegacy(dec, click)
		require.NoError(t, err)
		assert.True(t, p.IsAtRest())

		c := cfg.(*Config)
		assert.Equal(t, int64(99), c.TargetChannelID)
		require.Len(t, c.Buttons, 2, "system buttons are skipped")
		assert.Equal(t, ButtonDef{ID: "1_button", Label: "1d6", Expression: "1d6"}, c.Buttons[0])
		assert.Equal(t, ButtonDef{ID: "2_button", Label: "+2", Expression: "+2"}, c.Buttons[1])
	})

	t.Run("locked flow from message text", func(t *testing.T) {
		click := click
		click.MessageContent = "alice∶ 1d6+2"

		_, p, err := h.DecodeLegacy(dec, click)
		require.NoError(t, err)
		data := p.Data().(ProgressData)
		assert.Equal(t, []string{"1d6+2"}, data.DiceExpressions)
		assert.Equal(t, "alice", data.LockedForUser)
	})

	t.Run("unlocked expression from message text", func(t *testing.T) {
		click := click
		click.MessageContent = "1d6"

		_, p, err := h.DecodeLegacy(dec, click)
		require.NoError(t, err)
		data := p.Data().(ProgressData)
		assert.Equal(t, []string{"1d6"}, data.DiceExpressions)
		assert.Empty(t, data.LockedForUser)
	})
}

func TestDiceEvaluator(t *testing.T) {
	t.Run("evaluate mixed terms", func(t *testing.T) {
		e := NewDiceEvaluator(&fakeRoller{values: []int{3, 5, 20}})

		rolled, err := e.Evaluate("2d6+d20-4")
		require.NoError(t, err)
		assert.Equal(t, 24, rolled.Sum)
		assert.Equal(t, []int{3, 5, 20, -4}, rolled.Values)
	})

	t.Run("negative dice term", func(t *testing.T) {
		e := NewDiceEvaluator(&fakeRoller{values: []int{4}})

		rolled, err := e.Evaluate("-1d6+10")
		require.NoError(t, err)
		assert.Equal(t, 6, rolled.Sum)
		assert.Equal(t, []int{-4, 10}, rolled.Values)
	})

	t.Run("validate", func(t *testing.T) {
		e := NewDiceEvaluator(&fakeRoller{values: []int{1}})

		assert.NoError(t, e.Validate("2d6 + 3"))
		assert.Error(t, e.Validate(""))
		assert.Error(t, e.Validate("2d6+"))
		assert.Error(t, e.Validate("xd6"))
		assert.Error(t, e.Validate("2d1"))
		assert.Error(t, e.Validate("1001d6"))
	})
}
