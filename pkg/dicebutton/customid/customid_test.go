package customid_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twonirwana/dicebutton/pkg/dicebutton/customid"
)

func TestDecode_Current(t *testing.T) {
	flowID := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	d, err := customid.Decode("hold_reroll\x1e3\x1e" + flowID.String())
	require.NoError(t, err)

	assert.Equal(t, "hold_reroll", d.CommandID)
	assert.Equal(t, "3", d.ButtonValue)
	assert.Equal(t, flowID, d.FlowID)
	assert.Equal(t, customid.EncodingCurrent, d.Encoding)
}

func TestDecode_CurrentWithoutFlowID(t *testing.T) {
	d, err := customid.Decode("help\x1estart")
	require.NoError(t, err)

	assert.Equal(t, "help", d.CommandID)
	assert.Equal(t, "start", d.ButtonValue)
	assert.Equal(t, uuid.Nil, d.FlowID)
}

func TestDecode_LegacyNul(t *testing.T) {
	d, err := customid.Decode("pool_target\x005\x0010\x0015\x0010\x001\x00ask\x00EMPTY\x00EMPTY")
	require.NoError(t, err)

	assert.Equal(t, "pool_target", d.CommandID)
	assert.Equal(t, "5", d.ButtonValue)
	assert.Equal(t, customid.EncodingLegacyNul, d.Encoding)
	assert.Equal(t, 9, d.FieldCount())
}

func TestDecode_LegacyComma(t *testing.T) {
	d, err := customid.Decode("count_successes,4,6,5")
	require.NoError(t, err)

	assert.Equal(t, "count_successes", d.CommandID)
	assert.Equal(t, "4", d.ButtonValue)
	assert.Equal(t, customid.EncodingLegacyComma, d.Encoding)
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no delimiter", "justoneword"},
		{"empty", ""},
		{"empty command current", "\x1evalue"},
		{"empty command legacy", "\x00value"},
		{"too many current fields", "a\x1eb\x1ec\x1ed"},
		{"bad uuid", "a\x1eb\x1enot-a-uuid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := customid.Decode(tt.raw)
			require.Error(t, err)
			var malformed *customid.MalformedError
			assert.ErrorAs(t, err, &malformed)
		})
	}
}

func TestEncodeDecode_RoundTripCurrent(t *testing.T) {
	flowID := uuid.New()
	raw := customid.Encode("sum_custom_set", "roll", flowID)

	d, err := customid.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "sum_custom_set", d.CommandID)
	assert.Equal(t, "roll", d.ButtonValue)
	assert.Equal(t, flowID, d.FlowID)
	assert.Equal(t, raw, d.Raw())
}

func TestDecode_RoundTripLegacyByteIdentical(t *testing.T) {
	raws := []string{
		"hold_reroll\x005\x00EMPTY\x006\x002;3;4\x005;6\x001\x000",
		"count_successes,4,6,5",
		"pool_target\x00clear\x0010\x0015\x0010\x001\x00always\x00EMPTY\x00EMPTY",
	}
	for _, raw := range raws {
		d, err := customid.Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, d.Raw())
	}
}

func TestEncodeLegacy(t *testing.T) {
	raw, err := customid.EncodeLegacy(customid.EncodingLegacyNul,
		"hold_reroll", "5", customid.Absent, "6", "2;3;4", "5;6", "1", "0")
	require.NoError(t, err)
	assert.Equal(t, "hold_reroll\x005\x00EMPTY\x006\x002;3;4\x005;6\x001\x000", raw)

	_, err = customid.EncodeLegacy(customid.EncodingLegacyComma, "cmd", "a,b")
	assert.Error(t, err, "field containing the delimiter must be rejected")

	_, err = customid.EncodeLegacy(customid.EncodingCurrent, "cmd", "v")
	assert.Error(t, err)
}

func TestFieldAccessors(t *testing.T) {
	d, err := customid.Decode("hold_reroll\x005\x00EMPTY\x006\x002;3;4\x005;6\x001\x000")
	require.NoError(t, err)

	sides, err := d.IntField(3, 6)
	require.NoError(t, err)
	assert.Equal(t, 6, sides)

	rerollSet, err := d.SetField(4)
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{2: true, 3: true, 4: true}, rerollSet)

	// The Absent literal yields the empty value.
	results, err := d.IntListField(2)
	require.NoError(t, err)
	assert.Empty(t, results)

	// Fields past the end default. Older messages predate optional fields.
	v, err := d.IntField(20, 15)
	require.NoError(t, err)
	assert.Equal(t, 15, v)
	assert.Equal(t, "none", d.StringField(20, "none"))
}

func TestFieldAccessors_ParseErrors(t *testing.T) {
	d, err := customid.Decode("cmd\x00v\x00abc\x001;x")
	require.NoError(t, err)

	_, err = d.IntField(2, 0)
	assert.Error(t, err)
	_, err = d.SetField(3)
	assert.Error(t, err)
	_, err = d.IntListField(3)
	assert.Error(t, err)
}

func TestFormatSet(t *testing.T) {
	assert.Equal(t, "EMPTY", customid.FormatSet(nil))
	assert.Equal(t, "1;5;9", customid.FormatSet(map[int]bool{9: true, 1: true, 5: true}))
	assert.Equal(t, "EMPTY", customid.FormatIntList(nil))
	assert.Equal(t, "3;1;3", customid.FormatIntList([]int{3, 1, 3}))
}
