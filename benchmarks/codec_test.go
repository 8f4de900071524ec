package benchmarks

import (
	"testing"

	"github.com/google/uuid"

	"github.com/twonirwana/dicebutton/pkg/dicebutton/customid"
)

// BenchmarkEncode measures building a current-format identifier.
func BenchmarkEncode(b *testing.B) {
	flowID := uuid.New()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		customid.Encode("sum_dice_set", "+1d6", flowID)
	}
}

// BenchmarkDecode_Current measures decoding the current format.
func BenchmarkDecode_Current(b *testing.B) {
	id := customid.Encode("sum_dice_set", "+1d6", uuid.New())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := customid.Decode(id); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkDecode_LegacyNul measures decoding the NUL-delimited legacy
// format, which carries the full configuration in the identifier.
func BenchmarkDecode_LegacyNul(b *testing.B) {
	id, err := customid.EncodeLegacy(customid.EncodingLegacyNul,
		"count_successes", "3", "10", "7", "subtract_ones", "15", "EMPTY")
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := customid.Decode(id); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkDecode_LegacyComma measures decoding the comma-delimited
// legacy format.
func BenchmarkDecode_LegacyComma(b *testing.B) {
	id, err := customid.EncodeLegacy(customid.EncodingLegacyComma,
		"count_successes", "3", "10", "7")
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := customid.Decode(id); err != nil {
			b.Fatal(err)
		}
	}
}
