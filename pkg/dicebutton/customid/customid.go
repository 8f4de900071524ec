// Package customid encodes and decodes the opaque identifier attached to a
// message button.
//
// Two generations of the wire format coexist. The current format joins
// command ID, button value and an optional flow UUID with a single reserved
// delimiter byte. The legacy format embedded the whole flow configuration
// (and parts of its progress) directly in the identifier, joined by one of
// two historical delimiter bytes. Decoding picks the generation purely from
// the shape of the raw identifier, never from surrounding context.
package customid

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	// Delimiter separates the fields of a current-format identifier.
	// It is a control byte that cannot occur in user-provided content.
	Delimiter = "\x1e"

	// Legacy delimiters, oldest last. Which one a message used depends on
	// its age; decoding picks the one that occurs in the identifier.
	legacyDelimiterNul   = "\x00"
	legacyDelimiterComma = ","

	// Absent is the reserved literal marking an unset optional field in a
	// legacy identifier, so fixed-offset parsing survives optional fields.
	Absent = "EMPTY"

	// SubsetDelimiter joins the members of a numeric set inside a single
	// legacy field.
	SubsetDelimiter = ";"
)

// Field offsets shared by both formats.
const (
	commandIndex     = 0
	buttonValueIndex = 1
)

// Encoding identifies the wire format of a decoded identifier.
type Encoding int

const (
	// EncodingCurrent carries only command ID, button value and flow UUID.
	EncodingCurrent Encoding = iota
	// EncodingLegacyNul is the NUL-delimited legacy format.
	EncodingLegacyNul
	// EncodingLegacyComma is the comma-delimited legacy format.
	EncodingLegacyComma
)

// Legacy reports whether the encoding embeds configuration in the identifier.
func (e Encoding) Legacy() bool {
	return e != EncodingCurrent
}

func (e Encoding) String() string {
	switch e {
	case EncodingCurrent:
		return "current"
	case EncodingLegacyNul:
		return "legacy-nul"
	case EncodingLegacyComma:
		return "legacy-comma"
	}
	return "unknown"
}

func (e Encoding) delimiter() string {
	switch e {
	case EncodingLegacyNul:
		return legacyDelimiterNul
	case EncodingLegacyComma:
		return legacyDelimiterComma
	}
	return Delimiter
}

// MalformedError is returned when an identifier cannot be split into the
// expected fields. It is a permanent failure; the click is rejected, not
// retried.
type MalformedError struct {
	Raw    string
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed custom id %q: %s", e.Raw, e.Reason)
}

// Decoded is the result of decoding a button identifier.
type Decoded struct {
	CommandID   string
	ButtonValue string
	// FlowID is uuid.Nil when the identifier carries no flow identity
	// (stateless single-button commands, and all legacy identifiers).
	FlowID   uuid.UUID
	Encoding Encoding

	// fields holds the raw legacy split, including command and value, so
	// that re-encoding an unmodified decode is byte-identical.
	fields []string
}

// Decode splits a raw identifier into its fields, detecting the encoding
// generation from the identifier's shape.
func Decode(raw string) (Decoded, error) {
	if strings.Contains(raw, Delimiter) {
		return decodeCurrent(raw)
	}
	return decodeLegacy(raw)
}

func decodeCurrent(raw string) (Decoded, error) {
	parts := strings.Split(raw, Delimiter)
	if len(parts) < 2 || len(parts) > 3 {
		return Decoded{}, &MalformedError{Raw: raw, Reason: fmt.Sprintf("expected 2 or 3 fields, got %d", len(parts))}
	}
	if parts[commandIndex] == "" {
		return Decoded{}, &MalformedError{Raw: raw, Reason: "empty command id"}
	}
	d := Decoded{
		CommandID:   parts[commandIndex],
		ButtonValue: parts[buttonValueIndex],
		Encoding:    EncodingCurrent,
	}
	if len(parts) == 3 && parts[2] != "" {
		id, err := uuid.Parse(parts[2])
		if err != nil {
			return Decoded{}, &MalformedError{Raw: raw, Reason: "invalid flow uuid"}
		}
		d.FlowID = id
	}
	return d, nil
}

func decodeLegacy(raw string) (Decoded, error) {
	var enc Encoding
	switch {
	case strings.Contains(raw, legacyDelimiterNul):
		enc = EncodingLegacyNul
	case strings.Contains(raw, legacyDelimiterComma):
		enc = EncodingLegacyComma
	default:
		return Decoded{}, &MalformedError{Raw: raw, Reason: "no known delimiter"}
	}
	fields := strings.Split(raw, enc.delimiter())
	if fields[commandIndex] == "" {
		return Decoded{}, &MalformedError{Raw: raw, Reason: "empty command id"}
	}
	if len(fields) < 2 {
		return Decoded{}, &MalformedError{Raw: raw, Reason: "missing button value"}
	}
	return Decoded{
		CommandID:   fields[commandIndex],
		ButtonValue: fields[buttonValueIndex],
		Encoding:    enc,
		fields:      fields,
	}, nil
}

// Encode builds a current-format identifier. Pass uuid.Nil for commands that
// do not persist a flow record.
func Encode(commandID, buttonValue string, flowID uuid.UUID) string {
	if flowID == uuid.Nil {
		return commandID + Delimiter + buttonValue
	}
	return commandID + Delimiter + buttonValue + Delimiter + flowID.String()
}

// EncodeLegacy builds a legacy-format identifier from its raw fields,
// command ID and button value included. It exists for migration tooling and
// round-trip tests; new messages always use Encode.
func EncodeLegacy(enc Encoding, fields ...string) (string, error) {
	if !enc.Legacy() {
		return "", fmt.Errorf("encoding %s is not legacy", enc)
	}
	if len(fields) < 2 {
		return "", fmt.Errorf("need at least command id and button value, got %d fields", len(fields))
	}
	delim := enc.delimiter()
	for _, f := range fields {
		if strings.Contains(f, delim) {
			return "", fmt.Errorf("field %q contains the delimiter", f)
		}
	}
	return strings.Join(fields, delim), nil
}

// Raw re-encodes the identifier exactly as it was decoded.
func (d Decoded) Raw() string {
	if d.Encoding.Legacy() {
		return strings.Join(d.fields, d.Encoding.delimiter())
	}
	return Encode(d.CommandID, d.ButtonValue, d.FlowID)
}

// FieldCount returns the number of raw fields of a legacy identifier,
// command and button value included. Zero for current-format identifiers.
func (d Decoded) FieldCount() int {
	return len(d.fields)
}

// Field returns the raw legacy field at the given absolute offset
// (0 = command, 1 = button value). The second return is false when the
// identifier is too short, which callers treat as "field absent": older
// messages predate optional fields added later.
func (d Decoded) Field(i int) (string, bool) {
	if i < 0 || i >= len(d.fields) {
		return "", false
	}
	return d.fields[i], true
}

// IntField parses the legacy field at offset i as an integer, returning def
// when the field is missing or holds the Absent literal.
func (d Decoded) IntField(i, def int) (int, error) {
	f, ok := d.Field(i)
	if !ok || f == "" || f == Absent {
		return def, nil
	}
	v, err := strconv.Atoi(f)
	if err != nil {
		return 0, &MalformedError{Raw: d.Raw(), Reason: fmt.Sprintf("field %d is not a number", i)}
	}
	return v, nil
}

// StringField returns the legacy field at offset i, or def when the field is
// missing or holds the Absent literal.
func (d Decoded) StringField(i int, def string) string {
	f, ok := d.Field(i)
	if !ok || f == "" || f == Absent {
		return def
	}
	return f
}

// SetField parses the legacy field at offset i as a SubsetDelimiter-joined
// set of integers. A missing field, an empty field or the Absent literal all
// yield an empty set.
func (d Decoded) SetField(i int) (map[int]bool, error) {
	set := map[int]bool{}
	f, ok := d.Field(i)
	if !ok || f == "" || f == Absent {
		return set, nil
	}
	for _, part := range strings.Split(f, SubsetDelimiter) {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, &MalformedError{Raw: d.Raw(), Reason: fmt.Sprintf("field %d is not a number set", i)}
		}
		set[v] = true
	}
	return set, nil
}

// IntListField parses the legacy field at offset i as a SubsetDelimiter-
// joined ordered list of integers, preserving duplicates.
func (d Decoded) IntListField(i int) ([]int, error) {
	f, ok := d.Field(i)
	if !ok || f == "" || f == Absent {
		return nil, nil
	}
	parts := strings.Split(f, SubsetDelimiter)
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, &MalformedError{Raw: d.Raw(), Reason: fmt.Sprintf("field %d is not a number list", i)}
		}
		out = append(out, v)
	}
	return out, nil
}

// FormatSet renders a numeric set as a legacy subset field, or the Absent
// literal for an empty set. Members are emitted in ascending order.
func FormatSet(set map[int]bool) string {
	if len(set) == 0 {
		return Absent
	}
	return FormatIntList(sortedMembers(set))
}

// FormatIntList renders an ordered list of integers as a legacy subset
// field, or the Absent literal for an empty list.
func FormatIntList(values []int) string {
	if len(values) == 0 {
		return Absent
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, SubsetDelimiter)
}

func sortedMembers(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}
