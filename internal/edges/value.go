package edges

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Value holds a field the API sends either as a JSON number or as a string
// (lines like 24.5 or "o24.5", odds like -110 or "+150").
type Value struct {
	Raw   string  // display form, as received
	Num   float64 // numeric form, valid when IsNum
	IsNum bool

	quoted bool
}

// NumberValue builds a numeric Value.
func NumberValue(f float64) Value {
	return Value{Raw: strconv.FormatFloat(f, 'f', -1, 64), Num: f, IsNum: true}
}

// StringValue builds a Value from a string, recording its numeric form if it parses.
func StringValue(s string) Value {
	v := Value{Raw: s, quoted: true}
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		v.Num = f
		v.IsNum = true
	}
	return v
}

// IsZero reports whether the value was absent or null.
func (v Value) IsZero() bool {
	return v.Raw == "" && !v.IsNum
}

func (v Value) String() string {
	return v.Raw
}

// UnmarshalJSON accepts a number, a string, or null.
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*v = Value{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decode string value: %w", err)
		}
		*v = StringValue(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("value must be a number or string, got %s", b)
	}
	*v = Value{Raw: string(b), Num: f, IsNum: true}
	return nil
}

// MarshalJSON writes the value back in the form it was received.
func (v Value) MarshalJSON() ([]byte, error) {
	switch {
	case v.IsZero():
		return []byte("null"), nil
	case v.IsNum && !v.quoted:
		return []byte(strconv.FormatFloat(v.Num, 'f', -1, 64)), nil
	default:
		return json.Marshal(v.Raw)
	}
}

// Score is a numeric field that decodes leniently: numbers and numeric
// strings keep their value, anything else (null, "abc", true, out of range)
// becomes 0, so one bad field never rejects the whole snapshot.
type Score float64

// UnmarshalJSON never fails.
func (s *Score) UnmarshalJSON(b []byte) error {
	*s = 0
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	var f float64
	switch b[0] {
	case '"':
		var str string
		if json.Unmarshal(b, &str) != nil {
			return nil
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		if json.Unmarshal(b, &f) != nil {
			return nil
		}
	}
	*s = Score(Finite(f))
	return nil
}

// Timestamp decodes the generated_at field. The API emits RFC 3339, but
// naive ISO timestamps without a zone are also seen and are read as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// UnmarshalJSON accepts a string timestamp, a unix-seconds number, or null.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if b[0] != '"' {
		var secs float64
		if err := json.Unmarshal(b, &secs); err != nil {
			return fmt.Errorf("decode timestamp: %w", err)
		}
		whole := int64(secs)
		t.Time = time.Unix(whole, int64((secs-float64(whole))*1e9)).UTC()
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("decode timestamp: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

// MarshalJSON writes RFC 3339, or null for the zero time.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}
