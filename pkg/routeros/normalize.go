package routeros

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// RouterOS REST answers are stringly typed: booleans arrive as "true",
// counters as "12345". Flag and Long convert those fields to strict Go
// values once, at decode time, so nothing downstream re-parses them.

// Flag is a boolean that also accepts the quoted forms "true"/"false"
// and "yes"/"no".
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = false
		return nil
	}

	var b bool
	if err := json.Unmarshal(trimmed, &b); err == nil {
		*f = Flag(b)
		return nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		switch strings.TrimSpace(s) {
		case "true", "yes":
			*f = true
		case "false", "no", "":
			*f = false
		default:
			return fmt.Errorf("unsupported flag value: %q", s)
		}
		return nil
	}

	return fmt.Errorf("unsupported flag value: %s", string(trimmed))
}

// Long is an int64 that also accepts numeric strings.
type Long int64

func (l *Long) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*l = 0
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(trimmed, &num); err == nil {
		v, err := num.Int64()
		if err != nil {
			return fmt.Errorf("invalid numeric value: %s", string(trimmed))
		}
		*l = Long(v)
		return nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			*l = 0
			return nil
		}
		v, err := json.Number(s).Int64()
		if err != nil {
			return fmt.Errorf("invalid numeric string: %q", s)
		}
		*l = Long(v)
		return nil
	}

	return fmt.Errorf("unsupported numeric value: %s", string(trimmed))
}

// Singleton normalizes the two shapes singleton resources arrive in: a
// bare JSON object, or a one-element array wrapping it.
func Singleton(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return trimmed
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil || len(items) == 0 {
		return nil
	}
	return items[0]
}
