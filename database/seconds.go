package database

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/swaggest/jsonschema-go"
	"gopkg.in/yaml.v3"
)

// Seconds is an optional amount of seconds.
//
// Absent value means driver default, zero is a regular present value.
type Seconds struct {
	Value uint64
	Valid bool
}

// Some returns present amount of seconds.
func Some(sec uint64) Seconds {
	return Seconds{Value: sec, Valid: true}
}

// None returns absent amount of seconds.
func None() Seconds {
	return Seconds{}
}

// Duration returns seconds as time.Duration, false if value is absent.
func (s Seconds) Duration() (time.Duration, bool) {
	if !s.Valid {
		return 0, false
	}

	return time.Duration(s.Value) * time.Second, true
}

// String renders Some(n) or None.
func (s Seconds) String() string {
	if !s.Valid {
		return "None"
	}

	return "Some(" + strconv.FormatUint(s.Value, 10) + ")"
}

// MarshalJSON emits null for absent value.
func (s Seconds) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}

	return strconv.AppendUint(nil, s.Value, 10), nil
}

// UnmarshalJSON accepts null or unsigned integer.
func (s *Seconds) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = None()

		return nil
	}

	var v uint64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	*s = Some(v)

	return nil
}

// MarshalYAML emits null for absent value.
func (s Seconds) MarshalYAML() (interface{}, error) {
	if !s.Valid {
		return nil, nil
	}

	return s.Value, nil
}

// UnmarshalYAML accepts null or unsigned integer.
func (s *Seconds) UnmarshalYAML(value *yaml.Node) error {
	if value.ShortTag() == "!!null" {
		*s = None()

		return nil
	}

	if value.ShortTag() != "!!int" {
		return fmt.Errorf("line %d: expected !!int, got %s", value.Line, value.ShortTag())
	}

	var v uint64
	if err := value.Decode(&v); err != nil {
		return err
	}

	*s = Some(v)

	return nil
}

// Decode implements envconfig.Decoder, empty string means absent value.
func (s *Seconds) Decode(value string) error {
	if value == "" {
		*s = None()

		return nil
	}

	v, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse seconds: %w", err)
	}

	*s = Some(v)

	return nil
}

// JSONSchema exposes seconds as nullable non-negative integer.
func (Seconds) JSONSchema() (jsonschema.Schema, error) {
	s := jsonschema.Schema{}
	s.AddType(jsonschema.Integer)
	s.AddType(jsonschema.Null)
	s.WithMinimum(0)

	return s, nil
}
