package database

import (
	"fmt"

	"github.com/bool64/ctxd"
	"github.com/swaggest/jsonschema-go"
	"gopkg.in/yaml.v3"
)

// ErrUnknownCompatibleType is returned for compatible type names other than None and Oracle.
const ErrUnknownCompatibleType = ctxd.SentinelError("unknown compatible type")

// CompatibleType selects dialect specific behavior of database consumer.
type CompatibleType uint8

// Compatible types, zero value is CompatibleNone.
const (
	// CompatibleNone is standard SQL behavior.
	CompatibleNone CompatibleType = iota
	// CompatibleOracle enables Oracle compatibility.
	CompatibleOracle
)

var compatibleTypeNames = [...]string{
	CompatibleNone:   "None",
	CompatibleOracle: "Oracle",
}

// ParseCompatibleType returns compatible type by its name.
func ParseCompatibleType(s string) (CompatibleType, error) {
	for i, name := range compatibleTypeNames {
		if name == s {
			return CompatibleType(i), nil
		}
	}

	return CompatibleNone, fmt.Errorf("%w: %q, expected one of %q", ErrUnknownCompatibleType, s, compatibleTypeNames)
}

// String returns the name of compatible type.
func (t CompatibleType) String() string {
	if int(t) < len(compatibleTypeNames) {
		return compatibleTypeNames[t]
	}

	return fmt.Sprintf("CompatibleType(%d)", uint8(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t CompatibleType) MarshalText() ([]byte, error) {
	if int(t) >= len(compatibleTypeNames) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompatibleType, uint8(t))
	}

	return []byte(compatibleTypeNames[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, it is also used by envconfig.
func (t *CompatibleType) UnmarshalText(data []byte) error {
	v, err := ParseCompatibleType(string(data))
	if err != nil {
		return err
	}

	*t = v

	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (t CompatibleType) MarshalYAML() (interface{}, error) {
	b, err := t.MarshalText()
	if err != nil {
		return nil, err
	}

	return string(b), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *CompatibleType) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode || value.ShortTag() != "!!str" {
		return fmt.Errorf("%w: line %d: expected string, got %s", ErrUnknownCompatibleType, value.Line, value.ShortTag())
	}

	return t.UnmarshalText([]byte(value.Value))
}

// Enum lists allowed values.
func (CompatibleType) Enum() []interface{} {
	enum := make([]interface{}, 0, len(compatibleTypeNames))
	for _, name := range compatibleTypeNames {
		enum = append(enum, name)
	}

	return enum
}

// JSONSchema exposes compatible type as a string enum.
func (t CompatibleType) JSONSchema() (jsonschema.Schema, error) {
	s := jsonschema.Schema{}
	s.AddType(jsonschema.String)
	s.WithEnum(t.Enum()...)
	s.WithDefault(CompatibleNone.String())

	return s, nil
}
