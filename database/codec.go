package database

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bool64/ctxd"
	"gopkg.in/yaml.v3"
)

// ErrDeserialization is matched by errors of ModuleConfig decoding.
const ErrDeserialization = ctxd.SentinelError("deserialization failed")

// DeserializationError describes malformed structured config.
type DeserializationError struct {
	// Key is the name of offending key, it may be empty if key is not known.
	Key string
	Err error
}

// Error implements error.
func (e *DeserializationError) Error() string {
	if e.Key == "" {
		return ErrDeserialization.Error() + ": " + e.Err.Error()
	}

	return ErrDeserialization.Error() + ": " + e.Key + ": " + e.Err.Error()
}

// Unwrap returns underlying error.
func (e *DeserializationError) Unwrap() error {
	return e.Err
}

// Is matches ErrDeserialization.
func (e *DeserializationError) Is(target error) bool {
	return target == ErrDeserialization //nolint:errorlint,goerr113 // Sentinel comparison.
}

func deserializationError(err error) error {
	var de *DeserializationError
	if errors.As(err, &de) {
		return err
	}

	de = &DeserializationError{Err: err}

	var jte *json.UnmarshalTypeError
	if errors.As(err, &jte) {
		de.Key = jte.Field
	}

	return de
}

// field binds structured key to ModuleConfig field.
type field struct {
	key string
	dst interface{}
	// yamlTag is the only accepted YAML tag besides !!null for optional fields.
	yamlTag  string
	optional bool
}

// fields lists keys of structured representation, keys are case-sensitive.
func (c *ModuleConfig) fields() []field {
	return []field{
		{key: "url", dst: &c.URL, yamlTag: "!!str"},
		{key: "max_connections", dst: &c.MaxConnections, yamlTag: "!!int"},
		{key: "min_connections", dst: &c.MinConnections, yamlTag: "!!int"},
		{key: "connect_timeout_sec", dst: &c.ConnectTimeoutSec, yamlTag: "!!int", optional: true},
		{key: "idle_timeout_sec", dst: &c.IdleTimeoutSec, yamlTag: "!!int", optional: true},
		{key: "compatible_type", dst: &c.CompatibleType, yamlTag: "!!str"},
	}
}

var jsonNull = []byte("null")

// UnmarshalJSON decodes JSON object, absent and unknown keys are ignored, absent keys take default values.
func (c *ModuleConfig) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		return nil
	}

	var values map[string]json.RawMessage
	if err := json.Unmarshal(data, &values); err != nil {
		return deserializationError(err)
	}

	v := DefaultModuleConfig()

	for _, f := range v.fields() {
		raw, ok := values[f.key]
		if !ok {
			continue
		}

		if !f.optional && bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
			return &DeserializationError{Key: f.key, Err: errors.New("unexpected null")}
		}

		if err := json.Unmarshal(raw, f.dst); err != nil {
			return &DeserializationError{Key: f.key, Err: err}
		}
	}

	*c = v

	return nil
}

// UnmarshalYAML decodes YAML mapping, absent and unknown keys are ignored, absent keys take default values.
func (c *ModuleConfig) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.AliasNode && value.Alias != nil {
		value = value.Alias
	}

	if value.Kind != yaml.MappingNode {
		return &DeserializationError{Err: fmt.Errorf("line %d: expected mapping, got %s", value.Line, value.ShortTag())}
	}

	v := DefaultModuleConfig()
	fields := v.fields()

	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]

		for _, f := range fields {
			if f.key != key.Value {
				continue
			}

			tag := val.ShortTag()
			if tag != f.yamlTag && !(f.optional && tag == "!!null") {
				return &DeserializationError{
					Key: f.key,
					Err: fmt.Errorf("line %d: expected %s, got %s", val.Line, f.yamlTag, tag),
				}
			}

			if err := val.Decode(f.dst); err != nil {
				return &DeserializationError{Key: f.key, Err: err}
			}
		}
	}

	*c = v

	return nil
}

// ParseJSON decodes ModuleConfig from JSON.
func ParseJSON(data []byte) (ModuleConfig, error) {
	c := DefaultModuleConfig()

	if err := json.Unmarshal(data, &c); err != nil {
		return c, deserializationError(err)
	}

	return c, nil
}

// ParseYAML decodes ModuleConfig from YAML, empty document yields defaults.
func ParseYAML(data []byte) (ModuleConfig, error) {
	c := DefaultModuleConfig()

	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, deserializationError(err)
	}

	return c, nil
}
