package database

import (
	"encoding/json"

	"github.com/swaggest/jsonschema-go"
)

// JSONSchema returns JSON schema of structured ModuleConfig.
func JSONSchema() ([]byte, error) {
	r := jsonschema.Reflector{}

	s, err := r.Reflect(DefaultModuleConfig(), jsonschema.InlineRefs)
	if err != nil {
		return nil, err
	}

	s.WithTitle("Database module configuration")

	return json.Marshal(s)
}
