// Package config provides configuration loader based on env vars and structured files.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	jsonschemav3 "github.com/santhosh-tekuri/jsonschema/v3"
	"github.com/swaggest/jsonschema-go"
	"gopkg.in/yaml.v3"
)

// WithEnvFiles populates env vars from provided files.
//
// It returns an error if file does not exist.
func WithEnvFiles(files ...string) func() error {
	return func() error { return godotenv.Load(files...) }
}

// WithOptionalEnvFiles populates env vars from provided files that exist.
//
// Non-existent files are ignored.
func WithOptionalEnvFiles(files ...string) func() error {
	var found []string

	for _, f := range files {
		if fileExists(f) {
			found = append(found, f)
		}
	}

	if len(found) == 0 {
		return func() error { return nil }
	}

	return WithEnvFiles(found...)
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}

	return !info.IsDir()
}

// Load loads config from ENV vars, sources are called to populate ENV vars in advance.
//
// In no sources are provided then vars from .env.template, .env, .env.<ENVIRONMENT>
// files are loaded if available. Use nil or any other source to avoid that.
//
// Loaded config is validated against JSON schema reflected from spec.
func Load(prefix string, spec interface{}, sources ...func() error) error {
	if len(sources) == 0 {
		sources = append(sources, WithOptionalEnvFiles(".env"))

		env := struct {
			// Environment is the name of environment where application runs.
			Environment string
		}{}
		envconfig.MustProcess(prefix, &env)

		if env.Environment != "" {
			sources = append(sources, WithOptionalEnvFiles(".env."+env.Environment))
		}

		sources = append(sources, WithOptionalEnvFiles(".env.template"))
	}

	for _, o := range sources {
		if o == nil {
			continue
		}

		if err := o(); err != nil {
			return fmt.Errorf("failed to apply config source: %w", err)
		}
	}

	if err := envconfig.Process(prefix, spec); err != nil {
		return err
	}

	return validate(spec)
}

// LoadFile decodes config from JSON or YAML file and validates it.
//
// Format is selected by file extension: .json, .yaml or .yml.
// Types that implement json.Unmarshaler or yaml.Unmarshaler control their defaults.
func LoadFile(filename string, spec interface{}) error {
	data, err := os.ReadFile(filename) //nolint:gosec // File name is controlled by operator.
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		err = json.Unmarshal(data, spec)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, spec)
	default:
		return fmt.Errorf("unsupported config file format: %s", filename)
	}

	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", filename, err)
	}

	return validate(spec)
}

func validate(spec interface{}) error {
	r := jsonschema.Reflector{}

	s, err := r.Reflect(spec, jsonschema.InlineRefs, jsonschema.ProcessWithoutTags)
	if err != nil {
		return fmt.Errorf("reflect schema: %w", err)
	}

	schema, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	compiler := jsonschemav3.NewCompiler()
	if err := compiler.AddResource("config.json", bytes.NewReader(schema)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}

	sch, err := compiler.Compile("config.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	doc, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	if err := sch.ValidateInterface(v); err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	return nil
}
