// Package config provides YAML-based configuration loading with environment variable expansion.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// LoadOptional decodes filename into target without validating, so callers can
// apply overrides first and call Validate afterwards. A missing file (or an empty
// filename) leaves target untouched.
func LoadOptional[T any](filename string, target *T) error {
	if filename == "" {
		return nil
	}
	data, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	if err := decode(data, target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}
	return nil
}

// Validate runs target's Validate method, if it has one.
func Validate[T any](target *T) error {
	return validate(target)
}

func decode(data []byte, target any) error {
	expanded := os.ExpandEnv(string(data))
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func validate(target any) error {
	if validator, ok := target.(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	return nil
}
