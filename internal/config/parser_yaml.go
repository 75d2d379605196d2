package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

func parseYAML(content string, base Config) (Config, []Warning, error) {
	dec := yaml.NewDecoder(strings.NewReader(content))
	dec.KnownFields(true)

	var payload fileConfig
	if err := dec.Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return finish(fileConfig{}, base)
		}
		return Config{}, nil, fmt.Errorf("decode yaml: %w", err)
	}

	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err != nil {
			return Config{}, nil, fmt.Errorf("decode yaml: %w", err)
		}
		return Config{}, nil, fmt.Errorf("multiple YAML documents are not allowed")
	}

	return finish(payload, base)
}
