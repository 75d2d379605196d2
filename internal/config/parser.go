package config

import "strings"

// Parse reads configuration content as JSONC or YAML and overlays it on base.
//
// JSONC is selected when the first non-whitespace character is `{`; anything else is YAML.
func Parse(content string, base Config) (Config, []Warning, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return finish(fileConfig{}, base)
	}
	if strings.HasPrefix(trimmed, "{") {
		return parseJSONC(content, base)
	}
	return parseYAML(content, base)
}
