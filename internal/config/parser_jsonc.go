package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload fileConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	return finish(payload, base)
}

// finish overlays payload on base and validates the result.
func finish(payload fileConfig, base Config) (Config, []Warning, error) {
	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, append(warnings, validatedWarnings...), nil
}

// normalizeJSONC blanks comments and drops trailing commas. Byte offsets of the remaining
// tokens are preserved so decode errors still point at the right line.
func normalizeJSONC(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	const (
		code = iota
		str
		strEscape
		lineComment
		blockComment
	)
	mode := code

	for i := 0; i < len(content); i++ {
		ch := content[i]
		switch mode {
		case str:
			out.WriteByte(ch)
			switch ch {
			case '\\':
				mode = strEscape
			case '"':
				mode = code
			}
		case strEscape:
			out.WriteByte(ch)
			mode = str
		case lineComment:
			if ch == '\n' || ch == '\r' {
				out.WriteByte(ch)
				mode = code
			} else {
				out.WriteByte(' ')
			}
		case blockComment:
			switch {
			case ch == '*' && i+1 < len(content) && content[i+1] == '/':
				out.WriteString("  ")
				i++
				mode = code
			case ch == '\n' || ch == '\r' || ch == '\t':
				out.WriteByte(ch)
			default:
				out.WriteByte(' ')
			}
		default:
			switch {
			case ch == '"':
				out.WriteByte(ch)
				mode = str
			case ch == '/' && i+1 < len(content) && content[i+1] == '/':
				out.WriteString("  ")
				i++
				mode = lineComment
			case ch == '/' && i+1 < len(content) && content[i+1] == '*':
				out.WriteString("  ")
				i++
				mode = blockComment
			case ch == ',' && closesNext(content, i+1):
				out.WriteByte(' ')
			default:
				out.WriteByte(ch)
			}
		}
	}

	if mode == blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}
	return out.String(), nil
}

// closesNext reports whether the next significant token at or after i closes an object
// or array. Comments between a trailing comma and the bracket are skipped.
func closesNext(content string, i int) bool {
	for i < len(content) {
		switch ch := content[i]; {
		case ch == ' ' || ch == '\n' || ch == '\r' || ch == '\t':
			i++
		case ch == '/' && i+1 < len(content) && content[i+1] == '/':
			for i < len(content) && content[i] != '\n' {
				i++
			}
		case ch == '/' && i+1 < len(content) && content[i+1] == '*':
			end := strings.Index(content[i+2:], "*/")
			if end < 0 {
				return false
			}
			i += end + 4
		default:
			return ch == '}' || ch == ']'
		}
	}
	return false
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra json.RawMessage
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var offset int64
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		return err
	}
	line, col := offsetToLineCol(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}
	prefix := content[:min(int(offset), len(content))]
	if len(prefix) > 0 {
		prefix = prefix[:len(prefix)-1]
	}
	line := strings.Count(prefix, "\n") + 1
	col := len(prefix) - strings.LastIndexByte(prefix, '\n')
	return line, col
}
