package config

import (
	"fmt"
	"strings"
)

// Parse reads configuration content as JSONC over base.
// Empty content yields base unchanged.
func Parse(content string, base Config) (Config, []Warning, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		validatedWarnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, validatedWarnings, nil
	}

	if !strings.HasPrefix(trimmed, "{") {
		offset := strings.Index(content, trimmed[:1]) + 1
		line, col := offsetToLineCol(content, int64(offset))
		return Config{}, nil, fmt.Errorf("line %d column %d: config must be a JSONC object", line, col)
	}
	return parseJSONC(content, base)
}
