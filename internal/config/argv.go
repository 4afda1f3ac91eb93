package config

import (
	"fmt"
	"os"
	"strings"
	"unicode"
)

// splitCommand turns a screen_cmd string into argv without a shell. Words
// split on whitespace. Single quotes are literal. Elsewhere a backslash
// escapes the next rune and $NAME or ${NAME} expands from the environment.
// A # that starts a word comments out the rest, and a leading ~/ is the
// home directory.
func splitCommand(input string) ([]string, error) {
	var (
		argv   []string
		word   strings.Builder
		inWord bool
		quote  rune
	)
	flush := func() {
		if inWord {
			argv = append(argv, word.String())
			word.Reset()
			inWord = false
		}
	}

	runes := []rune(strings.TrimSpace(input))
scan:
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote == '\'':
			if r == '\'' {
				quote = 0
			} else {
				word.WriteRune(r)
			}
		case r == '\\':
			if i+1 == len(runes) {
				return nil, fmt.Errorf("unterminated escape sequence in command: %q", input)
			}
			i++
			word.WriteRune(runes[i])
			inWord = true
		case r == '$':
			name, n := envName(runes[i+1:])
			inWord = true
			if n == 0 {
				word.WriteRune(r)
				continue
			}
			word.WriteString(os.Getenv(name))
			i += n
		case quote == '"':
			if r == '"' {
				quote = 0
			} else {
				word.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inWord = true
		case unicode.IsSpace(r):
			flush()
		case r == '#' && !inWord:
			break scan
		case r == '~' && !inWord && (i+1 == len(runes) || runes[i+1] == '/'):
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("expand ~ in command %q: %w", input, err)
			}
			word.WriteString(home)
			inWord = true
		default:
			word.WriteRune(r)
			inWord = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote in command: %q", input)
	}
	flush()
	return argv, nil
}

// envName reads a variable name after '$' and reports how many runes it
// used; zero means the '$' is literal.
func envName(rs []rune) (string, int) {
	if len(rs) > 0 && rs[0] == '{' {
		for j := 1; j < len(rs); j++ {
			if rs[j] == '}' {
				if j == 1 {
					return "", 0
				}
				return string(rs[1:j]), j + 1
			}
		}
		return "", 0
	}
	n := 0
	for n < len(rs) && (rs[n] == '_' || unicode.IsLetter(rs[n]) || (n > 0 && unicode.IsDigit(rs[n]))) {
		n++
	}
	return string(rs[:n]), n
}

func mustSplitCommand(input string) []string {
	argv, err := splitCommand(input)
	if err != nil {
		panic(err)
	}
	return argv
}
