package prepbells

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration for YAML strings like "2m" or "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

type fileRule struct {
	Type       string    `yaml:"type"`
	Time       *Duration `yaml:"time,omitempty"`
	Proportion *float64  `yaml:"proportion,omitempty"`
}

type fileDocument struct {
	Bells []fileRule `yaml:"bells"`
}

// Loaded is the result of reading a rule file.
type Loaded struct {
	Path     string
	Rules    *RuleSet
	Warnings []string
	Exists   bool
}

// Load reads path. A missing file yields the default rule set. Entries that
// cannot be understood are skipped and reported as warnings.
func Load(path string) (Loaded, error) {
	loaded := Loaded{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			loaded.Rules = DefaultRuleSet()
			return loaded, nil
		}
		return Loaded{}, fmt.Errorf("read prep bells %q: %w", path, err)
	}
	loaded.Exists = true

	rules, warnings, err := Parse(data)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse prep bells %q: %w", path, err)
	}
	loaded.Rules = rules
	loaded.Warnings = warnings
	return loaded, nil
}

// Parse decodes a rule document. An empty document yields the default set.
func Parse(data []byte) (*RuleSet, []string, error) {
	if strings.TrimSpace(string(data)) == "" {
		return DefaultRuleSet(), nil, nil
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, err
	}

	set := NewRuleSet()
	var warnings []string
	for i, entry := range doc.Bells {
		rule, err := entry.rule()
		if err == nil {
			err = rule.Validate()
		}
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("bell %d skipped: %v", i, err))
			continue
		}
		set.rules = append(set.rules, rule)
	}
	return set, warnings, nil
}

func (f fileRule) rule() (Rule, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(f.Type))) {
	case "":
		return Rule{}, errors.New("no type found")
	case KindStart:
		if f.Time == nil {
			return Rule{}, errors.New("no time found")
		}
		return FromStart(f.Time.Duration), nil
	case KindFinish:
		if f.Time == nil {
			return Rule{}, errors.New("no time found")
		}
		return FromFinish(f.Time.Duration), nil
	case KindProportional:
		if f.Proportion == nil {
			return Rule{}, errors.New("no proportion found")
		}
		return Proportional(*f.Proportion), nil
	default:
		return Rule{}, fmt.Errorf("%w: %q", ErrUnknownKind, f.Type)
	}
}

// Marshal encodes the set as a rule document.
func Marshal(set *RuleSet) ([]byte, error) {
	doc := fileDocument{Bells: make([]fileRule, 0, set.Len())}
	for _, rule := range set.rules {
		entry := fileRule{Type: string(rule.Kind)}
		switch rule.Kind {
		case KindProportional:
			p := rule.Proportion
			entry.Proportion = &p
		default:
			entry.Time = &Duration{rule.Offset}
		}
		doc.Bells = append(doc.Bells, entry)
	}
	return yaml.Marshal(doc)
}

// Save writes the set to path atomically.
func Save(path string, set *RuleSet) error {
	data, err := Marshal(set)
	if err != nil {
		return fmt.Errorf("encode prep bells: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create prep bells dir: %w", err)
	}

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("create pending prep bells file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write prep bells: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace prep bells file: %w", err)
	}
	return nil
}

// DefaultPath resolves the rule file under the XDG config directory.
func DefaultPath() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "debatebell", "prep-bells.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "debatebell", "prep-bells.yaml"), nil
}
