package prepbells

import (
	"fmt"
	"time"

	"github.com/rbright/debatebell/internal/bell"
)

// RuleSet is the ordered, user-editable list of prep bell rules.
// Order matters: it breaks priority ties during resolution.
type RuleSet struct {
	rules []Rule
}

// DefaultRuleSet holds a single bell at the finish.
func DefaultRuleSet() *RuleSet {
	return NewRuleSet(FromFinish(0))
}

// NewRuleSet copies rules into a new set.
func NewRuleSet(rules ...Rule) *RuleSet {
	return &RuleSet{rules: append([]Rule(nil), rules...)}
}

// Rules returns a copy of the rules in order.
func (s *RuleSet) Rules() []Rule {
	return append([]Rule(nil), s.rules...)
}

// Len returns the number of rules.
func (s *RuleSet) Len() int {
	return len(s.rules)
}

// Add appends a validated rule.
func (s *RuleSet) Add(rule Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	s.rules = append(s.rules, rule)
	return nil
}

// Replace swaps the rule at index i.
func (s *RuleSet) Replace(i int, rule Rule) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	if err := rule.Validate(); err != nil {
		return err
	}
	s.rules[i] = rule
	return nil
}

// Delete removes the rule at index i.
func (s *RuleSet) Delete(i int) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	s.rules = append(s.rules[:i], s.rules[i+1:]...)
	return nil
}

// DeleteAll clears the set. With spareFinish, the first at-finish rule survives.
func (s *RuleSet) DeleteAll(spareFinish bool) {
	kept := s.rules[:0]
	spared := false
	for _, rule := range s.rules {
		if spareFinish && !spared && rule.IsAtFinish() {
			kept = append(kept, rule)
			spared = true
		}
	}
	s.rules = kept
}

// HasFinishBell reports whether any rule rings at the finish.
func (s *RuleSet) HasFinishBell() bool {
	for _, rule := range s.rules {
		if rule.IsAtFinish() {
			return true
		}
	}
	return false
}

// HasBells reports whether the set holds any rule.
func (s *RuleSet) HasBells() bool {
	return len(s.rules) > 0
}

// HasBellsOtherThanFinish reports whether clearing with spareFinish would remove anything.
func (s *RuleSet) HasBellsOtherThanFinish() bool {
	switch len(s.rules) {
	case 0:
		return false
	case 1:
		return !s.rules[0].IsAtFinish()
	default:
		return true
	}
}

// Descriptions renders each rule in order.
func (s *RuleSet) Descriptions() []string {
	out := make([]string, 0, len(s.rules))
	for _, rule := range s.rules {
		out = append(out, rule.String())
	}
	return out
}

// Bells resolves the set for a phase of the given length.
func (s *RuleSet) Bells(length time.Duration) []bell.Event {
	return Resolve(s.rules, length)
}

func (s *RuleSet) checkIndex(i int) error {
	if i < 0 || i >= len(s.rules) {
		return fmt.Errorf("prep bell index %d out of range (have %d)", i, len(s.rules))
	}
	return nil
}
