// Package prepbells resolves user-authored prep-time bell rules into concrete bell events.
package prepbells

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/rbright/debatebell/internal/bell"
)

// Kind identifies how a rule anchors its bell.
type Kind string

const (
	KindStart        Kind = "start"
	KindFinish       Kind = "finish"
	KindProportional Kind = "proportional"
)

var (
	ErrUnknownKind       = errors.New("unknown prep bell kind")
	ErrNegativeOffset    = errors.New("prep bell offset must not be negative")
	ErrProportionInvalid = errors.New("prep bell proportion must be within [0, 1]")
)

// Rule is one prep-time bell: an offset from the start, an offset before the
// finish, or a fraction of the way through.
type Rule struct {
	Kind       Kind
	Offset     time.Duration
	Proportion float64
}

// FromStart rings offset after the start of prep time.
func FromStart(offset time.Duration) Rule {
	return Rule{Kind: KindStart, Offset: offset}
}

// FromFinish rings offset before the end of prep time.
func FromFinish(offset time.Duration) Rule {
	return Rule{Kind: KindFinish, Offset: offset}
}

// Proportional rings a fraction of the way through prep time.
func Proportional(fraction float64) Rule {
	return Rule{Kind: KindProportional, Proportion: fraction}
}

// Validate rejects rules that cannot be resolved.
func (r Rule) Validate() error {
	switch r.Kind {
	case KindStart, KindFinish:
		if r.Offset < 0 {
			return ErrNegativeOffset
		}
	case KindProportional:
		if math.IsNaN(r.Proportion) || r.Proportion < 0 || r.Proportion > 1 {
			return ErrProportionInvalid
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, r.Kind)
	}
	return nil
}

// IsAtFinish reports whether the rule names the very end of prep time.
func (r Rule) IsAtFinish() bool {
	switch r.Kind {
	case KindFinish:
		return r.Offset == 0
	case KindProportional:
		return r.Proportion == 1
	default:
		return false
	}
}

// candidate computes the rule's bell time for a phase of the given length.
// ok is false when the rule falls outside the phase.
func (r Rule) candidate(length time.Duration) (time.Duration, bool) {
	switch r.Kind {
	case KindStart:
		if r.Offset >= length {
			return 0, false
		}
		return r.Offset, true
	case KindFinish:
		if length <= r.Offset {
			return 0, false
		}
		return length - r.Offset, true
	case KindProportional:
		secs := math.Round(length.Seconds() * r.Proportion)
		return time.Duration(secs) * time.Second, true
	default:
		return 0, false
	}
}

// String renders a short human description of the rule.
func (r Rule) String() string {
	switch r.Kind {
	case KindStart:
		if r.Offset == 0 {
			return "at start"
		}
		return bell.Clock(r.Offset) + " after start"
	case KindFinish:
		if r.Offset == 0 {
			return "at finish"
		}
		return bell.Clock(r.Offset) + " before finish"
	case KindProportional:
		switch r.Proportion {
		case 0:
			return "at start"
		case 1:
			return "at finish"
		}
		pct := r.Proportion * 100
		if pct == math.Round(pct) {
			return strconv.FormatFloat(pct, 'f', 0, 64) + "% of the way through"
		}
		return strconv.FormatFloat(pct, 'f', 1, 64) + "% of the way through"
	default:
		return "unknown bell"
	}
}
