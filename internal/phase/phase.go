// Package phase models one timed debate phase: its length, bells, and period descriptors.
package phase

import (
	"sort"
	"sync"
	"time"

	"github.com/rbright/debatebell/internal/bell"
	"github.com/rbright/debatebell/internal/prepbells"
)

// Format is the read side of a phase consumed by the phase runner and the alert layer.
type Format interface {
	Length() time.Duration
	ActivePeriod(t time.Duration) bell.Period
	BellAt(t time.Duration) (bell.Event, bool)
	BellsSorted() []bell.Event
	IsPrep() bool
	HasPOIsAllowedSomewhere() bool
}

// basePeriod clears any description carried over from a previous phase.
func basePeriod() bell.Period {
	return bell.NewPeriod("", "", "", false)
}

// foldPeriods computes the active period at t. The latest qualifying bell's
// descriptor wins for every field it sets; earlier bells, then the initial
// period, fill whatever it leaves unset.
func foldPeriods(initial bell.Period, bells []bell.Event, t time.Duration) bell.Period {
	qualifying := make([]bell.Event, 0, len(bells))
	for _, b := range bells {
		if b.Time <= t && b.NextPeriod != nil {
			qualifying = append(qualifying, b)
		}
	}

	if len(qualifying) == 0 {
		out := basePeriod()
		out.Update(initial)
		return out
	}

	sort.SliceStable(qualifying, func(i, j int) bool {
		return qualifying[i].Time > qualifying[j].Time
	})

	out := qualifying[0].NextPeriod.Clone()
	for _, b := range qualifying[1:] {
		out.Backfill(*b.NextPeriod)
	}
	out.Backfill(initial)
	out.Backfill(basePeriod())
	return out
}

func bellAt(bells []bell.Event, t time.Duration) (bell.Event, bool) {
	for _, b := range bells {
		if b.Time == t {
			return b, true
		}
	}
	return bell.Event{}, false
}

func sortedCopy(bells []bell.Event) []bell.Event {
	out := append([]bell.Event(nil), bells...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time < out[j].Time
	})
	return out
}

// Controlled is a phase whose bells come from a debate format: a speech or controlled prep time.
type Controlled struct {
	reference string
	length    time.Duration
	prep      bool

	mu      sync.RWMutex
	initial bell.Period
	bells   []bell.Event
	sorted  []bell.Event
}

// NewSpeech builds an empty speech phase.
func NewSpeech(reference string, length time.Duration) *Controlled {
	return &Controlled{reference: reference, length: length}
}

// NewControlledPrep builds a prep phase whose bells are set by the format.
func NewControlledPrep(length time.Duration) *Controlled {
	return &Controlled{length: length, prep: true}
}

// Reference returns the speech reference, "" for prep.
func (c *Controlled) Reference() string {
	return c.reference
}

// SetFirstPeriod sets the descriptor active before any bell.
func (c *Controlled) SetFirstPeriod(p bell.Period) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initial = p.Clone()
}

// AddBell adds a bell. A bell already at the same time is replaced.
func (c *Controlled) AddBell(b bell.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.bells[:0]
	for _, existing := range c.bells {
		if existing.Time != b.Time {
			kept = append(kept, existing)
		}
	}
	c.bells = append(kept, b)
	c.sorted = nil
}

func (c *Controlled) Length() time.Duration {
	return c.length
}

func (c *Controlled) IsPrep() bool {
	return c.prep
}

func (c *Controlled) ActivePeriod(t time.Duration) bell.Period {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return foldPeriods(c.initial, c.bells, t)
}

func (c *Controlled) BellAt(t time.Duration) (bell.Event, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return bellAt(c.bells, t)
}

func (c *Controlled) BellsSorted() []bell.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sorted == nil {
		c.sorted = sortedCopy(c.bells)
	}
	return append([]bell.Event(nil), c.sorted...)
}

// HasPOIsAllowedSomewhere reports whether any period of the phase allows points of information.
func (c *Controlled) HasPOIsAllowedSomewhere() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initial.POIsAllowed || anyPOIPeriod(c.bells)
}

func anyPOIPeriod(bells []bell.Event) bool {
	for _, b := range bells {
		if b.NextPeriod != nil && b.NextPeriod.POIsAllowed {
			return true
		}
	}
	return false
}

// Prep is simple prep time: its bells come from the user's prep bell rules.
type Prep struct {
	length time.Duration
	bells  []bell.Event
}

// NewPrep resolves rules for a prep phase of the given length. A nil rule set
// falls back to a single double bell at the finish.
func NewPrep(length time.Duration, rules *prepbells.RuleSet) *Prep {
	var bells []bell.Event
	if rules == nil {
		bells = []bell.Event{{Time: length, Sound: bell.Rings(2)}}
	} else {
		bells = rules.Bells(length)
	}
	return &Prep{length: length, bells: bells}
}

func (p *Prep) Length() time.Duration {
	return p.length
}

func (p *Prep) IsPrep() bool {
	return true
}

func (p *Prep) ActivePeriod(t time.Duration) bell.Period {
	return foldPeriods(bell.Period{}, p.bells, t)
}

func (p *Prep) BellAt(t time.Duration) (bell.Event, bool) {
	return bellAt(p.bells, t)
}

func (p *Prep) HasPOIsAllowedSomewhere() bool {
	return anyPOIPeriod(p.bells)
}

func (p *Prep) BellsSorted() []bell.Event {
	return sortedCopy(p.bells)
}
