package bell

import "fmt"

// Colour is a packed ARGB value.
type Colour uint32

const (
	FlashWhite Colour = 0xffffffff
	FlashPOI   Colour = 0xffadd6ff
)

// Opaque returns the colour with its alpha channel forced to 0xff.
func (c Colour) Opaque() Colour {
	return c | 0xff000000
}

// Hex renders the colour as #rrggbb, dropping alpha.
func (c Colour) Hex() string {
	return fmt.Sprintf("#%06x", uint32(c)&0x00ffffff)
}

// Period describes what the current stretch of a phase is called and how it
// is displayed. Nil pointer fields are unset.
type Period struct {
	Reference   string
	Name        string
	Description *string
	Background  *Colour
	POIsAllowed bool
}

// NewPeriod builds a period with the given description and no background.
func NewPeriod(reference, name, description string, poisAllowed bool) Period {
	return Period{
		Reference:   reference,
		Name:        name,
		Description: &description,
		POIsAllowed: poisAllowed,
	}
}

// WithBackground returns a copy of p using the given background colour.
func (p Period) WithBackground(c Colour) Period {
	c = c.Opaque()
	p.Background = &c
	return p
}

// BackgroundColour returns the opaque background and whether one is set.
func (p Period) BackgroundColour() (Colour, bool) {
	if p.Background == nil {
		return 0, false
	}
	return p.Background.Opaque(), true
}

// DescriptionText returns the description, or "" when unset.
func (p Period) DescriptionText() string {
	if p.Description == nil {
		return ""
	}
	return *p.Description
}

// Update overwrites every field that other sets. The POIs flag is always taken from other.
func (p *Period) Update(other Period) {
	if other.Reference != "" {
		p.Reference = other.Reference
	}
	if other.Name != "" {
		p.Name = other.Name
	}
	if other.Description != nil {
		d := *other.Description
		p.Description = &d
	}
	if other.Background != nil {
		c := other.Background.Opaque()
		p.Background = &c
	}
	p.POIsAllowed = other.POIsAllowed
}

// Backfill fills fields still unset in p from other without overriding anything.
func (p *Period) Backfill(other Period) {
	if p.Reference == "" {
		p.Reference = other.Reference
	}
	if p.Name == "" {
		p.Name = other.Name
	}
	if p.Description == nil && other.Description != nil {
		d := *other.Description
		p.Description = &d
	}
	if p.Background == nil && other.Background != nil {
		c := other.Background.Opaque()
		p.Background = &c
	}
}

// Clone returns a deep copy of p.
func (p Period) Clone() Period {
	out := p
	if p.Description != nil {
		d := *p.Description
		out.Description = &d
	}
	if p.Background != nil {
		c := *p.Background
		out.Background = &c
	}
	return out
}
