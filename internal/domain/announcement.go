// Package domain defines the core types and interfaces for the announcement
// board. All other packages depend on domain; domain depends on nothing.
package domain

import (
	"fmt"
	"time"
)

// Default playback parameters applied to catalog entries that leave them out.
const (
	DefaultZhLocale     = "zh-TW"
	DefaultEnLocale     = "en-US"
	DefaultRate         = 0.5
	DefaultZhPitch      = 1.1
	DefaultEnPitch      = 1.2
	DefaultPauseBetween = 200 * time.Millisecond
)

// Rate and pitch bounds accepted by the speech layer.
const (
	MinRate  = 0.0
	MaxRate  = 1.0
	MinPitch = 0.5
	MaxPitch = 2.0
)

// Category identifies one of the fixed announcement groups.
type Category int

const (
	CategoryArrival Category = iota
	CategoryInCar
	CategoryStation
)

// Categories lists every category in display order.
var Categories = []Category{CategoryArrival, CategoryInCar, CategoryStation}

// String returns the catalog key of the category.
func (c Category) String() string {
	switch c {
	case CategoryArrival:
		return "arrival"
	case CategoryInCar:
		return "in-car"
	case CategoryStation:
		return "station"
	default:
		return "unknown"
	}
}

// CategoryFromString converts a catalog key to a Category.
func CategoryFromString(s string) (Category, error) {
	for _, c := range Categories {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Entry is one bilingual announcement. Entries are values; copying one
// never shares state with the catalog it came from.
type Entry struct {
	Label        string
	ZhText       string
	EnText       string
	ZhVoice      string // locale tag, e.g. "zh-TW"
	EnVoice      string
	ZhRate       float64
	EnRate       float64
	ZhPitch      float64
	EnPitch      float64
	PauseBetween time.Duration
	Tint         string // "#rrggbb"
}

// Utterances returns the Mandarin utterance followed by the English one.
// The pause is attached to the Mandarin utterance as its trailing delay.
func (e Entry) Utterances() []Utterance {
	return []Utterance{
		{
			Text:      e.ZhText,
			Locale:    e.ZhVoice,
			Rate:      e.ZhRate,
			Pitch:     e.ZhPitch,
			PostDelay: e.PauseBetween,
		},
		{
			Text:   e.EnText,
			Locale: e.EnVoice,
			Rate:   e.EnRate,
			Pitch:  e.EnPitch,
		},
	}
}

// Group is an ordered run of entries sharing a category.
type Group struct {
	Category Category
	Title    string
	Tint     string
	Entries  []Entry
}

// Catalog is the static, ordered announcement table.
type Catalog struct {
	groups []Group
}

// NewCatalog builds a catalog from groups. The slices are copied.
func NewCatalog(groups []Group) *Catalog {
	return &Catalog{groups: copyGroups(groups)}
}

// Groups returns a copy of the groups in display order.
func (c *Catalog) Groups() []Group {
	return copyGroups(c.groups)
}

// Entries returns every entry, group by group, in display order.
func (c *Catalog) Entries() []Entry {
	var out []Entry
	for _, g := range c.groups {
		out = append(out, g.Entries...)
	}
	return out
}

// Len returns the total number of entries.
func (c *Catalog) Len() int {
	n := 0
	for _, g := range c.groups {
		n += len(g.Entries)
	}
	return n
}

func copyGroups(in []Group) []Group {
	out := make([]Group, len(in))
	for i, g := range in {
		out[i] = g
		out[i].Entries = append([]Entry(nil), g.Entries...)
	}
	return out
}

// Utterance is one unit of text handed to the speech engine.
type Utterance struct {
	ID        string // assigned when queued
	Text      string
	Locale    string
	Rate      float64
	Pitch     float64
	PostDelay time.Duration
}

// Voice is a concrete voice chosen for a locale by a synthesizer.
type Voice struct {
	Name   string // backend-specific voice name or ID
	Locale string // locale the voice actually speaks
}

// Boundary controls how abruptly StopAll cuts the current utterance.
type Boundary int

const (
	// BoundaryWord lets the current word finish, best effort.
	BoundaryWord Boundary = iota
	// BoundaryImmediate stops the audio at once.
	BoundaryImmediate
)

// String returns the config name of the boundary.
func (b Boundary) String() string {
	switch b {
	case BoundaryWord:
		return "word"
	case BoundaryImmediate:
		return "immediate"
	default:
		return "unknown"
	}
}

// BoundaryFromString parses "word" or "immediate". Anything else is word.
func BoundaryFromString(s string) Boundary {
	if s == "immediate" {
		return BoundaryImmediate
	}
	return BoundaryWord
}
