// Package catalog loads the static announcement table.
//
// The built-in table lives in catalog.yaml and is embedded in the binary.
// A replacement file with the same schema can be loaded with LoadFile.
package catalog

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hammamikhairi/metrovox/internal/domain"
)

//go:embed catalog.yaml
var builtin []byte

// Default group tints, used when the file leaves a group's tint empty.
var defaultTints = map[domain.Category]string{
	domain.CategoryArrival: "#60a5fa",
	domain.CategoryInCar:   "#34d399",
	domain.CategoryStation: "#fbbf24",
}

type fileSchema struct {
	Groups []groupSchema `yaml:"groups"`
}

type groupSchema struct {
	Category string        `yaml:"category"`
	Title    string        `yaml:"title"`
	Tint     string        `yaml:"tint"`
	Entries  []entrySchema `yaml:"entries"`
}

// Optional numeric fields are pointers so an explicit zero is kept.
type entrySchema struct {
	Label   string   `yaml:"label"`
	Zh      string   `yaml:"zh"`
	En      string   `yaml:"en"`
	ZhVoice string   `yaml:"zh_voice"`
	EnVoice string   `yaml:"en_voice"`
	ZhRate  *float64 `yaml:"zh_rate"`
	EnRate  *float64 `yaml:"en_rate"`
	ZhPitch *float64 `yaml:"zh_pitch"`
	EnPitch *float64 `yaml:"en_pitch"`
	Pause   *float64 `yaml:"pause"` // seconds
	Tint    string   `yaml:"tint"`
}

// Default returns the built-in catalog.
func Default() (*domain.Catalog, error) {
	return Parse(builtin)
}

// LoadFile reads and validates a catalog file.
func LoadFile(path string) (*domain.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return cat, nil
}

// Parse decodes a YAML catalog, applies defaults and validates it.
// Groups must follow the fixed category order and each category may
// appear at most once.
func Parse(data []byte) (*domain.Catalog, error) {
	var f fileSchema
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCatalog, err)
	}
	if len(f.Groups) == 0 {
		return nil, fmt.Errorf("%w: no groups", domain.ErrInvalidCatalog)
	}

	groups := make([]domain.Group, 0, len(f.Groups))
	last := domain.Category(-1)
	for gi, gs := range f.Groups {
		cat, err := domain.CategoryFromString(gs.Category)
		if err != nil {
			return nil, fmt.Errorf("group %d: %w", gi, err)
		}
		if cat <= last {
			return nil, fmt.Errorf("%w: group %q out of order or repeated", domain.ErrInvalidCatalog, gs.Category)
		}
		last = cat

		g := domain.Group{
			Category: cat,
			Title:    gs.Title,
			Tint:     strings.TrimSpace(gs.Tint),
		}
		if err := checkTint(g.Tint); err != nil {
			return nil, fmt.Errorf("group %s: %w", cat, err)
		}
		if g.Title == "" {
			g.Title = cat.String()
		}
		if g.Tint == "" {
			g.Tint = defaultTints[cat]
		}

		for ei, es := range gs.Entries {
			e, err := buildEntry(es, g.Tint)
			if err != nil {
				return nil, fmt.Errorf("group %s entry %d: %w", cat, ei, err)
			}
			g.Entries = append(g.Entries, e)
		}
		groups = append(groups, g)
	}

	return domain.NewCatalog(groups), nil
}

func buildEntry(es entrySchema, groupTint string) (domain.Entry, error) {
	zh := strings.TrimSpace(es.Zh)
	en := strings.TrimSpace(es.En)
	if zh == "" || en == "" {
		return domain.Entry{}, domain.ErrEmptyText
	}
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"zh_rate", es.ZhRate},
		{"en_rate", es.EnRate},
		{"zh_pitch", es.ZhPitch},
		{"en_pitch", es.EnPitch},
		{"pause", es.Pause},
	} {
		if f.v != nil && (math.IsNaN(*f.v) || math.IsInf(*f.v, 0)) {
			return domain.Entry{}, fmt.Errorf("%w: %s is not a finite number", domain.ErrInvalidCatalog, f.name)
		}
	}
	if err := checkTint(es.Tint); err != nil {
		return domain.Entry{}, err
	}

	e := domain.Entry{
		Label:        strings.TrimSpace(es.Label),
		ZhText:       zh,
		EnText:       en,
		ZhVoice:      orDefault(es.ZhVoice, domain.DefaultZhLocale),
		EnVoice:      orDefault(es.EnVoice, domain.DefaultEnLocale),
		ZhRate:       clamp(floatOr(es.ZhRate, domain.DefaultRate), domain.MinRate, domain.MaxRate),
		EnRate:       clamp(floatOr(es.EnRate, domain.DefaultRate), domain.MinRate, domain.MaxRate),
		ZhPitch:      clamp(floatOr(es.ZhPitch, domain.DefaultZhPitch), domain.MinPitch, domain.MaxPitch),
		EnPitch:      clamp(floatOr(es.EnPitch, domain.DefaultEnPitch), domain.MinPitch, domain.MaxPitch),
		PauseBetween: domain.DefaultPauseBetween,
		Tint:         orDefault(es.Tint, groupTint),
	}
	if e.Label == "" {
		e.Label = zh
	}

	if es.Pause != nil {
		if *es.Pause < 0 {
			return domain.Entry{}, fmt.Errorf("%w: negative pause %v", domain.ErrInvalidCatalog, *es.Pause)
		}
		e.PauseBetween = time.Duration(math.Round(*es.Pause * float64(time.Second)))
	}
	return e, nil
}

var tintPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// checkTint accepts an empty tint or a "#rrggbb" color.
func checkTint(t string) error {
	if t = strings.TrimSpace(t); t != "" && !tintPattern.MatchString(t) {
		return fmt.Errorf("%w: tint %q is not #rrggbb", domain.ErrInvalidCatalog, t)
	}
	return nil
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
