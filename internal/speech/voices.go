package speech

import (
	"sort"
	"sync"

	"golang.org/x/text/language"

	"github.com/hammamikhairi/metrovox/internal/domain"
	"github.com/hammamikhairi/metrovox/internal/logger"
)

// VoiceTable maps BCP-47 locale tags to backend voice names.
type VoiceTable map[string]string

// With returns a copy of t with overrides applied. Empty values are ignored.
func (t VoiceTable) With(overrides map[string]string) VoiceTable {
	out := make(VoiceTable, len(t)+len(overrides))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range overrides {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Default voice tables per backend.
var (
	AzureVoices = VoiceTable{
		"zh-TW": "zh-TW-HsiaoChenNeural",
		"zh-CN": "zh-CN-XiaoxiaoNeural",
		"en-US": "en-US-AvaNeural",
		"en-GB": "en-GB-SoniaNeural",
	}

	EdgeVoices = VoiceTable{
		"zh-TW": "zh-TW-HsiaoChenNeural",
		"zh-CN": "zh-CN-XiaoxiaoNeural",
		"en-US": "en-US-AriaNeural",
		"en-GB": "en-GB-SoniaNeural",
	}

	// Tencent voices are numeric voice types.
	TencentVoices = VoiceTable{
		"zh-TW": "1001",
		"zh-CN": "1001",
		"en-US": "1051",
	}
)

// VoiceResolver picks a concrete voice for a requested locale.
//
// Locales are matched with the CLDR matcher, so "zh-Hant-TW" resolves to a
// "zh-TW" voice. A locale with no acceptable match, or one that does not
// parse, gets the fallback voice. The first fallback for each locale is
// logged as a warning; it is never an error.
type VoiceResolver struct {
	voices   []domain.Voice
	matcher  language.Matcher
	fallback domain.Voice
	log      *logger.Logger

	mu     sync.Mutex
	warned map[string]bool
}

// NewVoiceResolver builds a resolver over table. fallbackLocale selects the
// default voice; if the table has no such entry, the first locale in sorted
// order is used.
func NewVoiceResolver(table VoiceTable, fallbackLocale string, log *logger.Logger) *VoiceResolver {
	locales := make([]string, 0, len(table))
	for loc := range table {
		locales = append(locales, loc)
	}
	sort.Strings(locales)

	r := &VoiceResolver{
		log:    log,
		warned: make(map[string]bool),
	}

	var tags []language.Tag
	for _, loc := range locales {
		tag, err := language.Parse(loc)
		if err != nil {
			log.Warn("voices: skipping unparsable locale %q: %v", loc, err)
			continue
		}
		tags = append(tags, tag)
		r.voices = append(r.voices, domain.Voice{Name: table[loc], Locale: loc})
	}

	if name, ok := table[fallbackLocale]; ok {
		r.fallback = domain.Voice{Name: name, Locale: fallbackLocale}
	} else if len(r.voices) > 0 {
		r.fallback = r.voices[0]
	}
	if len(tags) > 0 {
		r.matcher = language.NewMatcher(tags)
	}
	return r
}

// Fallback returns the voice used when nothing matches.
func (r *VoiceResolver) Fallback() domain.Voice { return r.fallback }

// Resolve returns the voice for locale.
func (r *VoiceResolver) Resolve(locale string) domain.Voice {
	if r.matcher == nil {
		return r.fallback
	}
	tag, err := language.Parse(locale)
	if err != nil {
		r.warnOnce(locale, "unparsable locale")
		return r.fallback
	}
	_, idx, conf := r.matcher.Match(tag)
	if conf == language.No || idx < 0 || idx >= len(r.voices) {
		r.warnOnce(locale, "no matching voice")
		return r.fallback
	}
	return r.voices[idx]
}

func (r *VoiceResolver) warnOnce(locale, reason string) {
	r.mu.Lock()
	seen := r.warned[locale]
	r.warned[locale] = true
	r.mu.Unlock()

	if !seen {
		r.log.Warn("voices: %s for %q, using default voice %s", reason, locale, r.fallback.Name)
	}
}
