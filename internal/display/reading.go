package display

import (
	"strings"

	"github.com/mozillazg/go-pinyin"
)

// reading returns the tone-marked pinyin for the Han characters in text.
// Anything else is dropped.
func reading(text string) string {
	args := pinyin.NewArgs()
	args.Style = pinyin.Tone

	var syllables []string
	for _, s := range pinyin.Pinyin(text, args) {
		if len(s) > 0 {
			syllables = append(syllables, s[0])
		}
	}
	return strings.Join(syllables, " ")
}
