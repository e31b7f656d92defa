// Package moderation screens user-written statements.
package moderation

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/pscheid92/decept/internal/domain"
)

var _ domain.ContentFilter = (*Filter)(nil)

var defaultBannedWords = []string{
	"ass", "asshole", "bastard", "bitch", "bollocks", "bullshit",
	"cock", "crap", "cunt", "damn", "dick", "dickhead",
	"fag", "faggot", "fuck", "goddamn", "hell", "hoe",
	"jerk", "kike", "motherfucker", "negro", "nigga", "nigger",
	"piss", "prick", "pussy", "retard", "shit", "slut",
	"twat", "whore", "wanker",
}

// leetReplacer undoes common character substitutions before matching.
var leetReplacer = strings.NewReplacer(
	"@", "a",
	"0", "o",
	"1", "i",
	"3", "e",
	"$", "s",
	"5", "s",
	"7", "t",
	"!", "i",
	"+", "t",
)

// Filter matches a static word list against a normalised form of the text:
// lower-cased, leet characters mapped back to letters and everything outside
// a-z removed. Matching is by substring, so words split by spaces or
// punctuation are still caught.
type Filter struct {
	words  []string
	policy *bluemonday.Policy
}

// NewFilter builds a filter over the given words, or the default list when
// none are passed.
func NewFilter(words ...string) *Filter {
	if len(words) == 0 {
		words = defaultBannedWords
	}
	normalised := make([]string, 0, len(words))
	for _, w := range words {
		if n := normalize(w); n != "" {
			normalised = append(normalised, n)
		}
	}
	return &Filter{words: normalised, policy: bluemonday.StrictPolicy()}
}

// Sanitize drops every HTML element and returns the remaining text unescaped,
// so "Tom &amp; Jerry" and "Tom & Jerry" end up the same.
func (f *Filter) Sanitize(text string) string {
	return html.UnescapeString(f.policy.Sanitize(text))
}

func (f *Filter) IsClean(text string) bool {
	n := normalize(text)
	for _, w := range f.words {
		if strings.Contains(n, w) {
			return false
		}
	}
	return true
}

func normalize(text string) string {
	mapped := leetReplacer.Replace(strings.ToLower(text))
	var b strings.Builder
	b.Grow(len(mapped))
	for i := 0; i < len(mapped); i++ {
		if c := mapped[i]; c >= 'a' && c <= 'z' {
			b.WriteByte(c)
		}
	}
	return b.String()
}
