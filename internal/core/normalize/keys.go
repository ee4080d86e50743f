// Package normalize converts untrusted scoring-service text into a
// validated domain.ScoreCard. Provider replies drift in wrapping, key
// naming, and field presence across providers and prompt revisions, so
// every lookup here is alias-driven and insensitive to case and word
// separators.
package normalize

import "strings"

// canonKey lowers a JSON key and strips spaces, underscores, and hyphens
// so that "Pulse_Score", "pulse score", and "PulseScore" all collapse to
// "pulsescore".
func canonKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
		switch r {
		case ' ', '_', '-':
			continue
		}
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// aliasSet is a closed set of field spellings matched through canonKey.
type aliasSet map[string]struct{}

func newAliasSet(aliases ...string) aliasSet {
	s := make(aliasSet, len(aliases))
	for _, a := range aliases {
		s[canonKey(a)] = struct{}{}
	}
	return s
}

func (s aliasSet) matches(key string) bool {
	_, ok := s[canonKey(key)]
	return ok
}

// displayName turns a raw JSON key into a category label: separators
// become single spaces, camelCase boundaries split, and each word is
// title-cased. "rhythm_quality" and "RhythmQuality" both yield
// "Rhythm Quality".
func displayName(key string) string {
	words := splitWords(key)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func splitWords(key string) []string {
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	prevLower := false
	for _, r := range key {
		switch {
		case r == ' ' || r == '_' || r == '-':
			flush()
			prevLower = false
		case r >= 'A' && r <= 'Z':
			if prevLower {
				flush()
			}
			cur.WriteRune(r)
			prevLower = false
		default:
			cur.WriteRune(r)
			prevLower = true
		}
	}
	flush()
	return words
}
