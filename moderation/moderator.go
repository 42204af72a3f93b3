// Package moderation censors banned vocabulary in message text before it
// reaches the log. Matching runs over a normalized projection of the input
// (case-folded, noise stripped, leet speak reverted) while replacement is
// applied to the original runes, so spacing and casing survive.
package moderation

import (
	"unicode"

	"convo/errors"

	goahocorasick "github.com/anknown/ahocorasick"
)

type Moderator struct {
	machine     *goahocorasick.Machine
	replacement rune
}

// NewModerator builds the Aho-Corasick automaton from the banned word list.
func NewModerator(bannedWords []string, replacement rune) (*Moderator, error) {
	if len(bannedWords) == 0 {
		return nil, errors.ErrEmptyWords
	}

	patterns := make([][]rune, 0, len(bannedWords))
	for _, word := range bannedWords {
		normalized, _ := normalize([]rune(word))
		if len(normalized) > 0 {
			patterns = append(patterns, normalized)
		}
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{machine: machine, replacement: replacement}, nil
}

// Censor replaces every banned span with the replacement rune and returns
// the sanitized text along with the matched words.
func (m *Moderator) Censor(original string) (string, []string) {
	origRunes := []rune(original)
	normalized, origIdx := normalize(origRunes)
	if len(normalized) == 0 {
		return original, nil
	}

	spans := m.machine.MultiPatternSearch(normalized, false)
	if len(spans) == 0 {
		return original, nil
	}

	found := make([]string, 0, len(spans))
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(origIdx) {
			continue
		}
		found = append(found, string(span.Word))

		// Map the normalized span back onto the original rune range.
		for i := origIdx[start]; i <= origIdx[end-1]; i++ {
			origRunes[i] = m.replacement
		}
	}
	return string(origRunes), found
}

// normalize lowercases, reverts common leet substitutions and drops
// punctuation, spacing and symbols. The second return value maps each
// normalized rune back to its index in the input.
func normalize(input []rune) ([]rune, []int) {
	norm := make([]rune, 0, len(input))
	origIdx := make([]int, 0, len(input))
	for i, r := range input {
		r = unleet(r)
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		norm = append(norm, unicode.ToLower(r))
		origIdx = append(origIdx, i)
	}
	return norm, origIdx
}

func unleet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	case '7':
		return 't'
	}
	return r
}
