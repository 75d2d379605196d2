package align

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	// stemMinLength is the shortest word that may match through its stem.
	stemMinLength = 4
	// stemSubstringMinLength is the length a word must exceed before its stem may match
	// anywhere inside another word.
	stemSubstringMinLength = 5
)

// matcher decides whether a normalized script word and a heard word are the same word.
type matcher struct {
	phonetic bool
}

func (m matcher) match(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) < stemMinLength || len(b) < stemMinLength {
		return false
	}
	if strings.HasPrefix(a, stem(b)) || strings.HasPrefix(b, stem(a)) {
		return true
	}
	if len(a) > stemSubstringMinLength && strings.Contains(b, stem(a)) {
		return true
	}
	if len(b) > stemSubstringMinLength && strings.Contains(a, stem(b)) {
		return true
	}
	if m.phonetic {
		return soundsAlike(a, b)
	}
	return false
}

func stem(w string) string {
	return w[:len(w)-1]
}

// soundsAlike reports whether the Double Metaphone codes of a and b share a non-empty code.
func soundsAlike(a, b string) bool {
	ap, as := matchr.DoubleMetaphone(a)
	bp, bs := matchr.DoubleMetaphone(b)
	for _, x := range []string{ap, as} {
		if x == "" {
			continue
		}
		if x == bp || x == bs {
			return true
		}
	}
	return false
}
