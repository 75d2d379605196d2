// Package script segments teleprompter text into words and sentences with matching keys.
package script

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	paragraphSplit  = regexp.MustCompile(`\n\s*\n`)
	sentencePattern = regexp.MustCompile(`[^.!?]*[.!?]+\s*`)
)

// Word is one whitespace-delimited token of the script.
type Word struct {
	Text                string
	Normalized          string
	Sentence            int
	ParagraphBreakAfter bool
}

// SentenceBound is an inclusive word-index range.
type SentenceBound struct {
	Start int
	End   int
}

// Script is the parsed, immutable form of one script text.
type Script struct {
	Text      string
	Words     []Word
	Sentences []SentenceBound
}

// Parse segments text into words and sentence bounds. It is a pure function of text.
func Parse(text string) Script {
	s := Script{Text: text}

	paragraphs := paragraphSplit.Split(text, -1)
	sentence := 0
	for p, para := range paragraphs {
		for _, raw := range splitSentences(para) {
			start := len(s.Words)
			for _, token := range strings.Fields(raw) {
				s.Words = append(s.Words, Word{
					Text:       token,
					Normalized: Normalize(token),
					Sentence:   sentence,
				})
			}
			if len(s.Words) > start {
				s.Sentences = append(s.Sentences, SentenceBound{Start: start, End: len(s.Words) - 1})
				sentence++
			}
		}

		if len(s.Words) > 0 && p < len(paragraphs)-1 {
			s.Words[len(s.Words)-1].ParagraphBreakAfter = true
		}
	}

	return s
}

// splitSentences returns the terminator-delimited sentences of para. Text after the last
// terminator is dropped; a paragraph with no terminator at all is one sentence.
func splitSentences(para string) []string {
	sentences := sentencePattern.FindAllString(para, -1)
	if len(sentences) == 0 {
		return []string{para}
	}
	return sentences
}

// Normalize lowercases s and drops every character outside [a-z0-9].
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeWords splits text on whitespace and normalizes each token, dropping empties.
func NormalizeWords(text string) []string {
	fields := strings.Fields(text)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if n := Normalize(f); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the word count.
func (s Script) Len() int {
	return len(s.Words)
}

// Empty reports whether the script has no words.
func (s Script) Empty() bool {
	return len(s.Words) == 0
}

// Identity is a cheap fingerprint used to decide when consumers need the word list again.
func (s Script) Identity() string {
	if len(s.Words) == 0 {
		return "0::"
	}
	return fmt.Sprintf("%d:%s:%s", len(s.Words), s.Words[0].Text, s.Words[len(s.Words)-1].Text)
}

// Texts returns the display text of every word in order.
func (s Script) Texts() []string {
	out := make([]string, len(s.Words))
	for i, w := range s.Words {
		out[i] = w.Text
	}
	return out
}

// ParagraphBreaks returns the indices of words followed by a blank line.
func (s Script) ParagraphBreaks() []int {
	out := make([]int, 0)
	for i, w := range s.Words {
		if w.ParagraphBreakAfter {
			out = append(out, i)
		}
	}
	return out
}
