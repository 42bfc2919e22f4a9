// Package tokenizer implements the deterministic text-to-term pipeline
// shared by the indexer and the query engine. It is a pure function with
// no dependency on index state: the same string always yields the same
// term sequence, at build time and at query time alike.
package tokenizer

import (
	"strings"
	"unicode"
)

// minTermLen and maxTermLen bound admissible token length.
const (
	minTermLen = 2
	maxTermLen = 40
)

// stopwords is the fixed English stop-word list, kept small and
// enumerated in code: this exact list is a pinned design decision, not
// an implementation detail.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "of": {}, "and": {}, "or": {}, "but": {},
	"if": {}, "to": {}, "in": {}, "on": {}, "for": {}, "with": {}, "is": {},
	"are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "being": {},
	"as": {}, "at": {}, "by": {}, "it": {}, "this": {}, "that": {},
}

// IsStopword reports whether term is on the fixed stop-word list. Exposed
// so the snippet extractor and the query engine can reason about the same
// list without re-tokenizing.
func IsStopword(term string) bool {
	_, ok := stopwords[term]
	return ok
}

// Tokenize applies the following rules, in order: ASCII case-fold,
// split on runs of non letter/digit runes (apostrophes split the word
// they sit inside, matching "don't" -> "don", "t"), discard tokens
// outside [minTermLen, maxTermLen], discard stop-words. No stemming.
//
// Tokenize must be called identically at build and query time; any
// asymmetry between the two call sites is a defect.
func Tokenize(text string) []string {
	terms := make([]string, 0, len(text)/5)

	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		term := b.String()
		b.Reset()
		n := len([]rune(term))
		if n < minTermLen || n > maxTermLen {
			return
		}
		if IsStopword(term) {
			return
		}
		terms = append(terms, term)
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(foldASCII(r))
			continue
		}
		// Every other rune, including apostrophes, is a splitter.
		flush()
	}
	flush()

	return terms
}

// foldASCII lowercases ASCII letters only. Non-ASCII letters pass through
// unchanged: this is deliberately ASCII-only case-folding so behavior is
// deterministic and does not depend on locale-specific Unicode tables.
func foldASCII(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r - 'A' + 'a'
	}
	return r
}

// TermFrequencies tokenizes text and returns the raw occurrence count of
// each distinct term.
func TermFrequencies(text string) map[string]int {
	terms := Tokenize(text)
	tf := make(map[string]int, len(terms))
	for _, t := range terms {
		tf[t]++
	}
	return tf
}
