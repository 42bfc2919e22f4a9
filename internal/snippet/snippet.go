// Package snippet extracts a short, emphasized excerpt of a document's
// text around the first occurrence of any query term, for display next
// to a search result.
package snippet

import (
	"html"
	"strings"
	"unicode"
)

// MaxLen is the maximum length, in runes, of an extracted window.
const MaxLen = 240

// Extract returns an HTML-safe snippet of text, with the first token
// that case-insensitively matches one of queryTerms wrapped in
// <em>...</em>; later matching tokens inside the window are escaped but
// not emphasized. The window is centered on that first match, snapped outward to word boundaries and truncated
// with "…" markers when it does not reach an edge of text. If no query
// term appears in text, the first MaxLen runes are returned verbatim
// (HTML-escaped, no emphasis).
func Extract(text string, queryTerms []string) string {
	runes := []rune(text)
	wanted := make(map[string]struct{}, len(queryTerms))
	for _, t := range queryTerms {
		wanted[strings.ToLower(t)] = struct{}{}
	}

	start, end, matchLo, matchHi, found := firstMatch(runes, wanted)
	if !found {
		return html.EscapeString(string(clip(runes, 0, MaxLen)))
	}

	winStart, winEnd := window(runes, start, end, MaxLen)

	var b strings.Builder
	if winStart > 0 {
		b.WriteString("…")
	}
	b.WriteString(html.EscapeString(string(runes[winStart:matchLo])))
	b.WriteString("<em>")
	b.WriteString(html.EscapeString(string(runes[matchLo:matchHi])))
	b.WriteString("</em>")
	b.WriteString(html.EscapeString(string(runes[matchHi:winEnd])))
	if winEnd < len(runes) {
		b.WriteString("…")
	}
	return b.String()
}

// firstMatch scans runes for the first maximal run of letter/digit
// runes whose lowercased form is in wanted. It returns the token's
// rune-index bounds twice: (start,end) and (matchLo,matchHi) are
// identical here, kept distinct only for readability at call sites.
func firstMatch(runes []rune, wanted map[string]struct{}) (start, end, matchLo, matchHi int, found bool) {
	i := 0
	for i < len(runes) {
		if !isWordRune(runes[i]) {
			i++
			continue
		}
		j := i
		for j < len(runes) && isWordRune(runes[j]) {
			j++
		}
		tok := strings.ToLower(string(runes[i:j]))
		if _, ok := wanted[tok]; ok {
			return i, j, i, j, true
		}
		i = j
	}
	return 0, 0, 0, 0, false
}

// window computes a [start,end) rune range of at most maxLen centered
// on [matchStart,matchEnd), snapped outward to the nearest word
// boundary (a non-letter/digit rune) so words are never cut mid-token.
func window(runes []rune, matchStart, matchEnd, maxLen int) (int, int) {
	matchLen := matchEnd - matchStart
	if matchLen >= maxLen {
		return matchStart, matchEnd
	}

	slack := maxLen - matchLen
	before := slack / 2
	after := slack - before

	start := matchStart - before
	end := matchEnd + after

	if start < 0 {
		end += -start
		start = 0
	}
	if end > len(runes) {
		start -= end - len(runes)
		end = len(runes)
		if start < 0 {
			start = 0
		}
	}

	start = snapStartToWordBoundary(runes, start, matchStart)
	end = snapEndToWordBoundary(runes, end, matchEnd)

	return start, end
}

func snapStartToWordBoundary(runes []rune, start, limit int) int {
	for start > 0 && start < limit && isWordRune(runes[start]) && isWordRune(runes[start-1]) {
		start--
	}
	return start
}

func snapEndToWordBoundary(runes []rune, end, limit int) int {
	for end < len(runes) && end > limit && isWordRune(runes[end]) && isWordRune(runes[end-1]) {
		end++
	}
	return end
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func clip(runes []rune, start, maxLen int) []rune {
	end := start + maxLen
	if end > len(runes) {
		end = len(runes)
	}
	return runes[start:end]
}
