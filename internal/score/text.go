package score

import (
	"math"
	"strings"
	"unicode"
)

// stopwords are dropped before PICO token overlap
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true, "that": true,
	"this": true, "are": true, "was": true, "were": true, "who": true, "its": true,
	"into": true, "than": true, "per": true, "all": true, "any": true, "not": true,
}

// hasTerm reports whether term occurs in text on word boundaries (case-insensitive)
func hasTerm(text, term string) bool {
	text = strings.ToLower(text)
	term = strings.ToLower(term)
	if term == "" {
		return false
	}

	for start := 0; start < len(text); {
		idx := strings.Index(text[start:], term)
		if idx < 0 {
			return false
		}
		begin := start + idx
		end := begin + len(term)
		if boundaryBefore(text, begin) && boundaryAfter(text, end) {
			return true
		}
		start = begin + 1
	}
	return false
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r := rune(text[i-1])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r := rune(text[i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// matchedTerms returns the terms found in text, in list order
func matchedTerms(text string, terms []string) []string {
	var found []string
	for _, term := range terms {
		if hasTerm(text, term) {
			found = append(found, term)
		}
	}
	return found
}

// tokens splits text into lowercase content words with a crude plural strip
func tokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var out []string
	seen := make(map[string]bool)
	for _, f := range fields {
		if len(f) < 3 || stopwords[f] {
			continue
		}
		if len(f) > 3 && strings.HasSuffix(f, "s") {
			f = strings.TrimSuffix(f, "s")
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

func round(x float64) int {
	return int(math.Round(x))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
