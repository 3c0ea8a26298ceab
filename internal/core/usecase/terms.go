package usecase

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// termMappings expands English question words into the German terms used by
// the knowledge index.
var termMappings = map[string]string{
	"study":       "studium",
	"studies":     "studium",
	"application": "antrag",
	"apply":       "antrag",
	"money":       "förderung",
	"funding":     "förderung",
	"age":         "altersgrenze",
	"limit":       "grenze",
	"abroad":      "ausland",
	"foreign":     "ausland",
	"income":      "einkommen",
	"parents":     "eltern",
	"repayment":   "rückzahlung",
	"amount":      "höhe",
	"loan":        "darlehen",
	"grant":       "zuschuss",
	"bafoeg":      "bafög",
	"bafög":       "bafög",
}

const minTermLength = 3

// TermSet is the expanded, de-duplicated set of matchable question terms.
type TermSet map[string]struct{}

func (s TermSet) Contains(term string) bool {
	_, ok := s[term]
	return ok
}

// Sorted returns the terms in lexical order.
func (s TermSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for term := range s {
		out = append(out, term)
	}
	sort.Strings(out)
	return out
}

// ExpandTerms lower-cases the question, keeps letters of the German alphabet,
// drops words of two runes or less and adds the mapped German equivalents.
func ExpandTerms(question string) TermSet {
	normalized := strings.Map(func(r rune) rune {
		if isTermRune(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, strings.ToLower(question))

	words := strings.Fields(normalized)
	terms := make(TermSet, len(words))
	kept := words[:0]
	for _, word := range words {
		if utf8.RuneCountInString(word) < minTermLength {
			continue
		}
		terms[word] = struct{}{}
		kept = append(kept, word)
	}
	for _, word := range kept {
		if mapped, ok := termMappings[word]; ok {
			terms[mapped] = struct{}{}
		}
	}
	return terms
}

func isTermRune(r rune) bool {
	if r >= 'a' && r <= 'z' {
		return true
	}
	switch r {
	case 'ä', 'ö', 'ü', 'ß':
		return true
	}
	return false
}
