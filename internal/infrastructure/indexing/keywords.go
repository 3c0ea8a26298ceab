package indexing

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// germanTerms and englishTerms are searched in the document text. Hits become
// keywords next to the file name parts.
var (
	germanTerms = []string{
		"bafög", "förderung", "antrag", "student", "studium", "ausbildung",
		"einkommen", "eltern", "vermögen", "rückzahlung", "höhe", "betrag",
		"altersgrenze", "ausland", "darlehen", "zuschuss", "bedarfssatz",
		"studienstarthilfe", "studienabschluss", "formblatt", "amt",
		"förderungsdauer", "förderungshöchstdauer", "fachrichtung",
		"flexibilitätssemester", "leistungsbescheinigung",
	}
	englishTerms = []string{
		"funding", "application", "study", "education", "income",
		"parents", "assets", "repayment", "amount", "age limit",
		"abroad", "loan", "grant", "form", "office",
	}
)

const previewLength = 200

var nameReplacer = strings.NewReplacer("-", " ", "_", " ")

// nameParts splits a file name without extension on dashes and underscores.
func nameParts(file string) []string {
	stem := strings.TrimSuffix(file, filepath.Ext(file))
	return strings.Fields(nameReplacer.Replace(stem))
}

// ExtractKeywords returns the lower-cased file name parts followed by every
// known term found in text, without duplicates, in first-seen order.
func ExtractKeywords(file, text string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, 16)
	add := func(keyword string) {
		if _, ok := seen[keyword]; ok {
			return
		}
		seen[keyword] = struct{}{}
		out = append(out, keyword)
	}

	for _, part := range nameParts(file) {
		add(strings.ToLower(part))
	}

	lower := strings.ToLower(text)
	for _, terms := range [][]string{germanTerms, englishTerms} {
		for _, term := range terms {
			if strings.Contains(lower, term) {
				add(term)
			}
		}
	}
	return out
}

// DisplayName title-cases the file name parts: "bafoeg_hoehe.txt" becomes
// "Bafoeg Hoehe".
func DisplayName(file string) string {
	return cases.Title(language.German).String(strings.Join(nameParts(file), " "))
}

// Preview flattens the first 200 runes of text to one line and marks
// truncation with "...".
func Preview(text string) string {
	head := text
	truncated := utf8.RuneCountInString(text) > previewLength
	if truncated {
		head = string([]rune(text)[:previewLength])
	}
	head = strings.TrimSpace(strings.ReplaceAll(head, "\n", " "))
	if truncated {
		head += "..."
	}
	return head
}
