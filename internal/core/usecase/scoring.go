package usecase

import (
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/bafoeg-assistant/internal/core/domain"
)

// ScoreDocuments scores every document against the expanded terms. The
// result keeps the index order of docs.
func ScoreDocuments(terms TermSet, docs []domain.KnowledgeDocument, weights domain.ScoringWeights) []domain.ScoredDocument {
	ordered := terms.Sorted()
	out := make([]domain.ScoredDocument, 0, len(docs))
	for _, doc := range docs {
		out = append(out, domain.ScoredDocument{
			KnowledgeDocument: doc,
			Score:             scoreDocument(ordered, doc, weights),
		})
	}
	return out
}

func scoreDocument(terms []string, doc domain.KnowledgeDocument, weights domain.ScoringWeights) int {
	score := 0
	for _, keyword := range doc.Keywords {
		keywordLen := utf8.RuneCountInString(keyword)
		for _, term := range terms {
			switch {
			case keyword == term:
				score += weights.Exact
			case strings.Contains(keyword, term) && utf8.RuneCountInString(term) > weights.MinPartialLength:
				score += weights.KeywordContainsToken
			case strings.Contains(term, keyword) && keywordLen > weights.MinPartialLength:
				score += weights.TokenContainsKeyword
			}
		}
	}

	name := strings.ToLower(doc.Name)
	for _, term := range terms {
		if utf8.RuneCountInString(term) > weights.MinPartialLength && strings.Contains(name, term) {
			score += weights.NameMatch
		}
	}
	return score
}
