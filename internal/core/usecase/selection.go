package usecase

import (
	"sort"
	"strings"

	"github.com/kirillkom/bafoeg-assistant/internal/core/domain"
)

const (
	MaxPrimarySources  = 3
	MaxFallbackSources = 2

	// DomainRootTerm is the keyword that identifies the subject domain itself.
	DomainRootTerm = "bafög"
)

// domainRootSpellings covers the transliterated spelling used in file names.
var domainRootSpellings = []string{"bafög", "bafoeg"}

// SelectSources keeps positive scores, orders them by descending score
// and returns at most limit documents. Equal scores keep index order.
func SelectSources(scored []domain.ScoredDocument, limit int) []domain.KnowledgeDocument {
	if limit <= 0 {
		limit = MaxPrimarySources
	}

	positive := make([]domain.ScoredDocument, 0, len(scored))
	for _, doc := range scored {
		if doc.Score > 0 {
			positive = append(positive, doc)
		}
	}
	sort.SliceStable(positive, func(i, j int) bool {
		return positive[i].Score > positive[j].Score
	})
	if len(positive) > limit {
		positive = positive[:limit]
	}

	out := make([]domain.KnowledgeDocument, 0, len(positive))
	for _, doc := range positive {
		out = append(out, doc.KnowledgeDocument)
	}
	return out
}

// FallbackSources returns up to limit generic documents tagged with the
// domain root term, by keyword or by display name.
func FallbackSources(docs []domain.KnowledgeDocument, limit int) []domain.KnowledgeDocument {
	if limit <= 0 {
		limit = MaxFallbackSources
	}

	out := make([]domain.KnowledgeDocument, 0, limit)
	for _, doc := range docs {
		if len(out) == limit {
			break
		}
		if isDomainRootDocument(doc) {
			out = append(out, doc)
		}
	}
	return out
}

func isDomainRootDocument(doc domain.KnowledgeDocument) bool {
	for _, keyword := range doc.Keywords {
		if keyword == DomainRootTerm {
			return true
		}
	}
	name := strings.ToLower(doc.Name)
	for _, spelling := range domainRootSpellings {
		if strings.Contains(name, spelling) {
			return true
		}
	}
	return false
}

func toSources(docs []domain.KnowledgeDocument) []domain.Source {
	out := make([]domain.Source, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.Source())
	}
	return out
}
