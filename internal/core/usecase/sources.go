package usecase

import "github.com/kirillkom/bafoeg-assistant/internal/core/domain"

// Selection is the outcome of source attribution for one question.
type Selection struct {
	Documents []domain.KnowledgeDocument
	Fallback  bool
}

func (s Selection) Sources() []domain.Source {
	return toSources(s.Documents)
}

// SourceFinder attributes questions to documents of a read-only index.
type SourceFinder struct {
	index   *domain.KnowledgeIndex
	weights domain.ScoringWeights
}

func NewSourceFinder(index *domain.KnowledgeIndex, weights domain.ScoringWeights) *SourceFinder {
	if index == nil {
		index = domain.NewKnowledgeIndex(nil)
	}
	return &SourceFinder{index: index, weights: weights}
}

func (f *SourceFinder) IndexSize() int {
	return f.index.Len()
}

// Rank scores the whole index for question, in index order.
func (f *SourceFinder) Rank(question string) []domain.ScoredDocument {
	return ScoreDocuments(ExpandTerms(question), f.index.Documents(), f.weights)
}

// Relevant returns the primary matches only.
func (f *SourceFinder) Relevant(question string) []domain.KnowledgeDocument {
	if f.index.Len() == 0 {
		return []domain.KnowledgeDocument{}
	}
	return SelectSources(f.Rank(question), MaxPrimarySources)
}

// Select returns the primary matches, or the generic domain documents when
// nothing scored.
func (f *SourceFinder) Select(question string) Selection {
	docs := f.Relevant(question)
	if len(docs) > 0 || f.index.Len() == 0 {
		return Selection{Documents: docs}
	}
	return Selection{
		Documents: FallbackSources(f.index.Documents(), MaxFallbackSources),
		Fallback:  true,
	}
}
