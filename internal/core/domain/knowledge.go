package domain

import (
	"strings"
	"time"
)

type KnowledgeDocument struct {
	Name     string   `json:"name"`
	URL      string   `json:"url"`
	File     string   `json:"file"`
	Keywords []string `json:"keywords"`
	Preview  string   `json:"preview,omitempty"`
}

func (d KnowledgeDocument) Source() Source {
	return Source{Name: d.Name, URL: d.URL, File: d.File}
}

// Source is the citation attached to an answer.
type Source struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	File string `json:"file"`
}

type ScoredDocument struct {
	KnowledgeDocument
	Score int `json:"score"`
}

// ScoringWeights are the heuristic match weights used by the relevance scorer.
// MinPartialLength gates the substring rules: the shorter side of a partial
// match must be longer than this many runes.
type ScoringWeights struct {
	Exact                int `yaml:"exact"`
	KeywordContainsToken int `yaml:"keyword_contains_token"`
	TokenContainsKeyword int `yaml:"token_contains_keyword"`
	NameMatch            int `yaml:"name_match"`
	MinPartialLength     int `yaml:"min_partial_length"`
}

func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		Exact:                10,
		KeywordContainsToken: 5,
		TokenContainsKeyword: 3,
		NameMatch:            15,
		MinPartialLength:     3,
	}
}

// KnowledgeIndex is the read-only set of citable documents for a session.
type KnowledgeIndex struct {
	docs []KnowledgeDocument
}

// NewKnowledgeIndex copies docs and lower-cases their keywords.
func NewKnowledgeIndex(docs []KnowledgeDocument) *KnowledgeIndex {
	out := make([]KnowledgeDocument, 0, len(docs))
	for _, doc := range docs {
		keywords := make([]string, 0, len(doc.Keywords))
		for _, keyword := range doc.Keywords {
			keyword = strings.ToLower(strings.TrimSpace(keyword))
			if keyword == "" {
				continue
			}
			keywords = append(keywords, keyword)
		}
		doc.Keywords = keywords
		out = append(out, doc)
	}
	return &KnowledgeIndex{docs: out}
}

func (i *KnowledgeIndex) Len() int {
	if i == nil {
		return 0
	}
	return len(i.docs)
}

// Documents returns the indexed documents in load order. Callers must not
// modify the returned slice.
func (i *KnowledgeIndex) Documents() []KnowledgeDocument {
	if i == nil {
		return nil
	}
	return i.docs
}

// StoredObject describes one file of the knowledge base directory.
type StoredObject struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// IndexBuildReport summarizes one knowledge index build.
type IndexBuildReport struct {
	Documents []KnowledgeDocument
	Skipped   []string
}

func (r IndexBuildReport) TotalKeywords() int {
	total := 0
	for _, doc := range r.Documents {
		total += len(doc.Keywords)
	}
	return total
}
