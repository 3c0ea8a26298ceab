package usecase

import (
	"strings"
	"testing"

	"github.com/kirillkom/bafoeg-assistant/internal/core/domain"
)

func testIndex() *domain.KnowledgeIndex {
	return domain.NewKnowledgeIndex([]domain.KnowledgeDocument{
		{Name: "Bafög Allgemein", URL: "https://example.org/bafoeg", File: "bafoeg_allgemein.txt", Keywords: []string{"bafög", "förderung"}},
		{Name: "Ausland", URL: "https://example.org/ausland", File: "ausland.txt", Keywords: []string{"ausland", "studium"}},
		{Name: "Altersgrenzen", URL: "https://example.org/alter", File: "altersgrenzen.txt", Keywords: []string{"altersgrenze", "grenze"}},
		{Name: "Rückzahlung", URL: "https://example.org/rueck", File: "rueckzahlung.txt", Keywords: []string{"rückzahlung", "darlehen"}},
		{Name: "Formblätter", URL: "https://example.org/form", File: "formblaetter.txt", Keywords: []string{"formblatt", "antrag"}},
	})
}

func TestScoreDocumentsAgeLimitScenario(t *testing.T) {
	index := testIndex()
	scored := ScoreDocuments(ExpandTerms("What is the maximum BAföG funding age limit?"), index.Documents(), domain.DefaultScoringWeights())

	var age domain.ScoredDocument
	for _, doc := range scored {
		if doc.Name == "Altersgrenzen" {
			age = doc
		}
	}
	if age.Score != 58 {
		t.Fatalf("unexpected score: got=%d want=58", age.Score)
	}

	top := SelectSources(scored, MaxPrimarySources)
	if len(top) == 0 || top[0].Name != "Altersgrenzen" {
		t.Fatalf("expected Altersgrenzen first, got %+v", top)
	}
}

func TestScoreDocumentsExactBeatsPartial(t *testing.T) {
	docs := domain.NewKnowledgeIndex([]domain.KnowledgeDocument{
		{Name: "A", Keywords: []string{"darlehensrechner"}},
		{Name: "B", Keywords: []string{"darlehen"}},
	}).Documents()

	scored := ScoreDocuments(ExpandTerms("darlehen"), docs, domain.DefaultScoringWeights())
	if scored[0].Score != 5 || scored[1].Score != 10 {
		t.Fatalf("unexpected scores: partial=%d exact=%d", scored[0].Score, scored[1].Score)
	}
}

func TestScoreDocumentsPartialGate(t *testing.T) {
	docs := []domain.KnowledgeDocument{{Name: "X", Keywords: []string{"amt", "amtsgericht"}}}
	// "amt" is exact; the three-rune term is too short for the substring rule.
	scored := ScoreDocuments(ExpandTerms("amt"), docs, domain.DefaultScoringWeights())
	if scored[0].Score != 10 {
		t.Fatalf("unexpected score: %d", scored[0].Score)
	}
}

func TestScoreDocumentsUsesConfiguredWeights(t *testing.T) {
	weights := domain.ScoringWeights{Exact: 1, KeywordContainsToken: 0, TokenContainsKeyword: 0, NameMatch: 100, MinPartialLength: 3}
	docs := []domain.KnowledgeDocument{{Name: "Studium", Keywords: []string{"studium"}}}
	scored := ScoreDocuments(ExpandTerms("studium"), docs, weights)
	if scored[0].Score != 101 {
		t.Fatalf("unexpected score: %d", scored[0].Score)
	}
}

func TestSelectSourcesCapsAndKeepsIndexOrderOnTies(t *testing.T) {
	scored := []domain.ScoredDocument{
		{KnowledgeDocument: domain.KnowledgeDocument{Name: "a"}, Score: 5},
		{KnowledgeDocument: domain.KnowledgeDocument{Name: "b"}, Score: 0},
		{KnowledgeDocument: domain.KnowledgeDocument{Name: "c"}, Score: 9},
		{KnowledgeDocument: domain.KnowledgeDocument{Name: "d"}, Score: 5},
		{KnowledgeDocument: domain.KnowledgeDocument{Name: "e"}, Score: 5},
	}
	top := SelectSources(scored, MaxPrimarySources)
	if len(top) != 3 {
		t.Fatalf("expected 3 sources, got %d", len(top))
	}
	if top[0].Name != "c" || top[1].Name != "a" || top[2].Name != "d" {
		t.Fatalf("unexpected order: %+v", top)
	}
}

func TestFallbackSourcesMatchesRootTermAndSpellings(t *testing.T) {
	docs := []domain.KnowledgeDocument{
		{Name: "Ausland", Keywords: []string{"ausland"}},
		{Name: "Bafoeg Reform", Keywords: []string{"reform"}},
		{Name: "Allgemein", Keywords: []string{"bafög"}},
		{Name: "BAföG Rechner", Keywords: []string{"rechner"}},
	}
	got := FallbackSources(docs, MaxFallbackSources)
	if len(got) != 2 || got[0].Name != "Bafoeg Reform" || got[1].Name != "Allgemein" {
		t.Fatalf("unexpected fallback: %+v", got)
	}
}

func TestSourceFinderFallsBackWhenNothingScores(t *testing.T) {
	finder := NewSourceFinder(testIndex(), domain.DefaultScoringWeights())
	selection := finder.Select("hello world")
	if !selection.Fallback {
		t.Fatalf("expected fallback selection")
	}
	sources := selection.Sources()
	if len(sources) != 1 || sources[0].File != "bafoeg_allgemein.txt" {
		t.Fatalf("unexpected fallback sources: %+v", sources)
	}
}

func TestSourceFinderEmptyIndex(t *testing.T) {
	for _, index := range []*domain.KnowledgeIndex{nil, domain.NewKnowledgeIndex(nil)} {
		finder := NewSourceFinder(index, domain.DefaultScoringWeights())
		selection := finder.Select("What is BAföG?")
		if selection.Fallback || len(selection.Documents) != 0 {
			t.Fatalf("expected empty selection, got %+v", selection)
		}
		if sources := selection.Sources(); sources == nil || len(sources) != 0 {
			t.Fatalf("expected empty non-nil sources, got %#v", sources)
		}
	}
}

func TestIsRejection(t *testing.T) {
	cases := map[string]bool{
		"I can only help with BAföG-related questions.":                      true,
		"Ich kann nur bei BAföG-bezogenen Fragen helfen.":                    true,
		"Dieser Dienst ist AUSSCHLIESSLICH für BAföG gedacht.":               false,
		"Dieser Dienst ist ausschließlich für BAföG gedacht.":                true,
		"The maximum amount depends on your living situation.":               false,
		"Sorry, I only answer questions related to BAföG and study funding.": true,
	}
	for answer, want := range cases {
		if got := IsRejection(answer); got != want {
			t.Fatalf("IsRejection(%q)=%v want %v", answer, got, want)
		}
	}
}

func TestBackendInstructionIncludesContext(t *testing.T) {
	prompt := BackendInstruction([]domain.KnowledgeDocument{{Name: "Ausland", URL: "https://example.org/ausland", Preview: "Auslandsförderung..."}})
	for _, part := range []string{"Kontext:", "[1] Ausland (https://example.org/ausland)", "Auslandsförderung..."} {
		if !strings.Contains(prompt, part) {
			t.Fatalf("expected %q in prompt:\n%s", part, prompt)
		}
	}
	if !strings.Contains(BackendInstruction(nil), noContext) {
		t.Fatalf("expected empty context marker")
	}
}
