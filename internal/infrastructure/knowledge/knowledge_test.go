package knowledge

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/bafoeg-assistant/internal/core/domain"
	"github.com/kirillkom/bafoeg-assistant/internal/infrastructure/resilience"
)

func TestFileIndexRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knowledge_base", "knowledge_index.json")
	index, err := NewFileIndex(path)
	if err != nil {
		t.Fatalf("NewFileIndex() error = %v", err)
	}

	docs := []domain.KnowledgeDocument{
		{Name: "Bafoeg Höhe", URL: "https://example.org/?a=1&b=2", File: "bafoeg_hoehe.txt", Keywords: []string{"bafoeg", "höhe"}, Preview: "Die Höhe..."},
	}
	if err := index.Replace(context.Background(), docs); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	for _, want := range []string{"\n  {\n    \"name\": \"Bafoeg Höhe\"", "?a=1&b=2", "\"höhe\""} {
		if !strings.Contains(string(raw), want) {
			t.Fatalf("expected %q in:\n%s", want, raw)
		}
	}

	loaded, err := index.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded) != 1 || loaded[0].Preview != "Die Höhe..." || loaded[0].Keywords[1] != "höhe" {
		t.Fatalf("unexpected docs: %+v", loaded)
	}
}

func TestFileIndexMissingFile(t *testing.T) {
	index, _ := NewFileIndex(filepath.Join(t.TempDir(), "knowledge_index.json"))
	if _, err := index.Load(context.Background()); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestDecodeRejectsMalformedIndex(t *testing.T) {
	if _, err := Decode(strings.NewReader(`{"name":"x"}`)); err == nil {
		t.Fatalf("expected error for non-array index")
	}
	docs, err := Decode(strings.NewReader(`null`))
	if err != nil || docs == nil || len(docs) != 0 {
		t.Fatalf("expected empty index, got %v %v", docs, err)
	}
}

func TestRemoteIndexRetriesServerErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[{"name":"Ausland","url":"","file":"ausland.txt","keywords":["ausland"]}]`))
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		BreakerEnabled:      false,
	})
	docs, err := NewRemoteIndex(server.URL, executor, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if calls != 2 || len(docs) != 1 {
		t.Fatalf("unexpected result: calls=%d docs=%+v", calls, docs)
	}
}

func TestRemoteIndexDoesNotRetryNotFound(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := NewRemoteIndex(server.URL, nil, nil).Load(context.Background())
	var statusErr *resilience.HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected single call, got %d", calls)
	}
}

func TestOpenResolvesLocations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knowledge_index.json")
	loc, err := Open(context.Background(), "file://"+path, nil)
	if err != nil {
		t.Fatalf("Open(file) error = %v", err)
	}
	if _, ok := loc.Source.(*FileIndex); !ok || loc.Sink == nil {
		t.Fatalf("expected file index, got %T", loc.Source)
	}
	if err := loc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	remote, err := Open(context.Background(), "https://example.org/knowledge_index.json", nil)
	if err != nil {
		t.Fatalf("Open(https) error = %v", err)
	}
	if _, ok := remote.Source.(*RemoteIndex); !ok || remote.Sink != nil {
		t.Fatalf("expected read-only remote index, got %T", remote.Source)
	}

	if _, err := Open(context.Background(), "  ", nil); err == nil {
		t.Fatalf("expected error for empty location")
	}
}
