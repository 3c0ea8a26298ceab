package knowledge

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kirillkom/bafoeg-assistant/internal/core/domain"
	"github.com/kirillkom/bafoeg-assistant/internal/core/ports"
	"github.com/kirillkom/bafoeg-assistant/internal/infrastructure/resilience"
)

const fetchOperation = "knowledge_index_fetch"

// RemoteIndex fetches the index over HTTP. Server errors and network
// failures are retried by the executor.
type RemoteIndex struct {
	url        string
	httpClient *http.Client
	executor   *resilience.Executor
}

var _ ports.KnowledgeIndexSource = (*RemoteIndex)(nil)

func NewRemoteIndex(url string, executor *resilience.Executor, httpClient *http.Client) *RemoteIndex {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &RemoteIndex{url: url, httpClient: httpClient, executor: executor}
}

func (r *RemoteIndex) Load(ctx context.Context) ([]domain.KnowledgeDocument, error) {
	return resilience.Call(ctx, r.executor, fetchOperation, r.fetch, resilience.ClassifyTransport)
}

func (r *RemoteIndex) fetch(ctx context.Context) ([]domain.KnowledgeDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create index request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("index fetch request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, resilience.NewHTTPStatusError("index fetch", resp)
	}
	return Decode(resp.Body)
}
