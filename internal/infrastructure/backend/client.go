package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/kirillkom/bafoeg-assistant/internal/core/domain"
	"github.com/kirillkom/bafoeg-assistant/internal/core/ports"
	"github.com/kirillkom/bafoeg-assistant/internal/infrastructure/resilience"
)

// Client talks to the retrieval backend service. Calls are never retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ ports.BackendClient = (*Client)(nil)

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) Health(ctx context.Context) (domain.BackendHealth, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return domain.BackendHealth{}, fmt.Errorf("create health request: %w", err)
	}

	var health domain.BackendHealth
	if err := c.do(req, &health, "backend health"); err != nil {
		return domain.BackendHealth{}, err
	}
	return health, nil
}

type chatRequest struct {
	Question string `json:"question"`
	APIKey   string `json:"api_key"`
}

func (c *Client) Chat(ctx context.Context, question, credential string) (*domain.BackendAnswer, error) {
	body, err := json.Marshal(chatRequest{Question: question, APIKey: credential})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var answer domain.BackendAnswer
	if err := c.do(req, &answer, "backend chat"); err != nil {
		return nil, err
	}
	if answer.Sources == nil {
		answer.Sources = []domain.Source{}
	}
	return &answer, nil
}

func (c *Client) do(req *http.Request, out any, operation string) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return resilience.NewHTTPStatusError(operation, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}
