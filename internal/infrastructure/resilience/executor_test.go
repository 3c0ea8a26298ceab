package resilience

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func fastRetryConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	}
}

func TestCallRetriesServerErrors(t *testing.T) {
	exec := NewExecutor(fastRetryConfig())

	attempts := 0
	docs, err := Call(context.Background(), exec, "index_fetch", func(context.Context) ([]string, error) {
		attempts++
		if attempts < 3 {
			return nil, &HTTPStatusError{Operation: "index fetch", StatusCode: http.StatusBadGateway, Status: "502 Bad Gateway"}
		}
		return []string{"bafoeg_allgemein.txt"}, nil
	}, ClassifyTransport)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 || len(docs) != 1 {
		t.Fatalf("unexpected result: attempts=%d docs=%v", attempts, docs)
	}
}

func TestCallDoesNotRetryClientErrors(t *testing.T) {
	exec := NewExecutor(fastRetryConfig())

	attempts := 0
	_, err := Call(context.Background(), exec, "index_fetch", func(context.Context) (int, error) {
		attempts++
		return 0, &HTTPStatusError{Operation: "index fetch", StatusCode: http.StatusNotFound, Status: "404 Not Found"}
	}, ClassifyTransport)

	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 status error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestNoRetryStopsAfterFirstAttempt(t *testing.T) {
	exec := NewExecutor(fastRetryConfig())

	attempts := 0
	err := exec.Execute(context.Background(), "completion", func(context.Context) error {
		attempts++
		return &HTTPStatusError{Operation: "completion", StatusCode: http.StatusServiceUnavailable, Status: "503 Service Unavailable"}
	}, NoRetry(ClassifyTransport))
	if err == nil || attempts != 1 {
		t.Fatalf("expected one failed attempt, got attempts=%d err=%v", attempts, err)
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		RetryInitialBackoff:     time.Millisecond,
		RetryMaxBackoff:         time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      50 * time.Millisecond,
		BreakerHalfOpenMaxCalls: 1,
	})

	errUpstream := errors.New("upstream down")
	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "completion", func(context.Context) error {
			return errUpstream
		}, nil)
		if !errors.Is(err, errUpstream) {
			t.Fatalf("expected upstream error on iteration %d, got %v", i, err)
		}
	}
	if exec.State("completion") != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", exec.State("completion"))
	}

	err := exec.Execute(context.Background(), "completion", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, nil)
	if !IsCircuitOpen(err) {
		t.Fatalf("expected open state error, got %v", err)
	}
	if exec.State("other") != gobreaker.StateClosed {
		t.Fatalf("unknown operations report closed")
	}
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		BreakerEnabled:          true,
		BreakerMinRequests:      1,
		BreakerFailureRatio:     0.1,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
	})

	for i := 0; i < 5; i++ {
		_ = exec.Execute(context.Background(), "completion", func(context.Context) error {
			return &HTTPStatusError{Operation: "completion", StatusCode: http.StatusUnauthorized, Status: "401 Unauthorized"}
		}, ClassifyTransport)
	}
	if exec.State("completion") != gobreaker.StateClosed {
		t.Fatalf("client errors must not open the breaker")
	}
}

func TestClassifyTransport(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorClassification
	}{
		{"canceled", context.Canceled, ErrorClassification{}},
		{"throttled", &HTTPStatusError{StatusCode: http.StatusTooManyRequests}, ErrorClassification{Retryable: true, RecordFailure: true}},
		{"bad request", &HTTPStatusError{StatusCode: http.StatusBadRequest}, ErrorClassification{}},
		{"network", &net.OpError{Op: "dial", Err: errors.New("refused")}, ErrorClassification{Retryable: true, RecordFailure: true}},
		{"open", gobreaker.ErrOpenState, ErrorClassification{}},
		{"other", errors.New("decode"), ErrorClassification{RecordFailure: true}},
	}
	for _, tc := range cases {
		if got := ClassifyTransport(tc.err); got != tc.want {
			t.Fatalf("%s: got %+v want %+v", tc.name, got, tc.want)
		}
	}
}

func TestNewHTTPStatusErrorTruncatesBody(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusInternalServerError,
		Status:     "500 Internal Server Error",
		Body:       io.NopCloser(strings.NewReader(strings.Repeat("x", 5000))),
	}
	err := NewHTTPStatusError("index fetch", resp)
	if len(err.Body) != maxErrorBody {
		t.Fatalf("expected body truncated to %d, got %d", maxErrorBody, len(err.Body))
	}
	if !strings.HasPrefix(err.Error(), "index fetch status: 500 Internal Server Error") {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestSingleAttempt(t *testing.T) {
	cfg := DefaultConfig().SingleAttempt().normalize()
	if cfg.RetryMaxAttempts != 1 || !cfg.BreakerEnabled {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestDefaultConfigRetriesFitProbeBudget(t *testing.T) {
	cfg := DefaultConfig()
	var waited time.Duration
	backoff := cfg.RetryInitialBackoff
	for attempt := 1; attempt < cfg.RetryMaxAttempts; attempt++ {
		waited += min(backoff, cfg.RetryMaxBackoff)
		backoff = time.Duration(float64(backoff) * cfg.RetryMultiplier)
	}
	if waited >= 2*time.Second {
		t.Fatalf("retry backoff %s exceeds the 2s probe budget", waited)
	}
	if cfg.BreakerMinRequests != 5 || cfg.BreakerHalfOpenMaxCalls != 1 {
		t.Fatalf("unexpected breaker defaults: %+v", cfg)
	}
}

func TestCompletionConfigNeverRetries(t *testing.T) {
	cfg := CompletionConfig().normalize()
	if cfg.RetryMaxAttempts != 1 || !cfg.BreakerEnabled || cfg.BreakerFailureRatio != 0.6 {
		t.Fatalf("unexpected completion config: %+v", cfg)
	}
}

func TestNormalizeFillsUnsetValues(t *testing.T) {
	cfg := Config{RetryInitialBackoff: time.Second, RetryMaxBackoff: time.Millisecond, BreakerFailureRatio: 2}.normalize()
	if cfg.RetryMaxAttempts != 3 || cfg.RetryMaxBackoff != time.Second || cfg.BreakerFailureRatio != 0.5 {
		t.Fatalf("unexpected normalized config: %+v", cfg)
	}
}
