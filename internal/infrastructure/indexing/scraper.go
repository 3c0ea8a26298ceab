package indexing

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/kirillkom/bafoeg-assistant/internal/core/ports"
	"github.com/kirillkom/bafoeg-assistant/internal/infrastructure/resilience"
)

const (
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	DefaultScrapeDelay  = time.Second
	defaultFetchTimeout = 10 * time.Second
)

// skippedElements never contribute page text.
var skippedElements = map[atom.Atom]bool{
	atom.Script: true,
	atom.Style:  true,
	atom.Nav:    true,
	atom.Footer: true,
	atom.Header: true,
}

type ScraperOptions struct {
	UserAgent  string
	Delay      time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Scraper saves the visible text of web pages into the knowledge base and
// records their URLs in url_mapping.json.
type Scraper struct {
	storage    ports.ObjectStorage
	httpClient *http.Client
	userAgent  string
	delay      time.Duration
	logger     *slog.Logger
}

type ScrapeReport struct {
	Saved  URLMapping
	Failed []string
}

func NewScraper(storage ports.ObjectStorage, opts ScraperOptions) *Scraper {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: defaultFetchTimeout}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scraper{
		storage:    storage,
		httpClient: opts.HTTPClient,
		userAgent:  opts.UserAgent,
		delay:      opts.Delay,
		logger:     opts.Logger,
	}
}

// ScrapeAll fetches every URL in order, waiting the configured delay before
// each request. Failed pages are reported and do not stop the run.
func (s *Scraper) ScrapeAll(ctx context.Context, urls []string) (*ScrapeReport, error) {
	report := &ScrapeReport{Saved: URLMapping{}}
	for _, raw := range urls {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		text, err := s.Scrape(ctx, raw)
		if err == nil && text == "" {
			err = fmt.Errorf("page has no text")
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("scrape_failed", "url", raw, "error", err.Error())
			report.Failed = append(report.Failed, raw)
			continue
		}

		file, err := FileNameForURL(raw)
		if err != nil {
			report.Failed = append(report.Failed, raw)
			continue
		}
		content := fmt.Sprintf("Source: %s\n\n%s", raw, text)
		if err := s.storage.Save(ctx, file, strings.NewReader(content)); err != nil {
			return nil, fmt.Errorf("save %s: %w", file, err)
		}
		report.Saved[file] = raw
		s.logger.Info("scrape_saved", "url", raw, "file", file)
	}

	if len(report.Saved) > 0 {
		mapping, err := ReadURLMapping(ctx, s.storage)
		if err != nil {
			return nil, err
		}
		mapping.Merge(report.Saved)
		if err := WriteURLMapping(ctx, s.storage, mapping); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// Scrape returns the visible text of one page, one line per text block.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (string, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create scrape request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("scrape request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", resilience.NewHTTPStatusError("scrape", resp)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	return VisibleText(doc), nil
}

// VisibleText joins the trimmed text nodes of doc outside script, style,
// navigation, header and footer elements.
func VisibleText(doc *html.Node) string {
	lines := make([]string, 0, 64)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.DataAtom] {
			return
		}
		if n.Type == html.TextNode {
			for _, line := range strings.Split(n.Data, "\n") {
				if line = strings.TrimSpace(line); line != "" {
					lines = append(lines, line)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(lines, "\n")
}

// FileNameForURL derives the knowledge base file name from the URL path, or
// from the host for root URLs.
func FileNameForURL(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	name := strings.ReplaceAll(strings.Trim(parsed.Path, "/"), "/", "_")
	if name == "" {
		name = strings.ReplaceAll(parsed.Host, ".", "_")
	}
	if name == "" {
		return "", fmt.Errorf("cannot derive file name from %q", raw)
	}
	if !strings.HasSuffix(name, ".txt") {
		name += ".txt"
	}
	return name, nil
}
