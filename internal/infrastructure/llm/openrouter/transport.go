package openrouter

import "net/http"

// headerTransport adds the attribution headers OpenRouter uses for app
// rankings.
type headerTransport struct {
	base    http.RoundTripper
	referer string
	title   string
}

func newHeaderTransport(base http.RoundTripper, referer, title string) *headerTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &headerTransport{base: base, referer: referer, title: title}
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if t.referer != "" {
		clone.Header.Set("HTTP-Referer", t.referer)
	}
	if t.title != "" {
		clone.Header.Set("X-Title", t.title)
	}
	return t.base.RoundTrip(clone)
}
