package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 5 * time.Second
	dayLayout          = "2006-01-02"
)

// HTTPOption applies a configuration option to the HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		if c != nil {
			s.client = c
		}
	}
}

// WithTokenProvider sets where bearer tokens come from.
func WithTokenProvider(p TokenProvider) HTTPOption {
	return func(s *HTTPSource) {
		s.tokens = p
	}
}

// HTTPSource reads counts from a remote activity service:
//
//	GET {base}/subjects/{id}                       -> 2xx when the subject exists
//	GET {base}/metrics/{category}?subject=&day=    -> {"count": n}
type HTTPSource struct {
	base   string
	client *http.Client
	tokens TokenProvider
}

// NewHTTPSource creates a source rooted at baseURL.
func NewHTTPSource(baseURL string, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		base:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve treats 401 and 404 as an unresolvable subject.
func (s *HTTPSource) Resolve(ctx context.Context, subjectID string) error {
	resp, err := s.get(ctx, s.base+"/subjects/"+url.PathEscape(subjectID))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: status %d", ErrUnresolvable, resp.StatusCode)
	case resp.StatusCode >= 300:
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}

type countResponse struct {
	Count int `json:"count"`
}

func (s *HTTPSource) Count(ctx context.Context, subjectID string, c Category, day time.Time) (int, error) {
	q := url.Values{}
	q.Set("subject", subjectID)
	q.Set("day", day.UTC().Format(dayLayout))

	resp, err := s.get(ctx, s.base+"/metrics/"+url.PathEscape(string(c))+"?"+q.Encode())
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("%w: %s: %d", ErrUnexpectedStatus, c, resp.StatusCode)
	}

	var body countResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode %s count: %w", c, err)
	}
	return body.Count, nil
}

func (s *HTTPSource) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if s.tokens != nil {
		tok, err := s.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("token: %w", err)
		}
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	return resp, nil
}
