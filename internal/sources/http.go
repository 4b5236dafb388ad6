package sources

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/infracollect/untar/internal/engine"
	"github.com/samber/lo"
)

const (
	HTTPKind       = "http"
	DefaultTimeout = 60 * time.Second
)

var (
	defaultHeaders = map[string]string{
		"User-Agent": "untar/0.1.0",
		"Accept":     "application/x-tar, application/gzip, application/zstd, */*",
	}
)

type HTTPConfig struct {
	URL      string
	Headers  map[string]string
	Timeout  time.Duration
	Insecure bool
}

type HTTPSource struct {
	url        *url.URL
	headers    map[string]string
	httpClient *http.Client
}

type HTTPOption func(*HTTPSource)

func WithHttpClient(httpClient *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		s.httpClient = httpClient
	}
}

func NewHTTPSource(cfg HTTPConfig, opts ...HTTPOption) (engine.Source, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("url is required")
	}

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url '%s': %w", cfg.URL, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("url must use http or https scheme, got: %s", parsedURL.Scheme)
	}

	source := &HTTPSource{
		url:     parsedURL,
		headers: lo.Assign(defaultHeaders, cfg.Headers),
	}

	for _, opt := range opts {
		opt(source)
	}

	if source.httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}

		transport := cleanhttp.DefaultPooledTransport()
		if cfg.Insecure {
			if transport.TLSClientConfig == nil {
				transport.TLSClientConfig = &tls.Config{}
			}

			transport.TLSClientConfig.InsecureSkipVerify = true
		}

		source.httpClient = &http.Client{
			Transport: transport,
			Timeout:   timeout,
		}
	}

	return source, nil
}

func (s *HTTPSource) Name() string {
	return fmt.Sprintf("%s(%s)", HTTPKind, s.url.Host)
}

func (s *HTTPSource) Kind() string {
	return HTTPKind
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}
