package storage

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultMaxImageBytes caps a downloaded photograph
const DefaultMaxImageBytes = 20 << 20

type ImageFetcher interface {
	FetchImageBytes(ctx context.Context, imageURL string) ([]byte, error)
}

// HTTPFetcherOptions tunes the HTTP fetcher
type HTTPFetcherOptions struct {
	Timeout       time.Duration
	MaxBytes      int64
	Attempts      int
	BackoffUnit   time.Duration // sleep before retry n is n*BackoffUnit
	SkipTLSVerify bool
}

// DefaultHTTPFetcherOptions returns the production fetch settings
func DefaultHTTPFetcherOptions() HTTPFetcherOptions {
	return HTTPFetcherOptions{
		Timeout:     30 * time.Second,
		MaxBytes:    DefaultMaxImageBytes,
		Attempts:    3,
		BackoffUnit: time.Second,
	}
}

// HTTPImageFetcher downloads images over HTTP(S), retrying transient failures
type HTTPImageFetcher struct {
	client *http.Client
	opts   HTTPFetcherOptions
}

// NewHTTPImageFetcher creates an HTTP image fetcher
func NewHTTPImageFetcher(opts HTTPFetcherOptions) ImageFetcher {
	defaults := DefaultHTTPFetcherOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaults.MaxBytes
	}
	if opts.Attempts <= 0 {
		opts.Attempts = defaults.Attempts
	}

	transport := &http.Transport{
		// a request fetches a single photograph
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,

		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: opts.SkipTLSVerify,
		},
	}

	return &HTTPImageFetcher{
		opts: opts,
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
	}
}

// FetchImageBytes downloads the body at imageURL. Network errors and 5xx
// responses are retried; 4xx responses fail immediately.
func (h *HTTPImageFetcher) FetchImageBytes(ctx context.Context, imageURL string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < h.opts.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * h.opts.BackoffUnit):
			}
		}

		data, retry, err := h.fetchOnce(ctx, imageURL)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
	}

	return nil, fmt.Errorf("failed to fetch image after %d attempts: %w", h.opts.Attempts, lastErr)
}

func (h *HTTPImageFetcher) fetchOnce(ctx context.Context, imageURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, image/webp, image/bmp, image/tiff, */*")
	req.Header.Set("User-Agent", "alignme-measure/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, false, fmt.Errorf("client error: status code %d", resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("server error: status code %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, h.opts.MaxBytes+1))
	if err != nil {
		return nil, true, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > h.opts.MaxBytes {
		return nil, false, fmt.Errorf("image exceeds %d bytes", h.opts.MaxBytes)
	}
	return data, false, nil
}
