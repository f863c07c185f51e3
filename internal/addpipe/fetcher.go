package addpipe

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const (
	defaultRetries   = 5
	defaultBaseDelay = 2 * time.Second
)

// ExhaustedError is returned when every download attempt failed. The capture
// service stores recordings transiently, so the caller must treat this as
// losing that item, not the whole order.
type ExhaustedError struct {
	URL      string
	Attempts int
	LastErr  error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("download of %s exhausted after %d attempts: %v", e.URL, e.Attempts, e.LastErr)
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }

// Downloader fetches a media asset with bounded retry and exponential
// backoff. Network errors and non-2xx responses are retried alike.
type Downloader struct {
	HTTP      *http.Client
	Retries   int
	BaseDelay time.Duration

	sleep func(time.Duration)
}

func NewDownloader(httpClient *http.Client) *Downloader {
	return &Downloader{
		HTTP:      httpClient,
		Retries:   defaultRetries,
		BaseDelay: defaultBaseDelay,
		sleep:     time.Sleep,
	}
}

// Fetch downloads url, waiting BaseDelay * 2^attempt between failures. The
// final failed attempt returns immediately without a wait.
func (d *Downloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	retries := d.Retries
	if retries <= 0 {
		retries = defaultRetries
	}

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		body, err := d.attempt(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		log.Printf("[download] attempt %d/%d for %s failed: %v", attempt+1, retries, url, err)

		if attempt < retries-1 {
			d.sleep(d.BaseDelay << attempt)
		}
	}
	return nil, &ExhaustedError{URL: url, Attempts: retries, LastErr: lastErr}
}

func (d *Downloader) attempt(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "*/*")

	res, err := d.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		io.Copy(io.Discard, res.Body)
		return nil, fmt.Errorf("status %d", res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
