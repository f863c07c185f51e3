package addpipe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	// DefaultBaseURL is the capture service API endpoint.
	DefaultBaseURL = "https://api.addpipe.com"

	// storageHost hosts the recordings when the API returns a
	// storage-relative path instead of a full host.
	storageHost = "eu2-addpipe.s3.nl-ams.scw.cloud"
)

// ErrNoMediaLink means the capture service responded without a usable
// rendition link, usually because the recording already expired.
var ErrNoMediaLink = errors.New("no media link in capture service response")

// Client talks to the capture service. The HTTP client is shared
// process-wide and injected at construction.
type Client struct {
	HTTP    *http.Client
	BaseURL string
	APIKey  string
}

func NewClient(httpClient *http.Client, apiKey string) *Client {
	return &Client{
		HTTP:    httpClient,
		BaseURL: DefaultBaseURL,
		APIKey:  apiKey,
	}
}

type rendition struct {
	PipeS3Link string `json:"pipeS3Link"`
}

type videoInfo struct {
	Videos []rendition `json:"videos"`
}

// ResolveMediaURL looks up a recording by id and returns the absolute URL of
// its first rendition.
func (c *Client) ResolveMediaURL(ctx context.Context, videoID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.videoURL(videoID), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-PIPE-AUTH", c.APIKey)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("capture service lookup: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("capture service lookup for video %s: status %d", videoID, res.StatusCode)
	}

	var info videoInfo
	if err := json.NewDecoder(res.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decode capture service response: %w", err)
	}
	if len(info.Videos) == 0 || info.Videos[0].PipeS3Link == "" {
		return "", ErrNoMediaLink
	}

	link := info.Videos[0].PipeS3Link
	if strings.HasPrefix(link, "/") {
		link = storageHost + link
	}
	return "https://" + link, nil
}

// Delete removes a recording from the capture service. Best-effort: callers
// log failures and move on.
func (c *Client) Delete(ctx context.Context, videoID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.videoURL(videoID), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-PIPE-AUTH", c.APIKey)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("capture service delete: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("capture service delete for video %s: status %d", videoID, res.StatusCode)
	}
	return nil
}

func (c *Client) videoURL(videoID string) string {
	return c.BaseURL + "/video/" + url.PathEscape(videoID)
}
