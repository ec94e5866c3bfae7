package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ConfigSource yields the base URL of the inspection API.
type ConfigSource interface {
	BaseURL(ctx context.Context) (string, error)
}

// StaticSource returns a fixed base URL.
type StaticSource string

// BaseURL implements ConfigSource.
func (s StaticSource) BaseURL(context.Context) (string, error) {
	return string(s), nil
}

// ConfigPayload is the body served by GET /api/config.
type ConfigPayload struct {
	BaseURL string `json:"baseUrl"`
}

// HTTPSource reads the base URL from a config endpoint.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// NewHTTPSource builds a source reading url.
func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{URL: url, Client: &http.Client{Timeout: 10 * time.Second}}
}

// BaseURL implements ConfigSource.
func (s *HTTPSource) BaseURL(ctx context.Context) (string, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("config endpoint returned status %d", resp.StatusCode)
	}
	var payload ConfigPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode config: %w", err)
	}
	return payload.BaseURL, nil
}
