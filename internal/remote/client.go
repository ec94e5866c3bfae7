// Package remote talks to the inspection REST API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/inspeksi/audit-dashboard/internal/credential"
	"github.com/inspeksi/audit-dashboard/internal/inspection"
)

const statusSuccess = "success"

// MaxDocumentSize caps a downloaded document. Documents are buffered in
// memory before they are proxied or written to disk.
var MaxDocumentSize int64 = 32 << 20

var errDocumentTooLarge = errors.New("document exceeds the size limit")

// Client wraps interactions with the inspection API. The base URL is
// resolved lazily and only once per Client.
type Client struct {
	source     ConfigSource
	httpClient *http.Client
	logger     *slog.Logger

	group   singleflight.Group
	mu      sync.RWMutex
	baseURL string
}

// NewClient constructs a new client.
func NewClient(source ConfigSource, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{source: source, httpClient: httpClient, logger: logger}
}

// configTimeout bounds the shared base URL lookup, which runs detached from
// the caller that started it.
const configTimeout = 15 * time.Second

// Configure resolves the base URL. Concurrent callers share one resolution;
// a successful result is kept for the lifetime of the Client. Each caller
// waits with its own ctx, so a cancelled caller does not fail the others.
func (c *Client) Configure(ctx context.Context) (string, error) {
	if base := c.cachedBaseURL(); base != "" {
		return base, nil
	}
	resultChan := c.group.DoChan("base-url", func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), configTimeout)
		defer cancel()
		return c.resolveBaseURL(lookupCtx)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			c.logger.Error("could not fetch api configuration", slog.Any("error", res.Err))
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) resolveBaseURL(ctx context.Context) (string, error) {
	if base := c.cachedBaseURL(); base != "" {
		return base, nil
	}
	if c.source == nil {
		return "", &ConfigError{Err: errMissingBaseURL}
	}
	raw, err := c.source.BaseURL(ctx)
	if err != nil {
		return "", &ConfigError{Err: err}
	}
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if base == "" {
		return "", &ConfigError{Err: errMissingBaseURL}
	}
	c.mu.Lock()
	c.baseURL = base
	c.mu.Unlock()
	return base, nil
}

func (c *Client) cachedBaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// LoginResult is the successful outcome of Login.
type LoginResult struct {
	Token string
}

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type loginResponse struct {
	envelope
	Data *struct {
		Token string `json:"token"`
	} `json:"data"`
}

// Login exchanges credentials for a bearer token. It is not bearer
// authenticated, so a 401 here is an AuthError rather than an expiry.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	base, err := c.Configure(ctx)
	if err != nil {
		return LoginResult{}, err
	}
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return LoginResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return LoginResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return LoginResult{}, fmt.Errorf("remote: login: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var payload loginResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&payload)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := MessageInvalidLogin
		if decodeErr == nil && payload.Message != "" {
			msg = payload.Message
		}
		return LoginResult{}, &AuthError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil || payload.Status != statusSuccess || payload.Data == nil || payload.Data.Token == "" {
		msg := MessageInvalidResponse
		if payload.Message != "" {
			msg = payload.Message
		}
		return LoginResult{}, &AuthError{Status: resp.StatusCode, Message: msg}
	}
	return LoginResult{Token: payload.Data.Token}, nil
}

// Session binds the client to a credential store for authenticated calls.
func (c *Client) Session(store credential.Store) *Session {
	return &Session{client: c, store: store}
}

// Session performs bearer authenticated calls. Every call goes through do,
// which is the single place a 401 is turned into ErrSessionExpired.
type Session struct {
	client *Client
	store  credential.Store
}

func (s *Session) do(ctx context.Context, method, endpoint string) (*http.Response, error) {
	base, err := s.client.Configure(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, base+endpoint, nil)
	if err != nil {
		return nil, err
	}
	for key, values := range credential.AuthHeader(s.store) {
		req.Header[key] = values
	}
	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		if s.store != nil {
			if err := s.store.Remove(); err != nil {
				s.client.logger.Warn("remove credential", slog.Any("error", err))
			}
		}
		s.client.logger.Info("session expired", slog.String("endpoint", endpoint))
		return nil, ErrSessionExpired
	}
	return resp, nil
}

// Logout ends the remote session. Callers clear local credentials regardless.
func (s *Session) Logout(ctx context.Context) error {
	resp, err := s.do(ctx, http.MethodPost, "/auth/logout")
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("remote: logout returned status %d", resp.StatusCode)
	}
	return nil
}

// Paging is the paging block of a list response.
type Paging struct {
	Page       int `json:"page"`
	Size       int `json:"size"`
	TotalPages int `json:"totalPages"`
	TotalData  int `json:"totalData"`
}

// ListResult is one page of audit records.
type ListResult struct {
	Records []inspection.Record
	Paging  Paging
}

type listResponse struct {
	envelope
	Data   json.RawMessage `json:"data"`
	Paging *Paging         `json:"paging"`
}

// ListAll fetches one page of GET /audits/all.
func (s *Session) ListAll(ctx context.Context, page, size int) (ListResult, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(size))
	resp, err := s.do(ctx, http.MethodGet, "/audits/all?"+query.Encode())
	if err != nil {
		if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrConfig) {
			return ListResult{}, err
		}
		return ListResult{}, &FetchError{Message: err.Error(), Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ListResult{}, &FetchError{Status: resp.StatusCode, Message: MessageFetchFailed}
	}

	var payload listResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ListResult{}, &FetchError{Status: resp.StatusCode, Message: MessageFetchAllFailed, Err: err}
	}
	data := bytes.TrimSpace(payload.Data)
	if payload.Status != statusSuccess || len(data) == 0 || data[0] != '[' {
		msg := MessageFetchAllFailed
		if payload.Message != "" {
			msg = payload.Message
		}
		return ListResult{}, &FetchError{Status: resp.StatusCode, Message: msg}
	}
	var records []inspection.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return ListResult{}, &FetchError{Status: resp.StatusCode, Message: MessageFetchAllFailed, Err: err}
	}
	result := ListResult{Records: records}
	if payload.Paging != nil {
		result.Paging = *payload.Paging
	}
	return result, nil
}

// DownloadDocument fetches the document served by route for record id.
func (s *Session) DownloadDocument(ctx context.Context, route inspection.Route, id string) ([]byte, error) {
	resp, err := s.do(ctx, http.MethodGet, route.Path()+"/"+url.PathEscape(id))
	if err != nil {
		if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrConfig) {
			return nil, err
		}
		return nil, &DownloadError{Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &DownloadError{Status: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxDocumentSize+1))
	if err != nil {
		return nil, &DownloadError{Status: resp.StatusCode, Err: err}
	}
	if int64(len(body)) > MaxDocumentSize {
		return nil, &DownloadError{Status: resp.StatusCode, Err: errDocumentTooLarge}
	}
	return body, nil
}
