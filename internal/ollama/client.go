package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	contentTypeJSON = "application/json"
	userAgent       = "ollama-gateway/0.1"

	defaultDialTimeout     = 10 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second

	maxErrorBodyBytes = 64 * 1024
)

// Client issues HTTP calls against a single Ollama instance. It performs
// exactly one request per call: failures surface immediately, never retried.
type Client struct {
	baseURL     string
	client      *http.Client
	generateURL string
	tagsURL     string
	pullURL     string
}

// NewClient constructs a backend client with a bounded request timeout.
// The timeout covers the whole exchange, including reading a streamed body.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return nil, errors.New("base url must not be empty")
	}
	if timeout <= 0 {
		return nil, errors.New("timeout must be positive")
	}

	return &Client{
		baseURL:     baseURL,
		client:      newHTTPClient(timeout),
		generateURL: baseURL + "/api/generate",
		tagsURL:     baseURL + "/api/tags",
		pullURL:     baseURL + "/api/pull",
	}, nil
}

// BaseURL returns the backend address the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Generate issues the translated request and returns the raw response body
// as an incremental reader. The caller owns closing it.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (io.ReadCloser, error) {
	httpReq, err := c.newRequest(ctx, c.generateURL, req)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama generate request failed: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		defer httpResp.Body.Close()
		return nil, parseAPIError(httpResp)
	}

	return httpResp.Body, nil
}

// GenerateOnce issues the translated request and returns the fully
// buffered response body.
func (c *Client) GenerateOnce(ctx context.Context, req GenerateRequest) ([]byte, error) {
	body, err := c.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read ollama response: %w", err)
	}
	return data, nil
}

// Forward relays an untranslated POST body to the same path on the backend
// and returns the backend's response bytes.
func (c *Client) Forward(ctx context.Context, path string, body []byte) ([]byte, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("construct request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentTypeJSON)
	httpReq.Header.Set("User-Agent", userAgent)

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama request to %s failed: %w", path, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ollama response: %w", err)
	}
	return data, nil
}

// ListModels returns the names of locally available models. A backend that
// answers with a non-200 status yields an empty list; only transport and
// decode failures are reported as errors.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tagsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("construct request: %w", err)
	}
	httpReq.Header.Set("Accept", contentTypeJSON)
	httpReq.Header.Set("User-Agent", userAgent)

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama model listing failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(httpResp.Body, maxErrorBodyBytes))
		return []string{}, nil
	}

	var tags tagsResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode model listing: %w", err)
	}

	names := make([]string, 0, len(tags.Models))
	for _, model := range tags.Models {
		if model.Name != "" {
			names = append(names, model.Name)
		}
	}
	return names, nil
}

// EnsureModel makes the named model available, pulling it when absent.
func (c *Client) EnsureModel(ctx context.Context, name string) error {
	available, err := c.ListModels(ctx)
	if err != nil {
		return err
	}
	for _, model := range available {
		if model == name {
			return nil
		}
	}

	payload := struct {
		Name   string `json:"name"`
		Stream bool   `json:"stream"`
	}{Name: name, Stream: false}

	httpReq, err := c.newRequest(ctx, c.pullURL, payload)
	if err != nil {
		return err
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("ollama pull request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		return parseAPIError(httpResp)
	}
	io.Copy(io.Discard, httpResp.Body)
	return nil
}

func (c *Client) newRequest(ctx context.Context, url string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("construct request: %w", err)
	}

	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", userAgent)

	return req, nil
}

func parseAPIError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil {
		return fmt.Errorf("backend error status %d and failed to read body: %w", resp.StatusCode, err)
	}

	var apiErr struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		return fmt.Errorf("backend error status %d: %s", resp.StatusCode, apiErr.Error)
	}

	return fmt.Errorf("backend error status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
