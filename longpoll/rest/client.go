package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxErrorBody caps how much of an error response is kept in StatusError.
const maxErrorBody = 512

// Client performs the raw request/response exchanges with a long-poll feed.
// It never retries.
type Client struct {
	baseURL     string
	fetchPath   string
	publishPath string
	httpClient  *http.Client
}

// NewClient creates a new feed client.
// baseURL should be the server root, e.g., "http://localhost:5000".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		fetchPath:   DefaultFetchPath,
		publishPath: DefaultPublishPath,
		httpClient: &http.Client{
			// Must outlive the server's hold window.
			Timeout: 60 * time.Second,
		},
	}
}

// SetHTTPClient allows setting a custom HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// SetTimeout changes the per-request timeout of the current HTTP client.
func (c *Client) SetTimeout(d time.Duration) {
	c.httpClient.Timeout = d
}

// SetPaths overrides the fetch and publish endpoints. Empty values keep the current ones.
func (c *Client) SetPaths(fetchPath, publishPath string) {
	if fetchPath != "" {
		c.fetchPath = fetchPath
	}
	if publishPath != "" {
		c.publishPath = publishPath
	}
}

// BaseURL returns the configured server root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetMessage issues one long-poll request for the next message.
// Returns ErrNoContent if the server answered 204.
func (c *Client) GetMessage(ctx context.Context) (*MessageRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.fetchPath, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// Every poll must reach the server.
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Expires", "0")
	req.Header.Set("Accept", "application/json")

	var rec MessageRecord
	found, err := c.do(req, &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNoContent
	}
	return &rec, nil
}

// NewMessage appends a message to the feed. The caller assigns rec.ID.
func (c *Client) NewMessage(ctx context.Context, rec MessageRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.publishPath, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	_, err = c.do(req, nil)
	return err
}

// do executes req and decodes a success body into dest. The bool result is
// false when the response carried no body to decode.
func (c *Client) do(req *http.Request, dest any) (bool, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, newStatusError(resp.StatusCode, body)
	}

	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		return false, nil
	}

	if dest != nil {
		if err := json.Unmarshal(body, dest); err != nil {
			return false, fmt.Errorf("%w: %w", ErrDecode, err)
		}
	}
	return true, nil
}

func newStatusError(code int, body []byte) *StatusError {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &StatusError{StatusCode: code, Message: errResp.Error}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	return &StatusError{StatusCode: code, Message: msg}
}
