package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"notification_hub/internal/common"
	"notification_hub/internal/notification"
)

// APIClient talks to the notification HTTP API on behalf of one session.
type APIClient struct {
	// httpClient serves request/response calls; streamClient has no overall
	// timeout because the stream stays open indefinitely.
	httpClient   *http.Client
	streamClient *http.Client
	baseURL      string
	token        string
}

// NewAPIClient creates a client for baseURL (e.g. "http://localhost:8080").
// An empty token calls the API as the anonymous recipient.
func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		streamClient: &http.Client{},
		baseURL:      strings.TrimRight(baseURL, "/"),
		token:        token,
	}
}

// List returns the caller's merged notification list, newest first.
func (c *APIClient) List(ctx context.Context) ([]notification.Notification, error) {
	var resp notification.ListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/notifications", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Notifications, nil
}

func (c *APIClient) Create(ctx context.Context, req notification.CreateRequest) (*notification.Notification, error) {
	var n notification.Notification
	if err := c.doJSON(ctx, http.MethodPost, "/notifications", req, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *APIClient) DeleteOne(ctx context.Context, id string) (*notification.DeleteResult, error) {
	var result notification.DeleteResult
	path := "/notifications?id=" + url.QueryEscape(id)
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *APIClient) DeleteAll(ctx context.Context) (*notification.DeleteAllResult, error) {
	var result notification.DeleteAllResult
	if err := c.doJSON(ctx, http.MethodDelete, "/notifications", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *APIClient) MarkRead(ctx context.Context, id string) (*notification.MarkReadResult, error) {
	var result notification.MarkReadResult
	path := "/notifications/mark-read?id=" + url.QueryEscape(id)
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *APIClient) MarkAllRead(ctx context.Context) (int64, error) {
	var result struct {
		Updated int64 `json:"updated"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/notifications/mark-all-read", nil, &result); err != nil {
		return 0, err
	}
	return result.Updated, nil
}

// OpenStream opens the server-push stream. The body stays open until ctx is
// cancelled or the server ends the stream; the caller must close it.
func (c *APIClient) OpenStream(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/notifications/events", nil)
	if err != nil {
		return nil, fmt.Errorf("creating stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	c.authorize(req)

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("opening stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeAPIError(resp)
	}
	return resp.Body, nil
}

func (c *APIClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set(common.AuthorizationHeader, common.AuthorizationTypeBearer+" "+c.token)
	}
}

func (c *APIClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decoding response body: %w", err)
		}
	}
	return nil
}

// decodeAPIError turns a non-2xx response into *common.APIError.
func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &common.APIError{}
	if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Message == "" {
		apiErr = common.NewAPIError(resp.StatusCode, "HTTP_ERROR", strings.TrimSpace(string(raw)))
	}
	apiErr.StatusCode = resp.StatusCode
	return apiErr
}
