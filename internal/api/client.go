package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/openlift/liftlog/internal/workout"
)

const userAgent = "liftlog/0.1"

// TokenSource provides bearer tokens. Defined at the consumer per Go
// convention "accept interfaces, return structs"; the CLI supplies a
// static environment-backed implementation.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a TokenSource wrapping a fixed token string.
type StaticToken string

// Token returns the wrapped token.
func (t StaticToken) Token() (string, error) { return string(t), nil }

// SendResult carries what the sync engine needs from a confirmed
// mutation. RemoteSessionID is set only for start-session responses.
type SendResult struct {
	RemoteSessionID string
}

// Client is the HTTP client for the remote workout service. It performs
// a single attempt per call — retry pacing belongs to the sync engine,
// which owns ordering and failure classification.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	logger     *slog.Logger
}

// NewClient creates a workout service client.
func NewClient(baseURL string, httpClient *http.Client, token TokenSource, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		token:      token,
		logger:     logger,
	}
}

// Send transmits one mutation to its mapped endpoint and classifies the
// outcome. Transport failures and gateway statuses wrap ErrUnavailable;
// other non-2xx responses return *Error carrying the service's message.
func (c *Client) Send(ctx context.Context, m workout.Mutation) (*SendResult, error) {
	req, err := buildRequest(m)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		// The request never completed: connectivity.
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, req.method, req.path, err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		body = nil
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		c.logger.Debug("mutation confirmed",
			slog.String("kind", string(m.Kind())),
			slog.Int("status", resp.StatusCode),
		)

		return parseSendResult(m, body), nil
	}

	if isGatewayStatus(resp.StatusCode) {
		return nil, fmt.Errorf("%w: %s %s: HTTP %d", ErrUnavailable, req.method, req.path, resp.StatusCode)
	}

	return nil, &Error{
		StatusCode: resp.StatusCode,
		Message:    errorMessage(body),
	}
}

// Ping probes the service health endpoint. It reports nil when the
// service answered at all — any HTTP status means connectivity exists.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/health", nil)
	if err != nil {
		return fmt.Errorf("api: building ping request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ping: %v", ErrUnavailable, err)
	}

	resp.Body.Close()

	return nil
}

// do executes a single HTTP request (no retry).
func (c *Client) do(ctx context.Context, r request) (*http.Response, error) {
	var bodyReader io.Reader

	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("api: encoding %s %s body: %w", r.method, r.path, err)
		}

		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("api: building request: %w", err)
	}

	tok, err := c.token.Token()
	if err != nil {
		return nil, fmt.Errorf("api: obtaining token: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", userAgent)

	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

// parseSendResult extracts the remote session id from a start-session
// acknowledgement. Other mutations carry no interesting response fields.
func parseSendResult(m workout.Mutation, body []byte) *SendResult {
	if _, ok := m.(workout.StartSession); !ok {
		return &SendResult{}
	}

	var ack struct {
		ID string `json:"id"`
	}

	if err := json.Unmarshal(body, &ack); err != nil {
		return &SendResult{}
	}

	return &SendResult{RemoteSessionID: ack.ID}
}

// errorMessage pulls the human-readable error field from a non-success
// response body, falling back to the raw body text.
func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}

	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}

	return string(body)
}
