package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	autherrors "github.com/adboardhq/auth-relay/internal/errors"
	"github.com/adboardhq/auth-relay/message"
	"github.com/pkg/errors"
)

const defaultRequestTimeout = 10 * time.Second

// openRequest is the body of POST /relay/sessions.
type openRequest struct {
	SessionID string `json:"sessionId"`
}

// writeRequest is the body of POST /relay.
type writeRequest struct {
	SessionID string              `json:"sessionId"`
	AuthData  message.AuthMessage `json:"authData"`
}

// readResponse is the body of GET /relay.
type readResponse struct {
	Found    bool                 `json:"found"`
	AuthData *message.AuthMessage `json:"authData,omitempty"`
}

// Client talks to the relay server's HTTP boundary. Both the initiator
// (open + poll) and the completion emitter (write) use it.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption modifies a Client instance.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a relay client against the given base URL
// (e.g. "https://relay.adboardhq.com").
func NewClient(baseURL string, options ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Open registers an empty relay session before the popup is launched.
func (c *Client) Open(ctx context.Context, sessionID string) error {
	body, err := json.Marshal(openRequest{SessionID: sessionID})
	if err != nil {
		return errors.Wrap(err, "[Client.Open] json.Marshal")
	}
	resp, err := c.post(ctx, "/relay/sessions", body)
	if err != nil {
		return errors.Wrap(err, "[Client.Open]")
	}
	defer drainAndClose(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("[Client.Open] unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Write stores the login result under the session id. The server accepts
// duplicate writes (first-write-wins) with 200.
func (c *Client) Write(ctx context.Context, sessionID string, authData message.AuthMessage) error {
	body, err := json.Marshal(writeRequest{SessionID: sessionID, AuthData: authData})
	if err != nil {
		return errors.Wrap(err, "[Client.Write] json.Marshal")
	}
	resp, err := c.post(ctx, "/relay", body)
	if err != nil {
		return errors.Wrap(err, "[Client.Write]")
	}
	defer drainAndClose(resp.Body)
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound, http.StatusGone:
		return autherrors.ErrSessionNotFound
	default:
		return errors.Errorf("[Client.Write] unexpected status %d", resp.StatusCode)
	}
}

// Read polls the session once. Returns (nil, nil) while the session exists
// but has not been written.
func (c *Client) Read(ctx context.Context, sessionID string) (*message.AuthMessage, error) {
	u := c.baseURL + "/relay?sessionId=" + url.QueryEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Read] http.NewRequest")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Read] do")
	}
	defer drainAndClose(resp.Body)
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusGone:
		return nil, autherrors.ErrSessionNotFound
	default:
		return nil, errors.Errorf("[Client.Read] unexpected status %d", resp.StatusCode)
	}
	var parsed readResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errors.Wrap(err, "[Client.Read] decode")
	}
	if !parsed.Found {
		return nil, nil
	}
	return parsed.AuthData, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "http.NewRequest")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
