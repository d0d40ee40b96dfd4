package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soyeahso/agentcore/internal/entrypoint"
	"github.com/soyeahso/agentcore/internal/server"
	"github.com/soyeahso/agentcore/internal/version"
)

// minSessionIDLen is the shortest session id the runtime accepts.
const minSessionIDLen = 33

// NewSessionID returns a fresh runtime session id.
func NewSessionID() string {
	return "agentcore-session-" + uuid.New().String()
}

// PadSessionID extends id to the minimum accepted length.
func PadSessionID(id string) string {
	if len(id) >= minSessionIDLen {
		return id
	}
	return id + "-" + strings.Repeat("x", max(minSessionIDLen-len(id)-1, 0))
}

// InvokeClient calls a running agent runtime over HTTP.
type InvokeClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewInvokeClient returns a client for the runtime at baseURL.
func NewInvokeClient(baseURL string) *InvokeClient {
	return &InvokeClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// WithHTTPClient replaces the HTTP client.
func (c *InvokeClient) WithHTTPClient(hc *http.Client) *InvokeClient {
	c.httpClient = hc
	return c
}

// Invoke posts {"prompt": prompt} to /invocations. An empty sessionID gets
// a generated one. Error envelopes are returned, not treated as errors.
func (c *InvokeClient) Invoke(ctx context.Context, prompt, sessionID string) (entrypoint.Envelope, error) {
	if sessionID == "" {
		sessionID = NewSessionID()
	}
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return entrypoint.Envelope{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/invocations", bytes.NewReader(body))
	if err != nil {
		return entrypoint.Envelope{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set(server.SessionHeader, PadSessionID(sessionID))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return entrypoint.Envelope{}, fmt.Errorf("invoking %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return entrypoint.Envelope{}, fmt.Errorf("reading response: %w", err)
	}

	var env entrypoint.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return entrypoint.Envelope{}, fmt.Errorf("unexpected response (HTTP %d): %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return env, nil
}

// Ping checks the runtime's liveness endpoint.
func (c *InvokeClient) Ping(ctx context.Context) (server.PingResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ping", nil)
	if err != nil {
		return server.PingResponse{}, err
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return server.PingResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return server.PingResponse{}, fmt.Errorf("ping returned HTTP %d", resp.StatusCode)
	}
	var ping server.PingResponse
	if err := json.NewDecoder(resp.Body).Decode(&ping); err != nil {
		return server.PingResponse{}, fmt.Errorf("decoding ping: %w", err)
	}
	return ping, nil
}
