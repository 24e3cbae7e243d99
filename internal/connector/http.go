package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/edap/edap-server/internal/model"
)

const (
	// DefaultTimeout bounds a single request to the scraper service
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the largest snapshot accepted (32MB)
	MaxResponseSize = 32 * 1024 * 1024

	// UserAgent is sent with every request
	UserAgent = "edap-server/1.0"
)

// HTTPConnector talks to a scraper service that exposes the portal as JSON:
// POST {endpoint}/login and POST {endpoint}/snapshot.
type HTTPConnector struct {
	endpoint string
	client   *http.Client
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Session string `json:"session"`
}

type snapshotRequest struct {
	Session string `json:"session"`
}

// NewHTTPConnector creates an HTTPConnector. A zero timeout uses DefaultTimeout.
func NewHTTPConnector(endpoint string, timeout time.Duration) *HTTPConnector {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &HTTPConnector{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

// Login implements Connector.
func (c *HTTPConnector) Login(ctx context.Context, username, secret string) (Session, error) {
	var resp loginResponse
	if err := c.post(ctx, "login", loginRequest{Username: username, Password: secret}, &resp); err != nil {
		return Session{}, err
	}
	if resp.Session == "" {
		return Session{}, &Error{Kind: KindInvalidResponse, Op: "login", Err: fmt.Errorf("no session in response")}
	}
	return Session{Username: username, ID: resp.Session}, nil
}

// FetchSnapshot implements Connector.
func (c *HTTPConnector) FetchSnapshot(ctx context.Context, s Session) (*model.ProfileSnapshot, error) {
	var snap model.ProfileSnapshot
	if err := c.post(ctx, "snapshot", snapshotRequest{Session: s.ID}, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *HTTPConnector) post(ctx context.Context, op string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &Error{Kind: KindInvalidResponse, Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/"+op, bytes.NewReader(payload))
	if err != nil {
		return &Error{Kind: KindNetwork, Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Op: op, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if kind, ok := statusKind(resp.StatusCode); ok {
		return &Error{Kind: kind, Op: op, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	// +1 to detect an oversized body
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return &Error{Kind: KindNetwork, Op: op, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	if len(data) > MaxResponseSize {
		return &Error{Kind: KindInvalidResponse, Op: op, Err: fmt.Errorf("response exceeds %d bytes", MaxResponseSize)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindParse, Op: op, Err: err}
	}
	return nil
}

// statusKind maps a non-success status to an error kind.
func statusKind(code int) (Kind, bool) {
	switch {
	case code >= 200 && code < 300:
		return 0, false
	case code == http.StatusUnauthorized:
		return KindWrongCredentials, true
	case code == http.StatusServiceUnavailable:
		return KindMaintenance, true
	case code == http.StatusBadGateway, code == http.StatusGatewayTimeout:
		return KindNetwork, true
	default:
		return KindInvalidResponse, true
	}
}
