// Package epcp implements the outbound publish client speaking the EPCP
// (Extensible Pubsub Control Protocol) HTTP wire format to a GRIP proxy's
// control endpoint.
package epcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/grip-gate/gripgate/internal/domain/trust"
	"github.com/grip-gate/gripgate/pkg/grip"
)

// publishTokenTTL bounds the validity of minted publish bearer tokens.
const publishTokenTTL = time.Hour

// Client publishes items to one proxy control endpoint. It performs no
// internal retries; retry policy belongs to the caller.
type Client struct {
	controlURI string
	cred       trust.Credential
	httpClient *http.Client
	logger     *slog.Logger
}

// Option is a functional option for configuring Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger for the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a publish client for the given control URI and
// credential.
func NewClient(controlURI string, cred trust.Credential, opts ...Option) *Client {
	c := &Client{
		controlURI: strings.TrimSuffix(controlURI, "/"),
		cred:       cred,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ControlURI returns the configured control endpoint.
func (c *Client) ControlURI() string {
	return c.controlURI
}

// Credential returns the trust credential associated with this proxy. The
// trust evaluator consumes these from the publisher's client list.
func (c *Client) Credential() trust.Credential {
	return c.cred
}

// publishRequest is the EPCP publish request body.
type publishRequest struct {
	Items []grip.Item `json:"items"`
}

// Publish POSTs the item to the proxy's publish endpoint. The item's
// channel must already be fully qualified.
func (c *Client) Publish(ctx context.Context, item grip.Item) error {
	body, err := json.Marshal(publishRequest{Items: []grip.Item{item}})
	if err != nil {
		return fmt.Errorf("failed to marshal publish request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.controlURI+"/publish/", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cred.RequiresSig() {
		token, err := grip.SignToken(c.cred.Iss, c.cred.Key, publishTokenTTL)
		if err != nil {
			return fmt.Errorf("failed to sign publish token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("publish to %s failed: %w", c.controlURI, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Bounded read keeps a misbehaving proxy from bloating the error.
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("publish to %s failed: status %d: %s",
			c.controlURI, resp.StatusCode, strings.TrimSpace(string(excerpt)))
	}

	c.logger.Debug("published item",
		"control_uri", c.controlURI,
		"channel", item.Channel,
		"id", item.ID,
	)
	return nil
}
