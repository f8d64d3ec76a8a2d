// Package service wires trust configuration and the publisher into a
// single Gate instance consumed by the HTTP middleware.
package service

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/grip-gate/gripgate/internal/adapter/outbound/epcp"
	"github.com/grip-gate/gripgate/internal/config"
	"github.com/grip-gate/gripgate/internal/domain/trust"
)

var (
	// ErrConfigMissing indicates no trust configuration has been applied.
	ErrConfigMissing = errors.New("no grip configuration provided")

	// ErrAlreadyInitialized indicates an attempt to reconfigure the gate
	// after the publisher has been instantiated.
	ErrAlreadyInitialized = errors.New("grip configuration already initialized")
)

// ProxyEntry pairs one proxy's control endpoint with its trust credential.
type ProxyEntry struct {
	ControlURI string
	Credential trust.Credential
}

// GateConfig is the applied trust configuration.
type GateConfig struct {
	Proxies       []ProxyEntry
	ProxyRequired bool
	Prefix        string
}

// GateConfigFromFile converts the file-level configuration, decoding keys.
func GateConfigFromFile(cfg *config.Config) (GateConfig, error) {
	proxies, err := cfg.AllProxies()
	if err != nil {
		return GateConfig{}, err
	}
	gc := GateConfig{
		ProxyRequired: cfg.Grip.ProxyRequired,
		Prefix:        cfg.Grip.Prefix,
	}
	for _, p := range proxies {
		key, err := p.DecodeKey()
		if err != nil {
			return GateConfig{}, err
		}
		gc.Proxies = append(gc.Proxies, ProxyEntry{
			ControlURI: p.ControlURI,
			Credential: trust.Credential{Iss: p.ControlIss, Key: key},
		})
	}
	return gc, nil
}

// Gate owns the trust configuration and the shared publisher. Configuration
// is one-shot: once the publisher has been materialized, ApplyConfig fails.
// All other state is read-only after initialization, so a single Gate is
// safe to share across requests.
type Gate struct {
	logger     *slog.Logger
	publishes  *prometheus.CounterVec
	httpClient *http.Client

	mu        sync.Mutex
	applied   bool
	cfg       GateConfig
	publisher *Publisher
}

// GateOption is a functional option for configuring Gate.
type GateOption func(*Gate)

// WithLogger sets the logger for the gate and its publisher.
func WithLogger(logger *slog.Logger) GateOption {
	return func(g *Gate) {
		g.logger = logger
	}
}

// WithHTTPClient sets the HTTP client used by the publish clients.
func WithHTTPClient(hc *http.Client) GateOption {
	return func(g *Gate) {
		g.httpClient = hc
	}
}

// NewGate creates an unconfigured gate.
func NewGate(opts ...GateOption) *Gate {
	g := &Gate{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SetPublishCounter records publish outcomes to the given counter
// (label: result=ok|error). The HTTP adapter calls this once its metrics
// registry exists, before serving requests; the counter also reaches an
// already materialized publisher.
func (g *Gate) SetPublishCounter(c *prometheus.CounterVec) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.publishes = c
	if g.publisher != nil {
		g.publisher.publishes = c
	}
}

// ApplyConfig applies the trust configuration. It fails with
// ErrAlreadyInitialized once the publisher has been instantiated.
func (g *Gate) ApplyConfig(cfg GateConfig) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.publisher != nil {
		return ErrAlreadyInitialized
	}
	g.cfg = cfg
	g.applied = true
	return nil
}

// Configured reports whether a trust configuration has been applied.
func (g *Gate) Configured() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.applied
}

// ProxyRequired reports whether non-proxied requests must be rejected.
func (g *Gate) ProxyRequired() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cfg.ProxyRequired
}

// Prefix returns the configured channel prefix.
func (g *Gate) Prefix() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cfg.Prefix
}

// Publisher returns the shared publisher, building it on first use. From
// that point the configuration is frozen.
func (g *Gate) Publisher() (*Publisher, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.applied {
		return nil, ErrConfigMissing
	}
	if g.publisher == nil {
		clients := make([]*epcp.Client, 0, len(g.cfg.Proxies))
		for _, p := range g.cfg.Proxies {
			opts := []epcp.Option{epcp.WithLogger(g.logger)}
			if g.httpClient != nil {
				opts = append(opts, epcp.WithHTTPClient(g.httpClient))
			}
			clients = append(clients, epcp.NewClient(p.ControlURI, p.Credential, opts...))
		}
		g.publisher = &Publisher{
			prefix:    g.cfg.Prefix,
			clients:   clients,
			logger:    g.logger,
			publishes: g.publishes,
		}
	}
	return g.publisher, nil
}

// Credentials returns the trust credentials of the configured proxies, as
// exposed by the publisher's client list.
func (g *Gate) Credentials() ([]trust.Credential, error) {
	pub, err := g.Publisher()
	if err != nil {
		return nil, err
	}
	clients := pub.Clients()
	creds := make([]trust.Credential, len(clients))
	for i, c := range clients {
		creds[i] = c.Credential()
	}
	return creds, nil
}
