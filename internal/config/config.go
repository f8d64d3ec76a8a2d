// Package config provides configuration types and loading for gripgate.
package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// Config is the top-level configuration.
type Config struct {
	// Server configures the HTTP server listener.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Grip configures the proxy trust relationship and publishing.
	Grip GripConfig `yaml:"grip" mapstructure:"grip"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// HTTPAddr is the listen address. Default: 127.0.0.1:8080.
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"omitempty,hostname_port"`

	// LogLevel is one of debug, info, warn, error. Default: info.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// GripConfig configures the GRIP proxy relationship.
type GripConfig struct {
	// Proxies lists the proxy control endpoints the backend trusts and
	// publishes to. A GRIP URL (grip.url or GRIPGATE_GRIP_URL) is parsed
	// into an additional entry.
	Proxies []ProxyConfig `yaml:"proxies" mapstructure:"proxies" validate:"omitempty,dive"`

	// URL is a single-proxy shorthand in GRIP URL form, e.g.
	// "http://localhost:5561?iss=realm&key=base64:...".
	URL string `yaml:"url" mapstructure:"url"`

	// ProxyRequired rejects requests that did not arrive via a trusted
	// proxy with 501.
	ProxyRequired bool `yaml:"proxy_required" mapstructure:"proxy_required"`

	// Prefix qualifies every channel name on publish and subscribe.
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
}

// ProxyConfig describes one trusted proxy.
type ProxyConfig struct {
	// ControlURI is the base URI of the proxy's EPCP control endpoint.
	ControlURI string `yaml:"control_uri" mapstructure:"control_uri" validate:"required,url"`

	// ControlIss is the issuer claim for publish tokens (optional).
	ControlIss string `yaml:"control_iss" mapstructure:"control_iss"`

	// Key is the shared secret, either plain text or "base64:<data>".
	// Empty means the proxy is trusted without signatures.
	Key string `yaml:"key" mapstructure:"key" validate:"omitempty,grip_key"`
}

// DecodeKey returns the raw key bytes, handling the base64: form.
func (p ProxyConfig) DecodeKey() ([]byte, error) {
	if p.Key == "" {
		return nil, nil
	}
	if data, ok := strings.CutPrefix(p.Key, "base64:"); ok {
		decoded, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 key: %w", err)
		}
		return decoded, nil
	}
	return []byte(p.Key), nil
}

// ParseGripURL parses a GRIP URL into a proxy entry. The iss and key query
// parameters configure authentication; the rest of the URL is the control
// endpoint.
func ParseGripURL(raw string) (ProxyConfig, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return ProxyConfig{}, fmt.Errorf("invalid GRIP URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ProxyConfig{}, fmt.Errorf("invalid GRIP URL scheme %q", u.Scheme)
	}

	q := u.Query()
	p := ProxyConfig{
		ControlIss: q.Get("iss"),
		Key:        q.Get("key"),
	}
	q.Del("iss")
	q.Del("key")
	u.RawQuery = q.Encode()
	p.ControlURI = strings.TrimSuffix(u.String(), "?")
	return p, nil
}

// SetDefaults fills in default values for unset fields.
func (c *Config) SetDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "127.0.0.1:8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
}

// AllProxies returns the configured proxy entries, with any GRIP URL
// shorthand expanded.
func (c *Config) AllProxies() ([]ProxyConfig, error) {
	proxies := make([]ProxyConfig, len(c.Grip.Proxies))
	copy(proxies, c.Grip.Proxies)
	if c.Grip.URL != "" {
		p, err := ParseGripURL(c.Grip.URL)
		if err != nil {
			return nil, err
		}
		proxies = append(proxies, p)
	}
	return proxies, nil
}
