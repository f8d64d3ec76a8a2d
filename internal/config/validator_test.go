package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		Grip: GripConfig{
			Proxies: []ProxyConfig{{ControlURI: "http://localhost:5561"}},
		},
	}
	cfg.SetDefaults()
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:   "no proxies is valid when not required",
			mutate: func(c *Config) { c.Grip.Proxies = nil },
		},
		{
			name:    "proxy required without proxies",
			mutate:  func(c *Config) { c.Grip.Proxies = nil; c.Grip.ProxyRequired = true },
			wantErr: "proxy_required",
		},
		{
			name:    "bad listen address",
			mutate:  func(c *Config) { c.Server.HTTPAddr = "not-an-addr" },
			wantErr: "server.httpaddr",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Server.LogLevel = "chatty" },
			wantErr: "loglevel",
		},
		{
			name:    "missing control uri",
			mutate:  func(c *Config) { c.Grip.Proxies[0].ControlURI = "" },
			wantErr: "controluri",
		},
		{
			name:    "bad base64 key",
			mutate:  func(c *Config) { c.Grip.Proxies[0].Key = "base64:!!!" },
			wantErr: "grip_key",
		},
		{
			name:   "plain key is valid",
			mutate: func(c *Config) { c.Grip.Proxies[0].Key = "changeme" },
		},
		{
			name:    "bad grip url",
			mutate:  func(c *Config) { c.Grip.URL = "ftp://nope" },
			wantErr: "grip.url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() error = nil, want failure")
			}
			if !strings.Contains(strings.ToLower(err.Error()), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}
