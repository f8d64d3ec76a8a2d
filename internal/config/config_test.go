package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("restore wd: %v", err)
		}
	})
}

func writeConfigFile(t *testing.T, cfg Config) string {
	t.Helper()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "gripgate.yaml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := writeConfigFile(t, Config{
		Server: ServerConfig{HTTPAddr: "127.0.0.1:9001", LogLevel: "debug"},
		Grip: GripConfig{
			Proxies: []ProxyConfig{{
				ControlURI: "http://localhost:5561",
				ControlIss: "realm",
				Key:        "base64:c2VjcmV0",
			}},
			ProxyRequired: true,
			Prefix:        "app-",
		},
	})
	InitViper(path)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "127.0.0.1:9001" {
		t.Errorf("HTTPAddr = %q", cfg.Server.HTTPAddr)
	}
	if len(cfg.Grip.Proxies) != 1 || cfg.Grip.Proxies[0].ControlIss != "realm" {
		t.Errorf("proxies = %+v", cfg.Grip.Proxies)
	}
	if !cfg.Grip.ProxyRequired || cfg.Grip.Prefix != "app-" {
		t.Errorf("grip = %+v", cfg.Grip)
	}

	key, err := cfg.Grip.Proxies[0].DecodeKey()
	if err != nil || string(key) != "secret" {
		t.Errorf("DecodeKey() = %q, %v", key, err)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	// Point at an empty directory so no config file is found.
	chdir(t, t.TempDir())
	InitViper("")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Server.HTTPAddr != "127.0.0.1:8080" {
		t.Errorf("default HTTPAddr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Server.LogLevel != "info" {
		t.Errorf("default LogLevel = %q", cfg.Server.LogLevel)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	chdir(t, t.TempDir())
	t.Setenv("GRIPGATE_GRIP_URL", "http://localhost:5561?iss=realm&key=changeme")
	t.Setenv("GRIPGATE_GRIP_PREFIX", "env-")
	InitViper("")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Grip.Prefix != "env-" {
		t.Errorf("Prefix = %q, want env-", cfg.Grip.Prefix)
	}

	proxies, err := cfg.AllProxies()
	if err != nil {
		t.Fatalf("AllProxies() error = %v", err)
	}
	if len(proxies) != 1 {
		t.Fatalf("AllProxies() = %d entries, want 1", len(proxies))
	}
	if proxies[0].ControlURI != "http://localhost:5561" || proxies[0].ControlIss != "realm" {
		t.Errorf("proxy = %+v", proxies[0])
	}
}

func TestParseGripURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    ProxyConfig
		wantErr bool
	}{
		{
			name: "uri with auth params",
			url:  "https://api.example.com/realm?iss=realm&key=base64:c2VjcmV0",
			want: ProxyConfig{
				ControlURI: "https://api.example.com/realm",
				ControlIss: "realm",
				Key:        "base64:c2VjcmV0",
			},
		},
		{
			name: "plain uri",
			url:  "http://localhost:5561",
			want: ProxyConfig{ControlURI: "http://localhost:5561"},
		},
		{
			name: "other query params survive",
			url:  "http://localhost:5561/path?iss=r&x=1",
			want: ProxyConfig{ControlURI: "http://localhost:5561/path?x=1", ControlIss: "r"},
		},
		{
			name:    "bad scheme",
			url:     "ftp://proxy",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseGripURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseGripURL() = %+v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseGripURL() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseGripURL() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
