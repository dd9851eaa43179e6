// Package config loads the YAML-based create-server/create-client option
// sets (spec §6 "External Interfaces").
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TransportConfig describes the transport a server or client should use.
// Type selects the variant; the other fields are interpreted accordingly
// (spec §6: server transports are stdio/http/in-memory/sse; client
// transports are stdio/http/in-memory).
type TransportConfig struct {
	Type           string   `yaml:"type"`
	Port           int      `yaml:"port,omitempty"`
	AllowedOrigins []string `yaml:"allowed-origins,omitempty"`
	Shared         string   `yaml:"shared,omitempty"`
	Command        string   `yaml:"command,omitempty"`
	Args           []string `yaml:"args,omitempty"`
	Env            []string `yaml:"env,omitempty"`
	URL            string   `yaml:"url,omitempty"`
}

// ClientInfo mirrors mcp.Implementation for YAML decoding.
type ClientInfo struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Title   string `yaml:"title,omitempty"`
}

// CapabilityConfig is a loosely-typed capability declaration: absent entries
// are treated as "not supported" (spec §6).
type CapabilityConfig map[string]any

// ServerConfig is the option set recognized by create-server (spec §6).
type ServerConfig struct {
	Transport    TransportConfig             `yaml:"transport"`
	NumThreads   int                         `yaml:"num-threads,omitempty"`
	Tools        map[string]any              `yaml:"tools,omitempty"`
	Prompts      map[string]any              `yaml:"prompts,omitempty"`
	Resources    map[string]any              `yaml:"resources,omitempty"`
	Capabilities map[string]CapabilityConfig `yaml:"capabilities,omitempty"`
}

// ClientConfig is the option set recognized by create-client (spec §6).
type ClientConfig struct {
	Transport       TransportConfig `yaml:"transport"`
	ClientInfo      ClientInfo      `yaml:"client-info"`
	Capabilities    map[string]any  `yaml:"capabilities,omitempty"`
	ProtocolVersion string          `yaml:"protocol-version,omitempty"`
}

// LoadServerConfig reads and parses a server configuration file, applying
// the num-threads default.
func LoadServerConfig(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading server config: %w", err)
	}
	var cfg ServerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing server config: %w", err)
	}
	applyServerDefaults(&cfg)
	return &cfg, nil
}

// LoadClientConfig reads and parses a client configuration file.
func LoadClientConfig(path string) (*ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading client config: %w", err)
	}
	var cfg ClientConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing client config: %w", err)
	}
	return &cfg, nil
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.NumThreads <= 0 {
		cfg.NumThreads = 4
	}
	if cfg.Transport.Type == "sse" {
		// Legacy alias (spec §6): the HTTP+SSE transport serves both names.
		cfg.Transport.Type = "http"
	}
}

// DefaultServerConfig returns the configuration used when no file is
// supplied: stdio transport, default worker count.
func DefaultServerConfig() *ServerConfig {
	cfg := &ServerConfig{Transport: TransportConfig{Type: "stdio"}}
	applyServerDefaults(cfg)
	return cfg
}
