package config_test

import (
	"os"
	"path/filepath"
	"testing"

	assert "github.com/stretchr/testify/assert"

	"github.com/mcpcore/mcp-runtime/pkg/config"
)

func writeTempFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadServerConfigAppliesDefaults(t *testing.T) {
	assert := assert.New(t)
	path := writeTempFile(t, "transport:\n  type: stdio\n")

	cfg, err := config.LoadServerConfig(path)
	if !assert.NoError(err) {
		t.FailNow()
	}
	assert.Equal("stdio", cfg.Transport.Type)
	assert.Equal(4, cfg.NumThreads)
}

func TestLoadServerConfigAliasesSSEToHTTP(t *testing.T) {
	assert := assert.New(t)
	path := writeTempFile(t, "transport:\n  type: sse\n  port: 9000\n")

	cfg, err := config.LoadServerConfig(path)
	if !assert.NoError(err) {
		t.FailNow()
	}
	assert.Equal("http", cfg.Transport.Type)
	assert.Equal(9000, cfg.Transport.Port)
}

func TestLoadServerConfigRespectsExplicitNumThreads(t *testing.T) {
	assert := assert.New(t)
	path := writeTempFile(t, "transport:\n  type: http\n  port: 8080\nnum-threads: 16\n")

	cfg, err := config.LoadServerConfig(path)
	if !assert.NoError(err) {
		t.FailNow()
	}
	assert.Equal(16, cfg.NumThreads)
}

func TestLoadServerConfigMissingFile(t *testing.T) {
	_, err := config.LoadServerConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.New(t).Error(err)
}

func TestDefaultServerConfig(t *testing.T) {
	assert := assert.New(t)
	cfg := config.DefaultServerConfig()
	assert.Equal("stdio", cfg.Transport.Type)
	assert.Equal(4, cfg.NumThreads)
}

func TestLoadClientConfig(t *testing.T) {
	assert := assert.New(t)
	path := writeTempFile(t, "transport:\n  type: http\n  url: http://localhost:8080\nclient-info:\n  name: demo\n  version: 1.0.0\n")

	cfg, err := config.LoadClientConfig(path)
	if !assert.NoError(err) {
		t.FailNow()
	}
	assert.Equal("demo", cfg.ClientInfo.Name)
	assert.Equal("http://localhost:8080", cfg.Transport.URL)
}
