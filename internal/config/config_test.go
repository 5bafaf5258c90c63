package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/frostdev-ops/fileflows-bridge/internal/adapters/fileflows"
)

func writeConfig(t *testing.T, doc map[string]interface{}) string {
	t.Helper()
	data, err := yaml.Marshal(doc)
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0o600))
	return dir
}

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "JWT_SECRET", "FILEFLOWS_HOST", "FILEFLOWS_PORT",
		"FILEFLOWS_ACCESS_TOKEN", "FILEFLOWS_USERNAME", "FILEFLOWS_PASSWORD", "FILEFLOWS_STATE_PATH",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	dir := writeConfig(t, map[string]interface{}{
		"server": map[string]interface{}{"port": 8099},
		"fileflows": map[string]interface{}{
			"host":          "fileflows.lan",
			"ssl":           true,
			"verify_ssl":    false,
			"username":      "admin",
			"password":      "hunter2",
			"session_ttl":   "20m",
			"poll_interval": "15s",
		},
		"state": map[string]interface{}{"path": "/var/lib/bridge/state.zst"},
	})

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 8099, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "fileflows.lan", cfg.FileFlows.Host)
	assert.Equal(t, fileflows.DefaultPort, cfg.FileFlows.Port)
	assert.Equal(t, 20*time.Minute, cfg.FileFlows.SessionTTL)
	assert.Equal(t, 15*time.Second, cfg.FileFlows.PollInterval)
	assert.Equal(t, fileflows.DefaultTimeout, cfg.FileFlows.RequestTimeout)
	assert.Equal(t, "/var/lib/bridge/state.zst", cfg.State.Path)
	assert.Equal(t, "fileflows_bridge", cfg.Monitoring.Prefix)

	mode, err := cfg.FileFlows.AuthMode()
	require.NoError(t, err)
	assert.Equal(t, fileflows.Login{Username: "admin", Password: "hunter2", TTL: 20 * time.Minute}, mode)

	clientCfg, err := cfg.FileFlows.ClientConfig()
	require.NoError(t, err)
	assert.True(t, clientCfg.SSL)
	assert.True(t, clientCfg.InsecureSkipVerify)

	opts := cfg.FileFlows.CoordinatorOptions()
	assert.Equal(t, 15*time.Second, opts.PollInterval)
	assert.Equal(t, 4, opts.Concurrency)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	dir := writeConfig(t, map[string]interface{}{
		"fileflows": map[string]interface{}{"host": "from-file"},
	})
	t.Setenv("FILEFLOWS_HOST", "from-env")
	t.Setenv("FILEFLOWS_PORT", "5000")
	t.Setenv("FILEFLOWS_ACCESS_TOKEN", "tok")
	t.Setenv("PORT", "9000")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.FileFlows.Host)
	assert.Equal(t, 5000, cfg.FileFlows.Port)
	assert.Equal(t, 9000, cfg.Server.Port)

	mode, err := cfg.FileFlows.AuthMode()
	require.NoError(t, err)
	assert.Equal(t, fileflows.HeaderToken{Token: "tok", Header: fileflows.DefaultTokenHeader}, mode)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	clearEnv(t)
	dir := writeConfig(t, map[string]interface{}{
		"auth": map[string]interface{}{"enabled": true},
		"fileflows": map[string]interface{}{
			"host":          "",
			"poll_interval": "100ms",
		},
	})

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fileflows.host is required")
	assert.Contains(t, err.Error(), "auth.jwt_secret")
	assert.Contains(t, err.Error(), "poll_interval")
}

func TestAuthMode(t *testing.T) {
	tests := []struct {
		name    string
		cfg     FileFlowsConfig
		want    fileflows.AuthMode
		wantErr bool
	}{
		{name: "none", cfg: FileFlowsConfig{}, want: fileflows.NoAuth{}},
		{name: "header token", cfg: FileFlowsConfig{AccessToken: " abc ", TokenHeader: "x-token"}, want: fileflows.HeaderToken{Token: "abc", Header: "x-token"}},
		{name: "bearer token", cfg: FileFlowsConfig{AccessToken: "abc", TokenScheme: "Bearer"}, want: fileflows.BearerToken{Token: "abc"}},
		{name: "login", cfg: FileFlowsConfig{Username: "u", Password: "p"}, want: fileflows.Login{Username: "u", Password: "p"}},
		{name: "both credentials", cfg: FileFlowsConfig{AccessToken: "abc", Username: "u", Password: "p"}, wantErr: true},
		{name: "username only", cfg: FileFlowsConfig{Username: "u"}, wantErr: true},
		{name: "unknown scheme", cfg: FileFlowsConfig{AccessToken: "abc", TokenScheme: "cookie"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, err := tt.cfg.AuthMode()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, mode)
		})
	}
}
