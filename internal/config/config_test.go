package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"ROUTEDESK_PIPELINE_URL", "ROUTEDESK_ADDRESS_URL", "ROUTEDESK_DB", "ROUTEDESK_SESSION_ID"} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "routedesk.yaml")
	content := "pipeline_url: http://chat.local/pipeline\naddress_url: \"\"\ndebug: true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://chat.local/pipeline", cfg.PipelineURL)
	assert.Equal(t, DefaultAddressURL, cfg.AddressURL, "blank value falls back to default")
	assert.True(t, cfg.Debug)
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline_url: [unterminated"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("env wins over file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ROUTEDESK_ADDRESS_URL", "http://env.local/api")
		t.Setenv("ROUTEDESK_SESSION_ID", "abc")

		path := filepath.Join(t.TempDir(), "routedesk.yaml")
		require.NoError(t, os.WriteFile(path, []byte("address_url: http://file.local/api\n"), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "http://env.local/api", cfg.AddressURL)
		assert.Equal(t, "abc", cfg.SessionID)
	})

	t.Run("empty env leaves value", func(t *testing.T) {
		clearEnv(t)
		cfg := Config{DBPath: "x.db"}
		cfg.applyEnvOverrides()
		assert.Equal(t, "x.db", cfg.DBPath)
	})
}
