package configuration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConfiguration checks the defaults applied after loading
func TestConfiguration(t *testing.T) {
	t.Run("relay_defaults", func(t *testing.T) {
		require.NotEmpty(t, C.Relay.StagingDir)
		assert.Equal(t, DefaultMaxFileSizeBytes, C.Relay.MaxFileSizeBytes)
		assert.Equal(t, 30, C.Relay.ConnectTimeoutSeconds)
		assert.Equal(t, 30, C.Relay.ListTimeoutSeconds)
		assert.Equal(t, 300, C.Relay.FetchTimeoutSeconds)
		assert.Equal(t, 50, C.Relay.HistoryLimit)
	})

	t.Run("app_defaults", func(t *testing.T) {
		assert.NotZero(t, C.App.Port)
		assert.NotEmpty(t, C.App.Origins)
	})
}

func TestGetRelayConfig_EnvTakesPrecedence(t *testing.T) {
	t.Setenv("TELEGRAM_SESSION", "1abc")
	t.Setenv("TELEGRAM_CHAT_ID", "@render_bot")
	t.Setenv("TELEGRAM_APP_ID", "12345")
	t.Setenv("DRIVE_DEFAULT_FOLDER_ID", "folder-env")

	cfg, err := GetRelayConfig()
	require.NoError(t, err)
	assert.Equal(t, "1abc", cfg.SessionToken)
	assert.Equal(t, "@render_bot", cfg.ChatID)
	assert.Equal(t, 12345, cfg.TelegramAppID)
	assert.Equal(t, "folder-env", cfg.DefaultFolderID)
	assert.Equal(t, int64(100*1024*1024), cfg.MaxFileSizeBytes)
	assert.Equal(t, 30*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 30*time.Second, cfg.ListTimeout)
	assert.Equal(t, 5*time.Minute, cfg.FetchTimeout)
	assert.Contains(t, cfg.RedirectURL, "/auth/drive/callback")
}

func TestGetRelayConfig_InvalidAppID(t *testing.T) {
	t.Setenv("TELEGRAM_APP_ID", "not-a-number")

	_, err := GetRelayConfig()
	require.Error(t, err)
}

func TestGetRelayConfig_ServiceAccountFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sa.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600))
	t.Setenv("DRIVE_SERVICE_ACCOUNT_FILE", path)

	cfg, err := GetRelayConfig()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"service_account"}`, string(cfg.ServiceAccountJSON))
}

func TestLoadEnvFromFile_DoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("RELAY_TEST_KEEP=file\nRELAY_TEST_NEW=\"from-file\"\n# comment\n"), 0o600))
	t.Setenv("RELAY_TEST_KEEP", "process")
	t.Setenv("RELAY_TEST_NEW", "")
	require.NoError(t, os.Unsetenv("RELAY_TEST_NEW"))

	loaded := LoadEnvFromFile(path, filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, []string{path}, loaded)
	assert.Equal(t, "process", os.Getenv("RELAY_TEST_KEEP"))
	assert.Equal(t, "from-file", os.Getenv("RELAY_TEST_NEW"))
	require.NoError(t, os.Unsetenv("RELAY_TEST_NEW"))
}

func TestLoadEnvFromFile_AppliesOverrides(t *testing.T) {
	saved := C
	t.Cleanup(func() { C = saved })
	C.Database.Psql.Host = ""
	C.App.SecretKey = ""
	for _, key := range []string{"DB_HOST", "SECRET_KEY"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	path := filepath.Join(t.TempDir(), "config.env")
	require.NoError(t, os.WriteFile(path, []byte("DB_HOST=db.internal\nSECRET_KEY=from-file\n"), 0o600))

	LoadEnvFromFile(path)

	assert.Equal(t, "db.internal", C.Database.Psql.Host)
	assert.Equal(t, "from-file", C.App.SecretKey)
}
