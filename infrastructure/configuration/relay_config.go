package configuration

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultMaxFileSizeBytes caps a staged download at 100 MB.
const DefaultMaxFileSizeBytes int64 = 100 * 1024 * 1024

// RelayConfig is the resolved runtime configuration of the relay.
type RelayConfig struct {
	TelegramAppID      int
	TelegramAppHash    string
	SessionToken       string
	ChatID             string
	DefaultFolderID    string
	ClientID           string
	ClientSecret       string
	RedirectURL        string
	ServiceAccountJSON []byte
	StagingDir         string
	MaxFileSizeBytes   int64
	ConnectTimeout     time.Duration
	ListTimeout        time.Duration
	FetchTimeout       time.Duration
	HistoryLimit       int
	ChannelCacheTTL    time.Duration
}

// GetRelayConfig returns relay configuration from JSON config with environment variable precedence
func GetRelayConfig() (*RelayConfig, error) {
	scheme := "http"
	if C.App.TLSEnabled {
		scheme = "https"
	}
	port := C.App.Port
	if port == 0 {
		port = 10001
	}
	defaultRedirect := fmt.Sprintf("%s://localhost:%d/auth/drive/callback", scheme, port)

	cfg := &RelayConfig{
		TelegramAppHash:  getConfigValue(C.Telegram.AppHash, "TELEGRAM_APP_HASH", ""),
		SessionToken:     getConfigValue(C.Telegram.Session, "TELEGRAM_SESSION", ""),
		ChatID:           getConfigValue(C.Telegram.ChatID, "TELEGRAM_CHAT_ID", ""),
		DefaultFolderID:  getConfigValue(C.Drive.DefaultFolderID, "DRIVE_DEFAULT_FOLDER_ID", ""),
		ClientID:         getConfigValue(C.Drive.ClientID, "GOOGLE_CLIENT_ID", ""),
		ClientSecret:     getConfigValue(C.Drive.ClientSecret, "GOOGLE_CLIENT_SECRET", ""),
		RedirectURL:      getConfigValue(C.Drive.RedirectURI, "DRIVE_REDIRECT_URL", defaultRedirect),
		StagingDir:       getConfigValue(C.Relay.StagingDir, "RELAY_STAGING_DIR", os.TempDir()),
		MaxFileSizeBytes: C.Relay.MaxFileSizeBytes,
		ConnectTimeout:   seconds(C.Relay.ConnectTimeoutSeconds, 30),
		ListTimeout:      seconds(C.Relay.ListTimeoutSeconds, 30),
		FetchTimeout:     seconds(C.Relay.FetchTimeoutSeconds, 300),
		HistoryLimit:     C.Relay.HistoryLimit,
		ChannelCacheTTL:  seconds(C.Relay.ChannelCacheSeconds, 60),
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = DefaultMaxFileSizeBytes
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}

	cfg.TelegramAppID = C.Telegram.AppID
	if v := os.Getenv("TELEGRAM_APP_ID"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_APP_ID %q: %w", v, err)
		}
		cfg.TelegramAppID = id
	}

	serviceJSON, err := loadServiceAccount(
		getConfigValue(C.Drive.ServiceAccountJSON, "DRIVE_SERVICE_ACCOUNT_JSON", ""),
		getConfigValue(C.Drive.ServiceAccountFile, "DRIVE_SERVICE_ACCOUNT_FILE", ""),
	)
	if err != nil {
		return nil, err
	}
	cfg.ServiceAccountJSON = serviceJSON

	return cfg, nil
}

func loadServiceAccount(inline, path string) ([]byte, error) {
	if inline != "" {
		return []byte(inline), nil
	}
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file %s: %w", path, err)
	}
	return data, nil
}

// getConfigValue gets value from environment first, then config, then default
func getConfigValue(configValue, envKey, defaultValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if configValue != "" && !strings.HasPrefix(configValue, "YOUR_") {
		return configValue
	}
	return defaultValue
}

func seconds(v, fallback int) time.Duration {
	if v <= 0 {
		v = fallback
	}
	return time.Duration(v) * time.Second
}
