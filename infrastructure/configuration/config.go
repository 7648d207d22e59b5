package configuration

import (
	"fmt"
	"os"
	"strconv"

	"video-relay/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	Database    Database    `json:"database"`
	App         App         `json:"app"`
	Pubsub      Pubsub      `json:"pubsub"`
	ServiceBus  ServiceBus  `json:"serviceBus"`
	RedisClient RedisClient `json:"redisClient"`
	Logger      Logger      `json:"logger"`
	Telegram    Telegram    `json:"telegram"`
	Drive       Drive       `json:"drive"`
	Relay       Relay       `json:"relay"`
}

type App struct {
	Port        int      `json:"port"`
	SecretKey   string   `json:"secretKey"`
	TLSEnabled  bool     `json:"tlsEnabled"`
	TLSCertFile string   `json:"tlsCertFile"`
	TLSKeyFile  string   `json:"tlsKeyFile"`
	Origins     []string `json:"origins"`
}

type Database struct {
	Psql  Db `json:"psql"`
	Mongo Db `json:"mongo"`
	Mssql Db `json:"mssql"`
}

type Db struct {
	Name     string `json:"string"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type Pubsub struct {
	ProjectID string `json:"projectID"`
	Topic     string `json:"topic"`
}

type ServiceBus struct {
	Namespace string `json:"namespace"`
	Queue     string `json:"queue"`
}

type RedisClient struct {
	Host         string `json:"host"`
	Port         string `json:"port"`
	Password     string `json:"password"`
	DatabaseName string `json:"databaseName"`
	Username     string `json:"username"`
}

type Logger struct {
	Format string `json:"format"`
}

// Telegram holds the chat transport account and destination chat.
type Telegram struct {
	AppID   int    `json:"appId"`
	AppHash string `json:"appHash"`
	Session string `json:"session"`
	ChatID  string `json:"chatId"`
}

// Drive holds the storage destination and both credential sources.
type Drive struct {
	DefaultFolderID    string `json:"defaultFolderId"`
	ClientID           string `json:"clientId"`
	ClientSecret       string `json:"clientSecret"`
	RedirectURI        string `json:"redirectURI"`
	ServiceAccountFile string `json:"serviceAccountFile"`
	ServiceAccountJSON string `json:"serviceAccountJSON"`
}

// Relay tunes the staging and transport guards. Durations are in seconds.
type Relay struct {
	StagingDir            string `json:"stagingDir"`
	MaxFileSizeBytes      int64  `json:"maxFileSizeBytes"`
	ConnectTimeoutSeconds int    `json:"connectTimeoutSeconds"`
	ListTimeoutSeconds    int    `json:"listTimeoutSeconds"`
	FetchTimeoutSeconds   int    `json:"fetchTimeoutSeconds"`
	HistoryLimit          int    `json:"historyLimit"`
	ChannelCacheSeconds   int    `json:"channelCacheSeconds"`
}

var C Config

func init() {
	LoadConfig()
	Reload()
}

// Reload re-applies environment overrides on top of the loaded config file.
func Reload() {
	initDatabase(&C)
	initApp(&C)
	initRelay(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	C.Database.Psql.Name = envOr(C.Database.Psql.Name, "DB_NAME")
	C.Database.Psql.Host = envOr(C.Database.Psql.Host, "DB_HOST")
	C.Database.Psql.User = envOr(C.Database.Psql.User, "DB_USER")
	C.Database.Psql.Password = envOr(C.Database.Psql.Password, "DB_PASSWORD")
	C.Database.Psql.Port = envOr(C.Database.Psql.Port, "DB_PORT")

	C.Database.Mssql.Name = envOr(C.Database.Mssql.Name, "MSSQL_DB_NAME")
	C.Database.Mssql.Host = envOr(C.Database.Mssql.Host, "MSSQL_HOST")
	C.Database.Mssql.User = envOr(C.Database.Mssql.User, "MSSQL_USER")
	C.Database.Mssql.Password = envOr(C.Database.Mssql.Password, "MSSQL_PASSWORD")
	C.Database.Mssql.Port = envOr(C.Database.Mssql.Port, "MSSQL_PORT")
	if C.Database.Mssql.Port == "" {
		C.Database.Mssql.Port = "1433"
	}

	C.Database.Mongo.Name = envOr(C.Database.Mongo.Name, "MONGO_DB_NAME")
	C.Database.Mongo.Host = envOr(C.Database.Mongo.Host, "MONGO_HOST")
	C.Database.Mongo.Port = envOr(C.Database.Mongo.Port, "MONGO_PORT")
	C.Database.Mongo.User = envOr(C.Database.Mongo.User, "MONGO_USER")
	C.Database.Mongo.Password = envOr(C.Database.Mongo.Password, "MONGO_PASSWORD")
	if C.Database.Mongo.Name == "" {
		C.Database.Mongo.Name = "video_relay"
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"psqlHost":  C.Database.Psql.Host,
		"mssqlHost": C.Database.Mssql.Host,
		"mongoHost": C.Database.Mongo.Host,
	}).Info("Database configuration")
}

func initApp(C *Config) {
	// SECRET_KEY overrides the config file for JWT verification
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// APP_PORT -> PORT -> config -> 10001
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}
	if v := os.Getenv("TLS_ENABLED"); v != "" {
		switch v {
		case "1", "true", "TRUE", "True":
			C.App.TLSEnabled = true
		case "0", "false", "FALSE", "False":
			C.App.TLSEnabled = false
		}
	}
	C.App.TLSCertFile = envOr(C.App.TLSCertFile, "TLS_CERT_FILE")
	C.App.TLSKeyFile = envOr(C.App.TLSKeyFile, "TLS_KEY_FILE")
	if len(C.App.Origins) == 0 {
		C.App.Origins = []string{"http://localhost:4200", "https://localhost:4200"}
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
}

func initRelay(C *Config) {
	if C.Relay.StagingDir == "" {
		C.Relay.StagingDir = os.TempDir() + string(os.PathSeparator) + "video-relay"
	}
	if C.Relay.MaxFileSizeBytes <= 0 {
		C.Relay.MaxFileSizeBytes = DefaultMaxFileSizeBytes
	}
	if C.Relay.ConnectTimeoutSeconds <= 0 {
		C.Relay.ConnectTimeoutSeconds = 30
	}
	if C.Relay.ListTimeoutSeconds <= 0 {
		C.Relay.ListTimeoutSeconds = 30
	}
	if C.Relay.FetchTimeoutSeconds <= 0 {
		C.Relay.FetchTimeoutSeconds = 300
	}
	if C.Relay.HistoryLimit <= 0 {
		C.Relay.HistoryLimit = 50
	}
	if C.Relay.ChannelCacheSeconds <= 0 {
		C.Relay.ChannelCacheSeconds = 60
	}
	if C.Pubsub.Topic == "" {
		C.Pubsub.Topic = "video-archived"
	}
	if C.ServiceBus.Queue == "" {
		C.ServiceBus.Queue = "video-archived"
	}
}

func envOr(current, key string) string {
	if current != "" {
		return current
	}
	return os.Getenv(key)
}
