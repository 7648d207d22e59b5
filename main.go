package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"video-relay/domain/repository"
	"video-relay/infrastructure/cache"
	driveclient "video-relay/infrastructure/clients/drive"
	telegramclient "video-relay/infrastructure/clients/telegram"
	"video-relay/infrastructure/configuration"
	"video-relay/infrastructure/logger"
	"video-relay/infrastructure/persistence"
	"video-relay/infrastructure/pubsub"
	"video-relay/infrastructure/realtime"
	"video-relay/infrastructure/servicebus"
	"video-relay/infrastructure/staging"
	httpHandler "video-relay/interfaces/http"
	"video-relay/server"
	"video-relay/usecase"

	"golang.org/x/sync/errgroup"
)

const (
	staleStagingAge = 24 * time.Hour
	shutdownTimeout = 30 * time.Second
)

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// OS env keeps precedence over both files
	for _, f := range configuration.LoadEnvFromFile("config.env", ".env") {
		logger.GetLogger().WithField("file", f).Info("Loaded environment file")
	}

	app := configuration.C.App
	relayCfg, err := configuration.GetRelayConfig()
	if err != nil {
		logger.GetLogger().WithField("error", err).Fatal("Invalid relay configuration")
	}

	credentials, err := InitiateCredentialStore()
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Credential store not available - delegated uploads disabled")
	}

	var channels repository.IChannel
	mongoDb, err := persistence.NewMongoDb(
		configuration.C.Database.Mongo.Host,
		configuration.C.Database.Mongo.Port,
		configuration.C.Database.Mongo.User,
		configuration.C.Database.Mongo.Password,
		configuration.C.Database.Mongo.Name,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB not available - channel folders and result records disabled")
	} else if err := mongoDb.Ping(ctx, nil); err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB ping failed - channel folders and result records disabled")
	} else {
		logger.GetLogger().Info("MongoDB connected successfully")
		channels = persistence.NewChannelRepository(mongoDb, configuration.C.Database.Mongo.Name)
	}

	if channels != nil && configuration.C.RedisClient.Host != "" {
		redisClient, err := cache.NewCache(
			ctx,
			fmt.Sprintf("%s:%s", configuration.C.RedisClient.Host, configuration.C.RedisClient.Port),
			configuration.C.RedisClient.Username,
			configuration.C.RedisClient.Password,
		)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Redis ping failed - channel reads fall through to MongoDB on errors")
		}
		channels = cache.NewChannelCache(channels, redisClient, relayCfg.ChannelCacheTTL)
	}

	var publishers []repository.IAssetEventPublisher
	pubSubClient, err := pubsub.NewPubSub(ctx, configuration.C.Pubsub.ProjectID)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("PubSub not available - archive events will not be published there")
	} else {
		archivePublisher := pubsub.NewArchivePublisher(pubSubClient, configuration.C.Pubsub.Topic)
		defer archivePublisher.Stop()
		publishers = append(publishers, archivePublisher)
	}
	azServiceBusClient, err := servicebus.NewServiceBus(ctx, configuration.C.ServiceBus.Namespace)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - archive events will not be sent there")
	} else {
		publishers = append(publishers, servicebus.NewArchiveSender(azServiceBusClient, configuration.C.ServiceBus.Queue))
	}

	store := staging.NewStore(relayCfg.StagingDir, relayCfg.MaxFileSizeBytes)
	if err := store.Ensure(); err != nil {
		logger.GetLogger().WithField("error", err).Fatal("Cannot create staging directory")
	}
	if n, err := store.Sweep(staleStagingAge); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Staging sweep failed")
	} else if n > 0 {
		logger.GetLogger().WithField("removed", n).Info("Removed stale staged files")
	}

	oauthClient := driveclient.NewOAuthClient(relayCfg.ClientID, relayCfg.ClientSecret, relayCfg.RedirectURL)
	var refresher repository.ITokenRefresher
	if oauthClient.Configured() {
		refresher = oauthClient
	}

	hub := realtime.NewRelayHub()
	relayUsecase := usecase.NewRelayUsecase(usecase.RelayConfig{
		SessionToken:       relayCfg.SessionToken,
		ChatID:             relayCfg.ChatID,
		DefaultFolderID:    relayCfg.DefaultFolderID,
		ServiceAccountJSON: relayCfg.ServiceAccountJSON,
	}, usecase.RelayDeps{
		Transport:   telegramclient.NewTransport(relayCfg.TelegramAppID, relayCfg.TelegramAppHash, relayCfg.ConnectTimeout, relayCfg.MaxFileSizeBytes),
		Locator:     usecase.NewMediaLocator(store, relayCfg.ListTimeout, relayCfg.FetchTimeout, relayCfg.HistoryLimit),
		Staging:     store,
		Uploader:    driveclient.NewUploader(),
		Refresher:   refresher,
		Credentials: credentials,
		Channels:    channels,
		Publishers:  publishers,
	}).WithBroadcaster(hub.BroadcastResult)

	logger.GetLogger().WithFields(map[string]interface{}{
		"sessionSet":       relayCfg.SessionToken != "",
		"chatID":           relayCfg.ChatID,
		"defaultFolderSet": relayCfg.DefaultFolderID != "",
		"delegatedEnabled": refresher != nil && credentials != nil,
		"serviceEnabled":   len(relayCfg.ServiceAccountJSON) > 0,
		"publishers":       len(publishers),
	}).Info("Relay initialization summary")

	scheduler := relayUsecase.Scheduler()
	scheduler.Start(ctx)

	var driveAuthHandler httpHandler.IDriveAuthHandler
	if credentials != nil {
		driveAuthHandler = httpHandler.NewDriveAuthHandler(oauthClient, credentials, app.SecretKey)
	}
	router := server.InitiateRouter(server.RouterDeps{
		RelayHandler:     httpHandler.NewRelayHandler(relayUsecase),
		DriveAuthHandler: driveAuthHandler,
		HealthHandler:    httpHandler.NewHealthHandler(func() int { return len(scheduler.List()) }),
		Stream:           hub.Serve,
		SecretKey:        app.SecretKey,
		Origins:          app.Origins,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.GetLogger().WithFields(map[string]interface{}{"port": app.Port, "tls": app.TLSEnabled}).Info("Starting application")
	g.Go(func() error {
		if app.TLSEnabled && app.TLSCertFile != "" && app.TLSKeyFile != "" {
			logger.GetLogger().WithFields(map[string]interface{}{"cert": app.TLSCertFile, "key": app.TLSKeyFile}).Info("Serving HTTPS")
			if err := httpServer.ListenAndServeTLS(app.TLSCertFile, app.TLSKeyFile); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}
		if app.TLSEnabled {
			logger.GetLogger().Error("TLS enabled but cert or key path empty; falling back to HTTP")
		}
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.GetLogger().WithField("error", err).Warn("HTTP server shutdown incomplete")
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Scheduled relay runs still in flight at shutdown")
	}
	cancel()

	if err := g.Wait(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

// InitiateCredentialStore opens the delegated credential store: MSSQL in
// production or when DB_VENDOR=mssql, PostgreSQL otherwise.
func InitiateCredentialStore() (repository.IDriveCredential, error) {
	env := os.Getenv("ENV")
	if os.Getenv("DB_VENDOR") == "mssql" || env == "production" || env == "prod" {
		db, err := persistence.NewMSSQLDB()
		if err != nil {
			return nil, fmt.Errorf("connect MSSQL: %w", err)
		}
		if err := persistence.EnsureDriveCredentialSchemaMSSQL(db); err != nil {
			return nil, closeWith(db, err)
		}
		return persistence.NewDriveCredentialRepositoryMSSQL(db), nil
	}

	db, err := persistence.NewPostgreSQLDB()
	if err != nil {
		return nil, fmt.Errorf("connect PostgreSQL: %w", err)
	}
	if err := persistence.EnsureDriveCredentialSchema(db); err != nil {
		return nil, closeWith(db, err)
	}
	return persistence.NewDriveCredentialRepository(db), nil
}

func closeWith(db *sql.DB, err error) error {
	_ = db.Close()
	return fmt.Errorf("ensure drive credential schema: %w", err)
}
