package server

import (
	"time"

	httpHandler "video-relay/interfaces/http"
	"video-relay/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps are the handlers mounted by InitiateRouter. DriveAuthHandler and
// Stream may be nil when the backing service is not configured.
type RouterDeps struct {
	RelayHandler     httpHandler.IRelayHandler
	DriveAuthHandler httpHandler.IDriveAuthHandler
	HealthHandler    httpHandler.IHealthHandler
	Stream           gin.HandlerFunc
	SecretKey        string
	Origins          []string
}

func InitiateRouter(deps RouterDeps) *gin.Engine {
	origins := make(map[string]struct{}, len(deps.Origins))
	for _, o := range deps.Origins {
		origins[o] = struct{}{}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) bool {
			_, ok := origins[origin]
			return ok
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/healthz", deps.HealthHandler.Healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("api")
	api.Use(middleware.Auth(deps.SecretKey))

	if deps.DriveAuthHandler != nil {
		api.GET("/auth/drive", deps.DriveAuthHandler.GetAuthURL)
		// the browser returns here without a bearer token, the signed state identifies the user
		router.GET("/auth/drive/callback", deps.DriveAuthHandler.HandleCallback)
	}

	relay := api.Group("/relay")
	{
		relay.POST("/schedules", deps.RelayHandler.ScheduleAutoDownload)
		relay.DELETE("/schedules/:channelId/:scheduleId", deps.RelayHandler.CancelTasksForSchedule)
		relay.GET("/tasks", deps.RelayHandler.GetActiveTasks)
		relay.DELETE("/tasks/:taskId", deps.RelayHandler.CancelScheduledTask)
		relay.POST("/run", deps.RelayHandler.RunNow)
		if deps.Stream != nil {
			relay.GET("/stream", deps.Stream)
		}
	}
	api.GET("/channels/:channelId/results", deps.RelayHandler.ListResults)

	return router
}
