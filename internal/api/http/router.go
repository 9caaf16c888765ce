package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Controllers struct {
	Chat          *ChatController
	Presence      *PresenceController
	Notifications *NotificationController
	Metrics       http.Handler
}

func SetupRouter(c Controllers, allowedOrigins []string, log *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	config := cors.DefaultConfig()
	if len(allowedOrigins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowedOrigins
		config.AllowCredentials = true
	}
	config.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"Origin",
		"Accept",
	}
	config.AllowMethods = []string{"GET", "POST", "HEAD", "OPTIONS"}
	router.Use(cors.New(config))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if c.Metrics != nil {
		router.GET("/metrics", gin.WrapH(c.Metrics))
	}

	api := router.Group("/api")

	if c.Chat != nil || c.Presence != nil {
		chat := api.Group("/chat")
		if c.Chat != nil {
			chat.GET("/ws", c.Chat.Connect)
		}
		if c.Presence != nil {
			chat.GET("/users", c.Presence.ListUsers)
			chat.GET("/counts", c.Presence.Counts)
			chat.POST("/users/:userID/kick", c.Presence.Kick)
		}
	}

	if c.Notifications != nil {
		api.GET("/notifications/ws", c.Notifications.Subscribe)
	}

	return router
}
