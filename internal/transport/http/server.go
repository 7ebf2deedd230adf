package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/auth"
	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/core"
)

// NewServer builds the relay's HTTP server: health check, WebSocket
// endpoint and the authenticated read API.
func NewServer(hub *core.Hub, authService *auth.Service, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	ws := NewWSHandler(hub, authService, WSOptions{
		MaxMessageBytes:   cfg.MaxMessageBytes,
		MessagesPerMinute: cfg.MessagesPerMinute,
	}, logger)

	conversations := NewConversationHandlers(hub, logger)
	api := router.Group("/api")
	api.Use(AuthMiddleware(authService, logger))
	{
		api.GET("/conversations", conversations.List)
		api.GET("/conversations/:peerID/messages", conversations.Messages)
		api.GET("/users/:id", conversations.User)
	}

	// The upgrade hijacks the raw connection, which gin's writer refuses
	// once the 101 has gone out, so /ws stays outside the router.
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", ws)
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
