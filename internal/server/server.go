package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/encuentro-api/internal/config"
	"github.com/gravadigital/encuentro-api/internal/domain/participation"
	"github.com/gravadigital/encuentro-api/internal/handlers"
	"github.com/gravadigital/encuentro-api/internal/logger"
	"github.com/gravadigital/encuentro-api/internal/middleware/auth"
	"github.com/gravadigital/encuentro-api/internal/middleware/requestlog"
	"github.com/gravadigital/encuentro-api/internal/storage"
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	config     *config.Config
	backend    storage.Backend
	engine     *participation.Engine
}

// New creates a new server instance
func New(cfg *config.Config, backend storage.Backend) *Server {
	return &Server{
		config:  cfg,
		backend: backend,
		engine:  participation.NewEngine(backend.Events(), backend.Ledger()),
	}
}

// Engine returns the participation engine, mainly for tests
func (s *Server) Engine() *participation.Engine {
	return s.engine
}

// Start starts the HTTP server
func (s *Server) Start() error {
	router := s.setupRouter()

	s.httpServer = &http.Server{
		Addr:    ":" + s.config.Server.Port,
		Handler: router,

		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Get().Info("Starting HTTP server", "port", s.config.Server.Port)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	logger.Get().Info("Shutting down HTTP server...")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// setupRouter configures the HTTP router with middleware and routes
func (s *Server) setupRouter() *gin.Engine {
	if s.config.Server.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(requestlog.New())
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if s.config.CORS.AllowOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(s.config.CORS.AllowOrigins, ",")
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = strings.Split(s.config.CORS.AllowMethods, ",")
	corsConfig.AllowHeaders = strings.Split(s.config.CORS.AllowHeaders, ",")
	router.Use(cors.New(corsConfig))

	eventHandler := handlers.NewEventHandler(s.backend.Events(), s.backend.Ledger(), s.engine)
	participationHandler := handlers.NewParticipationHandler(s.engine, s.backend.Ledger())

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Encuentro API is running",
			"status":  "healthy",
		})
	})

	router.GET("/health", func(c *gin.Context) {
		if err := s.backend.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	s.setupAPIRoutes(router, eventHandler, participationHandler)

	return router
}

// setupAPIRoutes configures all API routes
func (s *Server) setupAPIRoutes(
	router *gin.Engine,
	eventHandler *handlers.EventHandler,
	participationHandler *handlers.ParticipationHandler,
) {
	requireUser := auth.RequireUser(s.config.Auth.JWTSecret)

	api := router.Group("/api")
	{
		events := api.Group("/events")
		{
			events.GET("", eventHandler.GetAllEvents)
			events.POST("", requireUser, eventHandler.CreateEvent)
			events.GET("/counts", participationHandler.BatchJoinedCounts)
			events.GET("/:event_id", eventHandler.GetEvent)
			events.PATCH("/:event_id/bounds", requireUser, eventHandler.UpdateBounds)

			events.POST("/:event_id/join", requireUser, participationHandler.Join)
			events.POST("/:event_id/cancel", requireUser, participationHandler.Cancel)
			events.PUT("/:event_id/interest", requireUser, participationHandler.SetInterest)

			events.GET("/:event_id/participants", participationHandler.Participants)
			events.GET("/:event_id/waitlist", participationHandler.Waitlist)
			events.GET("/:event_id/interested", participationHandler.Interested)
		}
	}
}
