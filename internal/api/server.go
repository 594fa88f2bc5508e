package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ksred/fullstack-boilerplate/internal/config"
	"github.com/ksred/fullstack-boilerplate/internal/database"
	"github.com/ksred/fullstack-boilerplate/internal/services"
	"github.com/ksred/fullstack-boilerplate/internal/utils"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Server struct {
	router      *gin.Engine
	config      *config.Config
	db          *database.Database
	userService *services.UserService
	migrations  *database.MigrationRunner
	logger      zerolog.Logger
	httpServer  *http.Server
}

// NewServer wires the router. migrations may be nil, in which case the
// migration status endpoint is not registered.
func NewServer(cfg *config.Config, db *database.Database, userService *services.UserService, migrations *database.MigrationRunner, logger zerolog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if db == nil || userService == nil {
		return nil, fmt.Errorf("database and user service are required")
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	corsConfig := cors.DefaultConfig()
	if len(cfg.HTTP.AllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.AllowOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000", "http://localhost:5173", "http://127.0.0.1:3000", "http://127.0.0.1:5173"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Requested-With"}
	corsConfig.ExposeHeaders = []string{"Content-Length", "Content-Type"}
	corsConfig.MaxAge = 12 * time.Hour

	router.Use(cors.New(corsConfig))

	server := &Server{
		router:      router,
		config:      cfg,
		db:          db,
		userService: userService,
		migrations:  migrations,
		logger:      logger,
	}

	server.setupRoutes()

	return server, nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.rootHandler)
	s.router.GET("/health", s.healthHandler)

	// Swagger documentation
	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := s.router.Group("/api")
	{
		users := api.Group("/users")
		{
			users.GET("", s.listUsersHandler)
			users.POST("", s.createUserHandler)
			users.GET("/:id", s.getUserHandler)
			users.PUT("/:id", s.updateUserHandler)
			users.DELETE("/:id", s.deleteUserHandler)
		}

		if s.migrations != nil {
			api.GET("/migrations", s.migrationStatusHandler)
		}
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.httpServer = &http.Server{
		Addr:           addr,
		Handler:        s.router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	s.logger.Info().Str("address", addr).Msg("Starting HTTP server")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func LoggerMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		requestLogger := logger.With().
			Str("request_id", uuid.NewString()).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		c.Request = c.Request.WithContext(utils.WithContext(c.Request.Context(), requestLogger))

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		event := requestLogger.Info()
		if statusCode >= http.StatusInternalServerError {
			event = requestLogger.Error()
		} else if statusCode >= http.StatusBadRequest {
			event = requestLogger.Warn()
		}

		event.
			Str("client_ip", c.ClientIP()).
			Str("query", raw).
			Int("status", statusCode).
			Dur("latency", latency).
			Str("error", errorMessage).
			Msg("HTTP request")
	}
}

// @title Fullstack Boilerplate API
// @version 1.0
// @description CRUD API for users, backed by versioned SQL migrations

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:3001
// @BasePath /

// rootHandler godoc
// @Summary Service banner
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router / [get]
func (s *Server) rootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Fullstack Boilerplate API",
		"status":  "healthy",
	})
}

// healthHandler godoc
// @Summary Health check
// @Description Check if the service and its database are healthy
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dbHealthy := true
	var dbError string
	if err := s.db.Health(ctx); err != nil {
		dbHealthy = false
		dbError = err.Error()
	}

	status := "healthy"
	if !dbHealthy {
		status = "unhealthy"
	}

	response := gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"database": gin.H{
			"healthy": dbHealthy,
			"error":   dbError,
		},
	}

	if !dbHealthy {
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	c.JSON(http.StatusOK, response)
}

// migrationStatusHandler godoc
// @Summary Migration status
// @Description List discovered migrations and whether each has been applied
// @Tags migrations
// @Produce json
// @Success 200 {object} database.MigrationStatus
// @Failure 500 {object} ErrorResponse
// @Router /api/migrations [get]
func (s *Server) migrationStatusHandler(c *gin.Context) {
	status, err := s.migrations.Status(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
