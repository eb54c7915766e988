package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KevinKickass/FlasherCore/internal/api/websocket"
	"github.com/KevinKickass/FlasherCore/internal/auth"
	"github.com/KevinKickass/FlasherCore/internal/config"
	"github.com/KevinKickass/FlasherCore/internal/interfaces"
	"github.com/KevinKickass/FlasherCore/internal/validation"
)

type Server struct {
	router      *gin.Engine
	lm          interfaces.LifecycleManager
	logger      *zap.Logger
	server      *http.Server
	wsHub       *websocket.Hub
	authService *auth.AuthService
	schemas     *validation.SchemaValidator
	corsOrigins []string
}

func NewServer(cfg *config.Config, lm interfaces.LifecycleManager, logger *zap.Logger, wsHub *websocket.Hub, authService *auth.AuthService) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	schemas, err := validation.NewSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to load request schemas: %w", err)
	}

	s := &Server{
		router:      gin.New(),
		lm:          lm,
		logger:      logger,
		wsHub:       wsHub,
		authService: authService,
		schemas:     schemas,
		corsOrigins: cfg.Server.CORSOrigins,
	}

	s.setupRoutes()

	// Deploy requests run the flashing tool synchronously.
	writeTimeout := cfg.Deploy.Timeout + 30*time.Second
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("Starting REST API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("REST server failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down REST API server")
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(LoggerMiddleware(s.logger))
	s.router.Use(CORSMiddleware(s.corsOrigins))

	// Public routes (no auth required)
	s.router.GET("/health", s.healthCheck)

	v1 := s.router.Group("/api/v1")
	{
		// ==================== AUTH (PUBLIC) ====================
		v1.POST("/auth/login", s.login)

		protected := v1.Group("")
		protected.Use(s.authService.AuthMiddleware())

		protected.GET("/auth/me", s.getCurrentUser)

		// ==================== CATALOG ====================
		catalog := protected.Group("/catalog")
		{
			catalog.GET("/devices", auth.RequirePermission(auth.PermViewer), s.listDeviceTypes)
			catalog.GET("/devices/:key", auth.RequirePermission(auth.PermViewer), s.getDeviceType)
			catalog.GET("/filters", auth.RequirePermission(auth.PermViewer), s.listFilters)
			catalog.POST("/reload", auth.RequirePermission(auth.PermAdmin), s.reloadCatalog)
		}

		protected.GET("/controllers", auth.RequirePermission(auth.PermViewer), s.listControllers)

		// ==================== CONFIGURE & DEPLOY ====================
		protected.POST("/validate", auth.RequirePermission(auth.PermViewer), s.validate)
		protected.POST("/preview", auth.RequirePermission(auth.PermViewer), s.preview)
		protected.POST("/deploy", auth.RequirePermission(auth.PermDeployer), s.deploy)
		protected.POST("/init", auth.RequirePermission(auth.PermDeployer), s.initNode)

		// ==================== NODES ====================
		nodes := protected.Group("/nodes")
		{
			nodes.GET("", auth.RequirePermission(auth.PermViewer), s.listNodes)
			nodes.POST("", auth.RequirePermission(auth.PermDeployer), s.createNode)
			nodes.POST("/rename", auth.RequirePermission(auth.PermDeployer), s.renameNode)
		}

		// ==================== HISTORY ====================
		deployments := protected.Group("/deployments")
		deployments.Use(auth.RequirePermission(auth.PermViewer))
		{
			deployments.GET("", s.listDeployments)
			deployments.GET("/:id", s.getDeployment)
		}

		// ==================== SYSTEM ====================
		protected.GET("/system/status", auth.RequirePermission(auth.PermViewer), s.getSystemStatus)
		protected.POST("/system/shutdown", auth.RequirePermission(auth.PermAdmin), s.shutdown)

		// ==================== WEBSOCKET (auth via first message) ====================
		v1.GET("/ws/live", s.wsLiveConnection)
		protected.GET("/ws/status", auth.RequirePermission(auth.PermViewer), s.wsStatus)
	}
}

// WebSocket handlers
func (s *Server) wsLiveConnection(c *gin.Context) {
	websocket.ServeWs(s.wsHub, c.Writer, c.Request)
}

func (s *Server) wsStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connected_clients": s.wsHub.GetClientCount(),
	})
}

// Health check (public)
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}
