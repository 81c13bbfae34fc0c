// Package server contains the HTTP handlers for the application's endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"pawhaven/internal/captcha"
	"pawhaven/internal/config"
	"pawhaven/internal/database"
	"pawhaven/internal/middleware"
	"pawhaven/internal/models"
	"pawhaven/internal/repository"
	"pawhaven/internal/service"
	appsession "pawhaven/internal/session"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/session"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	app            *fiber.App
	sessions       *session.Store
	captcha        *captcha.Generator
	promMiddleware *fiberprometheus.FiberPrometheus
	userRepo       repository.UserRepository
	listingRepo    repository.ListingRepository
	replyRepo      repository.ReplyRepository
	imageRepo      repository.ImageRepository
	listingService *service.ListingService
	imageService   *service.ImageService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	return NewServerWithDeps(cfg, db, appsession.NewStore(cfg))
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/sessions and
// optionally performs explicit seeding.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, sessions *session.Store) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	listingRepo := repository.NewListingRepository(db)
	replyRepo := repository.NewReplyRepository(db)
	imageRepo := repository.NewImageRepository(db)

	prom := middleware.InitMetrics("pawhaven-api")

	server := &Server{
		config:         cfg,
		db:             db,
		sessions:       sessions,
		captcha:        captcha.NewGenerator(),
		promMiddleware: prom,
		userRepo:       userRepo,
		listingRepo:    listingRepo,
		replyRepo:      replyRepo,
		imageRepo:      imageRepo,
	}
	server.imageService = service.NewImageService(imageRepo, cfg)
	server.listingService = service.NewListingService(listingRepo, replyRepo, imageRepo, server.imageService)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Session-backed identity resolution. Must run before ContextMiddleware so
	// the user id lands in the request context for logging.
	app.Use(s.ResolveIdentity())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	// Credentials must be allowed: the session cookie is the auth mechanism.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "PawHaven Metrics Dashboard",
	}))

	// Stored uploads are served from the configured upload directory, seeded
	// defaults from the static directory. The upload mount comes first so its
	// prefix is not shadowed when UPLOAD_DIR lives outside STATIC_DIR.
	app.Static(service.UploadImagePrefix, s.config.UploadDir)
	app.Static("/static/pic", s.config.StaticDir)

	// Auth routes
	auth := app.Group("/auth")
	auth.Get("/code", s.CaptchaCode)
	auth.Post("/register", s.Register)
	auth.Post("/login", s.Login)
	auth.Get("/logout", s.Logout)

	// Listing feed with optional search form. Specific routes are registered
	// before the numeric page parameter below.
	app.Get("/", s.Feed)
	app.Post("/", s.Feed)

	app.Post("/create", s.LoginRequired(), s.CreateListing)

	app.Get("/ViewPost/:id", s.ViewListing)
	app.Post("/ViewPost/:id", s.LoginRequired(), s.CreateReply)
	app.Post("/DeleteReply/:id", s.LoginRequired(), s.DeleteReply)
	app.Post("/DeletePost/:id", s.LoginRequired(), s.DeleteListing)

	// User profile and account settings
	app.Get("/user/home/:userID", s.Home)
	app.Get("/user/home/:userID/:page<int>", s.Home)
	app.Post("/user/set", s.LoginRequired(), s.UpdateSettings)

	app.Get("/:page<int>", s.Feed)
	app.Post("/:page<int>", s.Feed)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	app := fiber.New(fiber.Config{
		AppName:   "PawHaven API",
		BodyLimit: service.DefaultImageMaxUploadSizeMB * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
