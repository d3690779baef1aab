package config

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"time"

	"github.com/api-sentinel/sentinel-gateway/internal/api"
	"github.com/api-sentinel/sentinel-gateway/internal/config"
	"github.com/api-sentinel/sentinel-gateway/internal/services/accounting"
	"github.com/api-sentinel/sentinel-gateway/internal/services/database"
	"github.com/api-sentinel/sentinel-gateway/internal/services/exchangerate"
	"github.com/api-sentinel/sentinel-gateway/internal/services/keys"
	"github.com/api-sentinel/sentinel-gateway/internal/services/ledger"
	"github.com/api-sentinel/sentinel-gateway/internal/services/middleware"
	"github.com/api-sentinel/sentinel-gateway/internal/services/pricing"
	"github.com/api-sentinel/sentinel-gateway/internal/services/projects"
	"github.com/api-sentinel/sentinel-gateway/internal/services/users"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Gateway represents an API Sentinel gateway server instance.
type Gateway struct {
	config *config.Config
	app    *fiber.App
	db     *database.DB
	fx     *exchangerate.Service
}

type gatewayServices struct {
	keys       *keys.Service
	ledger     *ledger.Service
	accounting *accounting.Service
	users      *users.Service
	projects   *projects.Service
	pricing    *pricing.Service
	fx         *exchangerate.Service
}

// NewGateway creates a new Gateway instance with the given configuration.
// The cfg parameter is required and must not be nil.
func NewGateway(cfg *config.Config) *Gateway {
	if cfg == nil {
		panic("config cannot be nil - use config.LoadFromFile() to create config")
	}

	return &Gateway{
		config: cfg,
	}
}

// Run starts the gateway server and blocks until shutdown.
func (g *Gateway) Run() error {
	if err := g.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogLevel(g.config)

	port := g.config.Server.Port
	if port == "" {
		port = "8000"
	}
	listenAddr := ":" + port

	g.app = createFiberApp(g.config)

	// === Infrastructure Setup ===
	db, err := database.New(*g.config.Database)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	g.db = db
	defer func() {
		if err := g.db.Close(); err != nil {
			fiberlog.Errorf("Failed to close database connection: %v", err)
		}
	}()

	fiberlog.Infof("Database (%s) initialized successfully", db.DriverName())

	// === Services Initialization ===
	services := initializeServices(db, g.config)
	g.fx = services.fx

	if err := runDatabaseMigrations(services); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	fiberlog.Info("Database migrations completed successfully")

	seedCtx, seedCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := services.pricing.SeedDefaults(seedCtx); err != nil {
		seedCancel()
		return fmt.Errorf("failed to seed pricing catalog: %w", err)
	}
	seedCancel()

	// Prime the exchange rate cache and keep it fresh in the background.
	fxCtx, fxCancel := context.WithCancel(context.Background())
	defer fxCancel()
	if err := g.fx.Start(fxCtx); err != nil {
		return fmt.Errorf("failed to start exchange rate refresher: %w", err)
	}
	defer g.fx.Stop()

	// === Middleware Setup ===
	setupMiddleware(g.app, g.config)

	// === Routes Setup ===
	setupRoutes(g.app, g.db, services)

	g.app.Get("/", welcomeHandler())

	fmt.Printf("API Sentinel gateway starting on %s\n", listenAddr)
	fmt.Printf("   Environment: %s\n", g.config.Server.Environment)
	fmt.Printf("   Go version: %s\n", runtime.Version())
	fmt.Printf("   GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := g.app.Listen(listenAddr); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		fiberlog.Infof("Received signal: %v. Starting graceful shutdown...", sig)
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		fiberlog.Info("Context cancelled, starting shutdown...")
	}

	fiberlog.Info("Server shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	shutdownErrChan := make(chan error, 1)
	go func() {
		shutdownErrChan <- g.app.ShutdownWithTimeout(30 * time.Second)
	}()

	select {
	case err := <-shutdownErrChan:
		if err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		fiberlog.Info("Server shutdown completed successfully")
	case <-shutdownCtx.Done():
		return fmt.Errorf("shutdown timeout exceeded")
	}

	return nil
}

func createFiberApp(cfg *config.Config) *fiber.App {
	isProd := cfg.IsProduction()

	return fiber.New(fiber.Config{
		AppName:              "API Sentinel v1.0",
		EnablePrintRoutes:    !isProd,
		ReadTimeout:          1 * time.Minute,
		WriteTimeout:         1 * time.Minute,
		IdleTimeout:          5 * time.Minute,
		ReadBufferSize:       8192,
		WriteBufferSize:      8192,
		CompressedFileSuffix: ".gz",
		Prefork:              false,
		CaseSensitive:        true,
		StrictRouting:        false,
		Network:              "tcp",
		ServerHeader:         "APISentinel",
	})
}

func setupMiddleware(app *fiber.App, cfg *config.Config) {
	isProd := cfg.IsProduction()
	allowedOrigins := cfg.Server.AllowedOrigins

	// Recover middleware (must be first)
	app.Use(recover.New(recover.Config{
		EnableStackTrace: !isProd,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:               1000,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			if key := c.Get("X-Sentinel-Key"); key != "" {
				return key
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return fmt.Errorf("1000 requests per minute")
		},
	}))

	// Request timeout middleware
	app.Use(func(c *fiber.Ctx) error {
		const defaultTimeout = 30 * time.Second

		ctx, cancel := context.WithTimeout(c.UserContext(), defaultTimeout)
		defer cancel()
		c.SetUserContext(ctx)

		return c.Next()
	})

	// Compression
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Logging
	if isProd {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${status} ${method} ${path} ${latency} ${bytesSent}b\n",
			Output: os.Stdout,
		}))
	} else {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path} ${error}\n",
			Output: os.Stdout,
		}))
	}

	// CORS
	allowedHeaders := []string{
		"Origin", "Content-Type", "Accept", "Authorization", "User-Agent",
		"X-Sentinel-Key",
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowHeaders:     strings.Join(allowedHeaders, ", "),
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
		MaxAge:           86400,
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
	}))

	// Profiler (dev only)
	if !isProd {
		app.Use(pprof.New())
	}
}

func setupLogLevel(cfg *config.Config) {
	logLevel := cfg.GetNormalizedLogLevel()

	switch logLevel {
	case "trace":
		fiberlog.SetLevel(fiberlog.LevelTrace)
	case "debug":
		fiberlog.SetLevel(fiberlog.LevelDebug)
	case "info":
		fiberlog.SetLevel(fiberlog.LevelInfo)
	case "warn", "warning":
		fiberlog.SetLevel(fiberlog.LevelWarn)
	case "error":
		fiberlog.SetLevel(fiberlog.LevelError)
	case "fatal":
		fiberlog.SetLevel(fiberlog.LevelFatal)
	case "panic":
		fiberlog.SetLevel(fiberlog.LevelPanic)
	default:
		fiberlog.SetLevel(fiberlog.LevelInfo)
		fiberlog.Warnf("Unknown log level '%s', defaulting to 'info'", logLevel)
	}

	fiberlog.Infof("Log level set to: %s", logLevel)
}

func initializeServices(db *database.DB, cfg *config.Config) *gatewayServices {
	fxSvc := exchangerate.NewService(cfg.ExchangeRate)

	keysSvc := keys.NewService(db.DB)
	ledgerSvc := ledger.NewService(db.DB)
	accountingSvc := accounting.NewService(db.DB, keysSvc, ledgerSvc, fxSvc.Cache())
	usersSvc := users.NewService(db.DB, cfg.Auth)
	projectsSvc := projects.NewService(db.DB, keysSvc)
	pricingSvc := pricing.NewService(db.DB)

	return &gatewayServices{
		keys:       keysSvc,
		ledger:     ledgerSvc,
		accounting: accountingSvc,
		users:      usersSvc,
		projects:   projectsSvc,
		pricing:    pricingSvc,
		fx:         fxSvc,
	}
}

func runDatabaseMigrations(services *gatewayServices) error {
	if err := services.users.AutoMigrate(); err != nil {
		return fmt.Errorf("failed to migrate users table: %w", err)
	}
	if err := services.projects.AutoMigrate(); err != nil {
		return fmt.Errorf("failed to migrate projects table: %w", err)
	}
	if err := services.keys.AutoMigrate(); err != nil {
		return fmt.Errorf("failed to migrate sentinel_keys table: %w", err)
	}
	if err := services.ledger.AutoMigrate(); err != nil {
		return fmt.Errorf("failed to migrate usage_events table: %w", err)
	}
	if err := services.pricing.AutoMigrate(); err != nil {
		return fmt.Errorf("failed to migrate api_pricing table: %w", err)
	}

	return nil
}

func setupRoutes(app *fiber.App, db *database.DB, services *gatewayServices) {
	authMiddleware := middleware.NewAuthMiddleware(services.users)

	authHandler := api.NewAuthHandler(services.users)
	usersHandler := api.NewUsersHandler(services.users)
	projectsHandler := api.NewProjectsHandler(services.projects, services.accounting)
	usageHandler := api.NewUsageHandler(services.keys, services.ledger, services.accounting)
	pricingHandler := api.NewPricingHandler(services.pricing)
	healthHandler := api.NewHealthHandler(db.DB, services.fx.Cache())

	// Health check endpoint (always enabled)
	app.Get("/health", healthHandler.HealthCheck)

	// Account signup and token issuance
	authGroup := app.Group("/auth")
	authGroup.Post("/signup", authHandler.Signup)
	authGroup.Post("/token", authHandler.Token)

	// Metering surface, authenticated by sentinel key headers
	app.Post("/v1/usage", usageHandler.ReportUsage)
	app.Get("/keys/verify", usageHandler.VerifyKey)

	// Public price catalog
	app.Get("/v1/public/pricing/:api_name", pricingHandler.GetPricing)

	// Dashboard surface, authenticated by bearer tokens
	usersGroup := app.Group("/users", authMiddleware.RequireAuth())
	usersGroup.Get("/me", usersHandler.GetMe)
	usersGroup.Delete("/me", usersHandler.DeleteMe)

	projectsGroup := app.Group("/projects", authMiddleware.RequireAuth())
	projectsGroup.Post("/", projectsHandler.CreateProject)
	projectsGroup.Get("/", projectsHandler.ListProjects)
	projectsGroup.Delete("/:id", projectsHandler.DeleteProject)

	app.Get("/v1/projects/:id/stats", authMiddleware.RequireAuth(), projectsHandler.GetProjectStats)
}

func welcomeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":    "Welcome to API Sentinel!",
			"version":    "1.0.0",
			"go_version": runtime.Version(),
			"status":     "running",
			"endpoints": fiber.Map{
				"usage":    "/v1/usage",
				"verify":   "/keys/verify",
				"projects": "/projects",
				"pricing":  "/v1/public/pricing/:api_name",
				"health":   "/health",
			},
		})
	}
}
