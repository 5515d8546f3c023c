package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/draxon/pulse/internal/config"
	"github.com/draxon/pulse/internal/cooldown"
	"github.com/draxon/pulse/internal/database"
	"github.com/draxon/pulse/internal/handlers"
	"github.com/draxon/pulse/internal/metrics"
	"github.com/draxon/pulse/internal/middleware"
	"github.com/draxon/pulse/internal/roles"
	"github.com/draxon/pulse/internal/services"
	slackutil "github.com/draxon/pulse/internal/slack"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm/logger"
)

// Env files in load order. godotenv never overrides a variable that is
// already set, so earlier files win.
var envFiles = []string{"env/.env", ".env"}

const shutdownTimeout = 10 * time.Second

func main() {
	loadEnvFiles()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logFile := setupLogging(cfg.LogFile)
	if logFile != nil {
		defer logFile.Close()
	}

	log.Printf("Starting DraXon PULSE %s (built %s)...", config.Version, config.BuildDate)
	build := services.BuildInfo{Version: config.Version, BuildDate: config.BuildDate}
	metrics.SetBuildInfo(build.Version, build.BuildDate)

	// Initialize database connection
	db, err := database.Connect(cfg.DatabaseURL, logger.Warn)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)
	log.Printf("Database connection established")

	// Run database migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	hierarchy := roles.DefaultHierarchy()
	if cfg.RolesFile != "" {
		if hierarchy, err = roles.LoadHierarchy(cfg.RolesFile); err != nil {
			log.Fatalf("Failed to load role hierarchy: %v", err)
		}
		log.Printf("Role hierarchy loaded from %s", cfg.RolesFile)
	}

	// Cooldowns live in memory only; a restart clears them
	cooldowns := cooldown.New(cfg.CooldownWindow)
	metrics.RegisterCooldownSource(cooldowns.Len)
	log.Printf("Alert cooldown window: %v", cfg.CooldownWindow)

	// Slack components fetch the live client from the manager, so they keep
	// working across reconnects and hot reloads
	slackManager := slackutil.NewManager(loadSlackSettings)
	messenger := slackutil.NewMessenger(slackManager)
	directory := slackutil.NewDirectory(slackManager, slackutil.DefaultDirectoryTTL)
	channelResolver := slackutil.NewChannelResolver(slackManager)

	configStore := services.NewConfigStore(db)
	alertLog := services.NewAlertLog(db)
	ping := func(ctx context.Context) error { return database.Ping(ctx, db) }

	pipeline := services.NewSubmissionPipeline(hierarchy, configStore, alertLog, cooldowns, messenger)
	alertFeed := handlers.NewAlertFeed(cfg.CORSAllowedOrigins...)
	pipeline.AddObserver(alertFeed)

	reporter := services.NewStatusReporter(hierarchy, configStore, alertLog, directory, messenger, ping, build)

	slackHandler := handlers.NewSlackHandler(
		hierarchy,
		directory,
		messenger,
		channelResolver,
		pipeline,
		configStore,
		reporter,
		build,
	)

	slackManager.SetEventHandler(func(ctx context.Context, socketClient *socketmode.Client, _ *slack.Client) {
		channelResolver.ClearCache()
		go slackHandler.HandleSocketMode(ctx, socketClient)
		log.Printf("Slack components initialized")
	})

	// Initialize JWT authentication middleware
	jwtAuthMiddleware := newJWTAuth(cfg)

	var loginLimiter *middleware.RateLimiter
	if cfg.LoginRatePerMinute > 0 {
		loginLimiter = middleware.NewRateLimiter(cfg.LoginRatePerMinute, cfg.LoginRatePerMinute)
	}

	router := newRouter(
		cfg,
		jwtAuthMiddleware,
		handlers.NewHTTPHandler(ping, reporter, alertLog, build),
		handlers.NewAuthHandler(jwtAuthMiddleware, loginLimiter),
		alertFeed,
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cooldowns.Run(gCtx, cfg.CooldownSweepInterval)
		return nil
	})

	g.Go(func() error {
		alertFeed.Run(gCtx)
		return nil
	})

	g.Go(func() error {
		slackManager.WatchForReloads(gCtx)
		return nil
	})

	g.Go(func() error {
		watchHangup(gCtx, slackManager)
		return nil
	})

	g.Go(func() error {
		log.Printf("Starting HTTP server on port %d", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		log.Println("Received shutdown signal, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Println("Shutting down HTTP server...")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down HTTP server: %v", err)
		}

		slackManager.Stop()
		return nil
	})

	// Start Slack Socket Mode if configured
	if err := slackManager.Start(gCtx); err != nil {
		log.Printf("Warning: Failed to start Slack: %v", err)
	} else if slackManager.IsRunning() {
		log.Println("Slack Socket Mode is ACTIVE")
	} else {
		log.Println("Running in API-only mode (SLACK_BOT_TOKEN/SLACK_APP_TOKEN not set)")
	}

	log.Println("PULSE is running! Press Ctrl+C to exit.")
	log.Printf("Health check endpoint: http://localhost:%d/health", cfg.HTTPPort)
	log.Printf("API base URL: http://localhost:%d/api", cfg.HTTPPort)

	if err := g.Wait(); err != nil {
		log.Printf("Shutdown with error: %v", err)
		return
	}
	log.Println("Shutdown complete")
}

// loadEnvFiles loads the env files that exist. Missing files are fine when
// configuration comes from the environment.
func loadEnvFiles() {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil {
			log.Printf("No %s file loaded (this is fine if using environment variables): %v", file, err)
		}
	}
}

// reloadEnvFiles re-reads the env files over the current environment so a
// SIGHUP picks up edited Slack tokens. Files are applied in reverse order to
// keep the same precedence as loadEnvFiles.
func reloadEnvFiles() {
	for i := len(envFiles) - 1; i >= 0; i-- {
		if _, err := os.Stat(envFiles[i]); err != nil {
			continue
		}
		if err := godotenv.Overload(envFiles[i]); err != nil {
			log.Printf("Warning: Failed to reload %s: %v", envFiles[i], err)
		}
	}
}

// loadSlackSettings is the manager's settings source
func loadSlackSettings() (slackutil.Settings, error) {
	reloadEnvFiles()
	cfg, err := config.Load()
	if err != nil {
		return slackutil.Settings{}, err
	}
	return slackutil.Settings{
		BotToken: cfg.SlackBotToken,
		AppToken: cfg.SlackAppToken,
		ProxyURL: cfg.SlackProxyURL,
		Debug:    cfg.SlackDebug,
	}, nil
}

// setupLogging tees the standard logger into path. On failure logging stays
// on stderr only.
func setupLogging(path string) *os.File {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Printf("Warning: Could not create log directory: %v", err)
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Printf("Warning: Could not open log file %s: %v", path, err)
		return nil
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return f
}

// newJWTAuth builds the API authentication middleware. Without an admin
// password no login can succeed, so only the public paths are reachable.
func newJWTAuth(cfg *config.Config) *middleware.JWTAuthMiddleware {
	var passwordHash string
	if cfg.AdminPassword == "" {
		log.Printf("Warning: ADMIN_PASSWORD is not set, the HTTP API is closed")
	} else {
		hash, err := middleware.HashPassword(cfg.AdminPassword)
		if err != nil {
			log.Fatalf("Failed to hash admin password: %v", err)
		}
		passwordHash = hash
		log.Printf("JWT authentication enabled for user: %s", cfg.AdminUsername)
	}

	return middleware.NewJWTAuthMiddleware(&middleware.JWTAuthConfig{
		Enabled:           true,
		AdminUsername:     cfg.AdminUsername,
		AdminPasswordHash: passwordHash,
		JWTSecret:         cfg.JWTSecret,
		JWTExpiryHours:    cfg.JWTExpiryHours,
		SkipPaths: []string{
			"/health",
			"/metrics",
			"/auth/login",
		},
	})
}

func newRouter(
	cfg *config.Config,
	jwtAuth *middleware.JWTAuthMiddleware,
	httpHandler *handlers.HTTPHandler,
	authHandler *handlers.AuthHandler,
	alertFeed *handlers.AlertFeed,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.RequestLogger(cfg.HTTPLogVerbose))
	r.Use(middleware.Recoverer)
	r.Use(middleware.PrometheusMiddleware)
	r.Use(middleware.NewCORSMiddleware(cfg.CORSAllowedOrigins...).Wrap)
	r.Use(jwtAuth.Wrap)

	httpHandler.SetupRoutes(r)
	authHandler.SetupRoutes(r)
	alertFeed.SetupRoutes(r)

	return r
}

// watchHangup reconnects Slack with fresh settings on SIGHUP
func watchHangup(ctx context.Context, manager *slackutil.Manager) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			log.Printf("Received SIGHUP, reloading Slack settings")
			manager.TriggerReload()
		}
	}
}
