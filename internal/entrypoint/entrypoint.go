package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/jkoudys/daybook/internal/auth"
	"github.com/jkoudys/daybook/internal/config"
	"github.com/jkoudys/daybook/internal/database"
	"github.com/jkoudys/daybook/internal/database/sessions"
	"github.com/jkoudys/daybook/internal/database/tokens"
	"github.com/jkoudys/daybook/internal/database/users"
	http_controllers "github.com/jkoudys/daybook/internal/http"
	"github.com/jkoudys/daybook/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until an interrupt or termination signal
// arrives, then drains it within the configured shutdown timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop task queue and cron)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// Run wires all components together and starts the server.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting Daybook v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	codec := newCodec(cfg)

	userRepo := users.NewRepository(db.DB)
	sessionRepo := sessions.NewRepository(db.DB)
	tokenRepo := tokens.NewRepository(db.DB)

	userService := auth.NewService(userRepo, cfg.Auth)
	sessionService := auth.NewSessionService(sessionRepo, cfg.Auth)
	tokenService := auth.NewTokenService(tokenRepo, codec, cfg.Auth)

	middleware := auth.NewMiddleware(userService, sessionService, tokenService, cfg.Auth)

	rateLimiter := auth.NewRateLimiter(auth.RateLimitConfig{
		MaxAttempts:     cfg.Auth.MaxLoginAttempts,
		WindowDuration:  cfg.Auth.RateLimitWindow,
		LockoutDuration: cfg.Auth.LockoutDuration,
	})
	defer rateLimiter.Stop()

	csrfSecret := loadCSRFSecret(cfg)

	// Background task queue for session and token housekeeping
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	var scheduler *cron.Cron
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:           cfg.Tasks.Workers,
			ReleaseAfter:      cfg.Tasks.ReleaseAfter,
			CleanupInterval:   cfg.Tasks.CleanupInterval,
			RetentionDuration: cfg.Tasks.RetentionDuration,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewCleanupSessionsQueue(sessionService),
			tasks.NewPurgeTokensQueue(tokenService),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		scheduler = cron.New()
		_, err = scheduler.AddFunc(cfg.Cleanup.Schedule, func() {
			if _, err := taskClient.Add(
				tasks.CleanupSessionsTask{},
				tasks.PurgeTokensTask{RetentionDays: cfg.Cleanup.TokenPurgeAfterDays},
			).Save(); err != nil {
				log.Printf("Failed to enqueue cleanup tasks: %v", err)
			}
		})
		if err != nil {
			log.Fatalf("Invalid cleanup schedule %q: %v", cfg.Cleanup.Schedule, err)
		}
		scheduler.Start()
		log.Printf("Cleanup scheduled: %s", cfg.Cleanup.Schedule)
	}

	routerCfg := http_controllers.RouterConfig{
		Users:         userService,
		Sessions:      sessionService,
		Tokens:        tokenService,
		Middleware:    middleware,
		RateLimiter:   rateLimiter,
		CSRFSecret:    csrfSecret,
		SecureCookies: cfg.Auth.SecureCookies,
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if scheduler != nil {
			scheduler.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}

// newCodec builds the secret codec from the configured key. Production
// refuses to start without one; elsewhere an ephemeral per-boot key keeps
// development working, at the cost of stored secrets becoming unreadable
// on restart.
func newCodec(cfg *config.Config) *auth.SecretCodec {
	if cfg.Auth.EncryptionKey != "" {
		codec, err := auth.NewSecretCodec(cfg.Auth.EncryptionKey)
		if err != nil {
			log.Fatalf("Invalid AUTH_ENCRYPTION_KEY: %v", err)
		}
		return codec
	}

	if cfg.Global.IsProduction() {
		log.Fatalf("AUTH_ENCRYPTION_KEY is required in production (64 hex characters)")
	}

	codec, err := auth.NewEphemeralCodec()
	if err != nil {
		log.Fatalf("Failed to generate ephemeral encryption key: %v", err)
	}
	log.Printf("WARNING: Using ephemeral encryption key. Token secrets will not survive a restart. Set AUTH_ENCRYPTION_KEY to persist.")
	return codec
}

func loadCSRFSecret(cfg *config.Config) []byte {
	if cfg.Auth.CSRFSecret != "" {
		secret, err := hex.DecodeString(cfg.Auth.CSRFSecret)
		if err != nil {
			// Not hex, use as raw bytes
			return []byte(cfg.Auth.CSRFSecret)
		}
		return secret
	}

	key, err := auth.GenerateKey()
	if err != nil {
		log.Fatalf("Failed to generate CSRF secret: %v", err)
	}
	secret, _ := hex.DecodeString(key)
	log.Printf("Generated CSRF secret (set AUTH_CSRF_SECRET to persist)")
	return secret
}
