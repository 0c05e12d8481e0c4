package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Raidenx1212/meditech-sub001/internal/config"
	"github.com/Raidenx1212/meditech-sub001/internal/domain/documents"
	"github.com/Raidenx1212/meditech-sub001/internal/domain/identity"
	"github.com/Raidenx1212/meditech-sub001/internal/domain/records"
	"github.com/Raidenx1212/meditech-sub001/internal/domain/scheduling"
	"github.com/Raidenx1212/meditech-sub001/internal/platform/auth"
	"github.com/Raidenx1212/meditech-sub001/internal/platform/chain"
	"github.com/Raidenx1212/meditech-sub001/internal/platform/db"
	"github.com/Raidenx1212/meditech-sub001/internal/platform/httperr"
	"github.com/Raidenx1212/meditech-sub001/internal/platform/middleware"
	"github.com/Raidenx1212/meditech-sub001/internal/platform/notification"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "meditech-server",
		Short: "Meditech appointment and records API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = httperr.ErrorHandler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() && cfg.JWTSecret == "" {
		logger.Warn().Msg("development mode without JWT_SECRET: unauthenticated requests are granted admin access")
		e.Use(auth.DevAuthMiddleware())
	} else {
		jwksURL := cfg.AuthJWKSURL
		if cfg.JWTSecret == "" && jwksURL == "" && cfg.AuthIssuer != "" {
			jwksURL, err = auth.DiscoverJWKSURL(ctx, cfg.AuthIssuer)
			if err != nil {
				logger.Fatal().Err(err).Str("issuer", cfg.AuthIssuer).Msg("resolving JWKS endpoint from AUTH_ISSUER")
			}
			logger.Info().Str("jwks_url", jwksURL).Msg("resolved JWKS endpoint via OIDC discovery")
		}
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    jwksURL,
			SigningKey: []byte(cfg.JWTSecret),
		}))
	}

	apiV1 := e.Group("/api/v1")

	// Rate limiting: Redis fixed-window when configured, else the local
	// token bucket.
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		rdb := redis.NewClient(opts)
		limit := int(cfg.RateLimitRPS)
		if limit <= 0 {
			limit = 100
		}
		limiter := middleware.NewRedisRateLimiter(rdb, limit, time.Second, "meditech:rl")
		apiV1.Use(limiter.Middleware(logger, true))
		logger.Info().Msg("redis rate limiting enabled")
	} else {
		rateLimitCfg := middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			BurstSize:         cfg.RateLimitBurst,
		}
		if rateLimitCfg.RequestsPerSecond <= 0 {
			rateLimitCfg = middleware.DefaultRateLimitConfig()
		}
		apiV1.Use(middleware.RateLimit(rateLimitCfg))
	}

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Notifications (mock senders until a real provider is configured)
	notifier := notification.NewManager(
		&notification.MockEmailSender{},
		&notification.MockSMSSender{},
		notification.NewTemplateEngine(),
		logger,
	)

	// Chain anchoring for document approvals
	var anchorer chain.Anchorer
	if cfg.ChainGatewayURL != "" {
		anchorer = chain.NewClient(cfg.ChainGatewayURL, cfg.ChainAPIKey)
	} else {
		logger.Warn().Msg("CHAIN_GATEWAY_URL not set; document approval anchoring is disabled")
		anchorer = chain.Disabled{}
	}

	// Identity domain
	userRepo := identity.NewUserRepoPG(pool)
	resolver := identity.NewResolver(userRepo, nil, logger)
	identitySvc := identity.NewService(userRepo)
	identity.NewHandler(identitySvc).RegisterRoutes(apiV1)

	// Scheduling domain
	apptRepo := scheduling.NewAppointmentRepoPG(pool)
	schedSvc := scheduling.NewService(apptRepo, resolver, notifier, logger)
	scheduling.NewHandler(schedSvc).RegisterRoutes(apiV1)

	// Records domain
	recordRepo := records.NewRecordRepoPG(pool)
	recordSvc := records.NewService(recordRepo, logger)
	records.NewHandler(recordSvc).RegisterRoutes(apiV1)

	// Documents domain
	docRepo := documents.NewDocumentRepoPG(pool)
	docSvc := documents.NewService(docRepo, anchorer, resolver, notifier, logger)
	documents.NewHandler(docSvc).RegisterRoutes(apiV1)

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
