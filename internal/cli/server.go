package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizdeck-service/internal/app"
	"quizdeck-service/internal/config"
	"quizdeck-service/internal/docstore"
	"quizdeck-service/internal/identity"
	"quizdeck-service/internal/infra/memory"
	"quizdeck-service/internal/infra/postgres"
	infraredis "quizdeck-service/internal/infra/redis"
	"quizdeck-service/internal/logger"
	transport "quizdeck-service/internal/transport/http"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)
	if cfg.Log.Level != "debug" && cfg.Log.Level != "trace" {
		gin.SetMode(gin.ReleaseMode)
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var store docstore.Store = memory.NewDocStore()
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = postgres.NewDocStore(pool, config.TTLDuration(cfg.Postgres.PollInterval, 2*time.Second))
		log.Info().Msg("using postgres document store")
	} else {
		log.Info().Msg("no postgres url configured, using in-memory document store")
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	loader := memory.NewStoreLoader(store)
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizzes app.QuizSource
	if redisClient != nil {
		quizzes = infraredis.NewQuizCache(redisClient, loader, quizTTL)
	} else {
		quizzes = memory.NewQuizCache(loader, quizTTL)
	}

	var liveness app.SessionLiveness
	if redisClient != nil {
		liveness = infraredis.NewSessionMarker(redisClient, config.TTLDuration(cfg.Session.LivenessTTL, time.Hour))
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		// Tokens signed with an ephemeral secret do not survive a restart.
		secret = uuid.NewString()
		log.Warn().Msg("auth.jwt_secret not configured, using an ephemeral secret")
	}
	provider := identity.NewProvider(secret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))

	service := app.NewQuizService(store, quizzes, liveness, log)
	router := transport.NewRouter(service, provider, log, cfg.Server.AllowedOrigins)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Msg("starting quizdeck service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server...")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
