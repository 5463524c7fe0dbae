package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/forgeboard/authkit/internal/application/ports"
	"github.com/forgeboard/authkit/internal/application/provider"
	"github.com/forgeboard/authkit/internal/config"
	httprouter "github.com/forgeboard/authkit/internal/infrastructure/http"
	"github.com/forgeboard/authkit/internal/infrastructure/http/handlers"
	"github.com/forgeboard/authkit/internal/infrastructure/http/middleware"
	"github.com/forgeboard/authkit/internal/infrastructure/persistence"
	"github.com/forgeboard/authkit/internal/infrastructure/persistence/postgres"
	"github.com/forgeboard/authkit/internal/infrastructure/persistence/redisstore"
	"github.com/forgeboard/authkit/internal/infrastructure/queue"
	"github.com/forgeboard/authkit/internal/infrastructure/security"
)

func main() {
	migrateOnly := flag.Bool("migrate", false, "apply migrations and exit")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	if err := persistence.ApplyMigrations(cfg.Database.MigrationsDir, cfg.Database.URL); err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}
	if *migrateOnly {
		log.Info().Msg("migrations applied")
		return
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("ping database")
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("parse REDIS_URL")
		}
		redisClient = redis.NewClient(opt)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis ping failed; continuing without redis")
			redisClient = nil
		}
	}

	hasher := security.NewArgon2Hasher(security.Argon2Params{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  16,
		KeyLength:   32,
	})

	var sessions ports.SessionRepository = postgres.NewSessionRepository(pool)
	if cfg.Redis.Sessions && redisClient != nil {
		sessions = redisstore.NewSessionStore(redisClient)
		log.Info().Msg("using redis session store")
	}

	local := provider.NewLocal(provider.Config{
		Users:         postgres.NewUserRepository(pool),
		Sessions:      sessions,
		APIKeys:       postgres.NewAPIKeyRepository(pool),
		Orgs:          postgres.NewOrganizationRepository(pool),
		Hasher:        hasher,
		Tokens:        security.NewBearerTokenSource(),
		SessionMaxAge: time.Duration(cfg.Session.MaxAge) * time.Second,
		Log:           log,
	})

	sweepInterval := time.Duration(cfg.Redis.SweepInterval) * time.Second
	var asynqSweeper *queue.Sweeper
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	if redisClient != nil {
		redisOpt, _ := redis.ParseURL(cfg.Redis.URL)
		asynqOpt := asynq.RedisClientOpt{Addr: redisOpt.Addr, Password: redisOpt.Password, DB: redisOpt.DB}
		asynqSweeper, err = queue.NewSweeper(asynqOpt, local, sweepInterval, log)
		if err != nil {
			log.Fatal().Err(err).Msg("create session sweeper")
		}
		go func() {
			if err := asynqSweeper.Run(); err != nil {
				log.Warn().Err(err).Msg("session sweeper stopped")
			}
		}()
	} else {
		go queue.NewLocalSweeper(local, sweepInterval, log).Run(sweepCtx)
	}

	cookies := middleware.NewSessionCookies(
		[]byte(cfg.Session.CookieSecret),
		cfg.Session.CookieName,
		int(cfg.Session.MaxAge),
	)
	router := httprouter.NewRouter(httprouter.RouterConfig{
		AuthHandler:   handlers.NewAuthHandler(local, cookies, log),
		HealthHandler: handlers.NewHealthHandler(pool, redisClient),
		Authenticator: middleware.NewAuthenticator(local, cookies, log),
		Log:           log,
		Metrics:       cfg.Server.Metrics,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if asynqSweeper != nil {
		asynqSweeper.Shutdown()
	}
	stopSweep()
	log.Info().Msg("server stopped")
}
