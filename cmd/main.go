package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/immxrtalbeast/tutorchat/internal/api/http"
	"github.com/immxrtalbeast/tutorchat/internal/config"
	"github.com/immxrtalbeast/tutorchat/internal/metrics"
	"github.com/immxrtalbeast/tutorchat/internal/repository"
	"github.com/immxrtalbeast/tutorchat/internal/repository/model"
	"github.com/immxrtalbeast/tutorchat/internal/service"
	"github.com/immxrtalbeast/tutorchat/lib/logger/sl"
	"github.com/immxrtalbeast/tutorchat/lib/logger/slogpretty"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load(".env")

	cfg := config.MustLoad()
	log := setupLogger(cfg.Env, os.Stdout)

	directory, transcript, err := setupStorage(cfg, log)
	if err != nil {
		log.Error("failed to set up storage", sl.Err(err))
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	broadcaster := service.NewBroadcaster(log, 0)
	defer broadcaster.Close()

	matchmaking := service.NewMatchmakingService(
		directory,
		transcript,
		broadcaster,
		metrics.NewChat(registry),
		log,
		service.Options{
			LivenessTimeout:     cfg.Chat.LivenessTimeout,
			CollaboratorTimeout: cfg.Chat.CollaboratorTimeout,
			EventBuffer:         cfg.Chat.EventBuffer,
			MaxMessageLength:    cfg.Chat.MaxMessageLength,
		},
	)
	monitor := service.NewLivenessMonitor(matchmaking, cfg.Chat.SweepInterval, log)

	router := httpapi.SetupRouter(httpapi.Controllers{
		Chat:          httpapi.NewChatController(matchmaking, log),
		Presence:      httpapi.NewPresenceController(matchmaking),
		Notifications: httpapi.NewNotificationController(broadcaster, log),
		Metrics:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}, cfg.HTTP.AllowedOrigins, log)

	server := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting application", slog.String("addr", cfg.HTTP.Address), slog.String("storage", cfg.Storage))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return monitor.Run(ctx)
	})

	if cfg.Redis.URL != "" {
		client, err := connectRedis(cfg.Redis)
		if err != nil {
			log.Error("failed to connect redis", sl.Err(err))
			os.Exit(1)
		}
		defer client.Close()

		mirror := service.NewRedisMirror(client, cfg.Redis.Channel, broadcaster, log)
		g.Go(func() error {
			return mirror.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("application stopped", sl.Err(err))
		os.Exit(1)
	}
	log.Info("application stopped")
}

const (
	envDev  = "dev"
	envProd = "prod"
)

// setupLogger picks the handler for env. Unknown envs get the local pretty output.
func setupLogger(env string, out io.Writer) *slog.Logger {
	var level slog.Level

	switch env {
	case envDev:
		level = slog.LevelDebug
	case envProd:
		level = slog.LevelInfo
	default:
		return setupPrettySlog(out)
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("env", env))
}

func setupPrettySlog(out io.Writer) *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{Level: slog.LevelDebug},
	}
	return slog.New(opts.NewPrettyHandler(out))
}

func setupStorage(cfg *config.Config, log *slog.Logger) (repository.DirectoryRepository, repository.TranscriptRepository, error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		db, err := connectDatabase(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewPostgresDirectoryRepository(db), repository.NewPostgresTranscriptRepository(db), nil
	default:
		log.Warn("using in-memory storage, directory starts empty")
		return repository.NewInMemoryDirectoryRepository(), repository.NewInMemoryTranscriptRepository(), nil
	}
}

func connectDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database dsn is empty")
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&model.User{}, &model.Ban{}, &model.ChatMessage{}); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

func connectRedis(cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return client, nil
}
