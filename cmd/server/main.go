package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/lmittmann/tint"

	config "github.com/postpilot/postpilot/configs"
	"github.com/postpilot/postpilot/internal/api/handlers"
	job "github.com/postpilot/postpilot/internal/jobs"
	"github.com/postpilot/postpilot/internal/models"
	"github.com/postpilot/postpilot/internal/queue"
	"github.com/postpilot/postpilot/internal/repository"
	"github.com/postpilot/postpilot/internal/scheduler"
	"github.com/postpilot/postpilot/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded", "error", err)
	}

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		TimeFormat: time.RFC3339,
	})))

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		slog.Error("database is unreachable", "error", err)
		os.Exit(1)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	asynqClient := asynq.NewClient(redisConn)
	defer asynqClient.Close()

	postRepo := repository.NewPostRepository(db)
	accountRepo := repository.NewAccountRepository(db)

	instagramService := service.NewInstagramService(*cfg, accountRepo)
	tiktokService := service.NewTiktokService(*cfg, accountRepo)

	publishers := service.PublisherRegistry{
		models.PlatformInstagram: instagramService,
		models.PlatformTiktok:    tiktokService,
	}
	publishService := service.NewPublishService(*cfg, postRepo, publishers)

	refreshJob := job.NewTokenRefreshJob(accountRepo, map[models.Platform]job.TokenRefresher{
		models.PlatformInstagram: instagramService,
		models.PlatformTiktok:    tiktokService,
	})

	sched := scheduler.New(postRepo, queue.NewClient(asynqClient), refreshJob)
	if err := sched.Start(); err != nil {
		slog.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		worker := queue.NewWorker(publishService)
		mux.HandleFunc(queue.TaskTypePublishPost, worker.HandlePublishPostTask)

		slog.Info("starting the asynq server")
		if err := server.Run(mux); err != nil {
			slog.Error("could not start asynq server", "error", err)
			os.Exit(1)
		}
	}()

	app := fiber.New(fiber.Config{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("request failed", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})
	app.Use(logger.New())

	health := handlers.NewHealthHandler(db, sched)
	app.Get("/healthz", health.Healthz)
	app.Get("/status", health.Status)

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()
	slog.Info("server is running", "addr", cfg.ListenAddr)

	gracefulShutdown(app, sched, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, sched *scheduler.Scheduler, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	slog.Info("shutting down server")

	sched.Stop()

	if err := app.Shutdown(); err != nil {
		slog.Error("failed to shut down server", "error", err)
	}

	closeDB(db)
	slog.Info("server shutdown complete")
}
