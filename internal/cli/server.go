package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"escape-progress-service/internal/app"
	"escape-progress-service/internal/config"
	"escape-progress-service/internal/domain"
	"escape-progress-service/internal/infra/memory"
	pgloader "escape-progress-service/internal/infra/postgres"
	infraredis "escape-progress-service/internal/infra/redis"
	transport "escape-progress-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the progress server",
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

	logger := newLogger()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	eventLink := cfg.Event.Link
	if eventLink == "" {
		eventLink = "main"
	}

	var loader memory.StageLoader = memory.NewStaticStageLoader(sampleStageSets(eventLink))
	if pool != nil {
		loader = pgloader.NewStageLoader(pool)
	}

	contentTTL := config.TTLDuration(cfg.Content.TTL, 10*time.Minute)
	var content app.StageSetRepository
	if redisClient != nil {
		content = infraredis.NewStageSetCache(redisClient, loader, contentTTL)
	} else {
		content = memory.NewStageSetRepository(loader, contentTTL)
	}

	policy := app.GuardPolicy{
		DebounceWindow: config.TTLDuration(cfg.Guard.Debounce, 0),
		RateWindow:     config.TTLDuration(cfg.Guard.Window, 0),
		MaxAttempts:    cfg.Guard.MaxAttempts,
	}

	var progress app.ProgressStore
	var attempts app.AttemptLog
	if redisClient != nil {
		progress = infraredis.NewProgressStore(redisClient)
		attempts = infraredis.NewAttemptLog(redisClient, time.Hour)
	} else {
		progress = memory.NewProgressStore()
		attempts = memory.NewAttemptLog()
	}

	teamIDs := cfg.Event.Teams
	if len(teamIDs) == 0 {
		teamIDs = []string{"team-1", "team-2"}
		logger.Warn("no teams configured, registering sample teams")
	}
	teams := memory.NewTeamDirectory(teamIDs...)
	results := memory.NewResultStore()

	service := app.NewSubmissionService(teams, progress, attempts, content, results, policy, eventLink)
	apiHandler := transport.NewAPIHandler(service, logger.WithField("component", "api"))
	wsHandler := transport.NewWSHandler(service, logger.WithField("component", "ws"))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	apiHandler.Register(mux)
	mux.HandleFunc("/ws/progress", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.WithField("port", finalPort).Info("starting progress service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server...")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if os.Getenv("DEBUG") != "" {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// sampleStageSets provides a minimal stage set for local runs; production
// content comes from Postgres via the authoring subsystem.
func sampleStageSets(link string) map[string]domain.StageSet {
	return map[string]domain.StageSet{
		link: {
			Link:             link,
			Title:            "Sample escape room",
			SequentialUnlock: true,
			FinalCode:        "open-sesame",
			Stages: []domain.Stage{
				{Number: 1, Title: "Warmup", Prompt: "Capital of France?", Answer: "paris", Points: 10},
				{Number: 2, Title: "Numbers", Prompt: "What is 6 x 7?", Answer: "42", Points: 10},
				{Number: 3, Title: "Words", Prompt: "Opposite of night?", Answer: "day", Points: 20},
			},
		},
	}
}
