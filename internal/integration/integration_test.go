package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"escape-progress-service/internal/app"
	"escape-progress-service/internal/domain"
	"escape-progress-service/internal/infra/memory"
	pgloader "escape-progress-service/internal/infra/postgres"
	pgmigrations "escape-progress-service/internal/infra/postgres/migrations"
	infraredis "escape-progress-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestSubmitEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedStageSet(t, ctx, pgURL, sampleStageSet())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgloader.NewStageLoader(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	content := infraredis.NewStageSetCache(redisClient, loader, 5*time.Minute)
	progress := infraredis.NewProgressStore(redisClient)
	attempts := infraredis.NewAttemptLog(redisClient, time.Hour)

	service := app.NewSubmissionService(
		memory.NewTeamDirectory("team-1"),
		progress,
		attempts,
		content,
		memory.NewResultStore(),
		app.DefaultGuardPolicy(),
		"main",
	)

	view, err := service.StartProgress(ctx, "team-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if view.CurrentStage != 1 {
		t.Fatalf("expected stage 1, got %+v", view)
	}

	result, err := service.Submit(ctx, "team-1", 1, " Paris ")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Accepted || !result.Correct {
		t.Fatalf("expected correct submission, got %+v", result)
	}
	if result.Progress.CurrentStage != 2 || result.Progress.TotalScore != 10 {
		t.Fatalf("unexpected progress: %+v", result.Progress)
	}

	// An immediate replay of the solved stage is debounced.
	result, err = service.Submit(ctx, "team-1", 1, "paris")
	if err != nil {
		t.Fatalf("replay submit: %v", err)
	}
	if result.Accepted || result.Reason != domain.ReasonAlreadyCompletedRecently {
		t.Fatalf("expected debounce rejection, got %+v", result)
	}

	// The persisted record survives a fresh store against the same Redis.
	stored, err := infraredis.NewProgressStore(redisClient).Get(ctx, "team-1")
	if err != nil {
		t.Fatalf("get stored progress: %v", err)
	}
	if stored.TotalScore != 10 || len(stored.CompletedStages) != 1 {
		t.Fatalf("unexpected stored progress: %+v", stored)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "game", "POSTGRES_PASSWORD": "gamepass", "POSTGRES_DB": "gamedb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://game:gamepass@%s:%s/gamedb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedStageSet(t *testing.T, ctx context.Context, dsn string, set domain.StageSet) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal stage set: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO stage_sets (link, data) VALUES (? , ?::jsonb) ON CONFLICT (link) DO UPDATE SET data=EXCLUDED.data`, set.Link, string(data)); err != nil {
		t.Fatalf("insert stage set: %v", err)
	}
}

func sampleStageSet() domain.StageSet {
	return domain.StageSet{
		Link:             "main",
		SequentialUnlock: true,
		FinalCode:        "open-sesame",
		Stages: []domain.Stage{
			{Number: 1, Prompt: "Capital of France?", Answer: "paris", Points: 10},
			{Number: 2, Prompt: "What is 6 x 7?", Answer: "42", Points: 10},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
