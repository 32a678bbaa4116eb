package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/BradenHooton/offeradmin/internal/database"
	"github.com/BradenHooton/offeradmin/internal/storage"
)

// TestDB manages a PostgreSQL testcontainer with the kv_store schema applied
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	DB         *database.DB
}

// SetupTestDatabase starts PostgreSQL and runs the embedded migrations
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("offeradmin"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	db, err := connect(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &TestDB{Container: container, ConnString: connStr, DB: db}, nil
}

func connect(ctx context.Context, connStr string) (*database.DB, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return database.FromPool(pool, discardLogger()), nil
}

// NewStore opens a Postgres-backed store on its own pool, as a second
// process sharing the database would.
func (db *TestDB) NewStore(ctx context.Context, namespace string, quotaBytes int64) (*storage.Postgres, error) {
	conn, err := connect(ctx, db.ConnString)
	if err != nil {
		return nil, err
	}
	return storage.NewPostgres(conn, namespace, quotaBytes, discardLogger()), nil
}

// CleanupTables truncates kv_store for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	if _, err := db.DB.Pool.Exec(ctx, "TRUNCATE TABLE kv_store"); err != nil {
		return fmt.Errorf("failed to truncate kv_store: %w", err)
	}
	return nil
}

// Teardown closes the pool and stops the container
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.DB != nil {
		db.DB.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// TestRedis manages a Redis testcontainer
type TestRedis struct {
	Container testcontainers.Container
	URL       string
}

// SetupTestRedis starts a throwaway Redis server
func SetupTestRedis(ctx context.Context) (*TestRedis, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start redis container: %w", err)
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get redis endpoint: %w", err)
	}

	return &TestRedis{Container: container, URL: "redis://" + endpoint}, nil
}

// NewStore opens a Redis-backed store with its own client
func (r *TestRedis) NewStore(ctx context.Context, namespace string, quotaBytes int64) (*storage.Redis, error) {
	return storage.NewRedis(ctx, r.URL, namespace, quotaBytes, discardLogger())
}

// Teardown stops the container
func (r *TestRedis) Teardown(ctx context.Context) error {
	return r.Container.Terminate(ctx)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
