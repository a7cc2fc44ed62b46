package testhelpers

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/geopin-service/internal/config"
	"github.com/geopin-service/internal/repository/postgres"
)

const migrationsDir = "../../../migrations"

// TestDB - тестовая база справочника с чистой схемой
type TestDB struct {
	DB     *sqlx.DB
	Logger *zap.Logger
}

// SetupTestDB подключается к тестовой базе и пересоздает схему; без базы тест пропускается
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	cfg := config.DatabaseConfig{
		Host:     getEnv("TEST_DB_HOST", "localhost"),
		Port:     getEnvInt("TEST_DB_PORT", 5433),
		User:     getEnv("TEST_DB_USER", "postgres"),
		Password: getEnv("TEST_DB_PASSWORD", "postgres"),
		DBName:   getEnv("TEST_DB_NAME", "geopin_test"),
		SSLMode:  getEnv("TEST_DB_SSLMODE", "disable"),
	}

	db, err := connect(cfg.DSN(), 3, 200*time.Millisecond, t)
	if err != nil {
		t.Skipf("PostgreSQL not available for integration tests: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := Migrate(context.Background(), db, getEnv("TEST_MIGRATIONS_DIR", migrationsDir)); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	return &TestDB{DB: db, Logger: zap.NewNop()}
}

func connect(dsn string, attempts int, delay time.Duration, t *testing.T) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	for i := range attempts {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			return db, nil
		}
		if i < attempts-1 {
			t.Logf("Database not ready (attempt %d/%d), waiting %v...", i+1, attempts, delay)
			time.Sleep(delay)
			delay *= 2
		}
	}
	return nil, err
}

// PostalRepository returns the repository under test bound to this database.
func (tdb *TestDB) PostalRepository() *postgres.PostalRepository {
	return postgres.NewPostalRepository(postgres.Wrap(tdb.DB, tdb.Logger))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}
