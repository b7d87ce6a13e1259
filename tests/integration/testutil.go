//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sentiq-platform/sentiq/internal/api"
	"github.com/sentiq-platform/sentiq/internal/config"
	"github.com/sentiq-platform/sentiq/internal/inference"
	mw "github.com/sentiq-platform/sentiq/internal/middleware"
	"github.com/sentiq-platform/sentiq/internal/quota"
)

const testDashAPIKey = "test-dash-key"

// testAbuseConfig is shared by the whole suite. Burst detection is off so
// rapid test requests only exercise the daily counters; the burst path has
// its own server in abuse_test.go.
func testAbuseConfig() config.AbuseConfig {
	return config.AbuseConfig{
		Enabled:            true,
		DailyLimit:         5,
		CooldownDays:       30,
		CooldownDailyLimit: 1,
		BurstMinIntervalMS: 0,
		BurstBlockSeconds:  3600,
		Collection:         "quota-it",
		FailClosed:         false,
		StoreTimeout:       2 * time.Second,
	}
}

type TestEnv struct {
	Pool        *pgxpool.Pool
	RedisClient *redis.Client
	Server      *httptest.Server
	Violations  *quota.ViolationRepository
}

var testEnv *TestEnv

func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if testEnv != nil {
		return testEnv
	}

	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "sentiq_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	pgHost, _ := pgContainer.Host(ctx)
	pgPort, _ := pgContainer.MappedPort(ctx, "5432")

	// Start Redis container
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting redis container: %v", err)
	}
	t.Cleanup(func() { redisContainer.Terminate(ctx) })

	redisHost, _ := redisContainer.Host(ctx)
	redisPort, _ := redisContainer.MappedPort(ctx, "6379")

	// Connect to PostgreSQL
	dsn := fmt.Sprintf("postgres://test:test@%s:%s/sentiq_test?sslmode=disable", pgHost, pgPort.Port())
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	// Run migrations
	migrationsPath := getMigrationsPath()
	m, err := migrate.New(
		fmt.Sprintf("file://%s", migrationsPath),
		dsn,
	)
	if err != nil {
		t.Fatalf("creating migrator: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("running migrations: %v", err)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port()),
	})
	t.Cleanup(func() { redisClient.Close() })

	// Setup services
	appCfg := config.AppConfig{Name: "sentiq-test", Version: "test", Model: "lexicon-v1"}
	infCfg := config.InferenceConfig{StoreEnabled: true, MaxTextLen: 5000}

	violationRepo := quota.NewViolationRepository(pool)
	store := quota.NewRedisStore(redisClient, testAbuseConfig().Collection)
	gate := quota.NewGate(store, testAbuseConfig(), violationRepo)
	quotaHandler := quota.NewHandler(gate, violationRepo)

	inferenceRepo := inference.NewRepository(pool)
	inferenceSvc := inference.NewService(inferenceRepo, inference.NewLexiconClassifier(),
		nil, appCfg, infCfg)
	inferenceHandler := inference.NewHandler(inferenceSvc)

	router := api.NewRouter(pool, redisClient, api.RouterConfig{App: appCfg}, api.HandlerSet{
		Predict:        inferenceHandler.Predict,
		ListInferences: inferenceHandler.List,

		QuotaStatus:    quotaHandler.Status,
		ListViolations: quotaHandler.ListViolations,

		QuotaMiddleware:  quota.Middleware(gate),
		APIKeyMiddleware: mw.APIKey(testDashAPIKey),
	})

	server := httptest.NewServer(router)
	t.Cleanup(func() { server.Close() })

	testEnv = &TestEnv{
		Pool:        pool,
		RedisClient: redisClient,
		Server:      server,
		Violations:  violationRepo,
	}

	return testEnv
}

func getMigrationsPath() string {
	// Try relative paths from test directory
	paths := []string{
		"../../migrations",
		"../../../migrations",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	log.Fatal("migrations directory not found")
	return ""
}

// Helper functions

var idCounter atomic.Int64

// uniqueAddr returns a client address no other test has used, so every test
// starts from a fresh quota record.
func uniqueAddr() string {
	return fmt.Sprintf("10.1.%d.%d", idCounter.Add(1)%250+1, time.Now().UnixNano()%250+1)
}

// DoRequest issues a request against the test server. clientAddr, when not
// empty, is sent as X-Forwarded-For so the quota gate attributes the call to
// that client. apiKey, when not empty, is sent as X-API-Key.
func DoRequest(t *testing.T, env *TestEnv, method, path string, body any, clientAddr, apiKey string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, env.Server.URL+path, bodyReader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if clientAddr != "" {
		req.Header.Set("X-Forwarded-For", clientAddr)
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("doing request: %v", err)
	}
	return resp
}

func Predict(t *testing.T, env *TestEnv, clientAddr, text string) *http.Response {
	t.Helper()
	return DoRequest(t, env, "POST", "/api/v1/predict", map[string]string{"text": text}, clientAddr, "")
}

func ParseResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	return result
}
