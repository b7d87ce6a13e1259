//go:build integration

package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentiq-platform/sentiq/internal/api"
	"github.com/sentiq-platform/sentiq/internal/config"
	"github.com/sentiq-platform/sentiq/internal/inference"
	mw "github.com/sentiq-platform/sentiq/internal/middleware"
	"github.com/sentiq-platform/sentiq/internal/quota"
)

func TestAbuse_DailyLimitThenCooldown(t *testing.T) {
	env := SetupTestEnv(t)
	addr := uniqueAddr()

	// First 5 requests pass (suite daily limit is 5).
	for i := 0; i < 5; i++ {
		resp := Predict(t, env, addr, "hello there")
		require.Equal(t, http.StatusOK, resp.StatusCode, "request %d should pass", i+1)
		resp.Body.Close()
	}

	// Sixth is denied and flips the client into cooldown.
	resp := Predict(t, env, addr, "hello there")
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	result := ParseResponse(t, resp)
	assert.Contains(t, result["error"], "daily limit reached")

	// The cooldown allowance grants one request today.
	resp = Predict(t, env, addr, "hello there")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// And no more after that.
	resp = Predict(t, env, addr, "hello there")
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	result = ParseResponse(t, resp)
	assert.Contains(t, result["error"], "cooldown daily limit")
}

func TestAbuse_DeniesAreRecordedAsViolations(t *testing.T) {
	env := SetupTestEnv(t)
	addr := uniqueAddr()

	for i := 0; i < 5; i++ {
		resp := Predict(t, env, addr, "ok")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}
	resp := Predict(t, env, addr, "ok")
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	resp.Body.Close()

	key := quota.DeriveIdentity(addr)
	var count int
	err := env.Pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM abuse_violations WHERE identity_key = $1`, key).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAbuse_StatusEndpoint(t *testing.T) {
	env := SetupTestEnv(t)
	addr := uniqueAddr()

	resp := Predict(t, env, addr, "fine")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = DoRequest(t, env, "GET", "/api/v1/abuse/status?addr="+addr, nil, "", testDashAPIKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := ParseResponse(t, resp)
	data := result["data"].(map[string]any)

	assert.Equal(t, quota.DeriveIdentity(addr), data["identity_key"])
	assert.Equal(t, float64(1), data["count_today"])
}

func TestAbuse_StatusUnknownClient(t *testing.T) {
	env := SetupTestEnv(t)

	resp := DoRequest(t, env, "GET", "/api/v1/abuse/status?addr="+uniqueAddr(), nil, "", testDashAPIKey)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAbuse_ViolationsEndpointRequiresAPIKey(t *testing.T) {
	env := SetupTestEnv(t)

	resp := DoRequest(t, env, "GET", "/api/v1/abuse/violations", nil, "", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// TestAbuse_BurstBlock uses its own server with a burst window large enough
// that back-to-back test requests always trip it.
func TestAbuse_BurstBlock(t *testing.T) {
	env := SetupTestEnv(t)

	cfg := testAbuseConfig()
	cfg.DailyLimit = 1000
	cfg.BurstMinIntervalMS = 60_000
	cfg.Collection = "quota-burst-it"

	appCfg := config.AppConfig{Name: "sentiq-test", Version: "test", Model: "lexicon-v1"}
	store := quota.NewRedisStore(env.RedisClient, cfg.Collection)
	gate := quota.NewGate(store, cfg, env.Violations)

	svc := inference.NewService(nil, inference.NewLexiconClassifier(), nil,
		appCfg, config.InferenceConfig{StoreEnabled: false, MaxTextLen: 5000})
	handler := inference.NewHandler(svc)

	router := api.NewRouter(env.Pool, env.RedisClient, api.RouterConfig{App: appCfg}, api.HandlerSet{
		Predict:          handler.Predict,
		ListInferences:   handler.List,
		QuotaStatus:      func(w http.ResponseWriter, r *http.Request) {},
		ListViolations:   func(w http.ResponseWriter, r *http.Request) {},
		QuotaMiddleware:  quota.Middleware(gate),
		APIKeyMiddleware: mw.APIKey(testDashAPIKey),
	})
	server := httptest.NewServer(router)
	defer server.Close()

	burstEnv := &TestEnv{Pool: env.Pool, RedisClient: env.RedisClient, Server: server}
	addr := uniqueAddr()

	resp := Predict(t, burstEnv, addr, "first one is fine")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Immediate follow-up trips the burst detector.
	resp = Predict(t, burstEnv, addr, "too fast")
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	retryAfter, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	require.NoError(t, err)
	assert.Greater(t, retryAfter, 3000, "burst block should last close to an hour")
	result := ParseResponse(t, resp)
	assert.Contains(t, result["error"], "burst")

	// Still blocked while the timer runs.
	resp = Predict(t, burstEnv, addr, "still too fast")
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	resp.Body.Close()
}
