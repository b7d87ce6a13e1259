//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredict_ReturnsClassification(t *testing.T) {
	env := SetupTestEnv(t)

	resp := Predict(t, env, uniqueAddr(), "this product is great, I love it")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := ParseResponse(t, resp)
	data := result["data"].(map[string]any)

	assert.Equal(t, "positive", data["label"])
	assert.Equal(t, 1.0, data["score"])
	assert.Equal(t, "lexicon-v1", data["model_version"])
	assert.NotEmpty(t, data["inference_id"])
}

func TestPredict_RejectsEmptyText(t *testing.T) {
	env := SetupTestEnv(t)

	resp := DoRequest(t, env, "POST", "/api/v1/predict",
		map[string]string{"text": ""}, uniqueAddr(), "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPredict_PersistsInference(t *testing.T) {
	env := SetupTestEnv(t)

	resp := Predict(t, env, uniqueAddr(), "awful, a complete waste of money")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := ParseResponse(t, resp)
	id := result["data"].(map[string]any)["inference_id"].(string)

	// Persistence is asynchronous; poll briefly.
	var count int
	require.Eventually(t, func() bool {
		err := env.Pool.QueryRow(context.Background(),
			`SELECT COUNT(*) FROM inferences WHERE id = $1`, id).Scan(&count)
		return err == nil && count == 1
	}, 5*time.Second, 50*time.Millisecond, "inference %s was not stored", id)
}

func TestInferences_RequiresAPIKey(t *testing.T) {
	env := SetupTestEnv(t)

	resp := DoRequest(t, env, "GET", "/api/v1/inferences", nil, "", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = DoRequest(t, env, "GET", "/api/v1/inferences", nil, "", "wrong-key")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestInferences_ListsNewestFirst(t *testing.T) {
	env := SetupTestEnv(t)

	addr := uniqueAddr()
	first := Predict(t, env, addr, "nothing to report")
	require.Equal(t, http.StatusOK, first.StatusCode)
	first.Body.Close()
	second := Predict(t, env, addr, "wonderful experience")
	require.Equal(t, http.StatusOK, second.StatusCode)
	second.Body.Close()

	var listed []any
	require.Eventually(t, func() bool {
		resp := DoRequest(t, env, "GET", "/api/v1/inferences?limit=200", nil, "", testDashAPIKey)
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return false
		}
		result := ParseResponse(t, resp)
		listed = result["data"].(map[string]any)["items"].([]any)
		return len(listed) >= 2
	}, 5*time.Second, 50*time.Millisecond)

	// Newest first: created_at must be non-increasing.
	var prev time.Time
	for i, raw := range listed {
		item := raw.(map[string]any)
		created, err := time.Parse(time.RFC3339Nano, item["created_at"].(string))
		require.NoError(t, err)
		if i > 0 {
			assert.False(t, created.After(prev), "items out of order at index %d", i)
		}
		prev = created
	}
}

func TestHealth_Endpoints(t *testing.T) {
	env := SetupTestEnv(t)

	resp := DoRequest(t, env, "GET", "/health/live", nil, "", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = DoRequest(t, env, "GET", "/health/ready", nil, "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := ParseResponse(t, resp)
	data := result["data"].(map[string]any)
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, "not configured", data["events"])
}
