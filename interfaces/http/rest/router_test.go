package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"thoughtgraph/application/ports"
	"thoughtgraph/application/services"
	"thoughtgraph/infrastructure/persistence/memory"
	"thoughtgraph/interfaces/http/rest"
	pkgerrors "thoughtgraph/pkg/errors"
	"thoughtgraph/pkg/observability"
)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("unreachable") }

func newServer(t *testing.T, pinger ports.HealthChecker) (*httptest.Server, *observability.Collector) {
	t.Helper()
	logger := zap.NewNop()
	store := memory.NewStore()
	if pinger == nil {
		pinger = store
	}

	thoughts := services.NewThoughtStore(store.Thoughts(), logger, time.Second)
	reactions := services.NewReactionSet(store.Thoughts(), ports.NoopPublisher{}, logger, time.Second)
	coordinator := services.NewIntegrityCoordinator(thoughts, reactions, store.Users(), ports.NoopPublisher{}, nil, logger, time.Second)
	users := services.NewUserStore(store.Users(), thoughts, coordinator, ports.NoopPublisher{}, logger, time.Second)
	graph := services.NewSocialGraph(thoughts, users, reactions, coordinator)

	collector := observability.NewCollector("thoughtgraph")
	router := rest.NewRouter(graph, pkgerrors.NewErrorHandler(logger, false), pinger, collector,
		rest.RouterConfig{EnableCORS: true, CircuitBreaker: true}, logger)

	server := httptest.NewServer(router.Setup())
	t.Cleanup(server.Close)
	return server, collector
}

func do(t *testing.T, server *httptest.Server, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	if obj, ok := decoded.(map[string]interface{}); ok {
		return resp.StatusCode, obj
	}
	return resp.StatusCode, map[string]interface{}{"items": decoded}
}

func createUser(t *testing.T, server *httptest.Server, username string) string {
	t.Helper()
	status, body := do(t, server, http.MethodPost, "/api/users", map[string]string{
		"username": username,
		"email":    username + "@example.com",
	})
	require.Equal(t, http.StatusCreated, status)
	return body["id"].(string)
}

func TestRouter_HealthAndReady(t *testing.T) {
	server, _ := newServer(t, nil)

	status, body := do(t, server, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])

	status, body = do(t, server, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", body["status"])
}

func TestRouter_NotReadyWhenStoreIsDown(t *testing.T) {
	server, _ := newServer(t, failingPinger{})

	status, body := do(t, server, http.MethodGet, "/ready", nil)

	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "not ready", body["status"])
}

func TestRouter_ThoughtLifecycle(t *testing.T) {
	server, _ := newServer(t, nil)
	alice := createUser(t, server, "alice")

	status, created := do(t, server, http.MethodPost, "/api/thoughts", map[string]string{
		"thoughtText": "hello",
		"userId":      alice,
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, alice, created["userId"])
	thought := created["thought"].(map[string]interface{})
	thoughtID := thought["id"].(string)

	status, user := do(t, server, http.MethodGet, "/api/users/"+alice, nil)
	require.Equal(t, http.StatusOK, status)
	owned := user["thoughts"].([]interface{})
	require.Len(t, owned, 1)
	assert.Equal(t, "hello", owned[0].(map[string]interface{})["thoughtText"])

	status, updated := do(t, server, http.MethodPut, "/api/thoughts/"+thoughtID, map[string]string{"thoughtText": "edited"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "edited", updated["thoughtText"])

	status, reacted := do(t, server, http.MethodPost, "/api/thoughts/"+thoughtID+"/reactions", map[string]string{
		"reactionId":   "r1",
		"reactionBody": "nice",
		"username":     "bob",
	})
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, reacted["reactionCount"])

	status, _ = do(t, server, http.MethodPost, "/api/thoughts/"+thoughtID+"/reactions", map[string]string{
		"reactionId":   "r1",
		"reactionBody": "again",
		"username":     "bob",
	})
	require.Equal(t, http.StatusOK, status)

	status, removed := do(t, server, http.MethodDelete, "/api/thoughts/"+thoughtID+"/reactions/r1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, removed["reactionCount"])

	status, _ = do(t, server, http.MethodDelete, "/api/thoughts/"+thoughtID, nil)
	require.Equal(t, http.StatusOK, status)

	status, body := do(t, server, http.MethodGet, "/api/thoughts/"+thoughtID, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["type"])

	status, user = do(t, server, http.MethodGet, "/api/users/"+alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, user["thoughts"])
}

func TestRouter_RemoveReactionWithEscapedID(t *testing.T) {
	server, _ := newServer(t, nil)
	alice := createUser(t, server, "alice")
	status, created := do(t, server, http.MethodPost, "/api/thoughts", map[string]string{
		"thoughtText": "hello",
		"userId":      alice,
	})
	require.Equal(t, http.StatusCreated, status)
	thoughtID := created["thought"].(map[string]interface{})["id"].(string)

	for _, id := range []string{"a/b", "100%"} {
		status, _ = do(t, server, http.MethodPost, "/api/thoughts/"+thoughtID+"/reactions", map[string]string{
			"reactionId":   id,
			"reactionBody": "nice",
			"username":     "bob",
		})
		require.Equal(t, http.StatusOK, status)
	}

	status, removed := do(t, server, http.MethodDelete, "/api/thoughts/"+thoughtID+"/reactions/"+url.PathEscape("a/b"), nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, removed["reactionCount"])

	status, removed = do(t, server, http.MethodDelete, "/api/thoughts/"+thoughtID+"/reactions/"+url.PathEscape("100%"), nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, removed["reactionCount"])
}

func TestRouter_CreateThoughtForMissingUser(t *testing.T) {
	server, _ := newServer(t, nil)

	status, body := do(t, server, http.MethodPost, "/api/thoughts", map[string]string{
		"thoughtText": "hello",
		"userId":      "7f1c8a7e-2d7b-4c1e-9f4a-2c2d3b4e5f60",
	})

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["type"])

	status, list := do(t, server, http.MethodGet, "/api/thoughts", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, list["items"])
}

func TestRouter_ValidationErrors(t *testing.T) {
	server, _ := newServer(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{name: "malformed id", method: http.MethodGet, path: "/api/users/not-a-uuid"},
		{name: "malformed json", method: http.MethodPost, path: "/api/users", body: "{"},
		{name: "unknown field", method: http.MethodPost, path: "/api/users", body: `{"username":"a","email":"a@example.com","age":3}`},
		{name: "bad email", method: http.MethodPost, path: "/api/users", body: `{"username":"a","email":"nope"}`},
		{name: "text too long", method: http.MethodPost, path: "/api/thoughts", body: `{"thoughtText":"` + strings.Repeat("x", 281) + `","userId":"7f1c8a7e-2d7b-4c1e-9f4a-2c2d3b4e5f60"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, server.URL+tt.path, strings.NewReader(tt.body))
			require.NoError(t, err)
			resp, err := server.Client().Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			var body pkgerrors.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "VALIDATION", body.Type)
			assert.NotEmpty(t, body.Details["field"])
		})
	}
}

func TestRouter_Friends(t *testing.T) {
	server, _ := newServer(t, nil)
	alice := createUser(t, server, "alice")
	bob := createUser(t, server, "bob")

	for i := 0; i < 2; i++ {
		status, user := do(t, server, http.MethodPost, "/api/users/"+alice+"/friends/"+bob, nil)
		require.Equal(t, http.StatusOK, status)
		assert.EqualValues(t, 1, user["friendCount"])
	}

	status, body := do(t, server, http.MethodGet, "/api/users/"+bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["friends"])

	status, body = do(t, server, http.MethodDelete, "/api/users/"+alice+"/friends/"+bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["removed"])

	status, body = do(t, server, http.MethodDelete, "/api/users/"+alice+"/friends/"+bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["removed"])
	assert.Equal(t, "Friend was not in the friend list", body["message"])
}

func TestRouter_DeleteUserCascade(t *testing.T) {
	server, _ := newServer(t, nil)
	alice := createUser(t, server, "alice")
	for _, text := range []string{"one", "two"} {
		status, _ := do(t, server, http.MethodPost, "/api/thoughts", map[string]string{"thoughtText": text, "userId": alice})
		require.Equal(t, http.StatusCreated, status)
	}

	status, body := do(t, server, http.MethodDelete, "/api/users/"+alice, nil)

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, alice, body["userId"])
	assert.Len(t, body["deletedThoughtIds"], 2)

	status, list := do(t, server, http.MethodGet, "/api/thoughts", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, list["items"])

	status, _ = do(t, server, http.MethodGet, "/api/users/"+alice, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRouter_UnknownRoute(t *testing.T) {
	server, _ := newServer(t, nil)

	status, body := do(t, server, http.MethodGet, "/api/nothing", nil)

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["type"])
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	server, _ := newServer(t, nil)
	do(t, server, http.MethodGet, "/api/users", nil)

	resp, err := server.Client().Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, buf.String(), `thoughtgraph_http_requests_total{method="GET",route="/api/users`)
}
