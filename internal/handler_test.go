package internal_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/koopa0/system-design/14-tic-tac-toe/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestHandler 組裝 HTTP 處理器
func newTestHandler(t *testing.T) (*internal.Handler, *internal.Registry) {
	t.Helper()
	registry := internal.NewRegistry(testLogger(), 0, 0)
	t.Cleanup(registry.Stop)
	hub := internal.NewHub(testLogger())
	return internal.NewHandler(registry, hub, testLogger()), registry
}

// doGet 執行 GET 並解析 JSON 響應
func doGet(t *testing.T, handler http.Handler, path string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

// TestHandler_Health 測試健康檢查
func TestHandler_Health(t *testing.T) {
	handler, _ := newTestHandler(t)

	status, body := doGet(t, handler.Routes(), "/health")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
	assert.NotZero(t, body["time"])
}

// TestHandler_Stats 測試統計端點
func TestHandler_Stats(t *testing.T) {
	handler, registry := newTestHandler(t)

	t.Run("empty registry", func(t *testing.T) {
		status, body := doGet(t, handler.Routes(), "/stats")

		assert.Equal(t, http.StatusOK, status)
		assert.EqualValues(t, 0, body["total_rooms"])
		assert.EqualValues(t, 0, body["waiting_rooms"])
		assert.EqualValues(t, 0, body["active_games"])
		assert.EqualValues(t, 0, body["connections"])
	})

	t.Run("counts reflect registry state", func(t *testing.T) {
		// 一個 waiting、兩個進行中
		waiting := registry.Create()
		waiting.AddPlayer("conn_001")

		for i := 0; i < 2; i++ {
			room := registry.Create()
			room.AddPlayer("conn_a")
			room.AddPlayer("conn_b")
		}

		status, body := doGet(t, handler.Routes(), "/stats")

		assert.Equal(t, http.StatusOK, status)
		assert.EqualValues(t, 3, body["total_rooms"])
		assert.EqualValues(t, 1, body["waiting_rooms"])
		assert.EqualValues(t, 2, body["active_games"])
	})
}

// TestHandler_MethodNotAllowed 只接受 GET
func TestHandler_MethodNotAllowed(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/stats", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
