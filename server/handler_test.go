package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"zonecast.app/config"
)

func newTestGateway(t *testing.T) (*Gateway, *Server) {
	t.Helper()
	cfg := config.Default()
	srv := New(cfg, NewWordListFilter(nil), zap.NewNop())
	return NewGateway(srv, cfg, zap.NewNop()), srv
}

func TestZonesHandler(t *testing.T) {
	gw, srv := newTestGateway(t)

	require.NoError(t, srv.Join("a", "Alice", newMailbox()))
	require.NoError(t, srv.Join("b", "Bob", newMailbox()))
	require.NoError(t, srv.UpdateLocation("a", 37.0, -122.0, 0))
	require.NoError(t, srv.UpdateLocation("b", 37.0, -122.0, 0))

	rec := httptest.NewRecorder()
	gw.ZonesHandler(rec, httptest.NewRequest(http.MethodGet, "/zones", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var zones map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &zones))
	require.Len(t, zones, 1)
	for _, count := range zones {
		assert.Equal(t, 2, count)
	}
}

func TestZonesHandlerRejectsPost(t *testing.T) {
	gw, _ := newTestGateway(t)

	rec := httptest.NewRecorder()
	gw.ZonesHandler(rec, httptest.NewRequest(http.MethodPost, "/zones", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	gw, srv := newTestGateway(t)
	require.NoError(t, srv.Join("a", "Alice", newMailbox()))

	rec := httptest.NewRecorder()
	gw.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","sessions":1}`, rec.Body.String())
}

func TestEventsHandlerRequiresWebsocket(t *testing.T) {
	gw, _ := newTestGateway(t)

	rec := httptest.NewRecorder()
	gw.EventsHandler(rec, httptest.NewRequest(http.MethodGet, "/events", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIsWebSocket(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/events", nil)
	assert.False(t, IsWebSocket(r))

	r.Header.Set("Connection", "keep-alive, Upgrade")
	r.Header.Set("Upgrade", "websocket")
	assert.True(t, IsWebSocket(r))
}
