package httputil

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccessLevel(t *testing.T) {
	assert.Equal(t, slog.LevelError, accessLevel("/api/v1/services/x", http.StatusInternalServerError))
	assert.Equal(t, slog.LevelWarn, accessLevel("/api/v1/services/x", http.StatusNotFound))
	assert.Equal(t, slog.LevelInfo, accessLevel("/api/v1/services/x", http.StatusOK))
	assert.Equal(t, slog.LevelDebug, accessLevel("/healthz", http.StatusOK))
	assert.Equal(t, slog.LevelError, accessLevel("/readyz", http.StatusServiceUnavailable))
}

func TestIsUpgrade(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.False(t, isUpgrade(req))

	req.Header.Set("Connection", "keep-alive, Upgrade")
	req.Header.Set("Upgrade", "websocket")
	assert.True(t, isUpgrade(req))
}
