package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	err error
}

func (p *fakePinger) Ping(ctx context.Context) error { return p.err }
func (p *fakePinger) Name() string                   { return "kafka" }

func TestReporter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := NewReporter("ingestion-service", "1.2.3")
	r.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	router := gin.New()
	router.GET("/health", r.Handle)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"service": "ingestion-service",
		"status": "operational",
		"version": "1.2.3",
		"timestamp": "2024-01-01T00:00:00Z"
	}`, w.Body.String())
}

func TestCheckerRegistry(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
		wantHealth Status
	}{
		{"bus reachable", nil, http.StatusOK, StatusHealthy},
		{"bus unreachable", errors.New("connection refused"), http.StatusServiceUnavailable, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewCheckerRegistry()
			registry.Register(NewBusChecker(&fakePinger{err: tt.pingErr}))

			router := gin.New()
			router.GET("/ready", registry.Handle)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
			require.Equal(t, tt.wantStatus, w.Code)

			var body Readiness
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantHealth, body.Status)
			require.Contains(t, body.Checks, "bus_kafka")
			assert.Equal(t, tt.wantHealth, body.Checks["bus_kafka"].Status)
			if tt.pingErr != nil {
				assert.Contains(t, body.Checks["bus_kafka"].Message, "connection refused")
			}
		})
	}
}

func TestCheckerRegistryEmpty(t *testing.T) {
	h := NewCheckerRegistry().Check(context.Background())
	assert.Equal(t, StatusHealthy, h.Status)
	assert.Empty(t, h.Checks)
}

func TestHealthIgnoresBus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/health", NewReporter("ingestion-service", "dev").Handle)
	registry := NewCheckerRegistry()
	registry.Register(NewBusChecker(&fakePinger{err: errors.New("down")}))
	router.GET("/ready", registry.Handle)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
