package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"streamqa/internal/core/domain"
	"streamqa/internal/core/ports"
	"streamqa/internal/core/services"
	"streamqa/internal/infrastructure/monitoring"
	"streamqa/internal/infrastructure/repositories/memory"
	"streamqa/internal/infrastructure/streaming"
	"streamqa/internal/testutils"
	"streamqa/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type testServer struct {
	router  *gin.Engine
	network *services.NetworkService
	sleeps  atomic.Int32
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithRepo(t, memory.NewMemoryStateRepository(domain.InitialServerState(domain.ConditionNormal)))
}

func newTestServerWithRepo(t *testing.T, repo ports.StateRepository) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.DefaultConfig()
	log := zaptest.NewLogger(t)
	ts := &testServer{}

	reg := prometheus.NewRegistry()
	collector := monitoring.NewPrometheusCollector(reg)

	ts.network = services.NewNetworkService(repo, services.NetworkServiceOptions{
		SimulateDelay: true,
		Seed:          1,
		Sleep: func(context.Context, time.Duration) error {
			ts.sleeps.Add(1)
			return nil
		},
		Metrics: collector,
		Logger:  log.Sugar(),
	})

	health := monitoring.NewHealthChecker()
	health.AddRepositoryCheck(repo, time.Second)

	ts.router = NewRouter(RouterDeps{
		Config:    cfg,
		Logger:    log,
		Network:   ts.network,
		Assets:    streaming.NewSegmenter(cfg.Segments.Count, cfg.Segments.SizeBytes, cfg.Segments.Duration, log.Sugar()),
		Collector: collector,
		Gatherer:  reg,
		Health:    health,
	})
	return ts
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	return payload
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	payload := decode(t, w)
	assert.Equal(t, "healthy", payload["status"])
	assert.Equal(t, float64(2500), payload["bitrate"])
	assert.Equal(t, float64(0), payload["viewers"])
	assert.Equal(t, "normal", payload["network_condition"])
	assert.InDelta(t, 50, payload["latency_ms"], 10)
	assert.Equal(t, int32(1), ts.sleeps.Load())
}

func TestManifest(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/stream.m3u8", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.apple.mpegurl", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "#EXTM3U\n"))
	assert.Equal(t, 5, strings.Count(w.Body.String(), "#EXTINF:10.0,"))
	assert.Equal(t, int32(1), ts.sleeps.Load())
}

func TestSegments(t *testing.T) {
	ts := newTestServer(t)

	for i := 1; i <= 5; i++ {
		w := ts.do(http.MethodGet, "/"+streaming.SegmentName(i), "")
		require.Equal(t, http.StatusOK, w.Code, "segment %d", i)
		assert.Equal(t, "video/MP2T", w.Header().Get("Content-Type"))
		assert.Equal(t, 102400, w.Body.Len())
	}
	assert.Equal(t, int32(5), ts.sleeps.Load())
}

func TestSegments_OutOfRange(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/segment0.ts", "/segment6.ts", "/segment100.ts", "/segment99999999999999999999.ts"} {
		w := ts.do(http.MethodGet, path, "")
		require.Equal(t, http.StatusNotFound, w.Code, path)
		assert.JSONEq(t, `{"error":"Segment not found"}`, w.Body.String())
	}
	// rejected before the delay
	assert.Equal(t, int32(0), ts.sleeps.Load())
}

func TestUnknownAsset(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/favicon.ico", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, w.Body.String())
	assert.Equal(t, int32(0), ts.sleeps.Load())
}

func TestStateUnavailable(t *testing.T) {
	repo := &testutils.MockStateRepository{}
	repo.On("Get", mock.Anything).Return(domain.ServerState{}, errors.New("redis: connection refused"))
	ts := newTestServerWithRepo(t, repo)

	for _, path := range []string{"/health", "/stream.m3u8", "/segment1.ts"} {
		w := ts.do(http.MethodGet, path, "")
		require.Equal(t, http.StatusServiceUnavailable, w.Code, path)
		assert.JSONEq(t,
			`{"error":"SERVICE_UNAVAILABLE","message":"server state unavailable","details":{}}`,
			w.Body.String(),
			path,
		)
	}

	w := ts.do(http.MethodPost, "/control/network/poor", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t,
		`{"error":"SERVICE_UNAVAILABLE","message":"failed to change network condition","details":{}}`,
		w.Body.String(),
	)

	w = ts.do(http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "not_ready", decode(t, w)["status"])

	assert.Equal(t, int32(0), ts.sleeps.Load())
	repo.AssertNotCalled(t, "SetCondition", mock.Anything, mock.Anything, mock.Anything)
}

func TestControl_StoreFailureLeavesMetricsUntouched(t *testing.T) {
	repo := &testutils.MockStateRepository{}
	repo.On("Get", mock.Anything).Return(domain.InitialServerState(domain.ConditionNormal), nil)
	repo.On("SetCondition", mock.Anything, domain.ConditionPoor, 1200).Return(domain.ServerState{}, errors.New("redis: i/o timeout"))
	ts := newTestServerWithRepo(t, repo)

	w := ts.do(http.MethodPost, "/control/network/poor", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "failed to change network condition", decode(t, w)["message"])

	health := decode(t, ts.do(http.MethodGet, "/health", ""))
	assert.Equal(t, "normal", health["network_condition"])

	body := ts.do(http.MethodGet, "/metrics", "").Body.String()
	assert.NotContains(t, body, `streamqa_network_condition_changes_total{condition="poor"}`)
	repo.AssertExpectations(t)
}

func TestControl_Path(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/control/network/poor", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success","network_condition":"poor","bitrate":1200}`, w.Body.String())

	health := decode(t, ts.do(http.MethodGet, "/health", ""))
	assert.Equal(t, "poor", health["network_condition"])
	assert.Equal(t, float64(1200), health["bitrate"])
}

func TestControl_PathInvalid(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/control/network/terrible", "").Code)

	w := ts.do(http.MethodPost, "/control/network/bogus", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t,
		`{"status":"error","message":"Invalid condition. Must be one of: [normal poor terrible]"}`,
		w.Body.String(),
	)

	state, err := ts.network.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.ConditionTerrible, state.Condition)
}

func TestControl_Body(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/control/network/", `{"condition":"terrible"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success","network_condition":"terrible","bitrate":500}`, w.Body.String())
}

func TestControl_BodyInvalid(t *testing.T) {
	ts := newTestServer(t)

	for _, body := range []string{`{"condition":"fast"}`, `{}`, `not json`} {
		w := ts.do(http.MethodPost, "/control/network/", body)
		require.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "error", decode(t, w)["status"])
	}

	w := ts.do(http.MethodPost, "/control/network/", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReadyAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/ready", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", decode(t, w)["status"])

	ts.do(http.MethodGet, "/health", "")
	ts.do(http.MethodPost, "/control/network/poor", "")

	w = ts.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "streamqa_http_requests_total")
	assert.Contains(t, body, "streamqa_simulated_delay_seconds")
	assert.Contains(t, body, `streamqa_network_condition_changes_total{condition="poor"} 1`)
}

func TestRequestIDHeader(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/health", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestSegment_LoadFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)

	assets := &testutils.MockAssetService{}
	assets.On("Segment", 2).Return(nil, errors.New("read segment2.ts: input/output error"))

	repo := memory.NewMemoryStateRepository(domain.InitialServerState(domain.ConditionNormal))
	router := NewRouter(RouterDeps{
		Config:  config.DefaultConfig(),
		Logger:  zaptest.NewLogger(t),
		Network: services.NewNetworkService(repo, services.NetworkServiceOptions{}),
		Assets:  assets,
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/segment2.ts", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t,
		`{"error":"INTERNAL_ERROR","message":"failed to load segment","details":{"segment":2}}`,
		w.Body.String(),
	)
	assets.AssertExpectations(t)
}
