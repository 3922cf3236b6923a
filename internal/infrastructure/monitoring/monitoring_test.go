package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"streamqa/internal/core/domain"
	"streamqa/internal/infrastructure/repositories/memory"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector_RecordsObservations(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	c.RecordRequest("GET", "/health", 200, 60*time.Millisecond)
	c.RecordRequest("GET", "/health", 200, 55*time.Millisecond)
	c.RecordRequest("GET", "/:asset", 404, time.Millisecond)
	c.RecordSegmentServed(102400)
	c.ObserveDelay("poor", 210*time.Millisecond)
	c.ConditionChanged("normal", "poor", 1200)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.requestsTotal.WithLabelValues("GET", "/health", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requestsTotal.WithLabelValues("GET", "/:asset", "404")))
	assert.Equal(t, 102400.0, testutil.ToFloat64(c.segmentBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.conditionChanges.WithLabelValues("poor")))
	assert.Equal(t, 1200.0, testutil.ToFloat64(c.currentBitrate))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.currentCondition.WithLabelValues("poor")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.currentCondition.WithLabelValues("normal")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.simulatedDelay))
}

func TestPrometheusCollector_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewPrometheusCollector(prometheus.NewRegistry())
		NewPrometheusCollector(prometheus.NewRegistry())
	})
}

func TestHealthChecker_AllHealthy(t *testing.T) {
	repo := memory.NewMemoryStateRepository(domain.InitialServerState(domain.ConditionNormal))

	h := NewHealthChecker()
	h.AddRepositoryCheck(repo, time.Second)

	status := h.CheckAll(context.Background())
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "healthy", status.Checks["repository"])
}

func TestHealthChecker_FailingCheck(t *testing.T) {
	h := NewHealthChecker()
	h.AddCheck("ok", func(ctx context.Context) (bool, error) { return true, nil }, time.Second)
	h.AddCheck("broken", func(ctx context.Context) (bool, error) { return false, errors.New("connection refused") }, time.Second)
	h.AddCheck("degraded", func(ctx context.Context) (bool, error) { return false, nil }, 0)

	status := h.CheckAll(context.Background())
	require.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "healthy", status.Checks["ok"])
	assert.Equal(t, "connection refused", status.Checks["broken"])
	assert.Equal(t, "check failed", status.Checks["degraded"])
}

func TestHealthChecker_PingCheck(t *testing.T) {
	h := NewHealthChecker()
	h.AddPingCheck("redis", func(ctx context.Context) error { return nil }, time.Second)

	status := h.CheckAll(context.Background())
	assert.Equal(t, "healthy", status.Checks["redis"])

	h.AddPingCheck("cache", func(ctx context.Context) error { return errors.New("dial tcp: connection refused") }, time.Second)

	status = h.CheckAll(context.Background())
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "dial tcp: connection refused", status.Checks["cache"])
}

func TestHealthChecker_TimeoutApplied(t *testing.T) {
	h := NewHealthChecker()
	h.AddCheck("slow", func(ctx context.Context) (bool, error) {
		<-ctx.Done()
		return false, ctx.Err()
	}, 10*time.Millisecond)

	status := h.CheckAll(context.Background())
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, context.DeadlineExceeded.Error(), status.Checks["slow"])
}
