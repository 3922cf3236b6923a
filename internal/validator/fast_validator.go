package validator

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"streamqa/internal/core/domain"
	"streamqa/pkg/httpclient"

	"go.uber.org/zap"
)

const (
	fastManifest = "#EXTM3U\n#EXTINF:10,\nsegment1.ts\n"
	fastBaseURL  = "fast-mode://streaming"
)

var fastSegment = []byte("FAKE_SEGMENT_DATA")

type FastOptions struct {
	SegmentCount int   // 0 = 5
	Seed         int64 // 0 seeds from the clock
	Logger       *zap.SugaredLogger
}

// FastValidator never touches the network. It tracks the requested condition
// locally and draws health values from that condition's profile, so relative
// ordering between conditions holds as it does against a live server.
type FastValidator struct {
	segmentCount int
	logger       *zap.SugaredLogger

	mu        sync.Mutex
	condition domain.NetworkCondition
	rand      *rand.Rand
}

func NewFastValidator(opts FastOptions) *FastValidator {
	if opts.SegmentCount <= 0 {
		opts.SegmentCount = 5
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	return &FastValidator{
		segmentCount: opts.SegmentCount,
		logger:       opts.Logger,
		condition:    domain.ConditionNormal,
		rand:         rand.New(rand.NewSource(opts.Seed)),
	}
}

// sampleLatency draws uniformly from [latency-jitter, latency+jitter] of the profile.
func (v *FastValidator) sampleLatency(profile domain.NetworkProfile) time.Duration {
	lo, hi := profile.MinLatency(), profile.MaxLatency()
	return lo + time.Duration(v.rand.Int63n(int64(hi-lo)+1))
}

func (v *FastValidator) snapshot() domain.HealthSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	profile, _ := v.condition.Profile()
	latency := v.sampleLatency(profile)
	return domain.HealthSnapshot{
		Status:           domain.HealthStatusHealthy,
		Bitrate:          profile.Bitrate,
		Viewers:          10 + v.rand.Intn(71),
		LatencyMs:        float64(latency) / float64(time.Millisecond),
		NetworkCondition: v.condition,
	}
}

func (v *FastValidator) Health(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := v.snapshot()
	return map[string]any{
		"status":            s.Status,
		"bitrate":           float64(s.Bitrate),
		"viewers":           float64(s.Viewers),
		"latency_ms":        s.LatencyMs,
		"network_condition": s.NetworkCondition.String(),
	}, nil
}

func (v *FastValidator) HealthSnapshot(ctx context.Context) (domain.HealthSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.HealthSnapshot{}, err
	}
	return v.snapshot(), nil
}

func (v *FastValidator) Metric(ctx context.Context, name string) (any, error) {
	payload, err := v.Health(ctx)
	if err != nil {
		return nil, err
	}
	return lookupField(payload, name)
}

func (v *FastValidator) LatencyMs(ctx context.Context) (float64, error) {
	s, err := v.HealthSnapshot(ctx)
	if err != nil {
		return 0, err
	}
	v.logger.Infow("latency read", "latency_ms", s.LatencyMs, "fast_mode", true)
	return s.LatencyMs, nil
}

func (v *FastValidator) Bitrate(ctx context.Context) (int, error) {
	s, err := v.HealthSnapshot(ctx)
	if err != nil {
		return 0, err
	}
	return s.Bitrate, nil
}

func (v *FastValidator) SetNetworkCondition(ctx context.Context, condition string) (domain.ConditionChange, error) {
	c, err := validateCondition(condition)
	if err != nil {
		return domain.ConditionChange{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.ConditionChange{}, err
	}
	profile, _ := c.Profile()

	v.mu.Lock()
	v.condition = c
	v.mu.Unlock()

	v.logger.Infow("switching mock network condition", "condition", c, "fast_mode", true)
	return domain.ConditionChange{
		Status:           "success",
		NetworkCondition: c,
		Bitrate:          profile.Bitrate,
	}, nil
}

func (v *FastValidator) ResetNetwork(ctx context.Context) {
	if _, err := v.SetNetworkCondition(ctx, domain.ConditionNormal.String()); err != nil {
		v.logger.Warnw("failed to reset network condition", "error", err)
	}
}

// Condition returns the locally tracked condition.
func (v *FastValidator) Condition() domain.NetworkCondition {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.condition
}

func (v *FastValidator) Manifest(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fastManifest, nil
}

func (v *FastValidator) Segment(ctx context.Context, n int) ([]byte, error) {
	if err := validateSegmentIndex(n); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n < 1 || n > v.segmentCount {
		return nil, &httpclient.HTTPError{
			Method:     http.MethodGet,
			URL:        fmt.Sprintf("%s/segment%d.ts", fastBaseURL, n),
			StatusCode: http.StatusNotFound,
			Body:       []byte(`{"error":"Segment not found"}`),
		}
	}

	v.logger.Debugw("returning fake segment", "index", n, "fast_mode", true)
	out := make([]byte, len(fastSegment))
	copy(out, fastSegment)
	return out, nil
}

func (v *FastValidator) sampleRoundTrip(ctx context.Context) (time.Duration, error) {
	s, err := v.HealthSnapshot(ctx)
	if err != nil {
		return 0, err
	}
	return time.Duration(s.LatencyMs * float64(time.Millisecond)), nil
}

func (v *FastValidator) ValidatePerformance(ctx context.Context, maxLatency time.Duration) (PerformanceResult, error) {
	actual, err := v.sampleRoundTrip(ctx)
	if err != nil {
		return PerformanceResult{}, err
	}
	return judgePerformance(v.logger, actual, maxLatency), nil
}

func (v *FastValidator) MeasureLatency(ctx context.Context, samples int) (time.Duration, error) {
	return measureMean(ctx, v.logger, samples, v.sampleRoundTrip)
}

func (v *FastValidator) Close() {}

var _ StreamingValidator = (*FastValidator)(nil)
