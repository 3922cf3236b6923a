package validator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"streamqa/internal/core/domain"
	"streamqa/pkg/config"

	"go.uber.org/zap"
)

// StreamingValidator is the test-facing client of the mock streaming server.
type StreamingValidator interface {
	// Health returns the raw /health payload.
	Health(ctx context.Context) (map[string]any, error)
	HealthSnapshot(ctx context.Context) (domain.HealthSnapshot, error)
	// Metric returns one /health field, failing with domain.ErrMissingField.
	Metric(ctx context.Context, name string) (any, error)
	LatencyMs(ctx context.Context) (float64, error)
	Bitrate(ctx context.Context) (int, error)

	SetNetworkCondition(ctx context.Context, condition string) (domain.ConditionChange, error)
	// ResetNetwork switches back to normal, logging instead of failing.
	ResetNetwork(ctx context.Context)

	Manifest(ctx context.Context) (string, error)
	Segment(ctx context.Context, n int) ([]byte, error)

	ValidatePerformance(ctx context.Context, maxLatency time.Duration) (PerformanceResult, error)
	MeasureLatency(ctx context.Context, samples int) (time.Duration, error)

	Close()
}

// PerformanceResult compares one measured /health round trip with a threshold.
type PerformanceResult struct {
	ActualLatency time.Duration `json:"actual_latency"`
	Threshold     time.Duration `json:"threshold"`
	Valid         bool          `json:"is_valid"`
}

// New returns the fast-mode validator when cfg.Streaming.FastMode is set,
// otherwise an HTTP validator bound to cfg.Streaming.BaseURL.
func New(cfg *config.Config, log *zap.SugaredLogger) (StreamingValidator, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if cfg.Streaming.FastMode {
		log.Warnw("fast mode enabled, validator returns synthetic responses")
		return NewFastValidator(FastOptions{
			SegmentCount: cfg.Segments.Count,
			Seed:         cfg.Network.Seed,
			Logger:       log,
		}), nil
	}
	return NewHTTPValidator(HTTPOptions{
		BaseURL:       cfg.Streaming.BaseURL,
		Timeout:       cfg.Streaming.Timeout,
		MaxRetries:    cfg.Streaming.MaxRetries,
		RetryStatuses: cfg.Streaming.RetryStatuses,
		BackoffStep:   cfg.Streaming.BackoffStep,

		BreakerThreshold: cfg.Streaming.BreakerThreshold,
		BreakerCooldown:  cfg.Streaming.BreakerCooldown,

		Logger: log,
	})
}

func validateCondition(condition string) (domain.NetworkCondition, error) {
	c, err := domain.ParseCondition(condition)
	if err != nil {
		return "", fmt.Errorf("%w (must be one of %v)", err, domain.ConditionNames())
	}
	return c, nil
}

func validateSegmentIndex(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: got %d", domain.ErrInvalidSegmentIndex, n)
	}
	return nil
}

func lookupField(payload map[string]any, name string) (any, error) {
	value, ok := payload[name]
	if !ok {
		keys := make([]string, 0, len(payload))
		for k := range payload {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("%w: %q not in /health payload (available: %v, payload: %v)",
			domain.ErrMissingField, name, keys, payload)
	}
	return value, nil
}

func numericField(payload map[string]any, name string) (float64, error) {
	value, err := lookupField(payload, name)
	if err != nil {
		return 0, err
	}
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	}
	return 0, fmt.Errorf("field %q is %T, not a number", name, value)
}

func snapshotFrom(payload map[string]any) (domain.HealthSnapshot, error) {
	latency, err := numericField(payload, "latency_ms")
	if err != nil {
		return domain.HealthSnapshot{}, err
	}
	bitrate, err := numericField(payload, "bitrate")
	if err != nil {
		return domain.HealthSnapshot{}, err
	}
	viewers, err := numericField(payload, "viewers")
	if err != nil {
		return domain.HealthSnapshot{}, err
	}
	status, _ := payload["status"].(string)
	condition, _ := payload["network_condition"].(string)

	return domain.HealthSnapshot{
		Status:           status,
		Bitrate:          int(bitrate),
		Viewers:          int(viewers),
		LatencyMs:        latency,
		NetworkCondition: domain.NetworkCondition(condition),
	}, nil
}
