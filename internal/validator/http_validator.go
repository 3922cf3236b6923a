package validator

import (
	"context"
	"fmt"
	"time"

	"streamqa/internal/core/domain"
	"streamqa/pkg/circuitbreaker"
	"streamqa/pkg/httpclient"
	"streamqa/pkg/tracing"

	"go.uber.org/zap"
)

type HTTPOptions struct {
	BaseURL       string
	Timeout       time.Duration
	MaxRetries    int
	RetryStatuses []int
	BackoffStep   time.Duration

	BreakerThreshold int // 0 disables the circuit breaker
	BreakerCooldown  time.Duration

	Logger *zap.SugaredLogger
}

// HTTPValidator talks to a live mock streaming server through a retrying session.
type HTTPValidator struct {
	session *httpclient.Session
	logger  *zap.SugaredLogger
}

func NewHTTPValidator(opts HTTPOptions) (*HTTPValidator, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}

	var breaker *circuitbreaker.Breaker
	if opts.BreakerThreshold > 0 {
		breaker = circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: opts.BreakerThreshold,
			Cooldown:         opts.BreakerCooldown,
		})
		log := opts.Logger
		breaker.OnStateChange(func(from, to circuitbreaker.State) {
			log.Warnw("streaming server circuit changed", "from", from, "to", to)
		})
	}

	session, err := httpclient.New(httpclient.Options{
		BaseURL:       opts.BaseURL,
		Timeout:       opts.Timeout,
		MaxRetries:    opts.MaxRetries,
		RetryStatuses: opts.RetryStatuses,
		BackoffStep:   opts.BackoffStep,
		Breaker:       breaker,
		Logger:        opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	opts.Logger.Infow("streaming validator initialized", "base_url", session.BaseURL())
	return &HTTPValidator{session: session, logger: opts.Logger}, nil
}

func (v *HTTPValidator) Health(ctx context.Context) (map[string]any, error) {
	ctx, span := tracing.TraceValidation(ctx, "health")
	defer span.End()

	resp, err := v.session.Get(ctx, "/health")
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("get health: %w", err)
	}

	var payload map[string]any
	if err := resp.JSON(&payload); err != nil {
		return nil, fmt.Errorf("get health: %w", err)
	}
	v.logger.Debugw("health payload", "payload", payload)
	return payload, nil
}

func (v *HTTPValidator) HealthSnapshot(ctx context.Context) (domain.HealthSnapshot, error) {
	payload, err := v.Health(ctx)
	if err != nil {
		return domain.HealthSnapshot{}, err
	}
	return snapshotFrom(payload)
}

func (v *HTTPValidator) Metric(ctx context.Context, name string) (any, error) {
	payload, err := v.Health(ctx)
	if err != nil {
		return nil, err
	}
	value, err := lookupField(payload, name)
	if err != nil {
		return nil, err
	}
	v.logger.Infow("fetched metric", "metric", name, "value", value)
	return value, nil
}

func (v *HTTPValidator) LatencyMs(ctx context.Context) (float64, error) {
	payload, err := v.Health(ctx)
	if err != nil {
		return 0, err
	}
	latency, err := numericField(payload, "latency_ms")
	if err != nil {
		return 0, err
	}
	v.logger.Infow("latency read", "latency_ms", latency)
	return latency, nil
}

func (v *HTTPValidator) Bitrate(ctx context.Context) (int, error) {
	payload, err := v.Health(ctx)
	if err != nil {
		return 0, err
	}
	bitrate, err := numericField(payload, "bitrate")
	if err != nil {
		return 0, err
	}
	return int(bitrate), nil
}

// SetNetworkCondition posts to /control/network/<condition>; if that fails for
// any reason it retries once against the JSON-body endpoint.
func (v *HTTPValidator) SetNetworkCondition(ctx context.Context, condition string) (domain.ConditionChange, error) {
	if _, err := validateCondition(condition); err != nil {
		return domain.ConditionChange{}, err
	}

	ctx, span := tracing.TraceValidation(ctx, "set_network_condition")
	defer span.End()
	tracing.AddSpanAttributes(ctx, tracing.ConditionKey.String(condition))

	v.logger.Infow("switching network condition", "condition", condition)

	resp, err := v.session.Post(ctx, "/control/network/"+condition, nil)
	if err != nil {
		v.logger.Warnw("path-style control failed, retrying with JSON body",
			"condition", condition,
			"error", err,
		)
		resp, err = v.session.Post(ctx, "/control/network/", map[string]string{"condition": condition})
		if err != nil {
			tracing.RecordError(ctx, err)
			return domain.ConditionChange{}, fmt.Errorf("set network condition %q: %w", condition, err)
		}
	}

	var change domain.ConditionChange
	if err := resp.JSON(&change); err != nil {
		return domain.ConditionChange{}, fmt.Errorf("set network condition %q: %w", condition, err)
	}
	return change, nil
}

func (v *HTTPValidator) ResetNetwork(ctx context.Context) {
	if _, err := v.SetNetworkCondition(ctx, domain.ConditionNormal.String()); err != nil {
		v.logger.Warnw("failed to reset network condition", "error", err)
	}
}

func (v *HTTPValidator) Manifest(ctx context.Context) (string, error) {
	ctx, span := tracing.TraceValidation(ctx, "manifest")
	defer span.End()

	resp, err := v.session.Get(ctx, "/stream.m3u8")
	if err != nil {
		tracing.RecordError(ctx, err)
		return "", fmt.Errorf("get manifest: %w", err)
	}
	text := resp.Text()
	v.logger.Debugw("manifest fetched", "length", len(text))
	return text, nil
}

// Segment fetches segment<n>.ts. Negative n is rejected locally; indices the
// server does not know come back as an httpclient.HTTPError with status 404.
func (v *HTTPValidator) Segment(ctx context.Context, n int) ([]byte, error) {
	if err := validateSegmentIndex(n); err != nil {
		return nil, err
	}

	ctx, span := tracing.TraceValidation(ctx, "segment")
	defer span.End()
	tracing.AddSpanAttributes(ctx, tracing.SegmentKey.Int(n))

	resp, err := v.session.Get(ctx, fmt.Sprintf("/segment%d.ts", n))
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("get segment %d: %w", n, err)
	}
	v.logger.Debugw("segment fetched", "index", n, "bytes", len(resp.Body))
	return resp.Body, nil
}

func (v *HTTPValidator) roundTrip(ctx context.Context) (time.Duration, error) {
	ctx, span := tracing.TraceValidation(ctx, "round_trip")
	defer span.End()

	start := time.Now()
	if _, err := v.Health(ctx); err != nil {
		return 0, err
	}
	elapsed := time.Since(start)
	tracing.MeasureDuration(ctx, start, "health")
	return elapsed, nil
}

func (v *HTTPValidator) ValidatePerformance(ctx context.Context, maxLatency time.Duration) (PerformanceResult, error) {
	elapsed, err := v.roundTrip(ctx)
	if err != nil {
		return PerformanceResult{}, err
	}
	return judgePerformance(v.logger, elapsed, maxLatency), nil
}

func (v *HTTPValidator) MeasureLatency(ctx context.Context, samples int) (time.Duration, error) {
	return measureMean(ctx, v.logger, samples, v.roundTrip)
}

func (v *HTTPValidator) Close() {
	v.session.Close()
}

func judgePerformance(log *zap.SugaredLogger, actual, threshold time.Duration) PerformanceResult {
	result := PerformanceResult{
		ActualLatency: actual,
		Threshold:     threshold,
		Valid:         actual <= threshold,
	}
	if result.Valid {
		log.Infow("performance validation passed", "actual", actual, "threshold", threshold)
	} else {
		log.Warnw("performance validation failed", "actual", actual, "threshold", threshold)
	}
	return result
}

func measureMean(ctx context.Context, log *zap.SugaredLogger, samples int, sample func(context.Context) (time.Duration, error)) (time.Duration, error) {
	if samples < 1 {
		return 0, fmt.Errorf("samples must be >= 1, got %d", samples)
	}

	var total time.Duration
	for i := 0; i < samples; i++ {
		d, err := sample(ctx)
		if err != nil {
			return 0, fmt.Errorf("latency sample %d: %w", i+1, err)
		}
		log.Debugw("latency sample", "sample", i+1, "latency", d)
		total += d
	}

	mean := total / time.Duration(samples)
	log.Infow("average latency", "samples", samples, "latency", mean)
	return mean, nil
}

var _ StreamingValidator = (*HTTPValidator)(nil)
