package ports

import (
	"context"
	"time"

	"streamqa/internal/core/domain"
)

type NetworkService interface {
	// ApplyDelay blocks for the simulated delay of the current condition and returns it.
	ApplyDelay(ctx context.Context) (time.Duration, error)
	Health(ctx context.Context) (domain.HealthSnapshot, error)
	SetCondition(ctx context.Context, raw string) (domain.ServerState, error)
	State(ctx context.Context) (domain.ServerState, error)
}

type AssetService interface {
	Manifest() string
	Segment(index int) ([]byte, error)
	SegmentCount() int
}
