package ports

import (
	"context"

	"streamqa/internal/core/domain"
)

// StateRepository stores the single ServerState record of a mock server instance.
type StateRepository interface {
	Get(ctx context.Context) (domain.ServerState, error)
	SetCondition(ctx context.Context, condition domain.NetworkCondition, bitrate int) (domain.ServerState, error)
	Reset(ctx context.Context, state domain.ServerState) error
}
