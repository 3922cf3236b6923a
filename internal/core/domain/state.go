package domain

import "time"

// ServerState is the mutable state of the mock streaming server.
type ServerState struct {
	Condition NetworkCondition
	Viewers   int
	Bitrate   int // kbps
}

// InitialServerState returns the state a freshly started server holds.
func InitialServerState(condition NetworkCondition) ServerState {
	p, err := condition.Profile()
	if err != nil {
		condition = ConditionNormal
		p = profiles[ConditionNormal]
	}
	return ServerState{
		Condition: condition,
		Viewers:   0,
		Bitrate:   p.Bitrate,
	}
}

// HealthSnapshot is the body of GET /health.
type HealthSnapshot struct {
	Status           string           `json:"status"`
	Bitrate          int              `json:"bitrate"`
	Viewers          int              `json:"viewers"`
	LatencyMs        float64          `json:"latency_ms"`
	NetworkCondition NetworkCondition `json:"network_condition"`
}

const HealthStatusHealthy = "healthy"

// NewHealthSnapshot derives a snapshot from the state and the delay applied to the request.
func NewHealthSnapshot(state ServerState, applied time.Duration) HealthSnapshot {
	return HealthSnapshot{
		Status:           HealthStatusHealthy,
		Bitrate:          state.Bitrate,
		Viewers:          state.Viewers,
		LatencyMs:        float64(applied) / float64(time.Millisecond),
		NetworkCondition: state.Condition,
	}
}

// ConditionChange is the body returned by the control endpoints on success.
type ConditionChange struct {
	Status           string           `json:"status"`
	NetworkCondition NetworkCondition `json:"network_condition"`
	Bitrate          int              `json:"bitrate"`
}
