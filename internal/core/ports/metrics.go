package ports

import "time"

// NetworkMetrics receives observations from the network simulation.
type NetworkMetrics interface {
	ObserveDelay(condition string, applied time.Duration)
	ConditionChanged(from, to string, bitrate int)
}
