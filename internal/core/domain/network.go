package domain

import (
	"fmt"
	"strings"
	"time"
)

type NetworkCondition string

const (
	ConditionNormal   NetworkCondition = "normal"
	ConditionPoor     NetworkCondition = "poor"
	ConditionTerrible NetworkCondition = "terrible"
)

// Conditions lists every known condition, ordered from best to worst.
var Conditions = []NetworkCondition{ConditionNormal, ConditionPoor, ConditionTerrible}

// NetworkProfile is the simulated link quality for one condition.
type NetworkProfile struct {
	Bitrate int           // kbps
	Latency time.Duration // base delay added to every request
	Jitter  time.Duration // delay varies uniformly within ±Jitter
}

var profiles = map[NetworkCondition]NetworkProfile{
	ConditionNormal: {
		Bitrate: 2500,
		Latency: 50 * time.Millisecond,
		Jitter:  10 * time.Millisecond,
	},
	ConditionPoor: {
		Bitrate: 1200,
		Latency: 200 * time.Millisecond,
		Jitter:  100 * time.Millisecond,
	},
	ConditionTerrible: {
		Bitrate: 500,
		Latency: 500 * time.Millisecond,
		Jitter:  300 * time.Millisecond,
	},
}

func (c NetworkCondition) String() string {
	return string(c)
}

// Valid reports whether c is one of the known conditions.
func (c NetworkCondition) Valid() bool {
	_, ok := profiles[c]
	return ok
}

// Profile returns the simulated link profile for c.
func (c NetworkCondition) Profile() (NetworkProfile, error) {
	p, ok := profiles[c]
	if !ok {
		return NetworkProfile{}, fmt.Errorf("%w: %q", ErrInvalidCondition, string(c))
	}
	return p, nil
}

// ParseCondition converts raw input into a NetworkCondition.
// Matching is exact; unknown values are rejected.
func ParseCondition(raw string) (NetworkCondition, error) {
	c := NetworkCondition(raw)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCondition, raw)
	}
	return c, nil
}

// ConditionNames returns the valid condition names in table order.
func ConditionNames() []string {
	names := make([]string, 0, len(Conditions))
	for _, c := range Conditions {
		names = append(names, string(c))
	}
	return names
}

// InvalidConditionMessage is the message returned to clients that send an unknown condition.
func InvalidConditionMessage() string {
	return fmt.Sprintf("Invalid condition. Must be one of: [%s]", strings.Join(ConditionNames(), " "))
}

// MinLatency is the lowest delay the profile can produce.
func (p NetworkProfile) MinLatency() time.Duration {
	if d := p.Latency - p.Jitter; d > 0 {
		return d
	}
	return 0
}

// MaxLatency is the highest delay the profile can produce.
func (p NetworkProfile) MaxLatency() time.Duration {
	return p.Latency + p.Jitter
}
