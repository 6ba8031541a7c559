package sim

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is wrapped by every configuration error returned from
// SimConfig.Validate and NewSimulator.
var ErrInvalidConfig = errors.New("invalid simulation config")

// SimConfig groups the construction parameters of a single run.
type SimConfig struct {
	TotalTicks     int64   `json:"total_ticks" yaml:"total_ticks"`           // run length in ticks (> 0)
	ArrivalRate    float64 `json:"arrival_rate" yaml:"arrival_rate"`         // λ, arrivals per second (> 0)
	ServiceMin     int64   `json:"service_min" yaml:"service_min"`           // min service time in ticks (>= 1)
	ServiceMax     int64   `json:"service_max" yaml:"service_max"`           // max service time in ticks (>= ServiceMin)
	QueueCapacity  int     `json:"queue_capacity" yaml:"queue_capacity"`     // waiting places (>= 0)
	NumChannels    int     `json:"num_channels" yaml:"num_channels"`         // parallel servers (>= 1)
	TicksPerSecond int64   `json:"ticks_per_second" yaml:"ticks_per_second"` // clock resolution (> 0)
	Seed           int64   `json:"seed" yaml:"seed"`                         // master seed for PartitionedRNG
}

// DefaultSimConfig returns the reference three-channel system:
// 1,000,000 ticks at 100 ticks/s (~2.78 h), λ=0.4/s, service 1..16 s,
// 30 waiting places.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		TotalTicks:     1_000_000,
		ArrivalRate:    0.4,
		ServiceMin:     100,
		ServiceMax:     1600,
		QueueCapacity:  30,
		NumChannels:    3,
		TicksPerSecond: 100,
		Seed:           42,
	}
}

// Validate checks every field and returns all violations joined together,
// each wrapping ErrInvalidConfig. Returns nil for a valid config.
func (c SimConfig) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}
	if c.TotalTicks <= 0 {
		bad("total_ticks must be positive, got %d", c.TotalTicks)
	}
	if math.IsNaN(c.ArrivalRate) || math.IsInf(c.ArrivalRate, 0) {
		bad("arrival_rate must be a finite number, got %f", c.ArrivalRate)
	} else if c.ArrivalRate <= 0 {
		bad("arrival_rate must be positive, got %f", c.ArrivalRate)
	}
	if c.ServiceMin < 1 {
		bad("service_min must be >= 1, got %d", c.ServiceMin)
	}
	if c.ServiceMin > c.ServiceMax {
		bad("service_min (%d) must not exceed service_max (%d)", c.ServiceMin, c.ServiceMax)
	}
	if c.QueueCapacity < 0 {
		bad("queue_capacity must be non-negative, got %d", c.QueueCapacity)
	}
	if c.NumChannels < 1 {
		bad("num_channels must be >= 1, got %d", c.NumChannels)
	}
	if c.TicksPerSecond <= 0 {
		bad("ticks_per_second must be positive, got %d", c.TicksPerSecond)
	}
	return errors.Join(errs...)
}

// TicksToSeconds converts a tick count to seconds at this config's resolution.
func (c SimConfig) TicksToSeconds(ticks float64) float64 {
	return ticks / float64(c.TicksPerSecond)
}
