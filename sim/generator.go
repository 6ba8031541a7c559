package sim

import (
	"fmt"
	"math"
	"math/rand"
)

// ArrivalSource decides, once per tick, whether a new request arrives.
type ArrivalSource interface {
	// Tick advances the source by one tick and reports whether an arrival
	// is signalled on this tick.
	Tick() bool
}

// ExponentialGenerator produces a Poisson arrival stream on the tick clock.
// It keeps a countdown of ticks until the next arrival; when the countdown is
// zero it signals an arrival and draws the next interval from Exp(rate).
type ExponentialGenerator struct {
	rate           float64 // arrivals per second
	ticksPerSecond float64
	rng            *rand.Rand
	timeToNext     int64 // ticks remaining until the next arrival
}

// NewExponentialGenerator creates a generator with the given arrival rate
// (per second) and tick resolution. Panics on non-positive parameters or a
// nil rng; callers validate user input through SimConfig first.
func NewExponentialGenerator(rate float64, ticksPerSecond int64, rng *rand.Rand) *ExponentialGenerator {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		panic(fmt.Sprintf("NewExponentialGenerator: rate must be a positive finite number, got %v", rate))
	}
	if ticksPerSecond <= 0 {
		panic(fmt.Sprintf("NewExponentialGenerator: ticksPerSecond must be > 0, got %d", ticksPerSecond))
	}
	if rng == nil {
		panic("NewExponentialGenerator: rng must not be nil")
	}
	return &ExponentialGenerator{
		rate:           rate,
		ticksPerSecond: float64(ticksPerSecond),
		rng:            rng,
	}
}

// Tick decrements the countdown, or, when it has reached zero, rearms it
// with a fresh interval and signals an arrival. A rearmed countdown of zero
// makes the very next Tick signal again.
func (g *ExponentialGenerator) Tick() bool {
	if g.timeToNext > 0 {
		g.timeToNext--
		return false
	}
	g.timeToNext = g.sampleInterval()
	return true
}

// TimeToNext returns the current countdown in ticks.
func (g *ExponentialGenerator) TimeToNext() int64 {
	return g.timeToNext
}

// sampleInterval draws an interarrival interval via the inverse CDF,
// -ln(1-u)/rate seconds, and rounds it to whole ticks.
func (g *ExponentialGenerator) sampleInterval() int64 {
	u := g.rng.Float64()
	seconds := -math.Log(1-u) / g.rate
	ticks := math.Round(seconds * g.ticksPerSecond)
	// tiny rates overflow int64
	if ticks >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(ticks)
}

// ScriptedArrivals signals arrivals exactly on the listed ticks.
// Ticks are counted from zero on the first call to Tick.
type ScriptedArrivals struct {
	at   map[int64]bool
	tick int64
}

// NewScriptedArrivals creates an ArrivalSource that fires on the given ticks.
// With no ticks it never fires.
func NewScriptedArrivals(ticks ...int64) *ScriptedArrivals {
	at := make(map[int64]bool, len(ticks))
	for _, t := range ticks {
		at[t] = true
	}
	return &ScriptedArrivals{at: at}
}

func (s *ScriptedArrivals) Tick() bool {
	fired := s.at[s.tick]
	s.tick++
	return fired
}
