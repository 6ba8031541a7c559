package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/smo-sim/sim/trace"
)

// smallConfig returns an overloaded two-channel system that produces
// completions, waits and rejections within a few thousand ticks.
func smallConfig() SimConfig {
	return SimConfig{
		TotalTicks:     20_000,
		ArrivalRate:    2.0,
		ServiceMin:     50,
		ServiceMax:     300,
		QueueCapacity:  5,
		NumChannels:    2,
		TicksPerSecond: 100,
		Seed:           42,
	}
}

func mustSimulator(t *testing.T, cfg SimConfig, arrivals ArrivalSource) *Simulator {
	t.Helper()
	s, err := NewSimulator(cfg, arrivals)
	require.NoError(t, err)
	return s
}

func TestNewSimulator_ZeroChannels_ConfigError(t *testing.T) {
	// GIVEN a config with no service channels
	cfg := smallConfig()
	cfg.NumChannels = 0

	// WHEN the simulator is constructed
	s, err := NewSimulator(cfg, nil)

	// THEN construction fails before any tick runs
	assert.Nil(t, s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestSimulator_SingleForcedArrival_ServedNextTick(t *testing.T) {
	// GIVEN 1 channel, capacity 1, 10 ticks, one arrival at tick 0 with service time 5
	cfg := SimConfig{
		TotalTicks: 10, ArrivalRate: 1, ServiceMin: 5, ServiceMax: 5,
		QueueCapacity: 1, NumChannels: 1, TicksPerSecond: 100, Seed: 1,
	}
	s := mustSimulator(t, cfg, NewScriptedArrivals(0))

	// WHEN the run completes
	s.Run()

	// THEN the request waited in the queue during tick 0, started on tick 1
	// and finished five ticks later
	require.Len(t, s.CompletedRequests(), 1)
	assert.Empty(t, s.RejectedRequests())
	req := s.CompletedRequests()[0]
	assert.Equal(t, int64(0), req.ArrivalTime)
	assert.Equal(t, At(1), req.WaitStart)
	assert.Equal(t, At(1), req.ProcessingStart)
	assert.Equal(t, At(6), req.FinishTime)

	r := s.Result()
	assert.Equal(t, []int{1, 0, 0, 0, 0, 0, 0, 0, 0, 0}, r.QueueHistory)
	assert.Equal(t, []int{0, 0, 0, 0, 0, 0, 1, 1, 1, 1}, r.CompletedHistory)
	assert.Equal(t, []int64{0}, r.WaitTimes)
	require.NotNil(t, r.ServiceStats)
	assert.Equal(t, 5.0, r.ServiceStats.Mean)
}

func TestNewSimulator_HugeHorizon_NoUpfrontAllocationPanic(t *testing.T) {
	// GIVEN a valid config whose horizon exceeds any allocatable slice
	cfg := DefaultSimConfig()
	cfg.TotalTicks = math.MaxInt64

	// WHEN the simulator is built
	var s *Simulator
	var err error
	require.NotPanics(t, func() { s, err = NewSimulator(cfg, nil) })

	// THEN construction succeeds and history pre-sizing is bounded
	require.NoError(t, err)
	assert.Equal(t, maxHistoryPresize, cap(s.Metrics.QueueHistory))

	// AND stepping still records history
	s.Step(0)
	assert.Len(t, s.Metrics.QueueHistory, 1)
}

func TestSimulator_ArrivalOnTick_NotServedSameTick(t *testing.T) {
	// GIVEN idle channels and an arrival on tick 0
	cfg := smallConfig()
	s := mustSimulator(t, cfg, NewScriptedArrivals(0))

	// WHEN only tick 0 is stepped
	s.Step(0)

	// THEN the request is still queued, unmarked, and no channel is busy
	assert.Equal(t, 1, s.Queue.Len())
	assert.Equal(t, 0, s.BusyChannels())
	assert.False(t, s.Queue.Items()[0].WaitStart.IsSet())
}

func TestSimulator_QueuedBehindBusyChannel_WaitStartIsFirstObservation(t *testing.T) {
	// GIVEN 1 channel with service time 5 and arrivals on ticks 0 and 1
	cfg := SimConfig{
		TotalTicks: 12, ArrivalRate: 1, ServiceMin: 5, ServiceMax: 5,
		QueueCapacity: 3, NumChannels: 1, TicksPerSecond: 100, Seed: 1,
	}
	s := mustSimulator(t, cfg, NewScriptedArrivals(0, 1))

	// WHEN the run completes
	s.Run()

	// THEN the second request is marked waiting on tick 2 (first wait pass
	// after its arrival) and starts when the first one finishes on tick 6
	require.Len(t, s.CompletedRequests(), 2)
	second := s.CompletedRequests()[1]
	assert.Equal(t, int64(1), second.ArrivalTime)
	assert.Equal(t, At(2), second.WaitStart)
	assert.Equal(t, At(6), second.ProcessingStart)
	assert.Equal(t, At(11), second.FinishTime)
	assert.Equal(t, []int64{0, 4}, s.Metrics.WaitTimes)
}

func TestSimulator_Dispatch_LowestIndexIdleChannelWins(t *testing.T) {
	// GIVEN three channels, fixed service time 4, and arrivals on ticks 0, 1 and 10
	cfg := SimConfig{
		TotalTicks: 20, ArrivalRate: 1, ServiceMin: 4, ServiceMax: 4,
		QueueCapacity: 5, NumChannels: 3, TicksPerSecond: 100, Seed: 1,
	}
	s := mustSimulator(t, cfg, NewScriptedArrivals(0, 1, 10))
	s.Trace = trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})

	// WHEN the run completes
	s.Run()

	// THEN the first two go to channels 0 and 1, and the third, arriving
	// when all channels are idle again, goes back to channel 0
	require.Len(t, s.Trace.Dispatches, 3)
	channels := []int{s.Trace.Dispatches[0].Channel, s.Trace.Dispatches[1].Channel, s.Trace.Dispatches[2].Channel}
	assert.Equal(t, []int{0, 1, 0}, channels)
}

func TestSimulator_ZeroCapacity_RejectsEveryArrival(t *testing.T) {
	// GIVEN a system with no waiting places
	cfg := smallConfig()
	cfg.QueueCapacity = 0
	s := mustSimulator(t, cfg, nil)

	// WHEN the run completes
	s.Run()

	// THEN every arrival was turned away and nothing was ever served
	r := s.Result()
	require.Greater(t, r.TotalArrivals, 0)
	assert.Equal(t, r.TotalArrivals, r.Rejected)
	assert.Equal(t, 0, r.Completed)
	assert.Nil(t, r.WaitStats)
	assert.Nil(t, r.ServiceStats)
	for _, req := range s.RejectedRequests() {
		assert.Equal(t, StateRejected, req.State)
		assert.False(t, req.WaitStart.IsSet())
	}
}

func TestSimulator_NoArrivals_IdleRun(t *testing.T) {
	// GIVEN an arrival source that never fires
	cfg := smallConfig()
	s := mustSimulator(t, cfg, NewScriptedArrivals())

	// WHEN the run completes
	s.Run()

	// THEN nothing is completed or rejected and the history is all zeros
	r := s.Result()
	assert.Equal(t, 0, r.TotalArrivals)
	assert.Equal(t, 0, r.Completed)
	assert.Equal(t, 0, r.Rejected)
	assert.Equal(t, 0, r.BusyChannels)
	assert.Nil(t, r.WaitStats)
	require.Len(t, r.QueueHistory, int(cfg.TotalTicks))
	for i := range r.QueueHistory {
		require.Zero(t, r.QueueHistory[i])
		require.Zero(t, r.CompletedHistory[i])
		require.Zero(t, r.RejectedHistory[i])
	}
}

func TestSimulator_VanishingRate_OnlyTheInitialArrival(t *testing.T) {
	// GIVEN the default generator with a near-zero rate
	cfg := SimConfig{
		TotalTicks: 100, ArrivalRate: 1e-9, ServiceMin: 5, ServiceMax: 5,
		QueueCapacity: 1, NumChannels: 1, TicksPerSecond: 100, Seed: 42,
	}
	s := mustSimulator(t, cfg, nil)

	// WHEN the run completes
	s.Run()

	// THEN only the tick-0 arrival happens (the countdown starts at zero)
	assert.Equal(t, 1, s.Metrics.TotalArrivals)
	assert.Equal(t, 1, s.Metrics.CompletedRequests)
}

func TestSimulator_Invariants_HoldEveryTick(t *testing.T) {
	// GIVEN an overloaded system stepped tick by tick
	cfg := smallConfig()
	s := mustSimulator(t, cfg, nil)

	for now := int64(0); now < cfg.TotalTicks; now++ {
		s.Clock = now
		s.Step(now)

		// THEN the queue never exceeds capacity
		require.LessOrEqual(t, s.Queue.Len(), cfg.QueueCapacity, "tick %d", now)

		// AND every channel holds at most one request, busy iff countdown > 0
		seen := make(map[*Request]bool)
		for _, ch := range s.Channels {
			require.Equal(t, ch.Busy(), ch.Remaining() > 0, "tick %d channel %d", now, ch.Index)
			if ch.Busy() {
				require.False(t, seen[ch.Current()], "tick %d: request in two channels", now)
				seen[ch.Current()] = true
				require.Equal(t, StateRunning, ch.Current().State)
			}
		}
		// AND no queued request is also in a channel
		for _, req := range s.Queue.Items() {
			require.False(t, seen[req], "tick %d: request %d both queued and in service", now, req.ID)
			seen[req] = true
			require.Equal(t, StateQueued, req.State)
		}

		// AND every arrival is accounted for exactly once
		total := s.Metrics.CompletedRequests + s.Metrics.RejectedRequests + s.Queue.Len() + s.BusyChannels()
		require.Equal(t, s.Metrics.TotalArrivals, total, "tick %d: conservation violated", now)
	}

	r := s.Result()
	assert.Greater(t, r.Completed, 0)
	assert.Greater(t, r.Rejected, 0, "an overloaded system must lose requests")
}

func TestSimulator_CompletedRequests_TimestampsOrdered(t *testing.T) {
	// GIVEN a completed run
	cfg := smallConfig()
	s := mustSimulator(t, cfg, nil)
	s.Run()

	// THEN every completed request satisfies
	// arrival <= wait_start <= processing_start <= finish
	require.NotEmpty(t, s.CompletedRequests())
	for _, req := range s.CompletedRequests() {
		ws := req.WaitStart.Value()
		ps := req.ProcessingStart.Value()
		ft := req.FinishTime.Value()
		require.LessOrEqual(t, req.ArrivalTime, ws, "request %d", req.ID)
		require.LessOrEqual(t, ws, ps, "request %d", req.ID)
		require.LessOrEqual(t, ps, ft, "request %d", req.ID)
		require.Equal(t, req.ServiceTime, ft-ps, "request %d", req.ID)
		require.GreaterOrEqual(t, req.ServiceTime, cfg.ServiceMin)
		require.LessOrEqual(t, req.ServiceTime, cfg.ServiceMax)
		require.Equal(t, StateCompleted, req.State)
	}
}

func TestSimulator_SameSeed_IdenticalRuns(t *testing.T) {
	// GIVEN two simulators with identical config and seed
	cfg := smallConfig()
	s1 := mustSimulator(t, cfg, nil)
	s2 := mustSimulator(t, cfg, nil)

	// WHEN both run
	s1.Run()
	s2.Run()

	// THEN logs, histories and samples are identical
	assert.Equal(t, s1.CompletedRequests(), s2.CompletedRequests())
	assert.Equal(t, s1.RejectedRequests(), s2.RejectedRequests())
	assert.Equal(t, s1.Result(), s2.Result())
}

func TestSimulator_DifferentSeeds_DifferentRuns(t *testing.T) {
	cfg := smallConfig()
	s1 := mustSimulator(t, cfg, nil)
	cfg.Seed = 43
	s2 := mustSimulator(t, cfg, nil)

	s1.Run()
	s2.Run()

	assert.NotEqual(t, s1.Metrics.WaitTimes, s2.Metrics.WaitTimes)
	assert.NotEqual(t, s1.Fingerprint(), s2.Fingerprint())
}

func TestSimulator_Run_Twice_Panics(t *testing.T) {
	cfg := smallConfig()
	cfg.TotalTicks = 10
	s := mustSimulator(t, cfg, nil)
	s.Run()
	assert.Panics(t, func() { s.Run() })
}

func TestSimulator_Trace_RecordsEveryAdmission(t *testing.T) {
	// GIVEN a traced run
	cfg := smallConfig()
	s := mustSimulator(t, cfg, nil)
	s.Trace = trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})

	// WHEN it completes
	s.Run()

	// THEN the trace agrees with the metrics
	summary := trace.Summarize(s.Trace)
	assert.Equal(t, s.Metrics.TotalArrivals, summary.TotalDecisions)
	assert.Equal(t, s.Metrics.RejectedRequests, summary.RejectedCount)
	assert.Equal(t, s.Metrics.CompletedRequests+s.BusyChannels(), summary.DispatchCount)
	assert.LessOrEqual(t, summary.PeakQueueDepth, cfg.QueueCapacity)
	assert.LessOrEqual(t, len(summary.ChannelDistribution), cfg.NumChannels)
}

func TestSimulator_Fingerprint_StableForConfig(t *testing.T) {
	cfg := smallConfig()
	a := mustSimulator(t, cfg, nil)
	b := mustSimulator(t, cfg, NewScriptedArrivals())
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Len(t, a.Fingerprint(), 36)
}

func BenchmarkSimulator_Run(b *testing.B) {
	cfg := DefaultSimConfig()
	cfg.TotalTicks = 100_000
	for i := 0; i < b.N; i++ {
		s, err := NewSimulator(cfg, nil)
		if err != nil {
			b.Fatal(err)
		}
		s.Run()
	}
}
