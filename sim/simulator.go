// sim/simulator.go
package sim

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/smo-sim/sim/trace"
)

// Simulator is the core object that holds simulation time, system state, and the tick loop.
// It owns the queue, the channels and every log for exactly one run.
type Simulator struct {
	Clock  int64
	Config SimConfig
	// Queue holds arrivals waiting for a free channel.
	Queue *BoundedQueue
	// Channels are scanned in index order in every pass; the lowest-index
	// idle channel wins a dispatch.
	Channels []*ServiceChannel
	Arrivals ArrivalSource
	Metrics  *Metrics
	// Trace collects admission/dispatch decisions when non-nil.
	Trace *trace.SimulationTrace

	serviceRNG *rand.Rand
	completed  []*Request
	rejected   []*Request
	nextID     int64
	ran        bool
}

// NewSimulator validates cfg and builds a simulator ready to Run.
// A nil arrivals source selects an ExponentialGenerator on the arrival RNG stream.
func NewSimulator(cfg SimConfig, arrivals ArrivalSource) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := NewPartitionedRNG(NewSimulationKey(cfg.Seed))
	if arrivals == nil {
		arrivals = NewExponentialGenerator(cfg.ArrivalRate, cfg.TicksPerSecond, rng.ForSubsystem(SubsystemArrival))
	}
	channels := make([]*ServiceChannel, cfg.NumChannels)
	for i := range channels {
		channels[i] = NewServiceChannel(i)
	}
	return &Simulator{
		Clock:      0,
		Config:     cfg,
		Queue:      NewBoundedQueue(cfg.QueueCapacity),
		Channels:   channels,
		Arrivals:   arrivals,
		Metrics:    NewMetrics(cfg.TotalTicks),
		serviceRNG: rng.ForSubsystem(SubsystemService),
		completed:  make([]*Request, 0),
		rejected:   make([]*Request, 0),
	}, nil
}

// Fingerprint deterministically identifies the run's configuration and seed.
func (sim *Simulator) Fingerprint() string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%+v", sim.Config))).String()
}

// Run executes ticks 0..TotalTicks-1 and finalizes summary statistics.
// A Simulator runs once; build a new one for another run.
func (sim *Simulator) Run() {
	if sim.ran {
		panic("Simulator.Run: simulator has already run; create a new Simulator")
	}
	sim.ran = true
	logrus.Infof("Starting simulation run=%s ticks=%d rate=%.3f/s service=[%d,%d] capacity=%d channels=%d ticks/s=%d seed=%d",
		sim.Fingerprint(), sim.Config.TotalTicks, sim.Config.ArrivalRate, sim.Config.ServiceMin, sim.Config.ServiceMax,
		sim.Config.QueueCapacity, sim.Config.NumChannels, sim.Config.TicksPerSecond, sim.Config.Seed)

	for tick := int64(0); tick < sim.Config.TotalTicks; tick++ {
		sim.Clock = tick
		sim.Step(tick)
	}
	sim.Metrics.finalize()

	logrus.Infof("[tick %07d] Simulation ended: arrivals=%d completed=%d rejected=%d in_queue=%d busy=%d",
		sim.Clock, sim.Metrics.TotalArrivals, sim.Metrics.CompletedRequests, sim.Metrics.RejectedRequests,
		sim.Queue.Len(), sim.BusyChannels())
}

// Step performs one tick: completion, dispatch, wait accounting, arrival,
// then the statistics snapshot. The order decides whether a request queued
// on this tick can be served on this tick (it cannot: arrivals come last).
func (sim *Simulator) Step(now int64) {
	sim.completionPass(now)
	sim.dispatchPass(now)
	sim.waitAccountingPass(now)
	sim.arrivalPass(now)

	sim.Metrics.snapshot(sim.Queue.Len())
	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		logrus.Tracef("[tick %07d] queue=%d busy=%d completed=%d rejected=%d",
			now, sim.Queue.Len(), sim.BusyChannels(), sim.Metrics.CompletedRequests, sim.Metrics.RejectedRequests)
	}
}

func (sim *Simulator) completionPass(now int64) {
	for _, ch := range sim.Channels {
		finished := ch.Advance(now)
		if finished == nil {
			continue
		}
		sim.completed = append(sim.completed, finished)
		sim.Metrics.recordCompletion(finished)
		logrus.Debugf("[tick %07d] Finished req %d on channel %d", now, finished.ID, ch.Index)
	}
}

func (sim *Simulator) dispatchPass(now int64) {
	for _, ch := range sim.Channels {
		if ch.Busy() || sim.Queue.Len() == 0 {
			continue
		}
		req := sim.Queue.Dequeue()
		// only requests that arrived on the previous tick reach here unmarked
		req.MarkWaiting(now)
		ch.Start(req, now)
		if sim.Trace != nil {
			wait, _ := req.WaitTime()
			sim.Trace.RecordDispatch(trace.DispatchRecord{
				RequestID: req.ID,
				Clock:     now,
				Channel:   ch.Index,
				Wait:      wait,
			})
		}
	}
}

func (sim *Simulator) waitAccountingPass(now int64) {
	for _, req := range sim.Queue.Items() {
		req.MarkWaiting(now)
	}
}

func (sim *Simulator) arrivalPass(now int64) {
	if !sim.Arrivals.Tick() {
		return
	}
	sim.nextID++
	sim.Metrics.TotalArrivals++
	req := NewRequest(sim.nextID, now, sim.sampleServiceTime())
	depth := sim.Queue.Len()
	admitted := sim.Queue.Enqueue(req)
	if !admitted {
		req.transition(StateRejected)
		sim.rejected = append(sim.rejected, req)
		sim.Metrics.RejectedRequests++
		logrus.Debugf("[tick %07d] Rejected req %d: queue full (%d/%d)", now, req.ID, depth, sim.Queue.Cap())
	}
	if sim.Trace != nil {
		reason := "enqueued"
		if !admitted {
			reason = "queue-full"
		}
		sim.Trace.RecordAdmission(trace.AdmissionRecord{
			RequestID:  req.ID,
			Clock:      now,
			Admitted:   admitted,
			QueueDepth: depth,
			Reason:     reason,
		})
	}
}

// sampleServiceTime draws a uniform integer in [ServiceMin, ServiceMax].
func (sim *Simulator) sampleServiceTime() int64 {
	span := sim.Config.ServiceMax - sim.Config.ServiceMin + 1
	return sim.Config.ServiceMin + sim.serviceRNG.Int63n(span)
}

// BusyChannels returns the number of channels currently serving a request.
func (sim *Simulator) BusyChannels() int {
	busy := 0
	for _, ch := range sim.Channels {
		if ch.Busy() {
			busy++
		}
	}
	return busy
}

// CompletedRequests returns the completed log in completion order.
// The returned slice MUST NOT be modified.
func (sim *Simulator) CompletedRequests() []*Request {
	return sim.completed
}

// RejectedRequests returns the rejected log in arrival order.
// The returned slice MUST NOT be modified.
func (sim *Simulator) RejectedRequests() []*Request {
	return sim.rejected
}
