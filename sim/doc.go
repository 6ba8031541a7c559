// Package sim provides the discrete-time simulation engine for a multi-channel
// queueing system with losses: one Poisson arrival stream, a bounded FIFO queue
// and a fixed pool of identical service channels.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - request.go: Request lifecycle (queued → running → completed, or rejected) and the Tick timestamp type
//   - channel.go: ServiceChannel, the Idle/Busy countdown state machine
//   - simulator.go: the tick loop and its five ordered passes
//
// # Tick Order
//
// Every tick runs completion, dispatch, wait accounting, arrival and the
// statistics snapshot in that order. A request that arrives on tick t is
// enqueued after the dispatch pass, so the earliest it can start service is
// t+1. Its WaitStart is the first tick the loop sees it waiting, which is
// also t+1; measured waits therefore exclude the arrival tick itself.
//
// # Randomness
//
// All sampling goes through PartitionedRNG: the "arrival" stream feeds the
// ExponentialGenerator and the "service" stream draws service times. A fixed
// Seed in SimConfig makes a run fully reproducible.
//
// Decision tracing lives in sim/trace and has no dependency on this package.
package sim
