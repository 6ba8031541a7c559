// Defines the Request struct that models a single unit of work in the queueing system.
// Tracks arrival time, service duration, and the wait/processing/finish timestamps.

package sim

import (
	"fmt"
)

// RequestState represents where a request currently lives.
type RequestState string

const (
	StateQueued    RequestState = "queued"
	StateRunning   RequestState = "running"
	StateCompleted RequestState = "completed"
	StateRejected  RequestState = "rejected"
)

// Tick is a simulation timestamp that is either unset or holds a tick value.
// It can be assigned at most once.
type Tick struct {
	value int64
	valid bool
}

// At returns a Tick already set to t.
func At(t int64) Tick {
	return Tick{value: t, valid: true}
}

// IsSet reports whether the timestamp has been assigned.
func (t Tick) IsSet() bool { return t.valid }

// Get returns the tick value and whether it is set.
func (t Tick) Get() (int64, bool) { return t.value, t.valid }

// Value returns the tick value. Panics if unset.
func (t Tick) Value() int64 {
	if !t.valid {
		panic("Tick.Value: timestamp is unset")
	}
	return t.value
}

// set assigns the timestamp. Panics if it was already assigned.
func (t *Tick) set(now int64, field string) {
	if t.valid {
		panic(fmt.Sprintf("%s already set to %d, cannot reassign to %d", field, t.value, now))
	}
	t.value = now
	t.valid = true
}

func (t Tick) String() string {
	if !t.valid {
		return "-"
	}
	return fmt.Sprintf("%d", t.value)
}

type Request struct {
	ID          int64 // Sequence number, starting at 1
	ArrivalTime int64 // Tick on which the generator signalled the arrival
	ServiceTime int64 // Service duration in ticks (>= 1)

	State RequestState // queued, running, completed, rejected

	WaitStart       Tick // First tick the request was observed waiting
	ProcessingStart Tick // Tick the request was assigned to a channel
	FinishTime      Tick // Tick service completed
}

// NewRequest creates a queued request with the given identity fields.
func NewRequest(id, arrivalTime, serviceTime int64) *Request {
	return &Request{
		ID:          id,
		ArrivalTime: arrivalTime,
		ServiceTime: serviceTime,
		State:       StateQueued,
	}
}

// WaitTime returns ProcessingStart - WaitStart.
// Only meaningful once both timestamps are set; returns false otherwise.
func (req *Request) WaitTime() (int64, bool) {
	if !req.WaitStart.IsSet() || !req.ProcessingStart.IsSet() {
		return 0, false
	}
	return req.ProcessingStart.value - req.WaitStart.value, true
}

// MarkWaiting sets WaitStart to now if it is not set yet.
func (req *Request) MarkWaiting(now int64) {
	if req.WaitStart.IsSet() {
		return
	}
	if now < req.ArrivalTime {
		panic(fmt.Sprintf("request %d: wait start %d before arrival %d", req.ID, now, req.ArrivalTime))
	}
	req.WaitStart.set(now, "WaitStart")
}

// transition moves the request to state to, panicking on any edge outside
// queued -> running -> completed and queued -> rejected.
func (req *Request) transition(to RequestState) {
	ok := false
	switch req.State {
	case StateQueued:
		ok = to == StateRunning || to == StateRejected
	case StateRunning:
		ok = to == StateCompleted
	}
	if !ok {
		panic(fmt.Sprintf("request %d: illegal state transition %s -> %s", req.ID, req.State, to))
	}
	req.State = to
}

// This method returns a human-readable string representation of a Request.
func (req Request) String() string {
	return fmt.Sprintf("Request: (ID: %d, State: %s, ArrivalTime: %d, ServiceTime: %d, WaitStart: %s, ProcessingStart: %s, FinishTime: %s)",
		req.ID, req.State, req.ArrivalTime, req.ServiceTime, req.WaitStart, req.ProcessingStart, req.FinishTime)
}
