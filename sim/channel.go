package sim

import "fmt"

// ServiceChannel is a single-slot server. It is Idle when it holds no request
// and Busy while counting down the held request's service time.
//
// Invariant: remaining > 0 iff current != nil.
type ServiceChannel struct {
	Index     int // position in the simulator's channel array
	current   *Request
	remaining int64
}

// NewServiceChannel creates an idle channel at position index.
func NewServiceChannel(index int) *ServiceChannel {
	return &ServiceChannel{Index: index}
}

// Busy reports whether the channel holds a request.
func (c *ServiceChannel) Busy() bool {
	return c.current != nil
}

// Current returns the request in service, or nil when idle.
func (c *ServiceChannel) Current() *Request {
	return c.current
}

// Remaining returns the ticks left on the current request (0 when idle).
func (c *ServiceChannel) Remaining() int64 {
	return c.remaining
}

// Start begins serving req at tick now.
// Panics if the channel is already busy or the service time is not positive.
func (c *ServiceChannel) Start(req *Request, now int64) {
	if req == nil {
		panic("ServiceChannel.Start: req must not be nil")
	}
	if c.current != nil {
		panic(fmt.Sprintf("ServiceChannel.Start: channel %d busy with request %d, cannot start request %d",
			c.Index, c.current.ID, req.ID))
	}
	if req.ServiceTime < 1 {
		panic(fmt.Sprintf("ServiceChannel.Start: request %d has service time %d, must be >= 1", req.ID, req.ServiceTime))
	}
	req.transition(StateRunning)
	req.ProcessingStart.set(now, "ProcessingStart")
	c.current = req
	c.remaining = req.ServiceTime
}

// Advance moves the channel forward by one tick. When the held request's
// remaining time reaches zero its FinishTime is set to now, the channel
// returns to Idle, and the finished request is returned. Otherwise nil.
func (c *ServiceChannel) Advance(now int64) *Request {
	if c.current == nil {
		return nil
	}
	c.remaining--
	if c.remaining > 0 {
		return nil
	}
	finished := c.current
	finished.FinishTime.set(now, "FinishTime")
	finished.transition(StateCompleted)
	c.current = nil
	c.remaining = 0
	return finished
}
