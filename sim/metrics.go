// Tracks per-tick time series and per-request samples collected during a run.

package sim

// Metrics aggregates statistics about the simulation for final reporting.
// All slices are append-only during a run.
type Metrics struct {
	CompletedRequests int // Number of requests that finished service
	RejectedRequests  int // Number of arrivals turned away at a full queue
	TotalArrivals     int // Number of arrivals signalled by the generator

	QueueHistory     []int // queue length at the end of each tick
	CompletedHistory []int // cumulative completions at the end of each tick
	RejectedHistory  []int // cumulative rejections at the end of each tick

	WaitTimes    []int64 // processing_start - wait_start per completed request, completion order
	ServiceTimes []int64 // service time per completed request, completion order

	WaitStats    *Summary // nil until finalize, or when nothing completed
	ServiceStats *Summary
}

// maxHistoryPresize bounds the up-front history allocation; longer runs grow by append.
const maxHistoryPresize = 1 << 20

// NewMetrics creates a Metrics with history slices sized for horizon ticks,
// up to maxHistoryPresize.
func NewMetrics(horizon int64) *Metrics {
	size := int(min(max(horizon, 0), maxHistoryPresize))
	return &Metrics{
		QueueHistory:     make([]int, 0, size),
		CompletedHistory: make([]int, 0, size),
		RejectedHistory:  make([]int, 0, size),
		WaitTimes:        make([]int64, 0),
		ServiceTimes:     make([]int64, 0),
	}
}

// recordCompletion adds a finished request's wait and service samples.
func (m *Metrics) recordCompletion(req *Request) {
	wait, ok := req.WaitTime()
	if !ok {
		panic("recordCompletion: completed request is missing wait or processing timestamps")
	}
	m.CompletedRequests++
	m.WaitTimes = append(m.WaitTimes, wait)
	m.ServiceTimes = append(m.ServiceTimes, req.ServiceTime)
}

// snapshot appends the end-of-tick counters to the history series.
func (m *Metrics) snapshot(queueLen int) {
	m.QueueHistory = append(m.QueueHistory, queueLen)
	m.CompletedHistory = append(m.CompletedHistory, m.CompletedRequests)
	m.RejectedHistory = append(m.RejectedHistory, m.RejectedRequests)
}

// finalize computes the summary statistics over the collected samples.
func (m *Metrics) finalize() {
	m.WaitStats = Summarize(m.WaitTimes)
	m.ServiceStats = Summarize(m.ServiceTimes)
}

// MeanQueueLength returns the time-average queue length over recorded ticks.
func (m *Metrics) MeanQueueLength() float64 {
	if len(m.QueueHistory) == 0 {
		return 0
	}
	sum := 0
	for _, q := range m.QueueHistory {
		sum += q
	}
	return float64(sum) / float64(len(m.QueueHistory))
}

// RejectionRatio returns rejected / arrivals, or 0 with no arrivals.
func (m *Metrics) RejectionRatio() float64 {
	if m.TotalArrivals == 0 {
		return 0
	}
	return float64(m.RejectedRequests) / float64(m.TotalArrivals)
}
