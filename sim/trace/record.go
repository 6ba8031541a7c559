// Package trace provides decision-trace recording for admission and dispatch analysis.
// It has no dependencies on sim/ and stores pure data types.
package trace

// AdmissionRecord captures a single queue admission decision for an arrival.
type AdmissionRecord struct {
	RequestID  int64  `json:"request_id"`
	Clock      int64  `json:"clock"`
	Admitted   bool   `json:"admitted"`
	QueueDepth int    `json:"queue_depth"` // queue length before the decision
	Reason     string `json:"reason"`
}

// DispatchRecord captures a queued request being assigned to a service channel.
type DispatchRecord struct {
	RequestID int64 `json:"request_id"`
	Clock     int64 `json:"clock"`
	Channel   int   `json:"channel"`
	Wait      int64 `json:"wait"` // ticks between wait start and this dispatch
}
