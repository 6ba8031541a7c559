package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalDecisions      int
	AdmittedCount       int
	RejectedCount       int
	DispatchCount       int
	MeanWait            float64
	MaxWait             int64
	PeakQueueDepth      int
	ChannelDistribution map[int]int // channel index → count of requests dispatched to it
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		ChannelDistribution: make(map[int]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalDecisions = len(st.Admissions)
	for _, a := range st.Admissions {
		if a.Admitted {
			summary.AdmittedCount++
		} else {
			summary.RejectedCount++
		}
		if a.QueueDepth > summary.PeakQueueDepth {
			summary.PeakQueueDepth = a.QueueDepth
		}
	}

	summary.DispatchCount = len(st.Dispatches)
	if len(st.Dispatches) > 0 {
		var totalWait int64
		for _, d := range st.Dispatches {
			summary.ChannelDistribution[d.Channel]++
			totalWait += d.Wait
			if d.Wait > summary.MaxWait {
				summary.MaxWait = d.Wait
			}
		}
		summary.MeanWait = float64(totalWait) / float64(len(st.Dispatches))
	}

	return summary
}
