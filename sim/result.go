package sim

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Result is the snapshot handed to reporting and plotting consumers after a run.
type Result struct {
	Fingerprint   string    `json:"fingerprint"`
	Config        SimConfig `json:"config"`
	Completed     int       `json:"completed"`
	Rejected      int       `json:"rejected"`
	InQueue       int       `json:"in_queue"`
	BusyChannels  int       `json:"busy_channels"`
	TotalArrivals int       `json:"total_arrivals"`

	WaitStats    *Summary `json:"wait_stats"`    // nil when nothing completed
	ServiceStats *Summary `json:"service_stats"` // nil when nothing completed

	QueueHistory     []int   `json:"queue_history"`
	CompletedHistory []int   `json:"completed_history"`
	RejectedHistory  []int   `json:"rejected_history"`
	WaitTimes        []int64 `json:"wait_times"`
}

// Result builds the snapshot of the simulator's current state. Summary
// statistics are recomputed on every call, so a snapshot taken between
// Steps matches the counters at that tick.
// History and sample slices are shared with Metrics, not copied.
func (sim *Simulator) Result() *Result {
	m := sim.Metrics
	m.finalize()
	return &Result{
		Fingerprint:      sim.Fingerprint(),
		Config:           sim.Config,
		Completed:        m.CompletedRequests,
		Rejected:         m.RejectedRequests,
		InQueue:          sim.Queue.Len(),
		BusyChannels:     sim.BusyChannels(),
		TotalArrivals:    m.TotalArrivals,
		WaitStats:        m.WaitStats,
		ServiceStats:     m.ServiceStats,
		QueueHistory:     m.QueueHistory,
		CompletedHistory: m.CompletedHistory,
		RejectedHistory:  m.RejectedHistory,
		WaitTimes:        m.WaitTimes,
	}
}

// Print writes a human-readable summary of the run.
func (r *Result) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Simulation Results ===")
	fmt.Fprintf(w, "Run                  : %s\n", r.Fingerprint)
	fmt.Fprintf(w, "Arrivals             : %d\n", r.TotalArrivals)
	fmt.Fprintf(w, "Completed Requests   : %d\n", r.Completed)
	fmt.Fprintf(w, "Rejected Requests    : %d\n", r.Rejected)
	fmt.Fprintf(w, "Left in Queue        : %d\n", r.InQueue)
	fmt.Fprintf(w, "Busy Channels        : %d\n", r.BusyChannels)
	if r.TotalArrivals > 0 {
		fmt.Fprintf(w, "Rejection Ratio      : %.4f\n", float64(r.Rejected)/float64(r.TotalArrivals))
	}
	r.printSummary(w, "Wait Time", r.WaitStats)
	r.printSummary(w, "Service Time", r.ServiceStats)
}

func (r *Result) printSummary(w io.Writer, title string, s *Summary) {
	if s == nil {
		return
	}
	fmt.Fprintf(w, "--- %s ---\n", title)
	fmt.Fprintf(w, "  Count   : %d\n", s.Count)
	fmt.Fprintf(w, "  Mean    : %.2f ticks (~%.2f s)\n", s.Mean, r.Config.TicksToSeconds(s.Mean))
	fmt.Fprintf(w, "  Std Dev : %.2f\n", s.StdDev())
	fmt.Fprintf(w, "  Min     : %.0f, Max: %.0f\n", s.Min, s.Max)
	fmt.Fprintf(w, "  P50/P90/P99 : %.0f / %.0f / %.0f\n", s.P50, s.P90, s.P99)
}

// resultSummary is the scalar part of a Result, without the per-tick series.
type resultSummary struct {
	Fingerprint   string    `yaml:"fingerprint"`
	Config        SimConfig `yaml:"config"`
	Completed     int       `yaml:"completed"`
	Rejected      int       `yaml:"rejected"`
	InQueue       int       `yaml:"in_queue"`
	BusyChannels  int       `yaml:"busy_channels"`
	TotalArrivals int       `yaml:"total_arrivals"`
	WaitStats     *Summary  `yaml:"wait_stats,omitempty"`
	ServiceStats  *Summary  `yaml:"service_stats,omitempty"`
}

// PrintYAML writes the scalar summary (no time series) as YAML.
func (r *Result) PrintYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(resultSummary{
		Fingerprint:   r.Fingerprint,
		Config:        r.Config,
		Completed:     r.Completed,
		Rejected:      r.Rejected,
		InQueue:       r.InQueue,
		BusyChannels:  r.BusyChannels,
		TotalArrivals: r.TotalArrivals,
		WaitStats:     r.WaitStats,
		ServiceStats:  r.ServiceStats,
	}); err != nil {
		return fmt.Errorf("encoding summary yaml: %w", err)
	}
	return enc.Close()
}

// SaveResults writes the full snapshot as indented JSON to path.
func (r *Result) SaveResults(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling results: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing results to %s: %w", path, err)
	}
	logrus.Debugf("Successfully wrote results to '%s'", path)
	return nil
}

// SaveHistory writes the per-tick series as CSV with a header row:
// tick,queue_length,completed,rejected.
func (r *Result) SaveHistory(path string) (err error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating history file %s: %w", path, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing history file %s: %w", path, closeErr)
		}
	}()

	buf := bufio.NewWriter(file)
	if err := r.WriteHistory(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("flushing history file %s: %w", path, err)
	}
	logrus.Debugf("Successfully wrote %d history rows to '%s'", len(r.QueueHistory), path)
	return nil
}

// WriteHistory writes the CSV history to w.
func (r *Result) WriteHistory(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"tick", "queue_length", "completed", "rejected"}); err != nil {
		return fmt.Errorf("writing history header: %w", err)
	}
	for i := range r.QueueHistory {
		row := []string{
			strconv.Itoa(i),
			strconv.Itoa(r.QueueHistory[i]),
			strconv.Itoa(r.CompletedHistory[i]),
			strconv.Itoa(r.RejectedHistory[i]),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing history row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
