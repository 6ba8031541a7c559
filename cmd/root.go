package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	sim "github.com/inference-sim/smo-sim/sim"
	"github.com/inference-sim/smo-sim/sim/trace"
)

// envPrefix namespaces environment overrides, e.g. SMOSIM_QUEUE_CAPACITY=10.
const envPrefix = "SMOSIM"

// Flag names double as viper keys.
const (
	flagTicks          = "ticks"
	flagRate           = "rate"
	flagServiceMin     = "service-min"
	flagServiceMax     = "service-max"
	flagQueueCapacity  = "queue-capacity"
	flagChannels       = "channels"
	flagTicksPerSecond = "ticks-per-second"
	flagSeed           = "seed"
	flagScenario       = "scenario"
	flagScenariosFile  = "scenarios-file"
	flagConfig         = "config"
	flagLog            = "log"
	flagResultsPath    = "results-path"
	flagHistoryPath    = "history-path"
	flagTraceLevel     = "trace-level"
	flagSummaryFormat  = "summary-format"
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "smo-sim",
	Short: "Discrete-time simulator for multi-channel queueing systems with losses",
}

// newRunCmd builds the `run` command with its flags.
func newRunCmd() *cobra.Command {
	def := sim.DefaultSimConfig()
	c := &cobra.Command{
		Use:   "run",
		Short: "Run the queueing simulation",
		Run: func(cmd *cobra.Command, args []string) {
			v, err := newViper(cmd)
			if err != nil {
				logrus.Fatalf("Failed to load configuration: %v", err)
			}
			level, err := logrus.ParseLevel(v.GetString(flagLog))
			if err != nil {
				logrus.Fatalf("Invalid log level: %s", v.GetString(flagLog))
			}
			logrus.SetLevel(level)

			if err := runSimulation(v); err != nil {
				logrus.Fatalf("%v", err)
			}
			logrus.Info("Simulation complete.")
		},
	}

	c.Flags().Int64(flagTicks, def.TotalTicks, "Total simulation length (in ticks)")
	c.Flags().Float64(flagRate, def.ArrivalRate, "Arrival rate λ (requests per second)")
	c.Flags().Int64(flagServiceMin, def.ServiceMin, "Minimum service time (in ticks)")
	c.Flags().Int64(flagServiceMax, def.ServiceMax, "Maximum service time (in ticks)")
	c.Flags().Int(flagQueueCapacity, def.QueueCapacity, "Number of waiting places in the queue")
	c.Flags().Int(flagChannels, def.NumChannels, "Number of parallel service channels")
	c.Flags().Int64(flagTicksPerSecond, def.TicksPerSecond, "Clock resolution (ticks per simulated second)")
	c.Flags().Int64(flagSeed, def.Seed, "Seed for arrival and service time sampling")

	c.Flags().String(flagScenario, "", "Named preset from the scenarios file (flags still override it)")
	c.Flags().String(flagScenariosFile, "scenarios.yaml", "Path to the scenario presets file")
	c.Flags().String(flagConfig, "", "Optional config file (yaml/json/toml) with flag-named keys")
	c.Flags().String(flagLog, "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	c.Flags().String(flagResultsPath, "", "Write the full result snapshot as JSON to this path")
	c.Flags().String(flagHistoryPath, "", "Write the per-tick history as CSV to this path")
	c.Flags().String(flagTraceLevel, string(trace.TraceLevelNone), "Decision trace level (none, decisions)")
	c.Flags().String(flagSummaryFormat, "text", "Summary output format (text, yaml)")
	return c
}

// newScenariosCmd lists the presets in the scenarios file.
func newScenariosCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "scenarios",
		Short: "List the scenario presets",
		Run: func(cmd *cobra.Command, args []string) {
			v, err := newViper(cmd)
			if err != nil {
				logrus.Fatalf("Failed to load configuration: %v", err)
			}
			if err := listScenarios(os.Stdout, v.GetString(flagScenariosFile)); err != nil {
				logrus.Fatalf("%v", err)
			}
		},
	}
	c.Flags().String(flagScenariosFile, "scenarios.yaml", "Path to the scenario presets file")
	return c
}

// listScenarios writes every preset in path, resolved over the defaults.
func listScenarios(w io.Writer, path string) error {
	sf, err := LoadScenarios(path)
	if err != nil {
		return err
	}
	for _, name := range sf.Names() {
		sc := sf.Scenarios[name]
		cfg := sc.Apply(sim.DefaultSimConfig())
		fmt.Fprintf(w, "%-16s %s\n", name, sc.Description)
		fmt.Fprintf(w, "%-16s ticks=%d rate=%.3f service=[%d,%d] capacity=%d channels=%d ticks/s=%d seed=%d\n", "",
			cfg.TotalTicks, cfg.ArrivalRate, cfg.ServiceMin, cfg.ServiceMax,
			cfg.QueueCapacity, cfg.NumChannels, cfg.TicksPerSecond, cfg.Seed)
	}
	return nil
}

// newViper binds cmd's flags, SMOSIM_* environment variables and the
// optional --config file into a fresh viper instance.
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString(flagConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		logrus.Infof("Using config file %s", v.ConfigFileUsed())
	}
	return v, nil
}

// resolveSimConfig builds the run configuration. Precedence, highest first:
// flag, environment, config file, scenario preset, built-in default.
func resolveSimConfig(v *viper.Viper) (sim.SimConfig, error) {
	cfg := sim.DefaultSimConfig()

	if name := v.GetString(flagScenario); name != "" {
		sf, err := LoadScenarios(v.GetString(flagScenariosFile))
		if err != nil {
			return cfg, err
		}
		sc, err := sf.Lookup(name)
		if err != nil {
			return cfg, err
		}
		logrus.Infof("Using preset scenario %v", name)
		cfg = sc.Apply(cfg)
	}

	if v.IsSet(flagTicks) {
		cfg.TotalTicks = v.GetInt64(flagTicks)
	}
	if v.IsSet(flagRate) {
		cfg.ArrivalRate = v.GetFloat64(flagRate)
	}
	if v.IsSet(flagServiceMin) {
		cfg.ServiceMin = v.GetInt64(flagServiceMin)
	}
	if v.IsSet(flagServiceMax) {
		cfg.ServiceMax = v.GetInt64(flagServiceMax)
	}
	if v.IsSet(flagQueueCapacity) {
		cfg.QueueCapacity = v.GetInt(flagQueueCapacity)
	}
	if v.IsSet(flagChannels) {
		cfg.NumChannels = v.GetInt(flagChannels)
	}
	if v.IsSet(flagTicksPerSecond) {
		cfg.TicksPerSecond = v.GetInt64(flagTicksPerSecond)
	}
	if v.IsSet(flagSeed) {
		cfg.Seed = v.GetInt64(flagSeed)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// runSimulation resolves the config, runs the simulator and writes the
// requested outputs.
func runSimulation(v *viper.Viper) error {
	cfg, err := resolveSimConfig(v)
	if err != nil {
		return err
	}
	traceLevel := v.GetString(flagTraceLevel)
	if !trace.IsValidTraceLevel(traceLevel) {
		return fmt.Errorf("unknown trace level %q; valid: none, decisions", traceLevel)
	}
	format := v.GetString(flagSummaryFormat)
	if format != "text" && format != "yaml" {
		return fmt.Errorf("unknown summary format %q; valid: text, yaml", format)
	}

	s, err := sim.NewSimulator(cfg, nil)
	if err != nil {
		return err
	}
	traceCfg := trace.TraceConfig{Level: trace.TraceLevel(traceLevel)}
	if traceCfg.Enabled() {
		s.Trace = trace.NewSimulationTrace(traceCfg)
	}

	startTime := time.Now()
	s.Run()
	logrus.Infof("Simulated %d ticks in %s", cfg.TotalTicks, time.Since(startTime))

	result := s.Result()
	if format == "yaml" {
		if err := result.PrintYAML(os.Stdout); err != nil {
			return err
		}
	} else {
		result.Print(os.Stdout)
	}
	if s.Trace != nil {
		printTraceSummary(os.Stdout, trace.Summarize(s.Trace), cfg.NumChannels)
	}

	if path := v.GetString(flagResultsPath); path != "" {
		if err := result.SaveResults(path); err != nil {
			return err
		}
		logrus.Infof("Results written to %s", path)
	}
	if path := v.GetString(flagHistoryPath); path != "" {
		if err := result.SaveHistory(path); err != nil {
			return err
		}
		logrus.Infof("History written to %s", path)
	}
	return nil
}

// printTraceSummary lists every channel, including ones that never dispatched.
func printTraceSummary(w io.Writer, ts *trace.TraceSummary, numChannels int) {
	fmt.Fprintln(w, "=== Decision Trace ===")
	fmt.Fprintf(w, "Admission decisions  : %d (admitted %d, rejected %d)\n", ts.TotalDecisions, ts.AdmittedCount, ts.RejectedCount)
	fmt.Fprintf(w, "Peak queue depth     : %d\n", ts.PeakQueueDepth)
	fmt.Fprintf(w, "Dispatches           : %d (mean wait %.2f, max wait %d ticks)\n", ts.DispatchCount, ts.MeanWait, ts.MaxWait)
	for ch := 0; ch < numChannels; ch++ {
		fmt.Fprintf(w, "  channel %-3d        : %d\n", ch, ts.ChannelDistribution[ch])
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init attaches the subcommands to root
func init() {
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newScenariosCmd())
}
