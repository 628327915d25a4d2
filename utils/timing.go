package utils

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Verbose controls whether progress and timing statistics are printed.
// Set to false to suppress output.
var Verbose = true

// Output is the writer where progress and timing statistics are printed.
// Defaults to os.Stdout.
var Output io.Writer = os.Stdout

// Printf writes to Output when Verbose is set.
func Printf(format string, args ...interface{}) {
	if !Verbose {
		return
	}
	fmt.Fprintf(Output, format, args...)
}

// TimingStats holds timing information for different operations
type TimingStats struct {
	TotalTime       time.Duration
	DataLoadingTime time.Duration
	ModelInitTime   time.Duration
	TrainingTime    time.Duration
	EvaluationTime  time.Duration
	SaveTime        time.Duration
	HEInitTime      time.Duration
	EncryptionTime  time.Duration
	ServerTime      time.Duration
	DecryptionTime  time.Duration
}

// Track runs f and adds its duration to *d.
func Track(d *time.Duration, f func() error) error {
	start := time.Now()
	err := f()
	*d += time.Since(start)
	return err
}

func percent(part, total time.Duration) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// PrintTimingStats prints detailed timing statistics. steps is the number of
// training steps; averages are skipped when it is zero.
// Respects the Verbose flag - does nothing if Verbose is false.
func PrintTimingStats(stats *TimingStats, steps int) {
	if !Verbose {
		return
	}
	fmt.Fprintln(Output, "\n=== TIMING STATISTICS ===")
	fmt.Fprintf(Output, "Total time: %v\n", stats.TotalTime)
	if steps > 0 {
		fmt.Fprintf(Output, "Average time per step: %.1fµs\n", DurationUS(stats.TrainingTime)/float64(steps))
		fmt.Fprintf(Output, "Steps completed: %d\n", steps)
	}
	fmt.Fprintln(Output, "\nBreakdown by operation:")
	rows := []struct {
		name string
		d    time.Duration
	}{
		{"Data loading", stats.DataLoadingTime},
		{"Model initialization", stats.ModelInitTime},
		{"Training", stats.TrainingTime},
		{"Evaluation", stats.EvaluationTime},
		{"Saving", stats.SaveTime},
		{"HE initialization", stats.HEInitTime},
		{"Encryption", stats.EncryptionTime},
		{"Server linear", stats.ServerTime},
		{"Decryption", stats.DecryptionTime},
	}
	for _, r := range rows {
		if r.d == 0 {
			continue
		}
		fmt.Fprintf(Output, "  %s: %v (%.1f%%)\n", r.name, r.d, percent(r.d, stats.TotalTime))
	}
}

// DurationUS converts any time.Duration to micro-seconds as float64
func DurationUS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000.0
}
