package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gridpal/gridpal/internal/engine"
	"github.com/gridpal/gridpal/internal/ipc"
	"github.com/gridpal/gridpal/internal/layout"
	"github.com/gridpal/gridpal/internal/metrics"
	"github.com/gridpal/gridpal/internal/state"
	"github.com/gridpal/gridpal/internal/util"

	"github.com/charmbracelet/log"
)

type benchFixture struct {
	Name     string
	Geometry engine.Geometry
	Panels   []benchPanel
	Events   []ipc.Event
}

type benchPanel struct {
	Name   string
	Sticky bool
	Rect   layout.Rect
}

type benchLatencyStats struct {
	Min    float64 `json:"minMs"`
	Mean   float64 `json:"meanMs"`
	Median float64 `json:"medianMs"`
	P95    float64 `json:"p95Ms"`
	Max    float64 `json:"maxMs"`
}

type benchAllocationStats struct {
	Total         uint64  `json:"totalAllocations"`
	PerEvent      float64 `json:"allocationsPerEvent"`
	BytesTotal    uint64  `json:"bytesTotal"`
	BytesPerEvent float64 `json:"bytesPerEvent"`
}

type benchSummary struct {
	Fixture            string               `json:"fixture"`
	Iterations         int                  `json:"iterations"`
	EventsPerIteration int                  `json:"eventsPerIteration"`
	TotalEvents        int                  `json:"totalEvents"`
	WarmupIterations   int                  `json:"warmupIterations"`
	ResolvedPasses     uint64               `json:"resolvedPasses"`
	FailedPasses       uint64               `json:"failedPasses"`
	Latency            benchLatencyStats    `json:"latency"`
	Allocations        benchAllocationStats `json:"allocations"`
	TotalDurationMs    float64              `json:"totalDurationMs"`
	EventsPerSecond    float64              `json:"eventsPerSecond"`
}

type benchReport struct {
	Summary     benchSummary `json:"summary"`
	DurationsMs []float64    `json:"durationsMs"`
}

func main() {
	fixturePath := flag.String("fixture", "", "path to pointer event log (kind>>payload lines)")
	iterations := flag.Int("iterations", 10, "number of times to replay the event stream")
	warmup := flag.Int("warmup", 0, "number of warm-up iterations to run before timing")
	seed := flag.Int64("seed", 1, "seed for the synthetic drag stream")
	eventCount := flag.Int("events", 200, "synthetic stream length when no fixture is given")
	cpuProfile := flag.String("cpu-profile", "", "write CPU profile to file")
	memProfile := flag.String("mem-profile", "", "write heap profile to file")
	logLevel := flag.String("log-level", "warn", "log level (debug|info|warn|error)")
	outputPath := flag.String("output", "-", "write JSON report to file ('-' for stdout)")
	humanSummary := flag.Bool("human", false, "print a tabular summary alongside the JSON output")
	flag.Parse()

	if *iterations <= 0 {
		fmt.Fprintln(os.Stderr, "iterations must be positive")
		os.Exit(1)
	}
	if *warmup < 0 {
		fmt.Fprintln(os.Stderr, "warmup must be zero or positive")
		os.Exit(1)
	}

	logger := util.NewLogger(util.ParseLogLevel(*logLevel))

	fixture := syntheticFixture(*seed, *eventCount)
	if *fixturePath != "" {
		loaded, err := loadFixture(*fixturePath)
		if err != nil {
			exitErr(fmt.Errorf("load fixture: %w", err))
		}
		fixture = loaded
	}
	if len(fixture.Events) == 0 {
		exitErr(errors.New("fixture contains no events"))
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			exitErr(fmt.Errorf("create cpu profile: %w", err))
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			exitErr(fmt.Errorf("start cpu profile: %w", err))
		}
		defer pprof.StopCPUProfile()
	}

	for i := 0; i < *warmup; i++ {
		if _, _, err := replayIteration(fixture, logger, false); err != nil {
			exitErr(fmt.Errorf("warmup iteration %d: %w", i+1, err))
		}
	}

	runtime.GC()
	var startMem runtime.MemStats
	runtime.ReadMemStats(&startMem)

	durations := make([]time.Duration, 0, len(fixture.Events)*(*iterations))
	var resolved, failed uint64
	for i := 0; i < *iterations; i++ {
		eventDurations, snapshot, err := replayIteration(fixture, logger, true)
		if err != nil {
			exitErr(fmt.Errorf("iteration %d: %w", i+1, err))
		}
		durations = append(durations, eventDurations...)
		resolved += snapshot.Totals.Resolved
		failed += snapshot.Totals.Failed
	}

	runtime.GC()
	var endMem runtime.MemStats
	runtime.ReadMemStats(&endMem)

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			exitErr(fmt.Errorf("create mem profile: %w", err))
		}
		defer f.Close()
		if err := pprof.WriteHeapProfile(f); err != nil {
			exitErr(fmt.Errorf("write heap profile: %w", err))
		}
	}

	report := buildReport(fixture, *iterations, *warmup, durations, resolved, failed, startMem, endMem)
	if err := writeReport(report, *outputPath); err != nil {
		exitErr(fmt.Errorf("encode report: %w", err))
	}
	if *humanSummary {
		if err := printHumanSummary(report.Summary, os.Stdout); err != nil {
			exitErr(fmt.Errorf("print human summary: %w", err))
		}
	}
}

func replayIteration(fixture benchFixture, logger *log.Logger, capture bool) ([]time.Duration, metrics.Snapshot, error) {
	registry := state.NewRegistry()
	for _, panel := range fixture.Panels {
		if _, err := registry.Register(panel.Name, panel.Sticky, panel.Rect); err != nil {
			return nil, metrics.Snapshot{}, fmt.Errorf("register %q: %w", panel.Name, err)
		}
	}
	collector := metrics.NewCollector(true)
	eng := engine.New(logger, registry, collector, fixture.Geometry)
	if err := eng.Reconcile(); err != nil {
		return nil, metrics.Snapshot{}, fmt.Errorf("initial reconcile: %w", err)
	}

	var eventDurations []time.Duration
	if capture {
		eventDurations = make([]time.Duration, 0, len(fixture.Events))
	}
	for _, ev := range fixture.Events {
		start := time.Now()
		eng.ApplyEvent(ev)
		if capture {
			eventDurations = append(eventDurations, time.Since(start))
		}
	}
	return eventDurations, eng.Metrics(), nil
}

func buildReport(fixture benchFixture, iterations, warmup int, durations []time.Duration, resolved, failed uint64, start, end runtime.MemStats) benchReport {
	totalEvents := len(fixture.Events) * iterations
	latencyStats, totalDuration := buildLatencyStats(durations)

	allocs := end.Mallocs - start.Mallocs
	bytesAllocated := end.TotalAlloc - start.TotalAlloc
	perEvent := func(total uint64) float64 {
		if totalEvents == 0 {
			return float64(total)
		}
		return float64(total) / float64(totalEvents)
	}

	durationsMs := make([]float64, len(durations))
	for i, d := range durations {
		durationsMs[i] = toMillis(d)
	}

	summary := benchSummary{
		Fixture:            fixture.Name,
		Iterations:         iterations,
		WarmupIterations:   warmup,
		EventsPerIteration: len(fixture.Events),
		TotalEvents:        totalEvents,
		ResolvedPasses:     resolved,
		FailedPasses:       failed,
		Latency:            latencyStats,
		Allocations: benchAllocationStats{
			Total:         allocs,
			PerEvent:      perEvent(allocs),
			BytesTotal:    bytesAllocated,
			BytesPerEvent: perEvent(bytesAllocated),
		},
		TotalDurationMs: toMillis(totalDuration),
		EventsPerSecond: eventsPerSecond(totalDuration, totalEvents),
	}
	return benchReport{Summary: summary, DurationsMs: durationsMs}
}

func buildLatencyStats(durations []time.Duration) (benchLatencyStats, time.Duration) {
	stats := benchLatencyStats{}
	if len(durations) == 0 {
		return stats, 0
	}
	total := time.Duration(0)
	for _, d := range durations {
		total += d
	}
	sorted := append([]time.Duration(nil), durations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	stats.Min = toMillis(sorted[0])
	stats.Mean = toMillis(total / time.Duration(len(durations)))
	stats.Median = toMillis(percentile(sorted, 0.50))
	stats.P95 = toMillis(percentile(sorted, 0.95))
	stats.Max = toMillis(sorted[len(sorted)-1])
	return stats, total
}

func writeReport(report benchReport, outputPath string) error {
	var (
		w   io.Writer
		out *os.File
		err error
	)
	switch strings.TrimSpace(outputPath) {
	case "", "-":
		w = os.Stdout
	default:
		dir := filepath.Dir(outputPath)
		if dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create report dir: %w", err)
			}
		}
		out, err = os.Create(outputPath)
		if err != nil {
			return err
		}
		defer out.Close()
		w = out
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func printHumanSummary(summary benchSummary, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Fixture:\t%s\n", summary.Fixture)
	fmt.Fprintf(tw, "Iterations:\t%d\n", summary.Iterations)
	fmt.Fprintf(tw, "Warmup iterations:\t%d\n", summary.WarmupIterations)
	fmt.Fprintf(tw, "Events/iteration:\t%d\n", summary.EventsPerIteration)
	fmt.Fprintf(tw, "Total events:\t%d\n", summary.TotalEvents)
	fmt.Fprintf(tw, "Passes:\t%d resolved, %d failed\n", summary.ResolvedPasses, summary.FailedPasses)
	latency := summary.Latency
	fmt.Fprintf(tw, "Latency (ms):\tmin %.3f | mean %.3f | median %.3f | p95 %.3f | max %.3f\n",
		latency.Min, latency.Mean, latency.Median, latency.P95, latency.Max)
	allocs := summary.Allocations
	fmt.Fprintf(tw, "Allocations:\t%d total (%.2f / event)\n", allocs.Total, allocs.PerEvent)
	fmt.Fprintf(tw, "Bytes allocated:\t%d (%.2f / event)\n", allocs.BytesTotal, allocs.BytesPerEvent)
	fmt.Fprintf(tw, "Events/sec:\t%.2f\n", summary.EventsPerSecond)
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}

// loadFixture reads a pointer event log in the same line format the daemon
// consumes from its socket, one event per line, # for comments.
func loadFixture(path string) (benchFixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return benchFixture{}, err
	}
	fixture := syntheticFixture(1, 0)
	fixture.Name = filepath.Base(path)
	fixture.Events = nil
	for idx, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		ev, err := ipc.ParseEvent(trimmed)
		if err != nil {
			return benchFixture{}, fmt.Errorf("line %d: %w", idx+1, err)
		}
		fixture.Events = append(fixture.Events, ev)
	}
	if len(fixture.Events) == 0 {
		return benchFixture{}, errors.New("event log produced no events")
	}
	return fixture, nil
}

// syntheticFixture builds a contended dashboard and a random drag stream:
// repeated down/delta/up sequences moving or resizing a random movable panel.
func syntheticFixture(seed int64, events int) benchFixture {
	fixture := benchFixture{
		Name: "synthetic-dashboard",
		Geometry: engine.Geometry{
			Columns:    12,
			Rows:       8,
			CellWidth:  96,
			CellHeight: 96,
		},
		Panels: []benchPanel{
			{Name: "toolbar", Sticky: true, Rect: layout.Rect{Left: 0, Top: 0, Width: 12, Height: 1}},
			{Name: "chart", Rect: layout.Rect{Left: 0, Top: 1, Width: 6, Height: 4}},
			{Name: "feed", Rect: layout.Rect{Left: 6, Top: 1, Width: 6, Height: 4}},
			{Name: "orders", Rect: layout.Rect{Left: 0, Top: 5, Width: 4, Height: 3}},
			{Name: "depth", Rect: layout.Rect{Left: 4, Top: 5, Width: 4, Height: 3}},
			{Name: "alerts", Rect: layout.Rect{Left: 8, Top: 5, Width: 4, Height: 3}},
		},
	}
	movable := []string{"chart", "feed", "orders", "depth", "alerts"}
	rng := rand.New(rand.NewSource(seed))
	for len(fixture.Events) < events {
		target := movable[rng.Intn(len(movable))]
		mode := ipc.ModeMove
		if rng.Intn(3) == 0 {
			mode = ipc.ModeResize
		}
		fixture.Events = append(fixture.Events, ipc.Event{Kind: ipc.EventDown, Target: target, Mode: mode})
		steps := 1 + rng.Intn(5)
		for s := 0; s < steps && len(fixture.Events) < events; s++ {
			fixture.Events = append(fixture.Events, ipc.Event{
				Kind: ipc.EventDelta,
				DX:   float64(rng.Intn(500) - 250),
				DY:   float64(rng.Intn(400) - 200),
			})
		}
		fixture.Events = append(fixture.Events, ipc.Event{Kind: ipc.EventUp})
	}
	return fixture
}

func eventsPerSecond(total time.Duration, events int) float64 {
	if total <= 0 || events == 0 {
		return 0
	}
	return float64(events) / total.Seconds()
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(p*float64(len(sorted)-1) + 0.5)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
