package metrics

import (
	"sort"
	"sync"
	"time"
)

// Collector aggregates anonymous telemetry counters for resolution passes.
type Collector struct {
	mu      sync.RWMutex
	enabled bool
	started time.Time
	kinds   map[string]*PassMetrics
}

// PassMetrics captures per-interaction-kind counters tracked by the collector.
type PassMetrics struct {
	Kind          string        `json:"kind"`
	Passes        uint64        `json:"passes"`
	Resolved      uint64        `json:"resolved"`
	Failed        uint64        `json:"failed"`
	TotalDuration time.Duration `json:"totalDuration"`
	LastResolved  time.Time     `json:"lastResolved,omitempty"`
	LastFailed    time.Time     `json:"lastFailed,omitempty"`
}

// Totals aggregates counters across all interaction kinds in a snapshot.
type Totals struct {
	Passes   uint64 `json:"passes"`
	Resolved uint64 `json:"resolved"`
	Failed   uint64 `json:"failed"`
}

// Snapshot is the serializable view of the current metrics state.
type Snapshot struct {
	Enabled bool          `json:"enabled"`
	Started time.Time     `json:"started,omitempty"`
	Totals  Totals        `json:"totals"`
	Kinds   []PassMetrics `json:"kinds,omitempty"`
}

// NewCollector returns a collector with the provided opt-in state.
func NewCollector(enabled bool) *Collector {
	c := &Collector{}
	c.SetEnabled(enabled)
	return c
}

// Enabled reports whether telemetry collection is currently active.
func (c *Collector) Enabled() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// SetEnabled toggles telemetry collection, resetting counters when enabling.
func (c *Collector) SetEnabled(enabled bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enabled == enabled {
		return
	}
	c.enabled = enabled
	if !enabled {
		c.kinds = nil
		c.started = time.Time{}
		return
	}
	c.started = time.Now()
	c.kinds = make(map[string]*PassMetrics)
}

// RecordResolved counts a successful resolution pass.
func (c *Collector) RecordResolved(kind string, duration time.Duration) {
	c.updateKind(kind, func(metrics *PassMetrics, now time.Time) {
		metrics.Passes++
		metrics.Resolved++
		metrics.TotalDuration += duration
		metrics.LastResolved = now
	})
}

// RecordFailed counts a resolution pass that produced no arrangement.
func (c *Collector) RecordFailed(kind string, duration time.Duration) {
	c.updateKind(kind, func(metrics *PassMetrics, now time.Time) {
		metrics.Passes++
		metrics.Failed++
		metrics.TotalDuration += duration
		metrics.LastFailed = now
	})
}

func (c *Collector) updateKind(kind string, mutate func(*PassMetrics, time.Time)) {
	if c == nil || mutate == nil {
		return
	}
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	if c.kinds == nil {
		c.kinds = make(map[string]*PassMetrics)
	}
	metrics, exists := c.kinds[kind]
	if !exists {
		metrics = &PassMetrics{Kind: kind}
		c.kinds[kind] = metrics
	}
	mutate(metrics, now)
}

// Snapshot returns the current counters for serialization or display.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := Snapshot{Enabled: c.enabled}
	if !c.enabled {
		return snap
	}
	snap.Started = c.started
	if len(c.kinds) == 0 {
		return snap
	}
	snap.Kinds = make([]PassMetrics, 0, len(c.kinds))
	for _, metrics := range c.kinds {
		if metrics == nil {
			continue
		}
		clone := *metrics
		snap.Kinds = append(snap.Kinds, clone)
		snap.Totals.Passes += clone.Passes
		snap.Totals.Resolved += clone.Resolved
		snap.Totals.Failed += clone.Failed
	}
	sort.Slice(snap.Kinds, func(i, j int) bool {
		return snap.Kinds[i].Kind < snap.Kinds[j].Kind
	})
	return snap
}
