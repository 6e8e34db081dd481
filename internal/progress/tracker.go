// Package progress tracks work done against a total for one pipeline stage
// and projects the remaining time from the speed observed so far.
package progress

import (
	"fmt"
	"sync"
	"time"
)

// Unknown is reported as the ETA while no work has been recorded.
const Unknown = "unknown"

// Stage identifies which phase of the job is reporting progress.
type Stage string

const (
	StageSynthesis Stage = "synthesis"
	StageConcat    Stage = "concat"
	StageMux       Stage = "mux"
)

// String returns the stage tag.
func (s Stage) String() string { return string(s) }

// Snapshot is an immutable view of a tracker, handed to observers.
type Snapshot struct {
	Stage     Stage
	Processed int64
	Total     int64
	Percent   int
	ETA       string
	Elapsed   time.Duration
}

// Observer receives a snapshot after every update.
type Observer func(Snapshot)

// Tracker accumulates processed units for a single stage. Each stage gets
// its own tracker so the ETA is projected from that stage's own start time.
type Tracker struct {
	mu        sync.Mutex
	stage     Stage
	total     int64
	processed int64
	start     time.Time
	observer  Observer

	// now is swapped in tests.
	now func() time.Time
}

// New creates a tracker for stage with the given total. The stage clock
// starts immediately.
func New(stage Stage, total int64, observer Observer) *Tracker {
	if total < 0 {
		total = 0
	}
	t := &Tracker{
		stage:    stage,
		total:    total,
		observer: observer,
		now:      time.Now,
	}
	t.start = t.now()
	return t
}

// Record adds delta processed units. Negative deltas are ignored and the
// processed count is clamped to the total.
func (t *Tracker) Record(delta int64) Snapshot {
	t.mu.Lock()
	t.addLocked(delta)
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.notify(snap)
	return snap
}

// Advance moves the processed count forward to done. It never moves it
// backwards, so out-of-order reports are harmless.
func (t *Tracker) Advance(done int64) Snapshot {
	t.mu.Lock()
	t.addLocked(done - t.processed)
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.notify(snap)
	return snap
}

func (t *Tracker) addLocked(delta int64) {
	if delta <= 0 {
		return
	}
	t.processed = min(t.processed+delta, t.total)
}

func (t *Tracker) notify(snap Snapshot) {
	if t.observer != nil {
		t.observer(snap)
	}
}

// Percent returns floor(processed*100/total), or 0 when the total is zero.
func (t *Tracker) Percent() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return percent(t.processed, t.total)
}

// ETA returns the formatted projection of the remaining time, or Unknown.
func (t *Tracker) ETA() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked().ETA
}

// Snapshot returns the current state without notifying the observer.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Snapshot {
	elapsed := t.now().Sub(t.start)
	pct := percent(t.processed, t.total)
	return Snapshot{
		Stage:     t.stage,
		Processed: t.processed,
		Total:     t.total,
		Percent:   pct,
		ETA:       eta(elapsed, pct),
		Elapsed:   elapsed,
	}
}

func percent(processed, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(processed * 100 / total)
}

// eta projects elapsed * (100/percent - 1).
func eta(elapsed time.Duration, pct int) string {
	if pct <= 0 {
		return Unknown
	}
	remaining := time.Duration(float64(elapsed) * (100/float64(pct) - 1))
	return FormatDuration(remaining)
}

// FormatDuration renders d as "00d 00h 00m 00s".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	days := secs / 86400
	secs -= days * 86400
	hours := secs / 3600
	secs -= hours * 3600
	mins := secs / 60
	secs -= mins * 60
	return fmt.Sprintf("%02dd %02dh %02dm %02ds", days, hours, mins, secs)
}
