// Package monitoring forwards planning failures and worker panics to an
// error tracker. The default monitor discards everything.
package monitoring

import (
	"sync"
	"time"

	"github.com/kilianp07/frlm/core/model"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	CapturePanic(v any)
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) CapturePanic(any)                         {}
func (NopMonitor) Flush(time.Duration)                       {}

var (
	mu      sync.RWMutex
	current Monitor = NopMonitor{}
)

// Init sets the global monitor. A nil monitor restores the no-op one.
func Init(m Monitor) {
	mu.Lock()
	defer mu.Unlock()
	if m == nil {
		m = NopMonitor{}
	}
	current = m
}

func get() Monitor {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	get().CaptureException(err, tags)
}

// Recover reports a panic of the calling goroutine, then re-panics. It must
// be deferred.
func Recover() {
	if r := recover(); r != nil {
		ReportPanic(r)
		panic(r)
	}
}

// ReportPanic sends a recovered panic value and waits for it to be delivered.
func ReportPanic(v any) {
	m := get()
	m.CapturePanic(v)
	m.Flush(2 * time.Second)
}

// Flush waits for buffered reports to be sent.
func Flush(d time.Duration) { get().Flush(d) }

// ScenarioTags returns the tags attached to the report of a failed scenario.
func ScenarioTags(runID string, p model.Params) map[string]string {
	tags := map[string]string{"scenario": p.String()}
	if runID != "" {
		tags["run_id"] = runID
	}
	return tags
}
