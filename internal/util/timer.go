package util

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Timer measures a request and the stages inside it.
type Timer struct {
	start  time.Time
	last   time.Time
	stages []stage
}

type stage struct {
	name    string
	elapsed time.Duration
}

// StartTimer creates a new timer starting at current time.
func StartTimer() *Timer {
	now := time.Now()
	return &Timer{start: now, last: now}
}

// Mark closes the current stage under name and starts the next one.
func (t *Timer) Mark(name string) {
	if t == nil || t.start.IsZero() {
		return
	}
	now := time.Now()
	t.stages = append(t.stages, stage{name: name, elapsed: now.Sub(t.last)})
	t.last = now
}

// Elapsed returns the time since start.
func (t *Timer) Elapsed() time.Duration {
	if t == nil || t.start.IsZero() {
		return 0
	}
	return time.Since(t.start)
}

// ElapsedMs returns the elapsed milliseconds since start.
func (t *Timer) ElapsedMs() int64 {
	return t.Elapsed().Milliseconds()
}

// Fields renders the marked stages as "<name>_ms" log fields plus the total.
func (t *Timer) Fields() logrus.Fields {
	fields := logrus.Fields{"elapsed_ms": t.ElapsedMs()}
	if t == nil {
		return fields
	}
	for _, s := range t.stages {
		fields[s.name+"_ms"] = s.elapsed.Milliseconds()
	}
	return fields
}
