package pipeline

import "github.com/cpttripzz/Chatterblez/internal/progress"

// Event is one notification from a running job. The set of events is
// closed: only the types in this file implement it.
type Event interface {
	event()
}

// JobStarted is the first event of every run.
type JobStarted struct {
	RunID string
}

// Progress reports the active stage.
type Progress struct {
	Stage   progress.Stage
	Percent int
	ETA     string
}

// ChapterStarted is sent before a chapter is synthesized.
type ChapterStarted struct {
	Index int
}

// ChapterFinished is sent after a chapter file is written or found on disk.
type ChapterFinished struct {
	Index int
}

// JobFinished is the last event of a successful run.
type JobFinished struct {
	Output string
}

// JobError is the last event of a failed run.
type JobError struct {
	Message string
	Err     error
}

func (JobStarted) event()      {}
func (Progress) event()        {}
func (ChapterStarted) event()  {}
func (ChapterFinished) event() {}
func (JobFinished) event()     {}
func (JobError) event()        {}

// Observer receives events on the job goroutine. It must not block for
// long.
type Observer func(Event)

func progressEvents(emit Observer) progress.Observer {
	return func(s progress.Snapshot) {
		emit(Progress{Stage: s.Stage, Percent: s.Percent, ETA: s.ETA})
	}
}
