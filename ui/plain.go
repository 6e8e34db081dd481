package ui

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/cpttripzz/Chatterblez/internal/pipeline"
	"github.com/cpttripzz/Chatterblez/internal/progress"
)

// Reporter writes pipeline events as log lines. Progress is throttled
// per stage; the first and the final update of a stage always go out.
type Reporter struct {
	logger   *log.Logger
	interval time.Duration

	mu       sync.Mutex
	stage    progress.Stage
	throttle *rate.Sometimes
	last     int
	names    map[int]string
}

// NewReporter reports to logger at most once per interval for progress.
func NewReporter(logger *log.Logger, interval time.Duration, chapters []ChapterInfo) *Reporter {
	if interval <= 0 {
		interval = time.Second
	}
	names := make(map[int]string, len(chapters))
	for _, c := range chapters {
		names[c.Index] = c.Name
	}
	return &Reporter{logger: logger, interval: interval, names: names, last: -1}
}

// Observe implements pipeline.Observer.
func (r *Reporter) Observe(e pipeline.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch e := e.(type) {
	case pipeline.JobStarted:
		r.logger.Info("Job started", "run", e.RunID)
	case pipeline.Progress:
		if e.Stage != r.stage || r.throttle == nil {
			r.stage = e.Stage
			r.throttle = &rate.Sometimes{First: 1, Interval: r.interval}
			r.last = -1
		}
		if e.Percent == r.last {
			return
		}
		report := func() {
			r.last = e.Percent
			r.logger.Info(stageLabel(e.Stage), "percent", e.Percent, "eta", e.ETA)
		}
		if e.Percent >= 100 {
			report()
			return
		}
		r.throttle.Do(report)
	case pipeline.ChapterStarted:
		r.logger.Info("Chapter started", "index", e.Index, "name", r.names[e.Index])
	case pipeline.ChapterFinished:
		r.logger.Info("Chapter finished", "index", e.Index, "name", r.names[e.Index])
	case pipeline.JobFinished:
		r.logger.Info("Audiobook written", "path", e.Output)
	case pipeline.JobError:
		r.logger.Error("Job failed", "err", e.Message)
	}
}
