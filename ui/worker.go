package ui

import "github.com/sirupsen/logrus"

// robotWorker runs device I/O off the event-handling path. Jobs are
// serialized through a single-slot queue: a second submission while one is
// running is refused instead of queued, which keeps the one-command-at-a-
// time invariant visible to the operator.
type robotWorker struct {
	jobs chan func()
	done chan struct{}
	log  *logrus.Logger
}

func newRobotWorker(log *logrus.Logger) *robotWorker {
	if log == nil {
		log = logrus.StandardLogger()
	}
	// unbuffered: a submit succeeds only while the worker is idle
	w := &robotWorker{
		jobs: make(chan func()),
		done: make(chan struct{}),
		log:  log,
	}
	go w.run()
	return w
}

func (w *robotWorker) run() {
	for {
		select {
		case <-w.done:
			return
		case job := <-w.jobs:
			job()
		}
	}
}

// trySubmit hands a job to the worker. It returns false when a job is
// already running or the worker has stopped.
func (w *robotWorker) trySubmit(job func()) bool {
	select {
	case w.jobs <- job:
		return true
	default:
		w.log.Warn("robot busy, command refused")
		return false
	}
}

// stop shuts the worker down. The jobs channel stays open so a submission
// racing shutdown is refused rather than panicking on a closed channel.
func (w *robotWorker) stop() {
	close(w.done)
}
