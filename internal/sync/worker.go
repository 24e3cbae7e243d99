package sync

import (
	"context"
	"sync"
	"time"
)

// State is the lifecycle phase of a worker.
type State string

// Worker states. A worker moves strictly forward through them; a Stopped worker
// is removed from the scheduler.
const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateStopped  State = "stopped"
)

// WorkerInfo describes one worker for operators.
type WorkerInfo struct {
	Token       string    `json:"token"`
	State       State     `json:"state"`
	Syncing     bool      `json:"syncing"`
	Started     time.Time `json:"started"`
	LastRun     time.Time `json:"last_run,omitzero"`
	LastOutcome string    `json:"last_outcome,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	Iterations  int       `json:"iterations"`
}

type worker struct {
	token  string
	cancel context.CancelFunc
	done   chan struct{}

	mu          sync.Mutex
	state       State
	syncing     bool
	started     time.Time
	lastRun     time.Time
	lastOutcome Outcome
	lastErr     error
	iterations  int
}

func newWorker(tok string, cancel context.CancelFunc, now time.Time) *worker {
	return &worker{
		token:   tok,
		cancel:  cancel,
		done:    make(chan struct{}),
		state:   StateIdle,
		started: now,
	}
}

// setState moves the worker forward. Transitions backwards are ignored.
func (w *worker) setState(s State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if stateRank(s) > stateRank(w.state) {
		w.state = s
	}
}

func stateRank(s State) int {
	switch s {
	case StateRunning:
		return 1
	case StateStopping:
		return 2
	case StateStopped:
		return 3
	default:
		return 0
	}
}

func (w *worker) stop() {
	w.setState(StateStopping)
	w.cancel()
}

func (w *worker) beginIteration() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.syncing = true
}

func (w *worker) endIteration(now time.Time, outcome Outcome, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.syncing = false
	w.lastRun = now
	w.lastOutcome = outcome
	w.lastErr = err
	w.iterations++
}

func (w *worker) info() WorkerInfo {
	w.mu.Lock()
	defer w.mu.Unlock()

	info := WorkerInfo{
		Token:      w.token,
		State:      w.state,
		Syncing:    w.syncing,
		Started:    w.started,
		LastRun:    w.lastRun,
		Iterations: w.iterations,
	}
	if w.iterations > 0 {
		info.LastOutcome = w.lastOutcome.String()
	}
	if w.lastErr != nil {
		info.LastError = w.lastErr.Error()
	}
	return info
}
