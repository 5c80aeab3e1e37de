package build

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/conneroisu/bundlekit/internal/bundler"
)

// State is the lifecycle state of a compile task.
type State int

const (
	StateIdle State = iota
	StateCleaning
	StateCompiling
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCleaning:
		return "cleaning"
	case StateCompiling:
		return "compiling"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends a one-shot task.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// ErrNoMoreOutcomes is returned by Wait once a task's outcome stream has
// closed.
var ErrNoMoreOutcomes = errors.New("task has no more outcomes")

// outcomeBuffer bounds queued watch-mode outcomes nobody has read yet.
const outcomeBuffer = 16

// Outcome is the classified result of one compilation.
type Outcome struct {
	TaskID string
	// Sequence counts compilations within the task, starting at 1.
	Sequence       int
	State          State
	Stats          *bundler.Stats
	Err            error
	Classification Classification
	Duration       time.Duration
	FinishedAt     time.Time
}

// Task tracks one compile or watch invocation.
type Task struct {
	ID    string
	Watch bool

	mutex    sync.RWMutex
	state    State
	handle   *Handle
	outcomes chan Outcome
	seq      int
}

func newTask(watch bool) *Task {
	return &Task{
		ID:       uuid.NewString(),
		Watch:    watch,
		state:    StateIdle,
		outcomes: make(chan Outcome, outcomeBuffer),
	}
}

// State returns the current state. A watch task stays in StateCompiling
// after its first compilation; per-compilation results are in the
// outcomes.
func (t *Task) State() State {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.state
}

// Handle returns the compiler handle once created.
func (t *Task) Handle() *Handle {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.handle
}

// Outcomes delivers one outcome per compilation. It is closed after the
// single outcome of a one-shot task, or when a watch task's context ends.
func (t *Task) Outcomes() <-chan Outcome {
	return t.outcomes
}

// Wait returns the next outcome.
func (t *Task) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	case o, ok := <-t.outcomes:
		if !ok {
			return Outcome{}, ErrNoMoreOutcomes
		}
		return o, nil
	}
}

func (t *Task) setState(s State) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.state = s
}

func (t *Task) setHandle(h *Handle) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.handle = h
}

func (t *Task) nextSequence() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.seq++
	return t.seq
}

// publish queues o, dropping it when a watch consumer has fallen behind.
func (t *Task) publish(o Outcome) bool {
	select {
	case t.outcomes <- o:
		return true
	default:
		return false
	}
}

// fail ends a task that never reached compilation.
func (t *Task) fail() {
	t.setState(StateFailed)
	close(t.outcomes)
}
