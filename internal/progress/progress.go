// Package progress implements the task stack and cooperative-cancellation
// latch shared by the solvers (internal/solve), the detector
// (internal/detect) and the render pipeline (internal/render), matching
// progress-info.h/.C (C13): a named task with a step counter, a push/pop
// stack for nested tasks, and a mutex-guarded cancel flag workers poll.
package progress

import "sync"

// Status is one level of the task stack as reported to a caller.
type Status struct {
	Task     string
	Progress float32 // percent, 0..100; 0 if the task has no known max
}

type frame struct {
	task           string
	max, current   uint64
}

// Info tracks one active task (name + step counter) plus any suspended
// parent tasks pushed via Push, and a cancel latch workers poll between
// steps. The zero value is ready to use.
type Info struct {
	mu      sync.Mutex
	task    string
	max     uint64
	current uint64

	cancel    bool
	cancelled bool

	stack []frame
}

// New returns a ready-to-use Info.
func New() *Info { return &Info{} }

// SetTask starts a new named task with a total step count of max (0 if
// unknown), resetting the step counter.
func (p *Info) SetTask(name string, max uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.task = name
	p.max = max
	p.current = 0
}

// IncProgress advances the current task's step counter by one.
func (p *Info) IncProgress() {
	p.mu.Lock()
	p.current++
	p.mu.Unlock()
}

// SetProgress sets the current task's step counter directly.
func (p *Info) SetProgress(v uint64) {
	p.mu.Lock()
	p.current = v
	p.mu.Unlock()
}

// GetStatus returns the current task's name and percent complete.
func (p *Info) GetStatus() (task string, percent float32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.max == 0 {
		return p.task, 0
	}
	return p.task, float32(100 * float64(p.current) / float64(p.max))
}

// StatusStack returns the full nested task stack, outermost first, with
// the currently-running task last.
func (p *Info) StatusStack() []Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Status, 0, len(p.stack)+1)
	for _, f := range p.stack {
		out = append(out, statusOf(f.task, f.current, f.max))
	}
	if p.task != "" {
		out = append(out, statusOf(p.task, p.current, p.max))
	}
	return out
}

func statusOf(task string, current, max uint64) Status {
	if max == 0 {
		return Status{Task: task}
	}
	return Status{Task: task, Progress: float32(100 * float64(current) / float64(max))}
}

// Push suspends the current task onto the stack, leaving a fresh
// single-step task active; used when a long-running operation needs to
// call into a sub-operation that manages its own SetTask calls.
func (p *Info) Push() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stack = append(p.stack, frame{task: p.task, max: p.max, current: p.current})
	p.task = ""
	p.current = 0
	p.max = 1
}

// Pop restores the task suspended by the matching Push.
func (p *Info) Pop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.stack)
	if n == 0 {
		return
	}
	f := p.stack[n-1]
	p.stack = p.stack[:n-1]
	p.task, p.max, p.current = f.task, f.max, f.current
}

// Cancel requests cancellation of the running operation; workers observe
// this the next time they call CancelRequested.
func (p *Info) Cancel() {
	p.mu.Lock()
	p.cancel = true
	p.mu.Unlock()
}

// Cancelled reports whether CancelRequested has ever returned true.
func (p *Info) Cancelled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelled
}

// CancelRequested is polled by workers between steps; once a cancel has
// been requested it latches Cancelled permanently.
func (p *Info) CancelRequested() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel {
		p.cancelled = true
		return true
	}
	return false
}
