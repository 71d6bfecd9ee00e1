package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// FileReporter wraps an Info with a background goroutine that periodically
// renders the task stack to a writer (typically stderr), matching
// file_progress_info's display thread: a ticker-driven redraw that
// overwrites its own previous line rather than scrolling.
type FileReporter struct {
	*Info

	w        io.Writer
	interval time.Duration

	mu       sync.Mutex
	lastLen  int

	stop chan struct{}
	done chan struct{}
}

// NewFileReporter starts a FileReporter that redraws to w every interval
// (interval <= 0 defaults to 200ms). Call Close to stop the background
// goroutine and clear the last-printed line.
func NewFileReporter(w io.Writer, interval time.Duration) *FileReporter {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	r := &FileReporter{
		Info:     New(),
		w:        w,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *FileReporter) run() {
	defer close(r.done)
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-r.stop:
			r.display()
			return
		case <-t.C:
			r.display()
		}
	}
}

func (r *FileReporter) display() {
	stack := r.StatusStack()
	parts := make([]string, 0, len(stack))
	for _, s := range stack {
		if s.Progress > 0 {
			parts = append(parts, fmt.Sprintf("%s %.1f%%", s.Task, s.Progress))
		} else if s.Task != "" {
			parts = append(parts, s.Task)
		}
	}
	line := strings.Join(parts, " > ")

	r.mu.Lock()
	defer r.mu.Unlock()
	pad := r.lastLen - len(line)
	if pad < 0 {
		pad = 0
	}
	fmt.Fprintf(r.w, "\r%s%s", line, strings.Repeat(" ", pad))
	r.lastLen = len(line)
}

// Close stops the background redraw goroutine and clears the last line.
func (r *FileReporter) Close() error {
	close(r.stop)
	<-r.done
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastLen > 0 {
		fmt.Fprintf(r.w, "\r%s\r", strings.Repeat(" ", r.lastLen))
		r.lastLen = 0
	}
	return nil
}
