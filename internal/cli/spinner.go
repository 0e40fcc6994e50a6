package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var spinnerGlyphs = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// Spinner draws a one-line activity indicator on stderr. When a total is
// set it also shows a completed/total counter that workers bump with
// [Spinner.Advance].
type Spinner struct {
	out    io.Writer
	label  string
	total  int
	count  atomic.Int64
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	width   int
	started atomic.Bool
	stop    sync.Once
	stopped chan struct{}
}

// newSpinner creates a spinner that stops when ctx is cancelled. A positive
// total enables the progress counter.
func newSpinner(ctx context.Context, label string, total int) *Spinner {
	ctx, cancel := context.WithCancel(ctx)
	return &Spinner{
		out:     os.Stderr,
		label:   label,
		total:   total,
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
}

// Advance records one completed unit of work. Safe for concurrent use.
func (s *Spinner) Advance() { s.count.Add(1) }

// Completed reports how many units were recorded with Advance.
func (s *Spinner) Completed() int { return int(s.count.Load()) }

// line renders the text after the glyph.
func (s *Spinner) line() string {
	if s.total <= 0 {
		return s.label
	}
	return fmt.Sprintf("%s %d/%d", s.label, min(s.Completed(), s.total), s.total)
}

// Start begins drawing in a background goroutine.
func (s *Spinner) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.draw(spinnerGlyphs[i%len(spinnerGlyphs)])
			}
		}
	}()
}

func (s *Spinner) draw(glyph string) {
	text := s.line()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = max(s.width, len(text)+2)
	fmt.Fprintf(s.out, "\r%s %s", styleIconSpinner.Render(glyph), StyleDim.Render(text))
}

// Stop halts drawing and erases the line. It is safe to call more than once.
func (s *Spinner) Stop() {
	s.stop.Do(func() {
		s.cancel()
		if s.started.Load() {
			<-s.stopped
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.width > 0 {
			fmt.Fprintf(s.out, "\r%s\r", strings.Repeat(" ", s.width))
		}
	})
}

// StopWithSuccess stops the spinner and prints a success line.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	printSuccess("%s", message)
}

// StopWithError stops the spinner and prints an error line.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}
