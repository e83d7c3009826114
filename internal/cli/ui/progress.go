package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a message while an operation of unknown length runs
type Spinner struct {
	writer   io.Writer
	message  string
	interval time.Duration
	noColor  bool

	once    sync.Once
	started bool
	done    chan struct{}
	stopped chan struct{}
}

// NewSpinner creates a spinner. A zero interval means 100ms.
func NewSpinner(w io.Writer, message string, interval time.Duration, noColor bool) *Spinner {
	if interval == 0 {
		interval = 100 * time.Millisecond
	}
	return &Spinner{
		writer:   w,
		message:  message,
		interval: interval,
		noColor:  noColor,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start begins the animation
func (s *Spinner) Start() {
	s.started = true
	go s.animate()
}

// Stop ends the animation and clears the line. It is safe to call twice.
func (s *Spinner) Stop() {
	if !s.started {
		return
	}
	s.once.Do(func() {
		close(s.done)
		<-s.stopped
		fmt.Fprint(s.writer, "\r\033[K")
	})
}

func (s *Spinner) animate() {
	defer close(s.stopped)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	cyan := paint(s.noColor, color.FgCyan)
	frame := 0
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			cyan.Fprintf(s.writer, "\r%s %s", spinnerFrames[frame], s.message)
			frame = (frame + 1) % len(spinnerFrames)
		}
	}
}

// WithSpinner runs fn behind a spinner and reports the outcome on w
func WithSpinner(w io.Writer, message string, noColor bool, fn func() error) error {
	s := NewSpinner(w, message, 0, noColor)
	s.Start()
	err := fn()
	s.Stop()

	if err != nil {
		paint(noColor, color.FgRed, color.Bold).Fprintf(w, "❌ %s failed\n", message)
		return err
	}
	Success(w, message, noColor)
	return nil
}

// ProgressBar renders the completion of a fixed number of steps
type ProgressBar struct {
	writer  io.Writer
	total   int
	current int
	width   int
	message string
	noColor bool
}

// NewProgressBar creates a 40 column progress bar
func NewProgressBar(w io.Writer, total int, message string, noColor bool) *ProgressBar {
	return &ProgressBar{writer: w, total: total, width: 40, message: message, noColor: noColor}
}

// Add advances the bar by n steps, capped at the total
func (p *ProgressBar) Add(n int) {
	p.current += n
	if p.current > p.total {
		p.current = p.total
	}
	p.render()
}

// Finish fills the bar and ends the line
func (p *ProgressBar) Finish() {
	p.current = p.total
	p.render()
	fmt.Fprintln(p.writer)
}

func (p *ProgressBar) render() {
	if p.total == 0 {
		return
	}

	filled := p.width * p.current / p.total
	var bar strings.Builder
	bar.WriteString("[")
	paint(p.noColor, color.FgCyan).Fprint(&bar, strings.Repeat("█", filled))
	paint(p.noColor, color.FgHiBlack).Fprint(&bar, strings.Repeat("░", p.width-filled))
	bar.WriteString("]")

	fmt.Fprintf(p.writer, "\r%s %3d%% %s", bar.String(), 100*p.current/p.total, p.message)
}
