// Package progress shows a one-line spinner on stderr while the CLI waits on
// the backend.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Indicator renders a spinner with a message until stopped.
type Indicator struct {
	writer      io.Writer
	message     string
	startTime   time.Time
	mu          sync.Mutex
	showSpinner bool
	spinnerIdx  int
	frames      int
	stopChan    chan struct{}
	doneChan    chan struct{}
	stopOnce    sync.Once
	started     bool
	isCI        bool
}

// Config holds configuration for progress indicator
type Config struct {
	Writer      io.Writer
	Message     string
	ShowSpinner bool
	IsCI        bool // Set to true in CI/CD environments to disable fancy output
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// NewIndicator creates a new progress indicator
func NewIndicator(cfg Config) *Indicator {
	if cfg.Writer == nil {
		cfg.Writer = os.Stderr
	}

	// Auto-detect CI environment
	if !cfg.IsCI {
		cfg.IsCI = os.Getenv("CI") == "true" || os.Getenv("GITHUB_ACTIONS") == "true"
	}

	return &Indicator{
		writer:      cfg.Writer,
		message:     cfg.Message,
		startTime:   time.Now(),
		showSpinner: cfg.ShowSpinner && !cfg.IsCI,
		stopChan:    make(chan struct{}),
		doneChan:    make(chan struct{}),
		isCI:        cfg.IsCI,
	}
}

// Start begins the progress indicator display
func (p *Indicator) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.showSpinner || p.started {
		return
	}
	p.started = true
	go p.spinnerLoop()
}

// Stop clears the spinner line. It is safe to call more than once.
func (p *Indicator) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
		p.mu.Lock()
		started := p.started
		p.mu.Unlock()
		if !started {
			return
		}
		<-p.doneChan
		p.mu.Lock()
		fmt.Fprintf(p.writer, "\r%s\r", strings.Repeat(" ", len(p.message)+4))
		p.mu.Unlock()
	})
}

// Frames returns how many frames were drawn.
func (p *Indicator) Frames() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames
}

// Elapsed returns the time since the indicator was created.
func (p *Indicator) Elapsed() time.Duration {
	return time.Since(p.startTime)
}

func (p *Indicator) spinnerLoop() {
	defer close(p.doneChan)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	p.render()
	for {
		select {
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.render()
		}
	}
}

func (p *Indicator) render() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.writer, "\r%s %s", spinnerFrames[p.spinnerIdx], p.message)
	p.spinnerIdx = (p.spinnerIdx + 1) % len(spinnerFrames)
	p.frames++
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

// Run shows the indicator while fn runs and returns fn's error.
func Run(cfg Config, fn func() error) error {
	p := NewIndicator(cfg)
	p.Start()
	err := fn()
	p.Stop()
	if p.isCI && cfg.ShowSpinner && cfg.Message != "" {
		mark := "✓"
		if err != nil {
			mark = "✗"
		}
		fmt.Fprintf(p.writer, "%s %s (%s)\n", mark, strings.TrimSuffix(cfg.Message, "..."), formatDuration(p.Elapsed()))
	}
	return err
}
