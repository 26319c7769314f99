package progress

import (
	"bytes"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// syncBuffer is a bytes.Buffer safe for the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestNewIndicator(t *testing.T) {
	t.Setenv("CI", "")
	t.Setenv("GITHUB_ACTIONS", "")
	buf := &bytes.Buffer{}
	ind := NewIndicator(Config{Writer: buf, ShowSpinner: true})

	assert.Equal(t, buf, ind.writer)
	assert.True(t, ind.showSpinner)
}

func TestNewIndicatorCIMode(t *testing.T) {
	ind := NewIndicator(Config{Writer: &bytes.Buffer{}, ShowSpinner: true, IsCI: true})

	assert.False(t, ind.showSpinner, "spinner should be disabled in CI mode")
	assert.True(t, ind.isCI)
}

func TestNewIndicatorDetectsCI(t *testing.T) {
	t.Setenv("CI", "true")
	ind := NewIndicator(Config{Writer: &bytes.Buffer{}, ShowSpinner: true})
	assert.True(t, ind.isCI)
}

func TestSpinnerDrawsAndClears(t *testing.T) {
	t.Setenv("CI", "")
	t.Setenv("GITHUB_ACTIONS", "")
	buf := &syncBuffer{}
	ind := NewIndicator(Config{Writer: buf, Message: "Loading doctors...", ShowSpinner: true})

	ind.Start()
	assert.Eventually(t, func() bool { return ind.Frames() >= 2 }, time.Second, 10*time.Millisecond)
	ind.Stop()
	ind.Stop()

	out := buf.String()
	assert.Contains(t, out, "Loading doctors...")
	assert.True(t, strings.HasSuffix(out, "\r"), "line should be cleared")

	frames := ind.Frames()
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, frames, ind.Frames(), "no frames after Stop")
}

func TestStopWithoutStart(t *testing.T) {
	buf := &bytes.Buffer{}
	ind := NewIndicator(Config{Writer: buf, ShowSpinner: false})
	ind.Start()
	ind.Stop()
	assert.Empty(t, buf.String())
}

func TestRun(t *testing.T) {
	t.Run("quiet when spinner off", func(t *testing.T) {
		buf := &bytes.Buffer{}
		want := stderrors.New("boom")
		err := Run(Config{Writer: buf, Message: "Loading..."}, func() error { return want })
		assert.ErrorIs(t, err, want)
		assert.Empty(t, buf.String())
	})

	t.Run("CI prints a summary line", func(t *testing.T) {
		buf := &bytes.Buffer{}
		err := Run(Config{Writer: buf, Message: "Loading doctors...", ShowSpinner: true, IsCI: true}, func() error { return nil })
		assert.NoError(t, err)
		assert.True(t, strings.HasPrefix(buf.String(), "✓ Loading doctors ("))
	})

	t.Run("CI marks failures", func(t *testing.T) {
		buf := &bytes.Buffer{}
		_ = Run(Config{Writer: buf, Message: "Loading...", ShowSpinner: true, IsCI: true}, func() error { return stderrors.New("x") })
		assert.True(t, strings.HasPrefix(buf.String(), "✗ Loading ("))
	})
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", formatDuration(250*time.Millisecond))
	assert.Equal(t, "1.5s", formatDuration(1500*time.Millisecond))
	assert.Equal(t, "2m5s", formatDuration(125*time.Second))
}
