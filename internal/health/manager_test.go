package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockChecker is a test double for health checks
type mockChecker struct {
	name   string
	result *Result
	delay  time.Duration
}

func (m *mockChecker) Name() string {
	return m.name
}

func (m *mockChecker) Check(ctx context.Context) *Result {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return Unhealthy("check cancelled").
				WithDetail("error", ctx.Err().Error())
		}
	}
	return m.result
}

func TestManager_CheckRunsAll(t *testing.T) {
	m := NewManager()
	m.AddChecker(&mockChecker{name: "backend", result: Healthy("ok")})
	m.AddChecker(&mockChecker{name: "session", result: Degraded("not signed in")})

	results := m.Check(context.Background())

	require.Len(t, results, 2)
	assert.Equal(t, StatusHealthy, results["backend"].Status)
	assert.Equal(t, StatusDegraded, results["session"].Status)
	assert.Equal(t, StatusDegraded, m.OverallStatus(results))
	assert.Equal(t, []string{"backend", "session"}, SortedNames(results))
	assert.Equal(t, []string{"backend", "session"}, m.CheckNames())
	assert.Equal(t, 2, m.Count())
}

func TestManager_Timeout(t *testing.T) {
	m := NewManager().WithTimeout(20 * time.Millisecond)
	m.AddChecker(&mockChecker{name: "slow", result: Healthy("ok"), delay: time.Second})

	start := time.Now()
	results := m.Check(context.Background())

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, StatusUnhealthy, results["slow"].Status)
	assert.Greater(t, results["slow"].Latency, time.Duration(0))
}

func TestManager_NilResult(t *testing.T) {
	m := NewManager()
	m.AddChecker(&mockChecker{name: "broken"})

	results := m.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, results["broken"].Status)
}

func TestManager_OverallStatus(t *testing.T) {
	m := NewManager()

	assert.Equal(t, StatusHealthy, m.OverallStatus(nil))
	assert.Equal(t, StatusUnhealthy, m.OverallStatus(map[string]*Result{
		"a": Degraded("x"),
		"b": Unhealthy("y"),
	}))
	assert.Equal(t, StatusHealthy, m.OverallStatus(map[string]*Result{
		"a": Healthy("x"),
	}))
}
