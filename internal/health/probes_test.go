package health

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProbeManager_Lifecycle(t *testing.T) {
	pm := NewProbeManager("1.2.3")
	pm.AddChecker(&mockChecker{name: "store", result: Healthy("ok")})
	ctx := context.Background()

	assert.Equal(t, "1.2.3", pm.Version())
	assert.Equal(t, StatusHealthy, pm.CheckLiveness(ctx).Status)

	// Not ready until marked.
	assert.Equal(t, StatusUnhealthy, pm.CheckReadiness(ctx).Status)

	pm.MarkReady()
	ready := pm.CheckReadiness(ctx)
	assert.Equal(t, StatusHealthy, ready.Status)
	assert.Contains(t, ready.Checks, "store")

	pm.MarkShutdown()
	assert.Equal(t, StatusUnhealthy, pm.CheckReadiness(ctx).Status)
	assert.Equal(t, StatusDegraded, pm.CheckLiveness(ctx).Status)
	assert.GreaterOrEqual(t, pm.Uptime().Nanoseconds(), int64(0))
}
