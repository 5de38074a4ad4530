package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexgate/lexgate/pkg/models"
)

func setQuotaExceeded(p *provider, resetAt time.Time) {
	p.mu.Lock()
	p.health.Status = models.StatusQuotaExceeded
	p.health.QuotaResetAt = resetAt
	p.mu.Unlock()
}

func TestReconcileHealsExpiredQuota(t *testing.T) {
	now := time.Now()
	r := New(Options{})
	r.now = func() time.Time { return now }
	require.NoError(t, r.Register(testCfg("limited", 1), okAdapter("ok")))

	setQuotaExceeded(r.providers["limited"], now.Add(-time.Minute))

	r.reconcile()

	snap := r.Health()["limited"]
	assert.Equal(t, models.StatusHealthy, snap.Status)
	assert.Nil(t, snap.QuotaResetAt)
}

func TestReconcileLeavesActiveCooldownAlone(t *testing.T) {
	now := time.Now()
	r := New(Options{})
	r.now = func() time.Time { return now }
	require.NoError(t, r.Register(testCfg("limited", 1), okAdapter("ok")))

	setQuotaExceeded(r.providers["limited"], now.Add(10*time.Minute))

	r.reconcile()

	assert.Equal(t, models.StatusQuotaExceeded, r.Health()["limited"].Status)
}

func TestReconcileIsIntervalGated(t *testing.T) {
	now := time.Now()
	r := New(Options{HealthCheckInterval: 5 * time.Minute})
	r.now = func() time.Time { return now }
	require.NoError(t, r.Register(testCfg("limited", 1), okAdapter("ok")))

	r.reconcile() // establishes lastReconcile

	// Cooldown expires a minute later, but the pass is rate-limited.
	now = now.Add(time.Minute)
	setQuotaExceeded(r.providers["limited"], now.Add(-time.Second))
	r.reconcile()
	assert.Equal(t, models.StatusQuotaExceeded, r.Health()["limited"].Status)

	// Once the interval elapses the next pass heals it.
	now = now.Add(5 * time.Minute)
	r.reconcile()
	assert.Equal(t, models.StatusHealthy, r.Health()["limited"].Status)
}
