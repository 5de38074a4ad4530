package router

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lexgate/lexgate/pkg/models"
)

// reconcile opportunistically heals stale provider state. It is called
// at the start of Process/ProcessBatch rather than from a background
// loop, and runs at most once per HealthCheckInterval. Its only
// effect: providers whose quota cooldown has expired return to
// healthy.
func (r *Router) reconcile() {
	now := r.now()

	r.monitorMu.Lock()
	if !r.lastReconcile.IsZero() && now.Sub(r.lastReconcile) < r.opts.HealthCheckInterval {
		r.monitorMu.Unlock()
		return
	}
	r.lastReconcile = now
	r.monitorMu.Unlock()

	for _, name := range r.order {
		p := r.providers[name]
		p.mu.Lock()
		if p.health.Status == models.StatusQuotaExceeded && !now.Before(p.health.QuotaResetAt) {
			p.health.Status = models.StatusHealthy
			p.health.QuotaResetAt = time.Time{}
			p.mu.Unlock()
			log.Info().Str("provider", name).Msg("Quota cooldown expired, provider healthy again")
			continue
		}
		p.mu.Unlock()
	}
}
