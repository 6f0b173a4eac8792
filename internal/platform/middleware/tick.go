package middleware

import (
	"net/http"
	"time"

	id "quorum/pkg/domain"
	"quorum/pkg/requestcontext"
)

// TickSource supplies the current clock counter. The engine never reads wall
// time directly; everything time-dependent flows through one tick captured at
// the start of the operation.
type TickSource interface {
	Current() id.Tick
}

// WallClock derives ticks from wall time: tick = elapsed(genesis) / interval.
type WallClock struct {
	Genesis  time.Time
	Interval time.Duration
}

func (c WallClock) Current() id.Tick {
	if c.Interval <= 0 {
		return 0
	}
	elapsed := time.Since(c.Genesis)
	if elapsed < 0 {
		return 0
	}
	return id.Tick(elapsed / c.Interval)
}

// WithTick captures the current tick once per request so every check within
// the operation observes the same clock value.
func WithTick(source TickSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTick(r.Context(), source.Current())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
