// Package lifecycle exposes the gateway's drain flag so readiness probes can
// start failing before in-flight voice sessions are torn down.
package lifecycle

import "sync/atomic"

// Lifecycle holds shutdown state shared between the signal handler and the
// readiness endpoint. The zero value is ready to use; a nil receiver reads
// as not draining.
type Lifecycle struct {
	draining atomic.Bool
}

// SetDraining flips the drain flag. Called once from the shutdown path.
func (l *Lifecycle) SetDraining(draining bool) {
	if l == nil {
		return
	}
	l.draining.Store(draining)
}

// IsDraining reports whether shutdown has begun.
func (l *Lifecycle) IsDraining() bool {
	if l == nil {
		return false
	}
	return l.draining.Load()
}
