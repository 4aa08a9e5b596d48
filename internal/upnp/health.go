package upnp

import (
	"sync"
	"time"
)

// Health classifies whether UPnP events are keeping up with HTTP-detected
// changes.
type Health string

const (
	HealthUnknown   Health = "unknown"
	HealthHealthy   Health = "healthy"
	HealthUnhealthy Health = "unhealthy"
)

// watchedFields are the fields the health tracker compares between HTTP
// polling and UPnP events (spec §4.4).
var watchedFields = map[string]bool{
	"play_state": true,
	"volume":     true,
	"muted":      true,
	"title":      true,
	"artist":     true,
	"album":      true,
}

// pendingChange records an HTTP-detected change waiting to be matched by a
// UPnP event within the grace window.
type pendingChange struct {
	field     string
	value     string
	detectedAt time.Time
}

// HealthTracker compares HTTP-detected field changes against matching UPnP
// events within a grace window and classifies the subscription's health
// with hysteresis.
type HealthTracker struct {
	mu sync.Mutex

	graceWindow time.Duration

	detected int
	missed   int
	status   Health

	pending []pendingChange
}

// NewHealthTracker builds a tracker with the spec-documented 2-second grace
// window.
func NewHealthTracker() *HealthTracker {
	return &HealthTracker{graceWindow: 2 * time.Second, status: HealthUnknown}
}

// NoteHTTPChange records that HTTP polling observed field transition to
// value at now. It must be followed by a matching NoteUPnPEvent within the
// grace window or it counts as a miss when evaluated.
func (h *HealthTracker) NoteHTTPChange(field, value string, now time.Time) {
	if !watchedFields[field] {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = append(h.pending, pendingChange{field: field, value: value, detectedAt: now})
}

// NoteUPnPEvent marks any pending HTTP-detected change for field matching
// value as confirmed.
func (h *HealthTracker) NoteUPnPEvent(field, value string, now time.Time) {
	if !watchedFields[field] {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.pending {
		p := &h.pending[i]
		if p.field == field && p.value == value {
			h.pending = append(h.pending[:i], h.pending[i+1:]...)
			h.detected++
			h.evaluateLocked()
			return
		}
	}
}

// Evaluate expires any pending changes older than the grace window as
// misses and recomputes status. Callers should invoke it periodically.
func (h *HealthTracker) Evaluate(now time.Time) Health {
	h.mu.Lock()
	defer h.mu.Unlock()

	kept := h.pending[:0]
	for _, p := range h.pending {
		if now.Sub(p.detectedAt) > h.graceWindow {
			h.detected++
			h.missed++
		} else {
			kept = append(kept, p)
		}
	}
	h.pending = kept
	h.evaluateLocked()
	return h.status
}

func (h *HealthTracker) evaluateLocked() {
	if h.detected < 3 {
		return
	}
	missRate := float64(h.missed) / float64(h.detected)
	switch {
	case missRate > 0.5:
		h.status = HealthUnhealthy
	case missRate < 0.2:
		if h.status == HealthUnhealthy {
			h.detected, h.missed = 0, 0
		}
		h.status = HealthHealthy
	}
}

// IsHealthy reports the tracker's current classification.
func (h *HealthTracker) IsHealthy() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status == HealthHealthy || h.status == HealthUnknown
}

// Statistics returns a snapshot of the tracker's counters.
func (h *HealthTracker) Statistics() (detected, missed int, status Health) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.detected, h.missed, h.status
}
