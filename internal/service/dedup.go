package service

import (
	"sync"
	"time"

	"smart_office/internal/models"
)

type dedupKey struct {
	deviceID string
	kind     models.AlarmKind
}

// AlarmDeduplicator suppresses repeats of the same (device, kind) hazard
// within a cool-down window. A zero cool-down raises every hazard.
type AlarmDeduplicator struct {
	cooldown time.Duration
	now      func() time.Time

	mu   sync.Mutex
	last map[dedupKey]time.Time
}

func NewAlarmDeduplicator(cooldown time.Duration) *AlarmDeduplicator {
	return &AlarmDeduplicator{
		cooldown: cooldown,
		now:      time.Now,
		last:     make(map[dedupKey]time.Time),
	}
}

// ShouldRaise reports whether a new alarm should be raised and, if so,
// records now as the last raise.
func (d *AlarmDeduplicator) ShouldRaise(deviceID string, kind models.AlarmKind) bool {
	_, ok := d.reserve(deviceID, kind)
	return ok
}

func (d *AlarmDeduplicator) reserve(deviceID string, kind models.AlarmKind) (time.Time, bool) {
	k := dedupKey{deviceID: deviceID, kind: kind}
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()
	if prev, ok := d.last[k]; ok && d.cooldown > 0 && now.Sub(prev) < d.cooldown {
		return time.Time{}, false
	}
	d.last[k] = now
	return now, true
}

// release undoes a reservation whose alarm never got stored, so the next
// hazard is not suppressed. A newer reservation is left alone.
func (d *AlarmDeduplicator) release(deviceID string, kind models.AlarmKind, at time.Time) {
	k := dedupKey{deviceID: deviceID, kind: kind}
	d.mu.Lock()
	defer d.mu.Unlock()
	if prev, ok := d.last[k]; ok && prev.Equal(at) {
		delete(d.last, k)
	}
}
