package service

import (
	"maps"
	"sort"
	"sync"
	"time"

	"smart_office/internal/models"
)

// DeviceRegistry tracks liveness and last-known actuator state per device.
// The map lock guards membership only; each entry has its own lock so
// updates to different devices never contend.
type DeviceRegistry struct {
	mu      sync.RWMutex
	devices map[string]*deviceEntry
}

type deviceEntry struct {
	mu    sync.Mutex
	state models.DeviceState
}

func NewDeviceRegistry() *DeviceRegistry {
	return &DeviceRegistry{devices: make(map[string]*deviceEntry)}
}

func (r *DeviceRegistry) lookup(id string) *deviceEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.devices[id]
}

func (r *DeviceRegistry) entry(id string) *deviceEntry {
	if e := r.lookup(id); e != nil {
		return e
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.devices[id]; ok {
		return e
	}
	e := &deviceEntry{state: models.DeviceState{
		DeviceID:  id,
		Actuators: make(map[models.ActuatorKind]bool),
	}}
	r.devices[id] = e
	return e
}

func (r *DeviceRegistry) entries() []*deviceEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*deviceEntry, 0, len(r.devices))
	for _, e := range r.devices {
		out = append(out, e)
	}
	return out
}

// RecordSeen applies one reading. lastSeenAt only moves forward and a fresh
// reading marks the device ONLINE; a reading older than the stored one is
// reported as stale. Actuator states are merged either way.
func (r *DeviceRegistry) RecordSeen(id string, observedAt time.Time, actuators map[models.ActuatorKind]bool) (models.DeviceState, bool) {
	e := r.entry(id)
	e.mu.Lock()
	defer e.mu.Unlock()

	stale := e.state.Status != "" && observedAt.Before(e.state.LastSeenAt)
	if !stale {
		e.state.LastSeenAt = observedAt
		e.state.Status = models.StatusOnline
	}
	for k, v := range actuators {
		e.state.Actuators[k] = v
	}
	return snapshot(e.state), stale
}

// MarkOfflineIfStale flips ONLINE devices not seen within staleAfter to
// OFFLINE and returns the flipped snapshots. FAULT is left as reported.
func (r *DeviceRegistry) MarkOfflineIfStale(now time.Time, staleAfter time.Duration) []models.DeviceState {
	cutoff := now.Add(-staleAfter)
	var flipped []models.DeviceState
	for _, e := range r.entries() {
		e.mu.Lock()
		if e.state.Status == models.StatusOnline && e.state.LastSeenAt.Before(cutoff) {
			e.state.Status = models.StatusOffline
			flipped = append(flipped, snapshot(e.state))
		}
		e.mu.Unlock()
	}
	sortStates(flipped)
	return flipped
}

// SetStatus records a status the device reported about itself. A device
// first heard of this way is created with lastSeenAt = at. An ONLINE report
// is a heartbeat and advances lastSeenAt under the same rule as RecordSeen.
func (r *DeviceRegistry) SetStatus(id string, status models.OnlineStatus, at time.Time) (models.DeviceState, bool) {
	e := r.entry(id)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Status == "" || (status == models.StatusOnline && !at.Before(e.state.LastSeenAt)) {
		e.state.LastSeenAt = at
	}
	changed := e.state.Status != status
	e.state.Status = status
	return snapshot(e.state), changed
}

// SetHVACMode records the last commanded HVAC mode for a known device.
func (r *DeviceRegistry) SetHVACMode(id string, mode models.HVACMode) {
	e := r.lookup(id)
	if e == nil {
		return
	}
	e.mu.Lock()
	e.state.HVACMode = mode
	e.mu.Unlock()
}

func (r *DeviceRegistry) Get(id string) (models.DeviceState, bool) {
	e := r.lookup(id)
	if e == nil {
		return models.DeviceState{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshot(e.state), true
}

// List returns every device sorted by id.
func (r *DeviceRegistry) List() []models.DeviceState {
	all := r.entries()
	out := make([]models.DeviceState, 0, len(all))
	for _, e := range all {
		e.mu.Lock()
		out = append(out, snapshot(e.state))
		e.mu.Unlock()
	}
	sortStates(out)
	return out
}

// Restore seeds the registry from persisted snapshots. An entry that is
// already newer in memory is kept.
func (r *DeviceRegistry) Restore(states []models.DeviceState) {
	for _, s := range states {
		if s.DeviceID == "" {
			continue
		}
		e := r.entry(s.DeviceID)
		e.mu.Lock()
		if e.state.Status == "" || !s.LastSeenAt.Before(e.state.LastSeenAt) {
			e.state = snapshot(s)
			if e.state.Actuators == nil {
				e.state.Actuators = make(map[models.ActuatorKind]bool)
			}
			if !e.state.Status.Valid() {
				e.state.Status = models.StatusOffline
			}
		}
		e.mu.Unlock()
	}
}

// StatusCounts tallies devices per status.
func (r *DeviceRegistry) StatusCounts() map[string]int {
	counts := make(map[string]int)
	for _, s := range r.List() {
		counts[string(s.Status)]++
	}
	return counts
}

func snapshot(s models.DeviceState) models.DeviceState {
	s.Actuators = maps.Clone(s.Actuators)
	return s
}

func sortStates(s []models.DeviceState) {
	sort.Slice(s, func(i, j int) bool { return s[i].DeviceID < s[j].DeviceID })
}
