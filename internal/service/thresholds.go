package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"smart_office/internal/logger"
)

// Threshold keys, "<quantity>.<low|high>".
const (
	KeyLightLow        = "light.low"
	KeyLightHigh       = "light.high"
	KeyTemperatureLow  = "temperature.low"
	KeyTemperatureHigh = "temperature.high"
	KeyHumidityLow     = "humidity.low"
	KeyHumidityHigh    = "humidity.high"
)

const (
	DefaultThresholdTTL   = time.Hour
	thresholdFetchTimeout = 2 * time.Second
)

var defaultThresholds = map[string]float64{
	KeyLightLow:        300,
	KeyLightHigh:       350,
	KeyTemperatureLow:  18,
	KeyTemperatureHigh: 28,
	KeyHumidityLow:     40,
	KeyHumidityHigh:    70,
}

// Thresholds is the resolved set used for one evaluation.
type Thresholds struct {
	LightLow        float64 `json:"light.low"`
	LightHigh       float64 `json:"light.high"`
	TemperatureLow  float64 `json:"temperature.low"`
	TemperatureHigh float64 `json:"temperature.high"`
	HumidityLow     float64 `json:"humidity.low"`
	HumidityHigh    float64 `json:"humidity.high"`
}

func DefaultThresholds() Thresholds {
	return thresholdsFrom(nil)
}

func thresholdsFrom(values map[string]float64) Thresholds {
	get := func(k string) float64 {
		if v, ok := values[k]; ok {
			return v
		}
		return defaultThresholds[k]
	}
	return Thresholds{
		LightLow:        get(KeyLightLow),
		LightHigh:       get(KeyLightHigh),
		TemperatureLow:  get(KeyTemperatureLow),
		TemperatureHigh: get(KeyTemperatureHigh),
		HumidityLow:     get(KeyHumidityLow),
		HumidityHigh:    get(KeyHumidityHigh),
	}
}

// CanonicalThresholdKey maps the legacy "light.threshold.low" form to "light.low".
func CanonicalThresholdKey(key string) string {
	return strings.Replace(strings.TrimSpace(key), ".threshold.", ".", 1)
}

// IsThresholdKey reports whether key (in either form) names a threshold.
func IsThresholdKey(key string) bool {
	_, ok := defaultThresholds[CanonicalThresholdKey(key)]
	return ok
}

// ThresholdSource is the config collaborator the store reads through to.
type ThresholdSource interface {
	ThresholdValues(ctx context.Context) (map[string]float64, error)
}

// ThresholdStore is a read-through TTL cache over ThresholdSource. Lookups
// never fail: when the source is unavailable the compiled-in defaults are
// used and nothing is cached, so the next lookup retries.
type ThresholdStore struct {
	src          ThresholdSource
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	log          *logger.Logger
	group        singleflight.Group

	mu      sync.RWMutex
	values  map[string]float64 // nil until loaded
	expires time.Time
	gen     uint64 // bumped by Invalidate
}

func NewThresholdStore(src ThresholdSource, ttl time.Duration, log *logger.Logger) *ThresholdStore {
	if ttl <= 0 {
		ttl = DefaultThresholdTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ThresholdStore{
		src:          src,
		ttl:          ttl,
		fetchTimeout: thresholdFetchTimeout,
		now:          time.Now,
		log:          log,
	}
}

// Get returns the value for key, falling back to its default. Unknown keys yield 0.
func (s *ThresholdStore) Get(ctx context.Context, key string) float64 {
	key = CanonicalThresholdKey(key)
	if v, ok := s.load(ctx)[key]; ok {
		return v
	}
	return defaultThresholds[key]
}

// Snapshot resolves every threshold with a single cache lookup.
func (s *ThresholdStore) Snapshot(ctx context.Context) Thresholds {
	return thresholdsFrom(s.load(ctx))
}

// Invalidate drops the cache; the next lookup refetches.
func (s *ThresholdStore) Invalidate() {
	s.mu.Lock()
	s.values = nil
	s.expires = time.Time{}
	s.gen++
	s.mu.Unlock()
	s.log.Infow("thresholds_invalidated")
}

func (s *ThresholdStore) load(ctx context.Context) map[string]float64 {
	s.mu.RLock()
	if s.values != nil && s.now().Before(s.expires) {
		v := s.values
		s.mu.RUnlock()
		return v
	}
	s.mu.RUnlock()

	if s.src == nil {
		return nil
	}

	// Concurrent misses share one fetch.
	v, _, _ := s.group.Do("thresholds", func() (any, error) {
		s.mu.RLock()
		gen := s.gen
		s.mu.RUnlock()

		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		raw, err := s.src.ThresholdValues(fctx)
		if err != nil {
			s.log.Warnw("threshold_fetch_failed", "err", err)
			return map[string]float64(nil), nil
		}
		vals := canonicalize(raw)

		s.mu.Lock()
		// A fetch that raced Invalidate may hold old values; return them
		// to this caller but do not cache them.
		if s.gen == gen {
			s.values = vals
			s.expires = s.now().Add(s.ttl)
		}
		s.mu.Unlock()
		return vals, nil
	})
	vals, _ := v.(map[string]float64)
	return vals
}

// canonicalize folds legacy keys; a canonical key wins over its alias.
func canonicalize(raw map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		ck := CanonicalThresholdKey(k)
		if ck != k {
			if _, ok := raw[ck]; ok {
				continue
			}
		}
		out[ck] = v
	}
	return out
}
