package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"smart_office/internal/logger"
	"smart_office/internal/models"
	"smart_office/internal/repository"
)

var (
	ErrUnknownAction  = errors.New("unknown action")
	ErrDeviceNotFound = errors.New("device not found")
	ErrNoData         = errors.New("no data for device")
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 500
)

// DeviceService is the read side of the registry plus manual control.
type DeviceService struct {
	registry   *DeviceRegistry
	readings   repository.ReadingRepo
	devices    repository.DeviceRepo
	cache      LatestCache
	dispatcher *CommandDispatcher
	metrics    Metrics
	log        *logger.Logger
}

func NewDeviceService(registry *DeviceRegistry, readings repository.ReadingRepo, devices repository.DeviceRepo,
	cache LatestCache, dispatcher *CommandDispatcher, m Metrics, log *logger.Logger) *DeviceService {
	if m == nil {
		m = noopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &DeviceService{
		registry:   registry,
		readings:   readings,
		devices:    devices,
		cache:      cache,
		dispatcher: dispatcher,
		metrics:    m,
		log:        log,
	}
}

func (s *DeviceService) List(_ context.Context) []models.DeviceState {
	return s.registry.List()
}

func (s *DeviceService) Get(_ context.Context, id string) (models.DeviceState, error) {
	d, ok := s.registry.Get(strings.TrimSpace(id))
	if !ok {
		return models.DeviceState{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	return d, nil
}

// Latest serves the newest reading from the cache, falling back to the
// reading store when the cache misses or is unavailable.
func (s *DeviceService) Latest(ctx context.Context, id string) (models.LatestReading, error) {
	id = strings.TrimSpace(id)
	if s.cache != nil {
		r, err := s.cache.GetLatest(ctx, id)
		switch {
		case err != nil:
			s.log.Warnw("latest_cache_failed", "device_id", id, "err", err)
		case r != nil:
			return *r, nil
		}
	}

	rec, err := s.readings.Latest(ctx, id)
	if err != nil {
		return models.LatestReading{}, fmt.Errorf("latest reading: %w", err)
	}
	if rec == nil {
		return models.LatestReading{}, fmt.Errorf("%w: %s", ErrNoData, id)
	}
	out := models.LatestReading{
		DeviceID:    rec.DeviceID,
		Light:       rec.Light,
		Temperature: rec.Temperature,
		Humidity:    rec.Humidity,
		Flame:       rec.Flame != nil && *rec.Flame,
		RGBStatus:   rec.RGBStatus != nil && *rec.RGBStatus,
		Timestamp:   rec.ObservedAt.UnixMilli(),
	}
	if d, ok := s.registry.Get(id); ok {
		out.Online = d.Status == models.StatusOnline
	}
	return out, nil
}

// History returns stored readings newest first. limit <= 0 means the default;
// larger values are capped.
func (s *DeviceService) History(ctx context.Context, id string, limit int) ([]models.SensorRecord, error) {
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}
	return s.readings.History(ctx, strings.TrimSpace(id), limit)
}

// SendCommand dispatches an operator command by its wire action name.
func (s *DeviceService) SendCommand(ctx context.Context, id, action string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: empty device id", ErrDeviceNotFound)
	}
	a, ok := models.ParseAction(id, strings.ToLower(strings.TrimSpace(action)))
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	return s.dispatcher.Dispatch(ctx, a, models.TriggerManual)
}

// Hydrate seeds the registry from persisted device snapshots.
func (s *DeviceService) Hydrate(ctx context.Context) error {
	if s.devices == nil {
		return nil
	}
	states, err := s.devices.List(ctx)
	if err != nil {
		return fmt.Errorf("load devices: %w", err)
	}
	s.registry.Restore(states)
	s.metrics.SetDevices(s.registry.StatusCounts())
	s.log.Infow("registry_hydrated", "devices", len(states))
	return nil
}
