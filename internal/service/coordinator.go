package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"smart_office/internal/broadcast"
	"smart_office/internal/config"
	"smart_office/internal/logger"
	"smart_office/internal/models"
	"smart_office/internal/repository"
)

var ErrUnknownTopic = errors.New("unknown topic")

// IngestDeps bundles what the coordinator needs. Only Registry, Thresholds,
// Dedup and Dispatcher are required; every other collaborator is optional.
type IngestDeps struct {
	Registry   *DeviceRegistry
	Thresholds *ThresholdStore
	Dedup      *AlarmDeduplicator
	Dispatcher *CommandDispatcher

	Alarms   AlarmRaiser
	Readings repository.ReadingRepo
	Devices  repository.DeviceRepo
	Cache    LatestCache
	Live     LiveUpdates
	Metrics  Metrics
	Log      *logger.Logger
}

type IngestOptions struct {
	Topics              config.TopicsConfig
	CollaboratorTimeout time.Duration
	MaxClockSkew        time.Duration
}

// IngestResult summarizes what one reading caused.
type IngestResult struct {
	Reading models.TelemetryReading
	Device  models.DeviceState
	Stale   bool
	Actions []models.ControlAction
	Alarms  []models.AlarmEvent
	Errs    []error // collaborator failures, already logged
}

// Coordinator runs the ingestion pipeline. It is safe for concurrent use:
// registry update and evaluation are serialized per device id, everything
// else runs unlocked.
type Coordinator struct {
	deps    IngestDeps
	topics  config.TopicsConfig
	timeout time.Duration
	maxSkew time.Duration
	now     func() time.Time
	locks   deviceLocks
}

func NewCoordinator(deps IngestDeps, opts IngestOptions) *Coordinator {
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if opts.CollaboratorTimeout <= 0 {
		opts.CollaboratorTimeout = DefaultCollaboratorTimeout
	}
	if opts.MaxClockSkew <= 0 {
		opts.MaxClockSkew = DefaultMaxClockSkew
	}
	return &Coordinator{
		deps:    deps,
		topics:  opts.Topics,
		timeout: opts.CollaboratorTimeout,
		maxSkew: opts.MaxClockSkew,
		now:     time.Now,
		locks:   deviceLocks{m: make(map[string]*sync.Mutex)},
	}
}

// HandleMessage routes one inbound transport message by topic. Only
// decode failures and unknown topics are returned; collaborator failures
// are logged and absorbed.
func (c *Coordinator) HandleMessage(ctx context.Context, topic string, payload []byte) error {
	switch topic {
	case c.topics.SensorData:
		_, err := c.Ingest(ctx, payload)
		return err
	case c.topics.Alarm:
		return c.HandleAlarm(ctx, payload)
	case c.topics.DeviceStatus:
		return c.HandleStatus(ctx, payload)
	case c.topics.ConfigUpdate:
		return c.HandleConfigUpdate(ctx, payload)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
}

// Ingest decodes a sensor payload and runs it through the pipeline. A decode
// failure drops the message.
func (c *Coordinator) Ingest(ctx context.Context, payload []byte) (IngestResult, error) {
	received := c.now()
	reading, err := DecodeReading(payload, received, c.maxSkew)
	if err != nil {
		c.deps.Metrics.DecodeError()
		c.deps.Log.Warnw("reading_decode_failed", "err", err)
		return IngestResult{}, err
	}
	res := c.Process(ctx, reading)
	c.deps.Metrics.ReadingIngested(c.now().Sub(received).Seconds())
	return res, nil
}

// Process runs an already decoded reading through every stage. No stage's
// failure stops the ones after it.
func (c *Coordinator) Process(ctx context.Context, r models.TelemetryReading) IngestResult {
	// Thresholds may hit the config store, so resolve them before locking.
	th := c.deps.Thresholds.Snapshot(ctx)

	unlock := c.locks.lock(r.DeviceID)
	device, stale := c.deps.Registry.RecordSeen(r.DeviceID, r.ObservedAt, r.ActuatorStates)
	eval := Evaluate(r, th, device.Actuators)
	unlock()

	res := IngestResult{Reading: r, Device: device, Stale: stale, Actions: eval.Actions}
	if stale {
		c.deps.Log.Debugw("reading_stale", "device_id", r.DeviceID, "observed_at", r.ObservedAt, "last_seen_at", device.LastSeenAt)
	}

	if c.deps.Readings != nil {
		res.fail(c.call(ctx, "persist_reading", func(ctx context.Context) error {
			return c.deps.Readings.Append(ctx, sensorRecord(r))
		}))
	}

	for _, a := range eval.Actions {
		// Dispatch logs and counts its own failures.
		if err := c.deps.Dispatcher.Dispatch(ctx, a, models.TriggerAuto); err != nil {
			res.Errs = append(res.Errs, err)
		}
	}

	// Dispatch may have moved the HVAC mode; store what the registry holds now.
	if len(eval.Actions) > 0 {
		if cur, ok := c.deps.Registry.Get(r.DeviceID); ok {
			device = cur
			res.Device = cur
		}
	}
	if c.deps.Devices != nil {
		res.fail(c.call(ctx, "persist_device", func(ctx context.Context) error {
			return c.deps.Devices.Save(ctx, device)
		}))
	}

	for _, hz := range eval.Hazards {
		reservedAt, ok := c.deps.Dedup.reserve(r.DeviceID, hz.Kind)
		if !ok {
			c.deps.Metrics.AlarmSuppressed(string(hz.Kind))
			c.deps.Log.Debugw("alarm_suppressed", "device_id", r.DeviceID, "kind", hz.Kind)
			continue
		}
		ev := models.AlarmEvent{
			DeviceID: r.DeviceID,
			Kind:     hz.Kind,
			Severity: hz.Severity,
			Message:  hz.Message,
			RaisedAt: c.now().UTC(),
		}
		res.Alarms = append(res.Alarms, ev)
		c.deps.Metrics.AlarmRaised(string(hz.Kind))
		if c.deps.Alarms != nil {
			err := c.call(ctx, "alarm", func(ctx context.Context) error {
				return c.deps.Alarms.Raise(ctx, ev)
			})
			if errors.Is(err, ErrAlarmNotStored) {
				c.deps.Dedup.release(r.DeviceID, hz.Kind, reservedAt)
			}
			res.fail(err)
		}
	}

	latest := latestView(r, device)
	// The cache holds the newest reading; a stale one would roll it back.
	if c.deps.Cache != nil && !stale {
		res.fail(c.call(ctx, "cache", func(ctx context.Context) error {
			return c.deps.Cache.PutLatest(ctx, latest)
		}))
	}
	if c.deps.Live != nil {
		res.fail(c.call(ctx, "live_update", func(ctx context.Context) error {
			return c.deps.Live.Publish(ctx, broadcast.TopicSensorData, latest)
		}))
	}
	return res
}

// HandleAlarm accepts an alarm reported by a device.
func (c *Coordinator) HandleAlarm(ctx context.Context, payload []byte) error {
	m, err := DecodeAlarm(payload)
	if err != nil {
		c.deps.Metrics.DecodeError()
		c.deps.Log.Warnw("alarm_decode_failed", "err", err)
		return err
	}
	reservedAt, ok := c.deps.Dedup.reserve(m.DeviceID, m.AlarmType)
	if !ok {
		c.deps.Metrics.AlarmSuppressed(string(m.AlarmType))
		return nil
	}
	c.deps.Metrics.AlarmRaised(string(m.AlarmType))

	ev := models.AlarmEvent{
		DeviceID: m.DeviceID,
		Kind:     m.AlarmType,
		Severity: m.Level,
		Message:  m.Message,
		RaisedAt: observedAt(&m.Timestamp, c.now(), c.maxSkew),
	}
	if c.deps.Alarms != nil {
		err := c.call(ctx, "alarm", func(ctx context.Context) error {
			return c.deps.Alarms.Raise(ctx, ev)
		})
		if errors.Is(err, ErrAlarmNotStored) {
			c.deps.Dedup.release(m.DeviceID, m.AlarmType, reservedAt)
		}
	}
	return nil
}

// HandleStatus applies a status a device reported about itself.
func (c *Coordinator) HandleStatus(ctx context.Context, payload []byte) error {
	m, err := DecodeStatus(payload)
	if err != nil {
		c.deps.Metrics.DecodeError()
		c.deps.Log.Warnw("status_decode_failed", "err", err)
		return err
	}

	unlock := c.locks.lock(m.DeviceID)
	device, changed := c.deps.Registry.SetStatus(m.DeviceID, m.Status, c.now().UTC())
	unlock()

	if m.Status == models.StatusFault {
		c.deps.Log.Warnw("device_fault_reported", "device_id", m.DeviceID)
	}
	if c.deps.Devices != nil {
		_ = c.call(ctx, "persist_device", func(ctx context.Context) error {
			return c.deps.Devices.Save(ctx, device)
		})
	}
	if changed && c.deps.Live != nil {
		_ = c.call(ctx, "live_update", func(ctx context.Context) error {
			return c.deps.Live.Publish(ctx, broadcast.TopicDeviceStatus, statusMessage(device))
		})
	}
	return nil
}

// HandleConfigUpdate drops cached thresholds when a threshold changed.
func (c *Coordinator) HandleConfigUpdate(_ context.Context, payload []byte) error {
	u, err := DecodeConfigUpdate(payload)
	if err != nil {
		c.deps.Metrics.DecodeError()
		c.deps.Log.Warnw("config_update_decode_failed", "err", err)
		return err
	}
	if IsThresholdKey(u.ConfigKey) {
		c.deps.Thresholds.Invalidate()
	}
	return nil
}

func (c *Coordinator) call(ctx context.Context, stage string, fn func(context.Context) error) error {
	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := fn(cctx); err != nil {
		c.deps.Metrics.CollaboratorFailed(stage)
		c.deps.Log.Warnw("collaborator_failed", "stage", stage, "err", err)
		return fmt.Errorf("%s: %w", stage, err)
	}
	return nil
}

func (r *IngestResult) fail(err error) {
	if err != nil {
		r.Errs = append(r.Errs, err)
	}
}

// deviceLocks hands out one mutex per device id.
type deviceLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *deviceLocks) lock(id string) (unlock func()) {
	l.mu.Lock()
	m, ok := l.m[id]
	if !ok {
		m = &sync.Mutex{}
		l.m[id] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func sensorRecord(r models.TelemetryReading) models.SensorRecord {
	rec := models.SensorRecord{
		DeviceID:    r.DeviceID,
		Light:       r.Light,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Flame:       r.FlameDetected,
		ObservedAt:  r.ObservedAt,
	}
	if on, ok := r.ActuatorStates[models.ActuatorLight]; ok {
		rec.RGBStatus = &on
	}
	return rec
}

// latestView is the normalized shape shared by the cache and live updates.
func latestView(r models.TelemetryReading, d models.DeviceState) models.LatestReading {
	return models.LatestReading{
		DeviceID:    r.DeviceID,
		Light:       r.Light,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Flame:       r.FlameDetected != nil && *r.FlameDetected,
		RGBStatus:   d.Actuators[models.ActuatorLight],
		Online:      d.Status == models.StatusOnline,
		Timestamp:   r.ObservedAt.UnixMilli(),
	}
}

func statusMessage(d models.DeviceState) models.DeviceStatusMessage {
	return models.DeviceStatusMessage{
		DeviceID:  d.DeviceID,
		Status:    d.Status,
		Timestamp: d.LastSeenAt.UnixMilli(),
	}
}
