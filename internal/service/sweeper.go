package service

import (
	"context"
	"time"

	"smart_office/internal/broadcast"
	"smart_office/internal/logger"
	"smart_office/internal/repository"
)

const DefaultStaleAfter = 2 * time.Minute

// Sweeper marks devices OFFLINE once they stop reporting.
type Sweeper struct {
	registry   *DeviceRegistry
	devices    repository.DeviceRepo
	live       LiveUpdates
	metrics    Metrics
	log        *logger.Logger
	staleAfter time.Duration
	timeout    time.Duration
}

func NewSweeper(registry *DeviceRegistry, devices repository.DeviceRepo, live LiveUpdates, m Metrics, log *logger.Logger, staleAfter, timeout time.Duration) *Sweeper {
	if m == nil {
		m = noopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	if timeout <= 0 {
		timeout = DefaultCollaboratorTimeout
	}
	return &Sweeper{
		registry:   registry,
		devices:    devices,
		live:       live,
		metrics:    m,
		log:        log,
		staleAfter: staleAfter,
		timeout:    timeout,
	}
}

// Run ticks at the given interval until ctx is canceled.
func (s *Sweeper) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.sweep(ctx, now)
		}
	}
}

// Sweep runs one pass at the current time and reports how many devices went offline.
func (s *Sweeper) Sweep(ctx context.Context) int {
	return s.sweep(ctx, time.Now())
}

func (s *Sweeper) sweep(ctx context.Context, now time.Time) int {
	flipped := s.registry.MarkOfflineIfStale(now, s.staleAfter)
	for _, d := range flipped {
		s.log.Infow("device_offline", "device_id", d.DeviceID, "last_seen_at", d.LastSeenAt)
		if s.devices != nil {
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			if err := s.devices.Save(cctx, d); err != nil {
				s.metrics.CollaboratorFailed("persist_device")
				s.log.Warnw("device_save_failed", "device_id", d.DeviceID, "err", err)
			}
			cancel()
		}
		if s.live != nil {
			if err := s.live.Publish(ctx, broadcast.TopicDeviceStatus, statusMessage(d)); err != nil {
				s.metrics.CollaboratorFailed("live_update")
				s.log.Warnw("device_status_broadcast_failed", "device_id", d.DeviceID, "err", err)
			}
		}
	}
	s.metrics.SetDevices(s.registry.StatusCounts())
	return len(flipped)
}
