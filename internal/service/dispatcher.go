package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smart_office/internal/logger"
	"smart_office/internal/models"
	"smart_office/internal/repository"
)

var (
	// ErrCommandNotDelivered wraps any failure to hand a command to the transport.
	ErrCommandNotDelivered = errors.New("command not delivered")
	errNoTransport         = errors.New("transport unavailable")
)

const DefaultCollaboratorTimeout = 3 * time.Second

// CommandDispatcher publishes control actions fire-and-forget and keeps the
// audit trail. It is shared by the automatic loop and manual control.
type CommandDispatcher struct {
	pub      CommandPublisher
	audit    repository.ControlLogRepo
	registry *DeviceRegistry
	metrics  Metrics
	log      *logger.Logger
	timeout  time.Duration
}

func NewCommandDispatcher(pub CommandPublisher, audit repository.ControlLogRepo, registry *DeviceRegistry, m Metrics, log *logger.Logger, timeout time.Duration) *CommandDispatcher {
	if m == nil {
		m = noopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if timeout <= 0 {
		timeout = DefaultCollaboratorTimeout
	}
	return &CommandDispatcher{pub: pub, audit: audit, registry: registry, metrics: m, log: log, timeout: timeout}
}

// Dispatch publishes a. There is no retry or queueing; a failure is logged,
// recorded and returned wrapped in ErrCommandNotDelivered.
func (d *CommandDispatcher) Dispatch(ctx context.Context, a models.ControlAction, trigger models.ControlTrigger) error {
	name := a.Action()
	if name == "" {
		return fmt.Errorf("%w: %s", ErrUnknownAction, a)
	}
	cmd := models.ControlCommand{DeviceID: a.DeviceID, Action: name}

	err := errNoTransport
	if d.pub != nil {
		pctx, cancel := context.WithTimeout(ctx, d.timeout)
		err = d.pub.PublishCommand(pctx, cmd)
		cancel()
	}

	entry := models.ControlLogEntry{
		DeviceID: a.DeviceID,
		Action:   name,
		Trigger:  trigger,
		Result:   models.ResultSuccess,
		IssuedAt: time.Now().UTC(),
	}
	if err != nil {
		entry.Result = models.ResultFailed
		entry.Error = err.Error()
		d.log.Warnw("command_publish_failed", "device_id", a.DeviceID, "action", name, "trigger", trigger, "err", err)
	} else {
		d.log.Debugw("command_published", "device_id", a.DeviceID, "action", name, "trigger", trigger)
		if a.Actuator == models.ActuatorHVAC && d.registry != nil {
			d.registry.SetHVACMode(a.DeviceID, a.Mode)
		}
	}
	d.metrics.CommandDispatched(name, err == nil)
	d.record(ctx, entry)

	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCommandNotDelivered, name, err)
	}
	return nil
}

func (d *CommandDispatcher) record(ctx context.Context, e models.ControlLogEntry) {
	if d.audit == nil {
		return
	}
	actx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.audit.Record(actx, e); err != nil {
		d.metrics.CollaboratorFailed("control_log")
		d.log.Warnw("control_log_failed", "device_id", e.DeviceID, "action", e.Action, "err", err)
	}
}
