package service

import (
	"context"

	"smart_office/internal/models"
)

// Collaborators the control loop talks to. Any of them may be nil, in which
// case the corresponding step is skipped.

type CommandPublisher interface {
	PublishCommand(ctx context.Context, cmd models.ControlCommand) error
}

type ConfigPusher interface {
	PushConfig(ctx context.Context, u models.ConfigUpdate) error
}

type LatestCache interface {
	PutLatest(ctx context.Context, r models.LatestReading) error
	GetLatest(ctx context.Context, deviceID string) (*models.LatestReading, error)
}

type LiveUpdates interface {
	Publish(ctx context.Context, topic string, v any) error
}

type AlarmRaiser interface {
	Raise(ctx context.Context, ev models.AlarmEvent) error
}

type Metrics interface {
	ReadingIngested(seconds float64)
	DecodeError()
	CommandDispatched(action string, ok bool)
	AlarmRaised(kind string)
	AlarmSuppressed(kind string)
	CollaboratorFailed(stage string)
	SetDevices(counts map[string]int)
}

type noopMetrics struct{}

func (noopMetrics) ReadingIngested(float64)        {}
func (noopMetrics) DecodeError()                   {}
func (noopMetrics) CommandDispatched(string, bool) {}
func (noopMetrics) AlarmRaised(string)             {}
func (noopMetrics) AlarmSuppressed(string)         {}
func (noopMetrics) CollaboratorFailed(string)      {}
func (noopMetrics) SetDevices(map[string]int)      {}
