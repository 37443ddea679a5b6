package service

import (
	"context"
	"time"

	"smart_office/internal/config"
	"smart_office/internal/logger"
	"smart_office/internal/models"
	"smart_office/internal/repository"
)

// Authorization manages operator accounts and the bearer tokens that carry
// their role.
type Authorization interface {
	SignUp(ctx context.Context, username, password string) (models.Operator, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (models.Principal, error)
}

// Devices exposes the registry, stored readings and manual control.
type Devices interface {
	List(ctx context.Context) []models.DeviceState
	Get(ctx context.Context, id string) (models.DeviceState, error)
	Latest(ctx context.Context, id string) (models.LatestReading, error)
	History(ctx context.Context, id string, limit int) ([]models.SensorRecord, error)
	SendCommand(ctx context.Context, id, action string) error
	Hydrate(ctx context.Context) error
}

// Alarms exposes the alarm history and its handling workflow.
type Alarms interface {
	List(ctx context.Context, q AlarmQuery) ([]models.AlarmRecord, error)
	UpdateStatus(ctx context.Context, id, status, remark string) error
}

type Config interface {
	Thresholds(ctx context.Context) Thresholds
	List(ctx context.Context, typ string) ([]models.ConfigEntry, error)
	Update(ctx context.Context, u models.ConfigUpdate) (models.ConfigEntry, error)
}

// Ingestion consumes inbound transport messages.
type Ingestion interface {
	HandleMessage(ctx context.Context, topic string, payload []byte) error
}

// Liveness runs the background offline sweep.
// Stop via context cancellation in main() for graceful shutdown.
type Liveness interface {
	Run(ctx context.Context, tick time.Duration)
	Sweep(ctx context.Context) int
}

// Service aggregates all sub-services.
type Service struct {
	Devices       Devices
	Alarms        Alarms
	Config        Config
	Ingestion     Ingestion
	Liveness      Liveness
	Authorization Authorization
}

// Collaborators are the outer adapters; any of them may be nil.
type Collaborators struct {
	Commands CommandPublisher
	Configs  ConfigPusher
	Cache    LatestCache
	Live     LiveUpdates
	Metrics  Metrics
}

type Options struct {
	Control config.ControlConfig
	Topics  config.TopicsConfig
	Auth    config.AuthConfig
}

// NewService wires the repository layer and outer adapters into the
// control loop and the services behind the API.
func NewService(repos *repository.Repository, c Collaborators, opts Options, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if c.Metrics == nil {
		c.Metrics = noopMetrics{}
	}
	timeout := opts.Control.CollaboratorTimeout

	registry := NewDeviceRegistry()
	thresholds := NewThresholdStore(repos.Config, opts.Control.ThresholdTTL, log)
	dispatcher := NewCommandDispatcher(c.Commands, repos.ControlLog, registry, c.Metrics, log, timeout)
	alarms := NewAlarmService(repos.Alarms, c.Live, log)

	coordinator := NewCoordinator(IngestDeps{
		Registry:   registry,
		Thresholds: thresholds,
		Dedup:      NewAlarmDeduplicator(opts.Control.AlarmCooldown),
		Dispatcher: dispatcher,
		Alarms:     alarms,
		Readings:   repos.Readings,
		Devices:    repos.Devices,
		Cache:      c.Cache,
		Live:       c.Live,
		Metrics:    c.Metrics,
		Log:        log,
	}, IngestOptions{
		Topics:              opts.Topics,
		CollaboratorTimeout: timeout,
		MaxClockSkew:        opts.Control.MaxClockSkew,
	})

	return &Service{
		Devices:       NewDeviceService(registry, repos.Readings, repos.Devices, c.Cache, dispatcher, c.Metrics, log),
		Alarms:        alarms,
		Config:        NewConfigService(repos.Config, thresholds, c.Configs, log, timeout),
		Ingestion:     coordinator,
		Liveness:      NewSweeper(registry, repos.Devices, c.Live, c.Metrics, log, opts.Control.StaleAfter, timeout),
		Authorization: NewAuthService(repos.Operators, opts.Auth),
	}
}
