package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"smart_office/internal/broadcast"
	"smart_office/internal/logger"
	"smart_office/internal/models"
	"smart_office/internal/repository"
)

var (
	ErrInvalidTimeRange = errors.New("invalid time range: from must be <= to")
	ErrInvalidFilter    = errors.New("invalid alarm filter")
	ErrInvalidStatus    = errors.New("invalid alarm status")
	ErrAlarmNotFound    = errors.New("alarm not found")
	// ErrAlarmNotStored marks a Raise whose record never reached the store.
	ErrAlarmNotStored = errors.New("alarm not stored")
)

// AlarmService persists raised alarms, pushes them to live subscribers and
// serves the alarm history.
type AlarmService struct {
	repo repository.AlarmRepo
	live LiveUpdates
	log  *logger.Logger
	now  func() time.Time
}

var _ AlarmRaiser = (*AlarmService)(nil)

func NewAlarmService(repo repository.AlarmRepo, live LiveUpdates, log *logger.Logger) *AlarmService {
	if log == nil {
		log = logger.Nop()
	}
	return &AlarmService{repo: repo, live: live, log: log, now: time.Now}
}

// Raise hands a confirmed alarm to persistence and to live subscribers. Both
// are attempted; their failures are joined.
func (s *AlarmService) Raise(ctx context.Context, ev models.AlarmEvent) error {
	msg := ev.Handoff()
	var errs []error
	if s.repo != nil {
		_, err := s.repo.Append(ctx, models.AlarmRecord{
			DeviceID:  ev.DeviceID,
			AlarmType: ev.Kind,
			Level:     ev.Severity,
			Message:   ev.Message,
			RaisedAt:  ev.RaisedAt,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %w", ErrAlarmNotStored, err))
		}
	}
	if s.live != nil {
		if err := s.live.Publish(ctx, broadcast.TopicAlarm, msg); err != nil {
			errs = append(errs, fmt.Errorf("broadcast alarm: %w", err))
		}
	}
	s.log.Infow("alarm_raised", "device_id", ev.DeviceID, "kind", ev.Kind, "level", ev.Severity)
	return errors.Join(errs...)
}

// AlarmQuery is the raw, unvalidated filter as accepted from callers.
type AlarmQuery struct {
	From     time.Time
	To       time.Time
	Type     string
	Status   string
	DeviceID string
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

func normalizeEnum(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// normalizeAlarmQuery validates q and converts it into a repository filter.
func normalizeAlarmQuery(q AlarmQuery) (models.AlarmFilter, error) {
	f := models.AlarmFilter{
		From:     normalizeToUTC(q.From),
		To:       normalizeToUTC(q.To),
		Type:     models.AlarmKind(normalizeEnum(q.Type)),
		Status:   models.AlarmStatus(normalizeEnum(q.Status)),
		DeviceID: strings.TrimSpace(q.DeviceID),
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return models.AlarmFilter{}, ErrInvalidTimeRange
	}
	if f.Type != "" && !f.Type.Valid() {
		return models.AlarmFilter{}, fmt.Errorf("%w: type %q", ErrInvalidFilter, q.Type)
	}
	if f.Status != "" && !f.Status.Valid() {
		return models.AlarmFilter{}, fmt.Errorf("%w: status %q", ErrInvalidFilter, q.Status)
	}
	return f, nil
}

func (s *AlarmService) List(ctx context.Context, q AlarmQuery) ([]models.AlarmRecord, error) {
	f, err := normalizeAlarmQuery(q)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, f)
}

// UpdateStatus moves an alarm through its handling workflow.
func (s *AlarmService) UpdateStatus(ctx context.Context, id, status, remark string) error {
	st := models.AlarmStatus(normalizeEnum(status))
	if !st.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	err := s.repo.UpdateStatus(ctx, strings.TrimSpace(id), st, strings.TrimSpace(remark), s.now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrAlarmNotFound, id)
	}
	return err
}
