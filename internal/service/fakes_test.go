package service

import (
	"context"
	"sync"
	"time"

	"smart_office/internal/models"
	"smart_office/internal/repository"
)

func f64(v float64) *float64 { return &v }
func boolp(v bool) *bool      { return &v }

var testEpoch = time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)

// readingRepoStub records appended readings.
type readingRepoStub struct {
	mu       sync.Mutex
	appended []models.SensorRecord
	latest   *models.SensorRecord
	history  []models.SensorRecord
	gotLimit int
	err      error
}

func (s *readingRepoStub) Append(_ context.Context, r models.SensorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.appended = append(s.appended, r)
	return nil
}

func (s *readingRepoStub) Latest(_ context.Context, _ string) (*models.SensorRecord, error) {
	return s.latest, s.err
}

func (s *readingRepoStub) History(_ context.Context, _ string, limit int) ([]models.SensorRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gotLimit = limit
	return s.history, s.err
}

type deviceRepoStub struct {
	mu     sync.Mutex
	saved  []models.DeviceState
	stored []models.DeviceState
	err    error
}

func (s *deviceRepoStub) Save(_ context.Context, d models.DeviceState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, d)
	return nil
}

func (s *deviceRepoStub) List(_ context.Context) ([]models.DeviceState, error) {
	return s.stored, s.err
}

type alarmRepoStub struct {
	mu        sync.Mutex
	appended  []models.AlarmRecord
	gotFilter models.AlarmFilter
	listCalls int
	updated   []string
	gotStatus models.AlarmStatus
	gotRemark string
	err       error
}

func (s *alarmRepoStub) Append(_ context.Context, a models.AlarmRecord) (models.AlarmRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return models.AlarmRecord{}, s.err
	}
	s.appended = append(s.appended, a)
	return a, nil
}

func (s *alarmRepoStub) List(_ context.Context, f models.AlarmFilter) ([]models.AlarmRecord, error) {
	s.listCalls++
	s.gotFilter = f
	return nil, s.err
}

func (s *alarmRepoStub) UpdateStatus(_ context.Context, id string, status models.AlarmStatus, remark string, _ time.Time) error {
	s.updated = append(s.updated, id)
	s.gotStatus = status
	s.gotRemark = remark
	return s.err
}

// configRepoStub doubles as the threshold source.
type configRepoStub struct {
	mu         sync.Mutex
	thresholds map[string]float64
	entries    map[string]models.ConfigEntry
	set        []models.ConfigEntry
	fetches    int
	err        error
	block      chan struct{} // when set, ThresholdValues waits on it
}

func (s *configRepoStub) ThresholdValues(ctx context.Context) (map[string]float64, error) {
	s.mu.Lock()
	s.fetches++
	block := s.block
	s.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]float64, len(s.thresholds))
	for k, v := range s.thresholds {
		out[k] = v
	}
	return out, nil
}

func (s *configRepoStub) List(_ context.Context, typ string) ([]models.ConfigEntry, error) {
	var out []models.ConfigEntry
	for _, e := range s.entries {
		if typ == "" || e.Type == typ {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *configRepoStub) Get(_ context.Context, key string) (*models.ConfigEntry, error) {
	e, ok := s.entries[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (s *configRepoStub) Set(_ context.Context, e models.ConfigEntry) error {
	if s.err != nil {
		return s.err
	}
	s.set = append(s.set, e)
	return nil
}

func (s *configRepoStub) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

type controlLogStub struct {
	mu      sync.Mutex
	entries []models.ControlLogEntry
	err     error
}

func (s *controlLogStub) Record(_ context.Context, e models.ControlLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, e)
	return nil
}

type publisherStub struct {
	mu   sync.Mutex
	cmds []models.ControlCommand
	err  error
	wait bool // block until ctx is done
}

func (p *publisherStub) PublishCommand(ctx context.Context, cmd models.ControlCommand) error {
	if p.wait {
		<-ctx.Done()
		return ctx.Err()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.cmds = append(p.cmds, cmd)
	return nil
}

func (p *publisherStub) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.cmds))
	for _, c := range p.cmds {
		out = append(out, c.Action)
	}
	return out
}

type pusherStub struct {
	pushed []models.ConfigUpdate
	err    error
}

func (p *pusherStub) PushConfig(_ context.Context, u models.ConfigUpdate) error {
	p.pushed = append(p.pushed, u)
	return p.err
}

type cacheStub struct {
	mu     sync.Mutex
	put    []models.LatestReading
	stored *models.LatestReading
	err    error
}

func (c *cacheStub) PutLatest(_ context.Context, r models.LatestReading) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.put = append(c.put, r)
	return nil
}

func (c *cacheStub) GetLatest(_ context.Context, _ string) (*models.LatestReading, error) {
	return c.stored, c.err
}

type published struct {
	topic string
	v     any
}

type liveStub struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (l *liveStub) Publish(_ context.Context, topic string, v any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.msgs = append(l.msgs, published{topic: topic, v: v})
	return nil
}

func (l *liveStub) onTopic(topic string) []any {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []any
	for _, m := range l.msgs {
		if m.topic == topic {
			out = append(out, m.v)
		}
	}
	return out
}

// alarmRaiserStub collects raised alarms.
type alarmRaiserStub struct {
	mu     sync.Mutex
	events []models.AlarmEvent
	err    error
}

func (a *alarmRaiserStub) Raise(_ context.Context, ev models.AlarmEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
	return a.err
}

func (a *alarmRaiserStub) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.events)
}

type metricsStub struct {
	mu          sync.Mutex
	ingested    int
	decodeErrs  int
	commands    map[string]int
	raised      int
	suppressed  int
	failures    map[string]int
	deviceGauge map[string]int
}

func newMetricsStub() *metricsStub {
	return &metricsStub{commands: map[string]int{}, failures: map[string]int{}}
}

func (m *metricsStub) ReadingIngested(float64) { m.mu.Lock(); m.ingested++; m.mu.Unlock() }
func (m *metricsStub) DecodeError()            { m.mu.Lock(); m.decodeErrs++; m.mu.Unlock() }
func (m *metricsStub) AlarmRaised(string)      { m.mu.Lock(); m.raised++; m.mu.Unlock() }
func (m *metricsStub) AlarmSuppressed(string)  { m.mu.Lock(); m.suppressed++; m.mu.Unlock() }

func (m *metricsStub) CommandDispatched(action string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.commands[action+":ok"]++
	} else {
		m.commands[action+":failed"]++
	}
}

func (m *metricsStub) CollaboratorFailed(stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[stage]++
}

func (m *metricsStub) SetDevices(counts map[string]int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deviceGauge = counts
}

func (m *metricsStub) failuresFor(stage string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[stage]
}
