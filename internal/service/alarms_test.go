package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"smart_office/internal/broadcast"
	"smart_office/internal/models"
	"smart_office/internal/repository"
)

func TestAlarmService_RaisePersistsAndBroadcasts(t *testing.T) {
	repo := &alarmRepoStub{}
	live := &liveStub{}
	svc := NewAlarmService(repo, live, nil)

	ev := models.AlarmEvent{DeviceID: "SN001", Kind: models.AlarmFire, Severity: models.SeverityCritical, Message: "flame", RaisedAt: testEpoch}
	if err := svc.Raise(context.Background(), ev); err != nil {
		t.Fatalf("Raise: %v", err)
	}
	if len(repo.appended) != 1 {
		t.Fatalf("want 1 persisted alarm, got %d", len(repo.appended))
	}
	rec := repo.appended[0]
	if rec.AlarmType != models.AlarmFire || rec.Level != models.SeverityCritical || !rec.RaisedAt.Equal(testEpoch) {
		t.Fatalf("persisted %+v", rec)
	}
	msgs := live.onTopic(broadcast.TopicAlarm)
	if len(msgs) != 1 {
		t.Fatalf("want 1 broadcast, got %d", len(msgs))
	}
	if m := msgs[0].(models.AlarmMessage); m.Timestamp != testEpoch.UnixMilli() || m.AlarmType != models.AlarmFire {
		t.Fatalf("broadcast %+v", m)
	}
}

func TestAlarmService_RaiseJoinsFailures(t *testing.T) {
	dbErr := errors.New("db down")
	wsErr := errors.New("hub closed")
	svc := NewAlarmService(&alarmRepoStub{err: dbErr}, &liveStub{err: wsErr}, nil)

	err := svc.Raise(context.Background(), models.AlarmEvent{DeviceID: "SN001", Kind: models.AlarmFire})
	if !errors.Is(err, dbErr) || !errors.Is(err, wsErr) {
		t.Fatalf("want both failures, got %v", err)
	}

	// Broadcast still happens when persistence fails.
	live := &liveStub{}
	svc = NewAlarmService(&alarmRepoStub{err: dbErr}, live, nil)
	_ = svc.Raise(context.Background(), models.AlarmEvent{DeviceID: "SN001", Kind: models.AlarmFire})
	if len(live.msgs) != 1 {
		t.Fatal("broadcast skipped after persist failure")
	}
}

func Test_normalizeAlarmQuery(t *testing.T) {
	t.Parallel()

	plus2 := time.FixedZone("UTC+2", 2*3600)
	tests := []struct {
		name    string
		in      AlarmQuery
		want    models.AlarmFilter
		wantErr error
	}{
		{
			name: "all zero ok",
			in:   AlarmQuery{},
			want: models.AlarmFilter{},
		},
		{
			name: "normalize tz and enums",
			in: AlarmQuery{
				From:     time.Date(2025, time.September, 10, 10, 0, 0, 0, plus2),
				To:       time.Date(2025, time.September, 10, 12, 0, 0, 0, time.UTC),
				Type:     " fire ",
				Status:   "unhandled",
				DeviceID: " SN001 ",
			},
			want: models.AlarmFilter{
				From:     time.Date(2025, time.September, 10, 8, 0, 0, 0, time.UTC),
				To:       time.Date(2025, time.September, 10, 12, 0, 0, 0, time.UTC),
				Type:     models.AlarmFire,
				Status:   models.AlarmUnhandled,
				DeviceID: "SN001",
			},
		},
		{
			name: "from after to",
			in: AlarmQuery{
				From: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
				To:   time.Date(2025, 1, 1, 23, 0, 0, 0, time.UTC),
			},
			wantErr: ErrInvalidTimeRange,
		},
		{name: "unknown type", in: AlarmQuery{Type: "smoke"}, wantErr: ErrInvalidFilter},
		{name: "unknown status", in: AlarmQuery{Status: "lost"}, wantErr: ErrInvalidFilter},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := normalizeAlarmQuery(tc.in)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected err %v; got %v", tc.wantErr, err)
			}
			if tc.wantErr != nil {
				return
			}
			if !got.From.Equal(tc.want.From) || !got.To.Equal(tc.want.To) ||
				got.Type != tc.want.Type || got.Status != tc.want.Status || got.DeviceID != tc.want.DeviceID {
				t.Fatalf("got %+v; want %+v", got, tc.want)
			}
		})
	}
}

func TestAlarmService_List(t *testing.T) {
	repo := &alarmRepoStub{}
	svc := NewAlarmService(repo, nil, nil)

	if _, err := svc.List(context.Background(), AlarmQuery{Type: "temp"}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if repo.listCalls != 1 || repo.gotFilter.Type != models.AlarmTemp {
		t.Fatalf("repo got %+v", repo.gotFilter)
	}

	_, err := svc.List(context.Background(), AlarmQuery{Status: "??"})
	if !errors.Is(err, ErrInvalidFilter) || repo.listCalls != 1 {
		t.Fatalf("repo must not be called on validation error: %v", err)
	}
}

func TestAlarmService_UpdateStatus(t *testing.T) {
	repo := &alarmRepoStub{}
	svc := NewAlarmService(repo, nil, nil)

	if err := svc.UpdateStatus(context.Background(), "a-1", "handled", " replaced sensor "); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if repo.gotStatus != models.AlarmHandled || repo.gotRemark != "replaced sensor" {
		t.Fatalf("repo got %s %q", repo.gotStatus, repo.gotRemark)
	}

	if err := svc.UpdateStatus(context.Background(), "a-1", "done", ""); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("want ErrInvalidStatus, got %v", err)
	}

	repo.err = repository.ErrNotFound
	if err := svc.UpdateStatus(context.Background(), "missing", "IGNORED", ""); !errors.Is(err, ErrAlarmNotFound) {
		t.Fatalf("want ErrAlarmNotFound, got %v", err)
	}
}
