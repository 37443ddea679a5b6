package service

import (
	"testing"
	"time"

	"smart_office/internal/models"
)

func TestRecordSeen_CreatesOnline(t *testing.T) {
	r := NewDeviceRegistry()
	d, stale := r.RecordSeen("SN001", testEpoch, map[models.ActuatorKind]bool{models.ActuatorLight: true})
	if stale {
		t.Fatal("first reading reported stale")
	}
	if d.Status != models.StatusOnline || !d.LastSeenAt.Equal(testEpoch) || !d.Actuators[models.ActuatorLight] {
		t.Fatalf("unexpected state %+v", d)
	}
}

func TestRecordSeen_NoRegressionButActuatorsMerge(t *testing.T) {
	r := NewDeviceRegistry()
	t1 := testEpoch.Add(time.Minute)
	t0 := testEpoch

	r.RecordSeen("SN001", t1, map[models.ActuatorKind]bool{models.ActuatorLight: false})
	d, stale := r.RecordSeen("SN001", t0, map[models.ActuatorKind]bool{models.ActuatorLight: true, models.ActuatorBuzzer: true})

	if !stale {
		t.Fatal("older reading not reported stale")
	}
	if !d.LastSeenAt.Equal(t1) {
		t.Fatalf("lastSeenAt regressed to %v", d.LastSeenAt)
	}
	if !d.Actuators[models.ActuatorLight] || !d.Actuators[models.ActuatorBuzzer] {
		t.Fatalf("actuators not merged: %+v", d.Actuators)
	}
	got, _ := r.Get("SN001")
	if !got.LastSeenAt.Equal(t1) || !got.Actuators[models.ActuatorLight] {
		t.Fatalf("stored state wrong: %+v", got)
	}
}

func TestRecordSeen_SnapshotIsCopy(t *testing.T) {
	r := NewDeviceRegistry()
	d, _ := r.RecordSeen("SN001", testEpoch, map[models.ActuatorKind]bool{models.ActuatorLight: true})
	d.Actuators[models.ActuatorLight] = false

	got, _ := r.Get("SN001")
	if !got.Actuators[models.ActuatorLight] {
		t.Fatal("mutating a snapshot changed the registry")
	}
}

func TestMarkOfflineIfStale(t *testing.T) {
	r := NewDeviceRegistry()
	r.RecordSeen("old", testEpoch, nil)
	r.RecordSeen("fresh", testEpoch.Add(90*time.Second), nil)
	r.SetStatus("broken", models.StatusFault, testEpoch)

	now := testEpoch.Add(3 * time.Minute)
	flipped := r.MarkOfflineIfStale(now, 2*time.Minute)
	if len(flipped) != 1 || flipped[0].DeviceID != "old" || flipped[0].Status != models.StatusOffline {
		t.Fatalf("unexpected flipped %+v", flipped)
	}
	if again := r.MarkOfflineIfStale(now, 2*time.Minute); len(again) != 0 {
		t.Fatalf("already offline devices flipped again: %+v", again)
	}
	if d, _ := r.Get("broken"); d.Status != models.StatusFault {
		t.Fatalf("fault overwritten: %s", d.Status)
	}

	// A fresh reading brings the device back.
	d, _ := r.RecordSeen("old", now, nil)
	if d.Status != models.StatusOnline {
		t.Fatalf("want ONLINE after new reading, got %s", d.Status)
	}
	if len(r.List()) != 3 {
		t.Fatal("devices must never be removed")
	}
}

func TestSetStatus(t *testing.T) {
	r := NewDeviceRegistry()
	d, changed := r.SetStatus("SN001", models.StatusFault, testEpoch)
	if !changed || d.Status != models.StatusFault || !d.LastSeenAt.Equal(testEpoch) {
		t.Fatalf("unexpected %+v changed=%v", d, changed)
	}
	if _, changed := r.SetStatus("SN001", models.StatusFault, testEpoch.Add(time.Second)); changed {
		t.Fatal("same status reported as change")
	}
}

func TestSetHVACMode_KnownDevicesOnly(t *testing.T) {
	r := NewDeviceRegistry()
	r.SetHVACMode("ghost", models.HVACHeat)
	if _, ok := r.Get("ghost"); ok {
		t.Fatal("SetHVACMode must not create devices")
	}
	r.RecordSeen("SN001", testEpoch, nil)
	r.SetHVACMode("SN001", models.HVACCool)
	if d, _ := r.Get("SN001"); d.HVACMode != models.HVACCool {
		t.Fatalf("hvac mode: got %q", d.HVACMode)
	}
}

func TestRestore_KeepsNewerInMemory(t *testing.T) {
	r := NewDeviceRegistry()
	r.RecordSeen("SN001", testEpoch.Add(time.Hour), nil)

	r.Restore([]models.DeviceState{
		{DeviceID: "SN001", Status: models.StatusOffline, LastSeenAt: testEpoch},
		{DeviceID: "SN002", Status: "weird", LastSeenAt: testEpoch},
		{DeviceID: ""},
	})

	if d, _ := r.Get("SN001"); d.Status != models.StatusOnline || !d.LastSeenAt.Equal(testEpoch.Add(time.Hour)) {
		t.Fatalf("newer in-memory state overwritten: %+v", d)
	}
	d, ok := r.Get("SN002")
	if !ok || d.Status != models.StatusOffline || d.Actuators == nil {
		t.Fatalf("restored device wrong: %+v", d)
	}
	counts := r.StatusCounts()
	if counts["ONLINE"] != 1 || counts["OFFLINE"] != 1 {
		t.Fatalf("counts: %v", counts)
	}
}

func TestSetStatus_OnlineHeartbeatAdvancesLastSeen(t *testing.T) {
	r := NewDeviceRegistry()
	r.RecordSeen("SN001", testEpoch, nil)

	hb := testEpoch.Add(3 * time.Minute)
	d, _ := r.SetStatus("SN001", models.StatusOnline, hb)
	if !d.LastSeenAt.Equal(hb) {
		t.Fatalf("heartbeat must advance lastSeenAt, got %v", d.LastSeenAt)
	}

	// Older heartbeats and non-ONLINE reports never move it.
	d, _ = r.SetStatus("SN001", models.StatusOnline, testEpoch.Add(time.Minute))
	if !d.LastSeenAt.Equal(hb) {
		t.Fatalf("older heartbeat regressed lastSeenAt to %v", d.LastSeenAt)
	}
	d, _ = r.SetStatus("SN001", models.StatusFault, testEpoch.Add(10*time.Minute))
	if !d.LastSeenAt.Equal(hb) {
		t.Fatalf("FAULT report moved lastSeenAt to %v", d.LastSeenAt)
	}
}
