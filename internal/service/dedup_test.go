package service

import (
	"sync"
	"testing"
	"time"

	"smart_office/internal/models"
)

func TestAlarmDeduplicator_NoCooldownRaisesEveryTime(t *testing.T) {
	d := NewAlarmDeduplicator(0)
	for i := 0; i < 3; i++ {
		if !d.ShouldRaise("SN001", models.AlarmFire) {
			t.Fatalf("call %d suppressed with cooldown disabled", i)
		}
	}
}

func TestAlarmDeduplicator_CooldownWindow(t *testing.T) {
	now := testEpoch
	d := NewAlarmDeduplicator(time.Minute)
	d.now = func() time.Time { return now }

	if !d.ShouldRaise("SN001", models.AlarmFire) {
		t.Fatal("first raise suppressed")
	}
	now = now.Add(30 * time.Second)
	if d.ShouldRaise("SN001", models.AlarmFire) {
		t.Fatal("second raise inside window not suppressed")
	}
	// Other keys are independent.
	if !d.ShouldRaise("SN002", models.AlarmFire) || !d.ShouldRaise("SN001", models.AlarmTemp) {
		t.Fatal("different device or kind must not be suppressed")
	}
	now = now.Add(31 * time.Second)
	if !d.ShouldRaise("SN001", models.AlarmFire) {
		t.Fatal("raise after window suppressed")
	}
}

func TestAlarmDeduplicator_ConcurrentSingleWinner(t *testing.T) {
	d := NewAlarmDeduplicator(time.Hour)
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		raised int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d.ShouldRaise("SN001", models.AlarmFire) {
				mu.Lock()
				raised++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if raised != 1 {
		t.Fatalf("want exactly one raise, got %d", raised)
	}
}
