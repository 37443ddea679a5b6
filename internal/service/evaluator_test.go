package service

import (
	"testing"

	"smart_office/internal/models"
)

func lightActions(ev Evaluation) []models.ControlAction {
	var out []models.ControlAction
	for _, a := range ev.Actions {
		if a.Actuator == models.ActuatorLight {
			out = append(out, a)
		}
	}
	return out
}

func TestEvaluate_LightOnThenIdempotent(t *testing.T) {
	th := DefaultThresholds()
	for _, lux := range []float64{0, 120.5, 299.99} {
		r := models.TelemetryReading{DeviceID: "SN001", Light: f64(lux)}

		got := lightActions(Evaluate(r, th, map[models.ActuatorKind]bool{models.ActuatorLight: false}))
		if len(got) != 1 || got[0].Command != models.CommandOn {
			t.Fatalf("light=%v, actuator off: want one ON, got %+v", lux, got)
		}

		// Same reading once the light is on: nothing to do.
		got = lightActions(Evaluate(r, th, map[models.ActuatorKind]bool{models.ActuatorLight: true}))
		if len(got) != 0 {
			t.Fatalf("light=%v, actuator on: want no action, got %+v", lux, got)
		}
	}
}

func TestEvaluate_LightOffAboveHigh(t *testing.T) {
	th := DefaultThresholds()
	r := models.TelemetryReading{DeviceID: "SN001", Light: f64(351)}

	got := lightActions(Evaluate(r, th, map[models.ActuatorKind]bool{models.ActuatorLight: true}))
	if len(got) != 1 || got[0].Command != models.CommandOff || got[0].Action() != models.ActionRGBOff {
		t.Fatalf("want rgb_off, got %+v", got)
	}
	if got := lightActions(Evaluate(r, th, nil)); len(got) != 0 {
		t.Fatalf("light already off: want no action, got %+v", got)
	}
}

func TestEvaluate_LightHysteresisBand(t *testing.T) {
	th := DefaultThresholds()
	for _, lux := range []float64{th.LightLow, 320, th.LightHigh} {
		for _, on := range []bool{false, true} {
			r := models.TelemetryReading{DeviceID: "SN001", Light: f64(lux)}
			got := lightActions(Evaluate(r, th, map[models.ActuatorKind]bool{models.ActuatorLight: on}))
			if len(got) != 0 {
				t.Fatalf("light=%v on=%v: want no action in band, got %+v", lux, on, got)
			}
		}
	}
}

func TestEvaluate_Temperature(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		name string
		temp float64
		want string
	}{
		{"below low heats", 15, models.ActionACHeat},
		{"above high cools", 30, models.ActionACCool},
		{"at low is in band", 18, models.ActionACOff},
		{"in band re-asserts off", 22, models.ActionACOff},
		{"at high is in band", 28, models.ActionACOff},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ev := Evaluate(models.TelemetryReading{DeviceID: "SN001", Temperature: f64(tc.temp)}, th, nil)
			if len(ev.Actions) != 1 || ev.Actions[0].Action() != tc.want {
				t.Fatalf("want %s, got %+v", tc.want, ev.Actions)
			}
		})
	}
}

func TestEvaluate_Humidity(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		hum  float64
		want []string
	}{
		{39, []string{models.ActionHumidifierOn}},
		{71, []string{models.ActionHumidifierOff}},
		{55, nil},
	}
	for _, tc := range tests {
		ev := Evaluate(models.TelemetryReading{DeviceID: "SN002", Humidity: f64(tc.hum)}, th, nil)
		var got []string
		for _, a := range ev.Actions {
			got = append(got, a.Action())
		}
		if len(got) != len(tc.want) || (len(got) == 1 && got[0] != tc.want[0]) {
			t.Fatalf("humidity=%v: want %v, got %v", tc.hum, tc.want, got)
		}
	}
}

func TestEvaluate_AbsentFieldsSkipRules(t *testing.T) {
	ev := Evaluate(models.TelemetryReading{DeviceID: "SN001"}, DefaultThresholds(), nil)
	if len(ev.Actions) != 0 || len(ev.Hazards) != 0 {
		t.Fatalf("empty reading: want nothing, got %+v", ev)
	}
	ev = Evaluate(models.TelemetryReading{DeviceID: "SN001", FlameDetected: boolp(false)}, DefaultThresholds(), nil)
	if len(ev.Actions) != 0 || len(ev.Hazards) != 0 {
		t.Fatalf("flame=false: want nothing, got %+v", ev)
	}
}

func TestEvaluate_ColdBrightRoom(t *testing.T) {
	r := models.TelemetryReading{DeviceID: "SN001", Temperature: f64(15), Light: f64(500)}
	ev := Evaluate(r, DefaultThresholds(), map[models.ActuatorKind]bool{models.ActuatorLight: false})

	if len(ev.Actions) != 1 {
		t.Fatalf("want exactly one action, got %+v", ev.Actions)
	}
	a := ev.Actions[0]
	if a.Action() != models.ActionACHeat || a.DeviceID != "SN001" {
		t.Fatalf("want SN001 ac_heat, got %s", a)
	}
	if len(lightActions(ev)) != 0 {
		t.Fatalf("want no light action")
	}
}

func TestEvaluate_FlameRaisesFireHazard(t *testing.T) {
	for _, buzzerOn := range []bool{false, true} {
		r := models.TelemetryReading{DeviceID: "SN001", FlameDetected: boolp(true)}
		ev := Evaluate(r, DefaultThresholds(), map[models.ActuatorKind]bool{models.ActuatorBuzzer: buzzerOn})

		if len(ev.Actions) != 1 || ev.Actions[0].Action() != models.ActionBuzzerOn {
			t.Fatalf("buzzer=%v: want buzzer_on, got %+v", buzzerOn, ev.Actions)
		}
		if len(ev.Hazards) != 1 {
			t.Fatalf("want one hazard, got %+v", ev.Hazards)
		}
		hz := ev.Hazards[0]
		if hz.Kind != models.AlarmFire || hz.Severity != models.SeverityCritical {
			t.Fatalf("want FIRE/CRITICAL, got %+v", hz)
		}
	}
}

func TestEvaluate_UsesGivenThresholds(t *testing.T) {
	th := DefaultThresholds()
	th.TemperatureLow = 10
	ev := Evaluate(models.TelemetryReading{DeviceID: "SN001", Temperature: f64(15)}, th, nil)
	if len(ev.Actions) != 1 || ev.Actions[0].Action() != models.ActionACOff {
		t.Fatalf("want ac_off with lowered threshold, got %+v", ev.Actions)
	}
}

func TestEvaluate_OneActionPerActuatorEvenWithBadThresholds(t *testing.T) {
	band := func(low, high float64) Thresholds {
		return Thresholds{
			LightLow: low, LightHigh: high,
			TemperatureLow: low, TemperatureHigh: high,
			HumidityLow: low, HumidityHigh: high,
		}
	}
	sets := []struct {
		name string
		th   Thresholds
	}{
		{"defaults", DefaultThresholds()},
		{"low equals high", band(50, 50)},
		{"inverted", band(70, 30)},
		{"inverted wide", band(1000, -1000)},
		{"zero", band(0, 0)},
	}
	values := []float64{-1000.5, -1, 0, 29.9, 30, 49.9, 50, 50.1, 70, 70.1, 999, 1000.5}

	for _, tc := range sets {
		t.Run(tc.name, func(t *testing.T) {
			for _, v := range values {
				for _, on := range []bool{false, true} {
					for _, flame := range []bool{false, true} {
						r := models.TelemetryReading{
							DeviceID:      "SN001",
							Light:         f64(v),
							Temperature:   f64(v),
							Humidity:      f64(v),
							FlameDetected: boolp(flame),
						}
						actuators := map[models.ActuatorKind]bool{
							models.ActuatorLight:      on,
							models.ActuatorHumidifier: on,
							models.ActuatorBuzzer:     on,
						}
						ev := Evaluate(r, tc.th, actuators)

						seen := map[models.ActuatorKind]models.ControlAction{}
						for _, a := range ev.Actions {
							if prev, dup := seen[a.Actuator]; dup {
								t.Fatalf("value=%v on=%v: conflicting %v and %v", v, on, prev, a)
							}
							seen[a.Actuator] = a
							if a.Action() == "" {
								t.Fatalf("value=%v: action %v has no wire name", v, a)
							}
						}
						// Temperature always yields exactly one mode.
						if _, ok := seen[models.ActuatorHVAC]; !ok {
							t.Fatalf("value=%v: no hvac action", v)
						}
						if _, ok := seen[models.ActuatorBuzzer]; ok != flame {
							t.Fatalf("value=%v flame=%v: buzzer action present=%v", v, flame, ok)
						}
					}
				}
			}
		})
	}
}
