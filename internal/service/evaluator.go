package service

import (
	"fmt"

	"smart_office/internal/models"
)

// Hazard is a condition that should try to raise an alarm, independent of
// any actuator action taken for it.
type Hazard struct {
	Kind     models.AlarmKind
	Severity models.Severity
	Message  string
}

type Evaluation struct {
	Actions []models.ControlAction
	Hazards []Hazard
}

// Evaluate maps one reading to control actions and hazards. Each quantity is
// an independent hysteresis rule; a nil field skips its rule. actuators is
// the device's current actuator state.
//
// Temperature differs from light and humidity: inside its band it emits
// SET_MODE(OFF) on every reading instead of nothing.
func Evaluate(r models.TelemetryReading, th Thresholds, actuators map[models.ActuatorKind]bool) Evaluation {
	var ev Evaluation
	act := func(kind models.ActuatorKind, cmd models.CommandKind, mode models.HVACMode) {
		ev.Actions = append(ev.Actions, models.ControlAction{
			DeviceID: r.DeviceID,
			Actuator: kind,
			Command:  cmd,
			Mode:     mode,
		})
	}

	if r.Light != nil {
		lightOn := actuators[models.ActuatorLight]
		switch {
		case *r.Light < th.LightLow && !lightOn:
			act(models.ActuatorLight, models.CommandOn, "")
		case *r.Light > th.LightHigh && lightOn:
			act(models.ActuatorLight, models.CommandOff, "")
		}
	}

	if r.Temperature != nil {
		switch {
		case *r.Temperature < th.TemperatureLow:
			act(models.ActuatorHVAC, models.CommandSetMode, models.HVACHeat)
		case *r.Temperature > th.TemperatureHigh:
			act(models.ActuatorHVAC, models.CommandSetMode, models.HVACCool)
		default:
			act(models.ActuatorHVAC, models.CommandSetMode, models.HVACOff)
		}
	}

	if r.Humidity != nil {
		switch {
		case *r.Humidity < th.HumidityLow:
			act(models.ActuatorHumidifier, models.CommandOn, "")
		case *r.Humidity > th.HumidityHigh:
			act(models.ActuatorHumidifier, models.CommandOff, "")
		}
	}

	if r.FlameDetected != nil && *r.FlameDetected {
		act(models.ActuatorBuzzer, models.CommandOn, "")
		ev.Hazards = append(ev.Hazards, Hazard{
			Kind:     models.AlarmFire,
			Severity: models.SeverityCritical,
			Message:  fmt.Sprintf("flame detected by device %s", r.DeviceID),
		})
	}

	return ev
}
