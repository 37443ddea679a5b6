package models

import (
	"fmt"
	"time"
)

type CommandKind string

const (
	CommandOn      CommandKind = "ON"
	CommandOff     CommandKind = "OFF"
	CommandSetMode CommandKind = "SET_MODE"
)

type HVACMode string

const (
	HVACHeat HVACMode = "HEAT"
	HVACCool HVACMode = "COOL"
	HVACOff  HVACMode = "OFF"
)

// Wire action names understood by the device firmware.
const (
	ActionRGBOn         = "rgb_on"
	ActionRGBOff        = "rgb_off"
	ActionBuzzerOn      = "buzzer_on"
	ActionBuzzerOff     = "buzzer_off"
	ActionHumidifierOn  = "humidifier_on"
	ActionHumidifierOff = "humidifier_off"
	ActionACHeat        = "ac_heat"
	ActionACCool        = "ac_cool"
	ActionACOff         = "ac_off"
)

// ControlAction is a single actuator instruction for one device.
type ControlAction struct {
	DeviceID string
	Actuator ActuatorKind
	Command  CommandKind
	Mode     HVACMode // set only for CommandSetMode
}

var actionNames = map[ControlAction]string{
	{Actuator: ActuatorLight, Command: CommandOn}:                     ActionRGBOn,
	{Actuator: ActuatorLight, Command: CommandOff}:                    ActionRGBOff,
	{Actuator: ActuatorBuzzer, Command: CommandOn}:                    ActionBuzzerOn,
	{Actuator: ActuatorBuzzer, Command: CommandOff}:                   ActionBuzzerOff,
	{Actuator: ActuatorHumidifier, Command: CommandOn}:                ActionHumidifierOn,
	{Actuator: ActuatorHumidifier, Command: CommandOff}:               ActionHumidifierOff,
	{Actuator: ActuatorHVAC, Command: CommandSetMode, Mode: HVACHeat}: ActionACHeat,
	{Actuator: ActuatorHVAC, Command: CommandSetMode, Mode: HVACCool}: ActionACCool,
	{Actuator: ActuatorHVAC, Command: CommandSetMode, Mode: HVACOff}:  ActionACOff,
}

// Action returns the wire action name, or "" for a combination devices do not understand.
func (a ControlAction) Action() string {
	return actionNames[ControlAction{Actuator: a.Actuator, Command: a.Command, Mode: a.Mode}]
}

func (a ControlAction) String() string {
	if a.Command == CommandSetMode {
		return fmt.Sprintf("%s %s %s(%s)", a.DeviceID, a.Actuator, a.Command, a.Mode)
	}
	return fmt.Sprintf("%s %s %s", a.DeviceID, a.Actuator, a.Command)
}

// ParseAction maps a wire action name back to a ControlAction for deviceID.
func ParseAction(deviceID, action string) (ControlAction, bool) {
	for a, name := range actionNames {
		if name == action {
			a.DeviceID = deviceID
			return a, true
		}
	}
	return ControlAction{}, false
}

// ControlCommand is the outbound JSON on the control topic.
type ControlCommand struct {
	DeviceID string         `json:"deviceId"`
	Action   string         `json:"action"`
	Params   map[string]any `json:"params,omitempty"`
}

type ControlTrigger string

const (
	TriggerAuto   ControlTrigger = "AUTO"
	TriggerManual ControlTrigger = "MANUAL"
)

type ControlResult string

const (
	ResultSuccess ControlResult = "SUCCESS"
	ResultFailed  ControlResult = "FAILED"
)

// ControlLogEntry is the audit record of one dispatched command.
type ControlLogEntry struct {
	ID       string         `json:"id"`
	DeviceID string         `json:"deviceId"`
	Action   string         `json:"action"`
	Trigger  ControlTrigger `json:"trigger"`
	Result   ControlResult  `json:"result"`
	Error    string         `json:"error,omitempty"`
	IssuedAt time.Time      `json:"issuedAt"`
}
