// Package rigol provides access to Rigol bench equipment, here the DP832
// triple-output power supply.  Per-output commands are templated on {chan}
// and fan out across the three channels.
package rigol

import (
	"github.com/ee-meas/instrgraph/command"
	"github.com/ee-meas/instrgraph/device"
	"github.com/ee-meas/instrgraph/scpi"
	"github.com/ee-meas/instrgraph/signal"
)

// DP832Commands returns the DP832 command table.
func DP832Commands() *command.Dict {
	return command.MustDict(
		command.Command{Name: "idn", Ascii: "*IDN", HasGetter: true, GetterType: command.String, IsConfig: true},
		command.Command{Name: "voltage", Ascii: ":SOURce{chan}:VOLTage",
			HasGetter: true, HasSetter: true, GetterInputs: 1, SetterInputs: 2,
			GetterType: command.Float, Limits: []float64{0, 32},
			Doc: "programmed output voltage"},
		command.Command{Name: "current", Ascii: ":SOURce{chan}:CURRent",
			HasGetter: true, HasSetter: true, GetterInputs: 1, SetterInputs: 2,
			GetterType: command.Float, Limits: []float64{0, 3.2},
			Doc: "programmed current limit"},
		command.Command{Name: "ovp", Ascii: ":SOURce{chan}:VOLTage:PROTection",
			HasGetter: true, HasSetter: true, GetterInputs: 1, SetterInputs: 2,
			GetterType: command.Float, IsConfig: true},
		command.Command{Name: "ovp_enable", Ascii: ":SOURce{chan}:VOLTage:PROTection:STATe",
			HasGetter: true, HasSetter: true, GetterInputs: 1, SetterInputs: 2,
			GetterType: command.Bool, IsConfig: true},
		command.Command{Name: "ocp", Ascii: ":SOURce{chan}:CURRent:PROTection",
			HasGetter: true, HasSetter: true, GetterInputs: 1, SetterInputs: 2,
			GetterType: command.Float, IsConfig: true},
		command.Command{Name: "ocp_enable", Ascii: ":SOURce{chan}:CURRent:PROTection:STATe",
			HasGetter: true, HasSetter: true, GetterInputs: 1, SetterInputs: 2,
			GetterType: command.Bool, IsConfig: true},
		command.Command{Name: "output", Ascii: ":OUTPut CH{chan},{value}",
			AsciiGet:  ":OUTPut? CH{chan}",
			HasGetter: true, HasSetter: true, GetterInputs: 1, SetterInputs: 2,
			GetterType: command.String,
			Lookup:     map[string]interface{}{"on": "ON", "off": "OFF"}},
		command.Command{Name: "meas_volt", Ascii: ":MEASure:VOLTage CH{chan}",
			AsciiGet:  ":MEASure:VOLTage? CH{chan}",
			HasGetter: true, GetterInputs: 1, GetterType: command.Float},
		command.Command{Name: "meas_curr", Ascii: ":MEASure:CURRent CH{chan}",
			AsciiGet:  ":MEASure:CURRent? CH{chan}",
			HasGetter: true, GetterInputs: 1, GetterType: command.Float},
		command.Command{Name: "meas_power", Ascii: ":MEASure:POWEr CH{chan}",
			AsciiGet:  ":MEASure:POWEr? CH{chan}",
			HasGetter: true, GetterInputs: 1, GetterType: command.Float},
	)
}

// NewDP832 returns a control layer for a DP832 over LAN.
func NewDP832(name, addr string) *scpi.Driver {
	return scpi.NewTCPDriver(name, addr, DP832Commands(), true)
}

// DP832Device synthesizes the component graph for a DP832, one component
// per command per output channel.
func DP832Device(cl signal.ControlLayer) (*device.Device, error) {
	return device.Build(cl.Name(), cl, device.WithChannels("chan", 1, 2, 3))
}
