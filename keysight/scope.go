package keysight

import (
	"github.com/ee-meas/instrgraph/command"
	"github.com/ee-meas/instrgraph/device"
	"github.com/ee-meas/instrgraph/filestore"
	"github.com/ee-meas/instrgraph/scpi"
	"github.com/ee-meas/instrgraph/signal"
)

// ScopeCommands returns the command table for the InfiniiVision 2000/3000 X
// series.  Vertical commands are templated on {chan} and fan out across the
// four analog channels.
func ScopeCommands() *command.Dict {
	return command.MustDict(
		command.Command{Name: "idn", Ascii: "*IDN", HasGetter: true, GetterType: command.String, IsConfig: true},
		command.Command{Name: "scale", Ascii: ":CHANnel{chan}:RANGe",
			HasGetter: true, HasSetter: true, GetterInputs: 1, SetterInputs: 2,
			GetterType: command.Float, IsConfig: true,
			Doc: "vertical full scale in volts"},
		command.Command{Name: "offset", Ascii: ":CHANnel{chan}:OFFSet",
			HasGetter: true, HasSetter: true, GetterInputs: 1, SetterInputs: 2,
			GetterType: command.Float, IsConfig: true},
		command.Command{Name: "coupling", Ascii: ":CHANnel{chan}:COUPling",
			HasGetter: true, HasSetter: true, GetterInputs: 1, SetterInputs: 2,
			GetterType: command.String, IsConfig: true, Doc: "AC or DC"},
		command.Command{Name: "bw_limit", Ascii: ":CHANnel{chan}:BWLimit",
			HasGetter: true, HasSetter: true, GetterInputs: 1, SetterInputs: 2,
			GetterType: command.Bool, IsConfig: true},
		command.Command{Name: "chan_display", Ascii: ":CHANnel{chan}:DISPlay",
			HasGetter: true, HasSetter: true, GetterInputs: 1, SetterInputs: 2,
			GetterType: command.Bool, IsConfig: true},
		command.Command{Name: "timebase", Ascii: ":TIMebase:RANGe",
			HasGetter: true, HasSetter: true, GetterType: command.Float, IsConfig: true,
			Doc: "full timebase width in seconds"},
		command.Command{Name: "timebase_pos", Ascii: ":TIMebase:POSition",
			HasGetter: true, HasSetter: true, GetterType: command.Float, IsConfig: true},
		command.Command{Name: "acq_type", Ascii: ":ACQuire:TYPE",
			HasGetter: true, HasSetter: true, GetterType: command.String, IsConfig: true,
			Doc: "NORM, AVER, HRES, or PEAK"},
		command.Command{Name: "acq_count", Ascii: ":ACQuire:COUNt",
			HasGetter: true, HasSetter: true, GetterType: command.Int, IsConfig: true,
			Limits: []float64{2, 65536}},
		command.Command{Name: "trigger_source", Ascii: ":TRIGger:EDGE:SOURce",
			HasGetter: true, HasSetter: true, GetterType: command.String, IsConfig: true},
		command.Command{Name: "trigger_level", Ascii: ":TRIGger:EDGE:LEVel",
			HasGetter: true, HasSetter: true, GetterType: command.Float},
		command.Command{Name: "trigger_slope", Ascii: ":TRIGger:EDGE:SLOPe",
			HasGetter: true, HasSetter: true, GetterType: command.String, IsConfig: true},
		command.Command{Name: "trigger_sweep", Ascii: ":TRIGger:SWEep",
			HasGetter: true, HasSetter: true, GetterType: command.String, IsConfig: true,
			Doc: "AUTO or NORM"},
		command.Command{Name: "meas_freq", Ascii: ":MEASure:FREQuency CHANnel{chan}",
			AsciiGet:  ":MEASure:FREQuency? CHANnel{chan}",
			HasGetter: true, GetterInputs: 1, GetterType: command.Float},
		command.Command{Name: "meas_vpp", Ascii: ":MEASure:VPP CHANnel{chan}",
			AsciiGet:  ":MEASure:VPP? CHANnel{chan}",
			HasGetter: true, GetterInputs: 1, GetterType: command.Float},
		command.Command{Name: "meas_vavg", Ascii: ":MEASure:VAVerage CHANnel{chan}",
			AsciiGet:  ":MEASure:VAVerage? CHANnel{chan}",
			HasGetter: true, GetterInputs: 1, GetterType: command.Float},
		command.Command{Name: "meas_phase", Ascii: ":MEASure:PHASe CHANnel{chan1},CHANnel{chan2}",
			AsciiGet:  ":MEASure:PHASe? CHANnel{chan1},CHANnel{chan2}",
			HasGetter: true, GetterInputs: 2, GetterType: command.Float,
			Doc: "phase difference between two channels"},
		command.Command{Name: "xincrement", Ascii: ":WAVeform:XINCrement",
			HasGetter: true, GetterType: command.Float},
		command.Command{Name: "run", Ascii: ":RUN", HasSetter: true},
		command.Command{Name: "stop", Ascii: ":STOP", HasSetter: true},
		command.Command{Name: "single", Ascii: ":SINGle", HasSetter: true},
		command.Command{Name: "digitize", Ascii: ":DIGitize", HasSetter: true,
			Doc: "acquire and halt"},
		command.Command{Name: "display_data", Ascii: ":DISPlay:DATA? PNG,COLor",
			HasGetter: true, GetterType: command.ByteArray,
			Doc: "screen dump as a PNG block"},
		command.Command{Name: "waveform_data", Ascii: ":WAVeform:DATA",
			HasGetter: true, GetterType: command.ByteArray},
	)
}

// NewScope returns a control layer for an InfiniiVision scope over LAN.
func NewScope(name, addr string) *scpi.Driver {
	return scpi.NewTCPDriver(name, addr, ScopeCommands(), false)
}

// ScopeDevice synthesizes the component graph for a four-channel scope.
// Screen dumps from display_data land in dataDir as PNG files; meas_phase
// is fixed to the channel 1 to channel 2 phase difference, as on the bench.
func ScopeDevice(cl signal.ControlLayer, dataDir string) (*device.Device, error) {
	return device.Build(cl.Name(), cl,
		device.WithChannels("chan", 1, 2, 3, 4),
		device.WithExtra(device.Extra{
			Name:    "meas_phase",
			Command: "meas_phase",
			Configs: map[string]interface{}{"chan1": 1, "chan2": 2},
		}),
		device.WithArrayRule("display_data",
			filestore.Rule(dataDir, filestore.PNGSaver{}, nil, nil)),
	)
}
