// Package keysight provides access to Keysight bench instruments: the
// 34465A digital multimeter and the InfiniiVision oscilloscopes.
package keysight

import (
	"github.com/ee-meas/instrgraph/command"
	"github.com/ee-meas/instrgraph/device"
	"github.com/ee-meas/instrgraph/filestore"
	"github.com/ee-meas/instrgraph/scpi"
	"github.com/ee-meas/instrgraph/signal"
)

// DMMCommands returns the 34465A command table.  Voltage sense commands are
// templated on {ac_dc} and fan out to AC and DC components.
func DMMCommands() *command.Dict {
	return command.MustDict(
		command.Command{Name: "idn", Ascii: "*IDN", HasGetter: true, GetterType: command.String, IsConfig: true},
		command.Command{Name: "meas_volt", Ascii: "MEASure:VOLTage:{ac_dc}",
			HasGetter: true, GetterInputs: 1, GetterType: command.Float,
			Doc: "one-shot voltage measurement with autoranging"},
		command.Command{Name: "volt_range", Ascii: "SENSe:VOLTage:{ac_dc}:RANGe",
			HasGetter: true, HasSetter: true, GetterInputs: 1, SetterInputs: 2,
			GetterType: command.Float, IsConfig: true,
			Lookup: map[string]interface{}{"100mV": 0.1, "1V": 1.0, "10V": 10.0, "100V": 100.0, "1kV": 1000.0}},
		command.Command{Name: "volt_autorange", Ascii: "SENSe:VOLTage:{ac_dc}:RANGe:AUTO",
			HasGetter: true, HasSetter: true, GetterInputs: 1, SetterInputs: 2,
			GetterType: command.Bool, IsConfig: true},
		command.Command{Name: "nplc", Ascii: "SENSe:VOLTage:DC:NPLC",
			HasGetter: true, HasSetter: true, GetterType: command.Float, IsConfig: true,
			Lookup: map[string]interface{}{
				"0.001": 0.001, "0.002": 0.002, "0.006": 0.006, "0.02": 0.02,
				"0.06": 0.06, "0.2": 0.2, "1": 1.0, "10": 10.0, "100": 100.0,
			}, Doc: "integration time in power line cycles"},
		command.Command{Name: "autozero", Ascii: "SENSe:VOLTage:DC:ZERO:AUTO",
			HasGetter: true, HasSetter: true, GetterType: command.Bool, IsConfig: true},
		command.Command{Name: "aperture", Ascii: "SENSe:VOLTage:DC:APERture",
			HasGetter: true, HasSetter: true, GetterType: command.Float, IsConfig: true,
			Limits: []float64{2e-5, 1}, Doc: "integration time in seconds"},
		command.Command{Name: "aperture_enable", Ascii: "SENSe:VOLTage:DC:APERture:ENABled",
			HasGetter: true, HasSetter: true, GetterType: command.Bool, IsConfig: true},
		command.Command{Name: "trig_source", Ascii: "TRIGger:SOURce",
			HasGetter: true, HasSetter: true, GetterType: command.String, IsConfig: true,
			Doc: "IMM, EXT, or BUS"},
		command.Command{Name: "trig_count", Ascii: "TRIGger:COUNt",
			HasGetter: true, HasSetter: true, GetterType: command.Int, IsConfig: true,
			Limits: []float64{1, 1e6}},
		command.Command{Name: "trig_delay", Ascii: "TRIGger:DELay",
			HasGetter: true, HasSetter: true, GetterType: command.Float, IsConfig: true},
		command.Command{Name: "trig_slope", Ascii: "TRIGger:SLOPe",
			HasGetter: true, HasSetter: true, GetterType: command.String, IsConfig: true},
		command.Command{Name: "reads_per_trigger", Ascii: "SAMPle:COUNt",
			HasGetter: true, HasSetter: true, GetterType: command.Int, IsConfig: true,
			Limits: []float64{1, 1e9}},
		command.Command{Name: "sample_timer", Ascii: "SAMPle:TIMer",
			HasGetter: true, HasSetter: true, GetterType: command.Float, IsConfig: true},
		command.Command{Name: "sample_source", Ascii: "SAMPle:SOURce",
			HasGetter: true, HasSetter: true, GetterType: command.String, IsConfig: true,
			Doc: "IMM or TIM, pacing within a trigger"},
		command.Command{Name: "data_points", Ascii: "DATA:POINts",
			HasGetter: true, GetterType: command.Int,
			Doc: "readings accumulated in memory"},
		command.Command{Name: "initiate", Ascii: "INITiate", HasSetter: true,
			Doc: "arm the trigger system"},
		command.Command{Name: "abort", Ascii: "ABORt", HasSetter: true},
		command.Command{Name: "burst_volt", Ascii: "FETCh",
			HasGetter: true, GetterType: command.FloatArray,
			Doc: "retrieve buffered readings after a burst"},
		command.Command{Name: "burst_volt_timer", Ascii: "R",
			HasGetter: true, GetterType: command.FloatArray,
			Doc: "read and erase buffered readings, for sample-timer paced bursts"},
	)
}

// NewDMM returns a control layer for a 34465A over LAN.  The 34465A honors
// the SCPI error queue, so every write is handshook.
func NewDMM(name, addr string) *scpi.Driver {
	return scpi.NewTCPDriver(name, addr, DMMCommands(), true)
}

// burstMonitor awaits a buffered acquisition: arm, poll the accumulated
// reading count until the full burst is in memory.
func burstMonitor(cl signal.ControlLayer, readings float64) *signal.StatusMonitor {
	return &signal.StatusMonitor{
		CL:           cl,
		TriggerNames: []string{"initiate"},
		StatusName:   "data_points",
		Threshold:    signal.GreaterEq,
		Level:        readings,
	}
}

// DMMDevice synthesizes the component graph for a 34465A.  dataDir is where
// burst captures are written.  Two capture components are attached:
// burst_volt, an externally triggered 1024-sample burst, and
// burst_volt_timer, a sample-timer paced burst of 2048 triggers.
func DMMDevice(cl signal.ControlLayer, dataDir string) (*device.Device, error) {
	burst := map[string]interface{}{
		"reads_per_trigger": 1024, "aperture": 20e-6,
		"trig_source": "EXT", "trig_count": 1,
	}
	burstTimer := map[string]interface{}{
		"reads_per_trigger": 8, "aperture": 20e-6,
		"trig_source": "EXT", "trig_count": 2048,
		"sample_timer": 320e-6, "repeats": 1,
	}
	return device.Build(cl.Name(), cl,
		device.WithVariants("ac_dc", "AC", "DC"),
		device.WithArrayRule("burst_volt",
			filestore.Rule(dataDir, filestore.CSVSaver{}, burst, burstMonitor(cl, 1024))),
		device.WithArrayRule("burst_volt_timer",
			filestore.Rule(dataDir, filestore.CSVSaver{}, burstTimer, burstMonitor(cl, 8*2048))),
	)
}
