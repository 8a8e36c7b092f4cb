// Package srs provides access to Stanford Research Systems lock-in
// amplifiers.  The SR810 speaks a terse non-SCPI command set over GPIB or
// RS-232; the table below covers the reference, input, gain, filter, and
// data transfer groups.
package srs

import (
	"time"

	"github.com/ee-meas/instrgraph/command"
	"github.com/ee-meas/instrgraph/comm"
	"github.com/ee-meas/instrgraph/device"
	"github.com/ee-meas/instrgraph/scpi"
	"github.com/ee-meas/instrgraph/signal"
)

// SR810Commands returns the SR810 command table.
func SR810Commands() *command.Dict {
	return command.MustDict(
		command.Command{Name: "idn", Ascii: "*IDN", HasGetter: true, GetterType: command.String, IsConfig: true,
			Doc: "identification string"},
		command.Command{Name: "phase", Ascii: "PHAS", HasGetter: true, HasSetter: true, GetterType: command.Float,
			Limits: []float64{-360, 729.99}, Doc: "reference phase shift in degrees"},
		command.Command{Name: "freq", Ascii: "FREQ", HasGetter: true, HasSetter: true, GetterType: command.Float,
			Limits: []float64{0.001, 102000}, Doc: "internal reference frequency in Hz"},
		command.Command{Name: "amplitude", Ascii: "SLVL", HasGetter: true, HasSetter: true, GetterType: command.Float,
			Limits: []float64{0.004, 5.0}, Doc: "sine output amplitude in Vrms"},
		command.Command{Name: "harmonic", Ascii: "HARM", HasGetter: true, HasSetter: true, GetterType: command.Int,
			Limits: []float64{1, 19999}, Doc: "detection harmonic"},
		command.Command{Name: "reference_source", Ascii: "FMOD", HasGetter: true, HasSetter: true, GetterType: command.Int, IsConfig: true,
			Lookup: map[string]interface{}{"external": 0, "internal": 1}},
		command.Command{Name: "input_config", Ascii: "ISRC", HasGetter: true, HasSetter: true, GetterType: command.Int, IsConfig: true,
			Lookup: map[string]interface{}{"A": 0, "A-B": 1, "I_1M": 2, "I_100M": 3}},
		command.Command{Name: "grounding", Ascii: "IGND", HasGetter: true, HasSetter: true, GetterType: command.Bool, IsConfig: true,
			Doc: "input shield grounding"},
		command.Command{Name: "coupling", Ascii: "ICPL", HasGetter: true, HasSetter: true, GetterType: command.Int, IsConfig: true,
			Lookup: map[string]interface{}{"AC": 0, "DC": 1}},
		command.Command{Name: "line_notch", Ascii: "ILIN", HasGetter: true, HasSetter: true, GetterType: command.Int, IsConfig: true,
			Lookup: map[string]interface{}{"none": 0, "line": 1, "2xline": 2, "both": 3}},
		command.Command{Name: "sensitivity", Ascii: "SENS", HasGetter: true, HasSetter: true, GetterType: command.Int, IsConfig: true,
			Lookup: map[string]interface{}{
				"2nV": 0, "5nV": 1, "10nV": 2, "20nV": 3, "50nV": 4, "100nV": 5,
				"200nV": 6, "500nV": 7, "1uV": 8, "2uV": 9, "5uV": 10, "10uV": 11,
				"20uV": 12, "50uV": 13, "100uV": 14, "200uV": 15, "500uV": 16,
				"1mV": 17, "2mV": 18, "5mV": 19, "10mV": 20, "20mV": 21,
				"50mV": 22, "100mV": 23, "200mV": 24, "500mV": 25, "1V": 26,
			}},
		command.Command{Name: "reserve", Ascii: "RMOD", HasGetter: true, HasSetter: true, GetterType: command.Int, IsConfig: true,
			Lookup: map[string]interface{}{"high_reserve": 0, "normal": 1, "low_noise": 2}},
		command.Command{Name: "tau", Ascii: "OFLT", HasGetter: true, HasSetter: true, GetterType: command.Int, IsConfig: true,
			Lookup: map[string]interface{}{
				"10us": 0, "30us": 1, "100us": 2, "300us": 3, "1ms": 4, "3ms": 5,
				"10ms": 6, "30ms": 7, "100ms": 8, "300ms": 9, "1s": 10, "3s": 11,
				"10s": 12, "30s": 13, "100s": 14, "300s": 15,
			}, Doc: "time constant"},
		command.Command{Name: "filter_slope", Ascii: "OFSL", HasGetter: true, HasSetter: true, GetterType: command.Int, IsConfig: true,
			Lookup: map[string]interface{}{"6dB": 0, "12dB": 1, "18dB": 2, "24dB": 3}},
		command.Command{Name: "sync_filter", Ascii: "SYNC", HasGetter: true, HasSetter: true, GetterType: command.Bool, IsConfig: true},
		command.Command{Name: "ch1_disp", Ascii: "DDEF {value},{ratio}", AsciiGet: "DDEF?",
			HasGetter: true, HasSetter: true, GetterType: command.String, SetterInputs: 2, IsConfig: true,
			Doc: "channel 1 display quantity and ratio source"},
		command.Command{Name: "off_exp", Ascii: "OEXP {chan},{value}", AsciiGet: "OEXP? {chan}",
			HasGetter: true, HasSetter: true, GetterType: command.String, GetterInputs: 1, SetterInputs: 2, IsConfig: true,
			Doc: "output offset and expand"},
		command.Command{Name: "output", Ascii: "OUTP {chan}", AsciiGet: "OUTP? {chan}",
			HasGetter: true, GetterInputs: 1, GetterType: command.Float,
			Doc: "X, Y, R, or theta reading"},
		command.Command{Name: "read_disp", Ascii: "OUTR", HasGetter: true, GetterType: command.Float,
			Doc: "channel 1 display reading"},
		command.Command{Name: "aux_in", Ascii: "OAUX {chan}", AsciiGet: "OAUX? {chan}",
			HasGetter: true, GetterInputs: 1, GetterType: command.Float},
		command.Command{Name: "sample_rate", Ascii: "SRAT", HasGetter: true, HasSetter: true, GetterType: command.Int, IsConfig: true,
			Lookup: map[string]interface{}{
				"62.5mHz": 0, "125mHz": 1, "250mHz": 2, "500mHz": 3, "1Hz": 4,
				"2Hz": 5, "4Hz": 6, "8Hz": 7, "16Hz": 8, "32Hz": 9, "64Hz": 10,
				"128Hz": 11, "256Hz": 12, "512Hz": 13, "trigger": 14,
			}, Doc: "data buffer sample rate"},
		command.Command{Name: "buffer_mode", Ascii: "SEND", HasGetter: true, HasSetter: true, GetterType: command.Int, IsConfig: true,
			Lookup: map[string]interface{}{"shot": 0, "loop": 1}},
		command.Command{Name: "n_points", Ascii: "SPTS", HasGetter: true, GetterType: command.Int,
			Doc: "points stored in the data buffer"},
		command.Command{Name: "read_buffer", Ascii: "TRCA", HasGetter: true, GetterType: command.FloatArray,
			Doc: "ASCII transfer of the channel 1 buffer"},
		command.Command{Name: "trig", Ascii: "TRIG", HasSetter: true, Doc: "software trigger"},
		command.Command{Name: "start_scan", Ascii: "STRT", HasSetter: true},
		command.Command{Name: "pause_scan", Ascii: "PAUS", HasSetter: true},
		command.Command{Name: "reset_scan", Ascii: "REST", HasSetter: true},
	)
}

// NewSR810 returns a control layer for an SR810 reached over TCP, typically
// through a terminal server.  The SR810 predates the SCPI error queue, so
// write handshaking is off.
func NewSR810(name, addr string) *scpi.Driver {
	return scpi.NewTCPDriver(name, addr, SR810Commands(), false)
}

// NewSR810GPIB returns a control layer for an SR810 behind a Prologix
// GPIB-USB adapter.
func NewSR810GPIB(name, port string, gpibAddr int) *scpi.Driver {
	maker := comm.GPIBConnMaker(port, 115200, gpibAddr)
	pool := comm.NewPool(1, time.Hour, maker)
	return scpi.NewDriver(name, SR810Commands(), pool, false)
}

// SR810Device synthesizes the component graph for an SR810.  Templated
// commands land as fixed-config extras: the X, Y, R, and theta outputs, the
// first two aux inputs, the channel 2 offset-and-expand, and the channel 1
// display with ratio disabled.
func SR810Device(cl signal.ControlLayer) (*device.Device, error) {
	return device.Build(cl.Name(), cl,
		device.WithExtra(device.Extra{Name: "output_x", Command: "output", Configs: map[string]interface{}{"chan": 1}}),
		device.WithExtra(device.Extra{Name: "output_y", Command: "output", Configs: map[string]interface{}{"chan": 2}}),
		device.WithExtra(device.Extra{Name: "output_r", Command: "output", Configs: map[string]interface{}{"chan": 3}}),
		device.WithExtra(device.Extra{Name: "output_theta", Command: "output", Configs: map[string]interface{}{"chan": 4}}),
		device.WithExtra(device.Extra{Name: "aux_in_1", Command: "aux_in", Configs: map[string]interface{}{"chan": 1}}),
		device.WithExtra(device.Extra{Name: "aux_in_2", Command: "aux_in", Configs: map[string]interface{}{"chan": 2}}),
		device.WithExtra(device.Extra{Name: "off_exp", Command: "off_exp", Configs: map[string]interface{}{"chan": 2}, Kind: device.Config}),
		device.WithExtra(device.Extra{Name: "ch1_disp", Command: "ch1_disp", Configs: map[string]interface{}{"ratio": 0}, Kind: device.Config}),
	)
}
