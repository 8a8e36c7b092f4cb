// Package agilent provides an interface to agilent test and measurement
// equipment, here the 33500 series function generators.
package agilent

import (
	"time"

	"github.com/tarm/serial"

	"github.com/ee-meas/instrgraph/command"
	"github.com/ee-meas/instrgraph/comm"
	"github.com/ee-meas/instrgraph/device"
	"github.com/ee-meas/instrgraph/scpi"
	"github.com/ee-meas/instrgraph/signal"
)

// makeSerConf makes a new serial.Config with correct parity, baud, etc, set.
func makeSerConf(addr string) *serial.Config {
	return &serial.Config{
		Name:        addr,
		Baud:        57600,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: 10 * time.Minute}
}

// FuncGenCommands returns the 33500 series command table.
func FuncGenCommands() *command.Dict {
	return command.MustDict(
		command.Command{Name: "idn", Ascii: "*IDN", HasGetter: true, GetterType: command.String, IsConfig: true},
		command.Command{Name: "function", Ascii: "SOURce1:FUNCtion",
			HasGetter: true, HasSetter: true, GetterType: command.String, IsConfig: true,
			Lookup: map[string]interface{}{
				"sine": "SIN", "square": "SQU", "triangle": "TRI",
				"ramp": "RAMP", "pulse": "PULS", "noise": "NOIS", "dc": "DC",
			}},
		command.Command{Name: "freq", Ascii: "SOURce1:FREQuency",
			HasGetter: true, HasSetter: true, GetterType: command.Float,
			Limits: []float64{1e-6, 30e6}, Doc: "output frequency in Hz"},
		command.Command{Name: "amplitude", Ascii: "SOURce1:VOLTage",
			HasGetter: true, HasSetter: true, GetterType: command.Float,
			Limits: []float64{1e-3, 10}, Doc: "output amplitude in Vpp"},
		command.Command{Name: "offset", Ascii: "SOURce1:VOLTage:OFFSet",
			HasGetter: true, HasSetter: true, GetterType: command.Float,
			Limits: []float64{-4.995, 4.995}},
		command.Command{Name: "volt_unit", Ascii: "SOURce1:VOLTage:UNIT",
			HasGetter: true, HasSetter: true, GetterType: command.String, IsConfig: true,
			Doc: "VPP, VRMS, or DBM"},
		command.Command{Name: "phase", Ascii: "SOURce1:PHASe",
			HasGetter: true, HasSetter: true, GetterType: command.Float,
			Limits: []float64{-360, 360}},
		command.Command{Name: "duty_cycle", Ascii: "SOURce1:FUNCtion:SQUare:DCYCle",
			HasGetter: true, HasSetter: true, GetterType: command.Float, IsConfig: true,
			Limits: []float64{0.01, 99.99}},
		command.Command{Name: "load", Ascii: "OUTPut1:LOAD",
			HasGetter: true, HasSetter: true, GetterType: command.Float, IsConfig: true,
			Doc: "expected load impedance in ohms"},
		command.Command{Name: "output", Ascii: "OUTPut1",
			HasGetter: true, HasSetter: true, GetterType: command.Bool},
		command.Command{Name: "sync_output", Ascii: "OUTPut:SYNC",
			HasGetter: true, HasSetter: true, GetterType: command.Bool, IsConfig: true},
		command.Command{Name: "burst_state", Ascii: "SOURce1:BURSt:STATe",
			HasGetter: true, HasSetter: true, GetterType: command.Bool, IsConfig: true},
		command.Command{Name: "burst_cycles", Ascii: "SOURce1:BURSt:NCYCles",
			HasGetter: true, HasSetter: true, GetterType: command.Int, IsConfig: true,
			Limits: []float64{1, 1e8}},
		command.Command{Name: "trig_source", Ascii: "TRIGger1:SOURce",
			HasGetter: true, HasSetter: true, GetterType: command.String, IsConfig: true,
			Doc: "IMM, EXT, TIM, or BUS"},
		command.Command{Name: "trig", Ascii: "*TRG", HasSetter: true,
			Doc: "bus trigger"},
	)
}

// NewFunctionGenerator returns a control layer for a 33500 over LAN, with
// SCPI error handshaking on every write.
func NewFunctionGenerator(name, addr string) *scpi.Driver {
	return scpi.NewTCPDriver(name, addr, FuncGenCommands(), true)
}

// NewFunctionGeneratorSerial returns a control layer for a 33500 on an
// RS-232 port.
func NewFunctionGeneratorSerial(name, addr string) *scpi.Driver {
	maker := comm.SerialConnMaker(makeSerConf(addr))
	pool := comm.NewPool(1, time.Hour, maker)
	return scpi.NewDriver(name, FuncGenCommands(), pool, true)
}

// FuncGenDevice synthesizes the component graph for a function generator.
func FuncGenDevice(cl signal.ControlLayer) (*device.Device, error) {
	return device.Build(cl.Name(), cl)
}
