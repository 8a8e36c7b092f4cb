package srs

import (
	"testing"

	"github.com/ee-meas/instrgraph/device"
	"github.com/ee-meas/instrgraph/signal"
	"github.com/ee-meas/instrgraph/sim"
)

func TestSR810DeviceGraph(t *testing.T) {
	layer := sim.New("lockin", SR810Commands())
	dev, err := SR810Device(layer)
	if err != nil {
		t.Fatal(err)
	}
	for name, kind := range map[string]device.Kind{
		"freq":          device.Normal,
		"tau":           device.Config,
		"sensitivity":   device.Config,
		"read_disp":     device.Normal,
		"output_x":      device.Normal,
		"output_theta":  device.Normal,
		"off_exp":       device.Config,
		"ch1_disp":      device.Config,
		"trig":          device.Omitted,
		"start_scan":    device.Omitted,
	} {
		c, ok := dev.Component(name)
		if !ok {
			t.Errorf("missing component %q", name)
			continue
		}
		if c.Kind != kind {
			t.Errorf("%s kind = %v, want %v", name, c.Kind, kind)
		}
	}
	// the buffer transfer returns an array and has no capture rule here
	if _, ok := dev.Component("read_buffer"); ok {
		t.Error("read_buffer should be skipped")
	}
}

func TestSR810OutputsAreFixedConfig(t *testing.T) {
	layer := sim.New("lockin", SR810Commands())
	layer.SetValue("output", map[string]interface{}{"chan": 3}, 0.7)
	dev, err := SR810Device(layer)
	if err != nil {
		t.Fatal(err)
	}
	c, _ := dev.Component("output_r")
	r, err := c.Signal.Read()
	if err != nil {
		t.Fatal(err)
	}
	if r["lockin_output_r"].Value != 0.7 {
		t.Errorf("output_r = %v, want 0.7", r["lockin_output_r"].Value)
	}
}

func TestSR810TauLookupExposed(t *testing.T) {
	layer := sim.New("lockin", SR810Commands())
	dev, err := SR810Device(layer)
	if err != nil {
		t.Fatal(err)
	}
	desc := dev.DescribeConfiguration()
	d, ok := desc["lockin_tau"]
	if !ok {
		t.Fatal("missing lockin_tau description")
	}
	if len(d.EnumStrs) != 16 {
		t.Errorf("tau enum strs = %d entries, want 16", len(d.EnumStrs))
	}
	c, _ := dev.Component("tau")
	if _, err := c.Signal.(signal.Settable).Set("10ms"); err != nil {
		t.Fatal(err)
	}
	recs := layer.SetsOf("tau")
	if len(recs) != 1 || recs[0].Value != "10ms" {
		t.Fatalf("tau sets = %+v", recs)
	}
	v, err := layer.Get("tau", nil)
	if err != nil {
		t.Fatal(err)
	}
	if v != 6 {
		t.Errorf("tau wire value = %v, want 6", v)
	}
}
