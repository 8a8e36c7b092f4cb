package rigol

import (
	"testing"

	"github.com/ee-meas/instrgraph/signal"
	"github.com/ee-meas/instrgraph/sim"
)

func TestDP832Graph(t *testing.T) {
	layer := sim.New("psu", DP832Commands())
	dev, err := DP832Device(layer)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{
		"voltage_chan1", "voltage_chan2", "voltage_chan3",
		"current_chan1", "output_chan2", "meas_volt_chan3", "ovp_chan1",
	} {
		if _, ok := dev.Component(name); !ok {
			t.Errorf("missing component %q", name)
		}
	}
}

func TestDP832PerChannelIndependence(t *testing.T) {
	layer := sim.New("psu", DP832Commands())
	dev, err := DP832Device(layer)
	if err != nil {
		t.Fatal(err)
	}
	c1, _ := dev.Component("voltage_chan1")
	c2, _ := dev.Component("voltage_chan2")
	if _, err := c1.Signal.(signal.Settable).Set(3.3); err != nil {
		t.Fatal(err)
	}
	if _, err := c2.Signal.(signal.Settable).Set(5.0); err != nil {
		t.Fatal(err)
	}
	r1, err := c1.Signal.Read()
	if err != nil {
		t.Fatal(err)
	}
	r2, err := c2.Signal.Read()
	if err != nil {
		t.Fatal(err)
	}
	if r1["psu_voltage_chan1"].Value != 3.3 || r2["psu_voltage_chan2"].Value != 5.0 {
		t.Errorf("channel values = %v / %v, want 3.3 / 5.0",
			r1["psu_voltage_chan1"].Value, r2["psu_voltage_chan2"].Value)
	}
}

func TestDP832LimitsEnforced(t *testing.T) {
	layer := sim.New("psu", DP832Commands())
	dev, err := DP832Device(layer)
	if err != nil {
		t.Fatal(err)
	}
	c, _ := dev.Component("current_chan1")
	if _, err := c.Signal.(signal.Settable).Set(10.0); err == nil {
		t.Error("current above the 3.2 A limit accepted")
	}
}

func TestDP832OutputLookup(t *testing.T) {
	layer := sim.New("psu", DP832Commands())
	dev, err := DP832Device(layer)
	if err != nil {
		t.Fatal(err)
	}
	c, _ := dev.Component("output_chan1")
	if _, err := c.Signal.(signal.Settable).Set("on"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Signal.(signal.Settable).Set("standby"); err == nil {
		t.Error("value outside the lookup table accepted")
	}
}
