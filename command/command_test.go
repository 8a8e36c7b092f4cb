package command_test

import (
	"strings"
	"testing"

	"github.com/ee-meas/instrgraph/command"
)

func TestRenderFillsFields(t *testing.T) {
	out, err := command.Render("CHANnel{chan}:RANGe", map[string]interface{}{"chan": 2})
	if err != nil {
		t.Fatal(err)
	}
	if out != "CHANnel2:RANGe" {
		t.Errorf("expected CHANnel2:RANGe, got %s", out)
	}
}

func TestRenderMissingFieldErrors(t *testing.T) {
	_, err := command.Render("SENSe:VOLTage:{ac_dc}:RANGe", nil)
	if err == nil {
		t.Fatal("expected error for unfilled field")
	}
	if !strings.Contains(err.Error(), "ac_dc") {
		t.Errorf("error should name the missing field, got %v", err)
	}
}

func TestFields(t *testing.T) {
	fields := command.Fields("MEASure:PHASe? CHANnel{chan1},CHANnel{chan2}")
	if len(fields) != 2 || fields[0] != "chan1" || fields[1] != "chan2" {
		t.Errorf("expected [chan1 chan2], got %v", fields)
	}
	if command.Fields("FREQ") != nil {
		t.Error("expected nil fields for plain mnemonic")
	}
}

func TestLookupTranslation(t *testing.T) {
	c := command.Command{
		Name:   "tau",
		Ascii:  "OFLT",
		Lookup: map[string]interface{}{"10ms": 4, "30ms": 5},
	}
	wire, err := c.TranslateSet("10ms")
	if err != nil {
		t.Fatal(err)
	}
	if wire != 4 {
		t.Errorf("expected wire value 4, got %v", wire)
	}
	if _, err := c.TranslateSet("11ms"); err == nil {
		t.Error("expected error for value not in lookup")
	}
	if got := c.TranslateGet(5); got != "30ms" {
		t.Errorf("expected reverse lookup 30ms, got %v", got)
	}
	if got := c.TranslateGet(99); got != 99 {
		t.Errorf("unmapped values should pass through, got %v", got)
	}
}

func TestCheckLimits(t *testing.T) {
	c := command.Command{Name: "amp", Limits: []float64{0, 5}}
	if err := c.CheckLimits(2.5); err != nil {
		t.Error("in-range value should pass:", err)
	}
	if err := c.CheckLimits(6.0); err == nil {
		t.Error("out-of-range value should fail")
	}
	if err := c.CheckLimits("SIN"); err != nil {
		t.Error("non-numeric values are not limit checked:", err)
	}
}

func TestDictOrderAndDuplicates(t *testing.T) {
	d, err := command.NewDict(
		command.Command{Name: "freq", Ascii: "FREQ", HasGetter: true, HasSetter: true, SetterInputs: 1},
		command.Command{Name: "phase", Ascii: "PHAS", HasGetter: true, HasSetter: true, SetterInputs: 1},
	)
	if err != nil {
		t.Fatal(err)
	}
	names := d.Names()
	if names[0] != "freq" || names[1] != "phase" {
		t.Errorf("insertion order not preserved: %v", names)
	}
	err = d.Add(command.Command{Name: "freq", Ascii: "FREQ2"})
	if err == nil {
		t.Error("expected duplicate name to error")
	}
}

func TestDictYAMLRoundTrip(t *testing.T) {
	src := []byte(`
- name: freq
  ascii: FREQ
  getter: true
  setter: true
  setter_inputs: 1
  getter_type: float
  limits: [0.001, 102000]
- name: burst_volt
  ascii: "{reads_per_trigger}READ"
  getter: true
  getter_inputs: 1
  getter_type: float-array
`)
	d, err := command.FromYAML(src)
	if err != nil {
		t.Fatal(err)
	}
	if d.Len() != 2 {
		t.Fatalf("expected 2 commands, got %d", d.Len())
	}
	bv, ok := d.Get("burst_volt")
	if !ok {
		t.Fatal("burst_volt missing")
	}
	if !bv.ReturnsArray() {
		t.Error("burst_volt should return an array")
	}
	freq, _ := d.Get("freq")
	if freq.GetterType != command.Float || len(freq.Limits) != 2 {
		t.Errorf("freq decoded wrong: %+v", freq)
	}
}
