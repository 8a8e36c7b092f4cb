// Package device assembles signals into instrument-level object graphs and
// synthesizes those graphs from a control layer's command dictionary.
package device

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/ee-meas/instrgraph/signal"
)

// Kind classifies a component's role in the device's readings.
type Kind int

// Component kinds.  Normal and Hinted components appear in Read; Config
// components appear in ReadConfiguration; Omitted components are reachable
// by name but invisible to both.
const (
	Normal Kind = iota
	Config
	Hinted
	Omitted
)

func (k Kind) String() string {
	switch k {
	case Normal:
		return "normal"
	case Config:
		return "config"
	case Hinted:
		return "hinted"
	case Omitted:
		return "omitted"
	}
	return "unknown"
}

// Component is one named member of a device.
type Component struct {
	Signal signal.Readable
	Kind   Kind
}

// Device is an ordered collection of named components representing one
// instrument.  Iteration order is insertion order, so graphs built from the
// same dictionary read out identically run to run.
type Device struct {
	name    string
	order   []string
	comps   map[string]Component
	skipped []string

	// TriggerTimeout bounds Trigger's wait on component statuses
	TriggerTimeout time.Duration
}

// New creates an empty device.
func New(name string) *Device {
	return &Device{
		name:           name,
		comps:          map[string]Component{},
		TriggerTimeout: 30 * time.Second,
	}
}

// Name returns the device name.
func (d *Device) Name() string { return d.name }

// Add appends a component.  Component names must be unique.
func (d *Device) Add(name string, sig signal.Readable, kind Kind) error {
	if _, ok := d.comps[name]; ok {
		return fmt.Errorf("%s: duplicate component %q", d.name, name)
	}
	d.order = append(d.order, name)
	d.comps[name] = Component{Signal: sig, Kind: kind}
	return nil
}

// Component retrieves a component by name, including omitted ones.
func (d *Device) Component(name string) (Component, bool) {
	c, ok := d.comps[name]
	return c, ok
}

// Names returns component names in insertion order.  The slice is a copy.
func (d *Device) Names() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Skipped returns the dictionary commands the builder could not place in
// the graph, for diagnostics.
func (d *Device) Skipped() []string {
	out := make([]string, len(d.skipped))
	copy(out, d.skipped)
	return out
}

func (d *Device) want(k Kind, config bool) bool {
	if config {
		return k == Config
	}
	return k == Normal || k == Hinted
}

func (d *Device) read(config bool) (map[string]signal.Reading, error) {
	out := map[string]signal.Reading{}
	for _, name := range d.order {
		c := d.comps[name]
		if !d.want(c.Kind, config) {
			continue
		}
		r, err := c.Signal.Read()
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", d.name, name, err)
		}
		for k, v := range r {
			out[k] = v
		}
	}
	return out, nil
}

func (d *Device) describe(config bool) map[string]signal.Description {
	out := map[string]signal.Description{}
	for _, name := range d.order {
		c := d.comps[name]
		if !d.want(c.Kind, config) {
			continue
		}
		for k, v := range c.Signal.Describe() {
			out[k] = v
		}
	}
	return out
}

// Read reads every normal and hinted component.
func (d *Device) Read() (map[string]signal.Reading, error) {
	return d.read(false)
}

// ReadConfiguration reads every config component.
func (d *Device) ReadConfiguration() (map[string]signal.Reading, error) {
	return d.read(true)
}

// Describe returns descriptions for the normal and hinted components.
func (d *Device) Describe() map[string]signal.Description {
	return d.describe(false)
}

// DescribeConfiguration returns descriptions for the config components.
func (d *Device) DescribeConfiguration() map[string]signal.Description {
	return d.describe(true)
}

// Trigger initiates acquisition on every triggerable, non-omitted component
// and waits for all of them to complete.
func (d *Device) Trigger() error {
	ctx, cancel := context.WithTimeout(context.Background(), d.TriggerTimeout)
	defer cancel()
	var statuses []*signal.Status
	var names []string
	for _, name := range d.order {
		c := d.comps[name]
		if c.Kind == Omitted {
			continue
		}
		trig, ok := c.Signal.(signal.Triggerable)
		if !ok {
			continue
		}
		st, err := trig.Trigger()
		if err != nil {
			return fmt.Errorf("%s.%s: %w", d.name, name, err)
		}
		statuses = append(statuses, st)
		names = append(names, name)
	}
	var errs error
	for i, st := range statuses {
		if err := st.Wait(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s.%s: %w", d.name, names[i], err))
		}
	}
	return errs
}

// Stage prepares every staging component for acquisition.  All components
// are attempted; errors are joined.
func (d *Device) Stage() error {
	var errs error
	for _, name := range d.order {
		if st, ok := d.comps[name].Signal.(signal.Stager); ok {
			if err := st.Stage(); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s.%s: %w", d.name, name, err))
			}
		}
	}
	return errs
}

// Unstage releases per-run resources on every staging component.  All
// components are attempted; errors are joined.
func (d *Device) Unstage() error {
	var errs error
	for _, name := range d.order {
		if st, ok := d.comps[name].Signal.(signal.Stager); ok {
			if err := st.Unstage(); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s.%s: %w", d.name, name, err))
			}
		}
	}
	return errs
}

// CollectAssetDocs drains asset documents from every producing component,
// in graph order.
func (d *Device) CollectAssetDocs() []signal.AssetDoc {
	var out []signal.AssetDoc
	for _, name := range d.order {
		if ap, ok := d.comps[name].Signal.(signal.AssetProducer); ok {
			out = append(out, ap.CollectAssetDocs()...)
		}
	}
	return out
}
