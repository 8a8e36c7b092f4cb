package signal

import (
	"time"
)

// Composite is a read-only signal whose value originates from a function of
// one or more underlying actions rather than a single command, e.g. a
// statistic computed over another signal's array.
type Composite struct {
	name      string
	get       func() (interface{}, error)
	precision int
	dtype     string
}

// NewComposite builds a read-only signal from a get function.
func NewComposite(name string, get func() (interface{}, error)) *Composite {
	return &Composite{name: name, get: get, precision: 7, dtype: "number"}
}

// WithCompositePrecision sets the display precision and returns the signal,
// for chaining at construction.
func (c *Composite) WithCompositePrecision(p int) *Composite {
	c.precision = p
	return c
}

// Name returns the signal name.
func (c *Composite) Name() string { return c.name }

// Read evaluates the composite function and formats it for collection.
func (c *Composite) Read() (map[string]Reading, error) {
	v, err := c.get()
	if err != nil {
		return nil, err
	}
	return map[string]Reading{
		c.name: {Value: v, Timestamp: time.Now()},
	}, nil
}

// Describe returns the description of the signal's readings.
func (c *Composite) Describe() map[string]Description {
	return map[string]Description{
		c.name: {
			Source:    "composite:" + c.name,
			DType:     c.dtype,
			Precision: c.precision,
		},
	}
}

// Trigger completes immediately; composite evaluation happens on Read.
func (c *Composite) Trigger() (*Status, error) {
	return NullStatus(), nil
}

// SettableComposite is a Composite with a set function.
type SettableComposite struct {
	Composite
	set func(interface{}) error
}

// NewSettableComposite builds a read-write signal from get and set functions.
func NewSettableComposite(name string, get func() (interface{}, error), set func(interface{}) error) *SettableComposite {
	return &SettableComposite{Composite: *NewComposite(name, get), set: set}
}

// Set applies the composite set function.
func (c *SettableComposite) Set(value interface{}) (*Status, error) {
	st := NewStatus()
	err := c.set(value)
	st.Finish(err)
	return st, err
}
