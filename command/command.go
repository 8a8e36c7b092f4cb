// Package command models the command table of a programmable instrument.
//
// Each entry describes one SCPI-style command: its mnemonic (possibly with
// {field} placeholders for channel numbers and the like), whether it can be
// queried or set, what type the query returns, and any lookup table mapping
// human names to wire values.  Tables are plain data; they can be declared
// in Go or loaded from YAML.  Device graphs are synthesized from them by
// package device.
package command

import (
	"fmt"
	"sort"
	"strings"
)

// Type enumerates the value types a query may return.
type Type int

// Return types for command queries.
const (
	Float Type = iota
	Int
	Bool
	String
	FloatArray
	ByteArray
)

// IsArray returns true for the array-valued types.
func (t Type) IsArray() bool {
	return t == FloatArray || t == ByteArray
}

func (t Type) String() string {
	switch t {
	case Float:
		return "float"
	case Int:
		return "int"
	case Bool:
		return "bool"
	case String:
		return "string"
	case FloatArray:
		return "float-array"
	case ByteArray:
		return "byte-array"
	}
	return "unknown"
}

// UnmarshalYAML decodes a Type from its string form.
func (t *Type) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	switch strings.ToLower(s) {
	case "float", "float64", "":
		*t = Float
	case "int":
		*t = Int
	case "bool":
		*t = Bool
	case "string", "str":
		*t = String
	case "float-array":
		*t = FloatArray
	case "byte-array":
		*t = ByteArray
	default:
		return fmt.Errorf("unknown command type %q", s)
	}
	return nil
}

// MarshalYAML encodes a Type as its string form.
func (t Type) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

// Command is a single entry in an instrument's command table.
type Command struct {
	// Name is the short name the command is addressed by, e.g. "freq"
	Name string `yaml:"name"`

	// Ascii is the wire mnemonic, e.g. "FREQ" or "CHANnel{chan}:RANGe".
	// Query traffic appends "?" and set traffic appends a space and the
	// value, unless the mnemonic carries a {value} placeholder, in which
	// case the value is rendered in place.
	Ascii string `yaml:"ascii"`

	// AsciiGet overrides Ascii for queries, for instruments whose query
	// form is not the set form plus "?", e.g. "OEXP? {chan}" against
	// "OEXP {chan},{value}"
	AsciiGet string `yaml:"ascii_get,omitempty"`

	// HasGetter indicates the command can be queried
	HasGetter bool `yaml:"getter"`

	// HasSetter indicates the command can be set
	HasSetter bool `yaml:"setter"`

	// GetterInputs is the number of template fields a query must fill
	GetterInputs int `yaml:"getter_inputs"`

	// SetterInputs is the number of inputs a set must fill; the value
	// itself counts, so a plain setter has 1
	SetterInputs int `yaml:"setter_inputs"`

	// GetterType is the type a query response decodes to
	GetterType Type `yaml:"getter_type"`

	// IsConfig marks commands that describe configuration rather than
	// measurement; these land in a device's configuration readings
	IsConfig bool `yaml:"is_config"`

	// Doc is the human description
	Doc string `yaml:"doc,omitempty"`

	// Lookup maps human names to wire values, e.g. "sine" -> "SIN"
	Lookup map[string]interface{} `yaml:"lookup,omitempty"`

	// Limits is an optional [low, high] pair for settable numeric commands
	Limits []float64 `yaml:"limits,omitempty"`
}

// ReturnsArray is true if a query of this command yields an array.
func (c Command) ReturnsArray() bool {
	return c.GetterType.IsArray()
}

// EnumStrs returns the sorted lookup keys, or nil if there is no lookup.
func (c Command) EnumStrs() []string {
	if len(c.Lookup) == 0 {
		return nil
	}
	strs := make([]string, 0, len(c.Lookup))
	for k := range c.Lookup {
		strs = append(strs, k)
	}
	sort.Strings(strs)
	return strs
}

// TranslateSet maps a value through the lookup table for transmission.
// String values must be lookup keys when a lookup exists; non-string values
// or commands without lookups pass through unchanged.
func (c Command) TranslateSet(value interface{}) (interface{}, error) {
	if len(c.Lookup) == 0 {
		return value, nil
	}
	s, ok := value.(string)
	if !ok {
		// numeric wire values may be passed directly
		return value, nil
	}
	wire, ok := c.Lookup[s]
	if !ok {
		return nil, fmt.Errorf("%s: %q is not in the lookup table (%v)", c.Name, s, c.EnumStrs())
	}
	return wire, nil
}

// TranslateGet maps a wire value back through the lookup table; values with
// no reverse mapping are returned unchanged.
func (c Command) TranslateGet(value interface{}) interface{} {
	for k, v := range c.Lookup {
		if fmt.Sprint(v) == fmt.Sprint(value) {
			return k
		}
	}
	return value
}

// CheckLimits validates a numeric set value against the command's limits,
// if it has any.
func (c Command) CheckLimits(value interface{}) error {
	if len(c.Limits) < 2 {
		return nil
	}
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	default:
		return nil
	}
	if f < c.Limits[0] || f > c.Limits[1] {
		return fmt.Errorf("%s: value %v outside limits [%v, %v]", c.Name, value, c.Limits[0], c.Limits[1])
	}
	return nil
}
