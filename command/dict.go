package command

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v2"
)

// Dict is an ordered command table.  Iteration follows insertion order so
// that device graphs built from a Dict are stable run to run.
type Dict struct {
	names  []string
	byName map[string]Command
}

// NewDict creates a Dict from commands, in order.  Duplicate names error.
func NewDict(cmds ...Command) (*Dict, error) {
	d := &Dict{byName: map[string]Command{}}
	for _, c := range cmds {
		if err := d.Add(c); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// MustDict is NewDict, panicking on error.  For package-level tables.
func MustDict(cmds ...Command) *Dict {
	d, err := NewDict(cmds...)
	if err != nil {
		panic(err)
	}
	return d
}

// Add appends a command to the table.
func (d *Dict) Add(c Command) error {
	if c.Name == "" {
		return fmt.Errorf("command with ascii %q has no name", c.Ascii)
	}
	if _, ok := d.byName[c.Name]; ok {
		return fmt.Errorf("duplicate command name %q", c.Name)
	}
	d.names = append(d.names, c.Name)
	d.byName[c.Name] = c
	return nil
}

// Get retrieves a command by name.
func (d *Dict) Get(name string) (Command, bool) {
	c, ok := d.byName[name]
	return c, ok
}

// Names returns the command names in insertion order.  The slice is a copy.
func (d *Dict) Names() []string {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

// Len returns the number of commands in the table.
func (d *Dict) Len() int {
	return len(d.names)
}

// FromYAML decodes a command table from YAML, a list of command entries.
func FromYAML(data []byte) (*Dict, error) {
	var cmds []Command
	if err := yaml.Unmarshal(data, &cmds); err != nil {
		return nil, err
	}
	return NewDict(cmds...)
}

// ToYAML encodes the table as a YAML list in insertion order.
func (d *Dict) ToYAML() ([]byte, error) {
	cmds := make([]Command, 0, len(d.names))
	for _, n := range d.names {
		cmds = append(cmds, d.byName[n])
	}
	return yaml.Marshal(cmds)
}

var fieldPat = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Fields returns the template field names in an ascii mnemonic, in order.
func Fields(ascii string) []string {
	matches := fieldPat.FindAllStringSubmatch(ascii, -1)
	if matches == nil {
		return nil
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m[1]
	}
	return out
}

// HasField reports whether the ascii mnemonic contains the named field.
func HasField(ascii, field string) bool {
	return strings.Contains(ascii, "{"+field+"}")
}

// Render substitutes configs into the {field} placeholders of ascii.
// A placeholder with no matching config is an error.
func Render(ascii string, configs map[string]interface{}) (string, error) {
	var missing []string
	out := fieldPat.ReplaceAllStringFunc(ascii, func(m string) string {
		field := m[1 : len(m)-1]
		v, ok := configs[field]
		if !ok {
			missing = append(missing, field)
			return m
		}
		return fmt.Sprint(v)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("unfilled template fields %v in %q", missing, ascii)
	}
	return out, nil
}
