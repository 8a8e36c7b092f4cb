// Package sim provides an in-memory control layer for tests and for mock
// daemon nodes, standing in for real hardware behind the same contract the
// scpi driver satisfies.
package sim

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ee-meas/instrgraph/command"
)

// SetRecord is one recorded Set call.
type SetRecord struct {
	Name    string
	Value   interface{}
	Configs map[string]interface{}
}

// Layer is an in-memory control layer over a command dictionary.  Values
// are stored per command and config combination, so channel 1 and channel 2
// of the same command hold independent values.
type Layer struct {
	name string
	dict *command.Dict

	mu     sync.Mutex
	values map[string]interface{}
	sets   []SetRecord

	// GetHook, when non-nil, intercepts Get calls; returning ok=false
	// falls through to the stored value.  Used to script hardware
	// behavior like a trigger count that climbs over time.
	GetHook func(name string, configs map[string]interface{}) (interface{}, bool)
}

// New creates a simulated control layer named name over dict.
func New(name string, dict *command.Dict) *Layer {
	return &Layer{name: name, dict: dict, values: map[string]interface{}{}}
}

// Name returns the layer name used to prefix signal names.
func (l *Layer) Name() string { return l.name }

// Commands returns the command table.
func (l *Layer) Commands() *command.Dict { return l.dict }

func key(name string, configs map[string]interface{}) string {
	if len(configs) == 0 {
		return name
	}
	keys := make([]string, 0, len(configs))
	for k := range configs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := name
	for _, k := range keys {
		out += fmt.Sprintf("|%s=%v", k, configs[k])
	}
	return out
}

// SetValue stores a value directly, bypassing setter checks.  For seeding
// simulated readings.
func (l *Layer) SetValue(name string, configs map[string]interface{}, value interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.values[key(name, configs)] = value
}

// Get returns the scripted or stored value for the command, or a zero value
// of the command's getter type if nothing has been stored.
func (l *Layer) Get(name string, configs map[string]interface{}) (interface{}, error) {
	cmd, ok := l.dict.Get(name)
	if !ok {
		return nil, fmt.Errorf("%s: no command %q", l.name, name)
	}
	if !cmd.HasGetter {
		return nil, fmt.Errorf("%s: command %q is not readable", l.name, name)
	}
	if l.GetHook != nil {
		if v, ok := l.GetHook(name, configs); ok {
			return v, nil
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.values[key(name, configs)]; ok {
		return v, nil
	}
	switch cmd.GetterType {
	case command.Float:
		return 0.0, nil
	case command.Int:
		return 0, nil
	case command.Bool:
		return false, nil
	case command.String:
		return "", nil
	case command.FloatArray:
		return []float64{}, nil
	default:
		return []byte{}, nil
	}
}

// Set validates and stores a value the same way the real driver would:
// lookup translation, then limit checking.
func (l *Layer) Set(name string, value interface{}, configs map[string]interface{}) error {
	cmd, ok := l.dict.Get(name)
	if !ok {
		return fmt.Errorf("%s: no command %q", l.name, name)
	}
	if !cmd.HasSetter {
		return fmt.Errorf("%s: command %q is not settable", l.name, name)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sets = append(l.sets, SetRecord{Name: name, Value: value, Configs: configs})
	if value == nil {
		return nil
	}
	wire, err := cmd.TranslateSet(value)
	if err != nil {
		return err
	}
	if err := cmd.CheckLimits(wire); err != nil {
		return err
	}
	l.values[key(name, configs)] = wire
	return nil
}

// Sets returns the recorded Set history.
func (l *Layer) Sets() []SetRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]SetRecord, len(l.sets))
	copy(out, l.sets)
	return out
}

// SetsOf returns the recorded Set calls for one command name.
func (l *Layer) SetsOf(name string) []SetRecord {
	var out []SetRecord
	for _, s := range l.Sets() {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}
