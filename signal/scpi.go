package signal

import (
	"fmt"
	"time"

	"github.com/ee-meas/instrgraph/command"
)

// DTypeFor maps a command getter type to the describe dtype vocabulary.
func DTypeFor(t command.Type) string {
	switch t {
	case command.Float:
		return "number"
	case command.Int:
		return "integer"
	case command.Bool:
		return "boolean"
	case command.String:
		return "string"
	default:
		return "array"
	}
}

// SCPI is a read-only signal bound to one command of a control layer.
// Its composite name is <layer name>_<command name><suffix>.
type SCPI struct {
	cl        ControlLayer
	cmd       command.Command
	name      string
	configs   map[string]interface{}
	precision int
	dtype     string
	monitor   *StatusMonitor
}

// Option configures a SCPI signal.
type Option func(*SCPI)

// WithConfigs fixes the template-field configs sent with every get and set.
func WithConfigs(configs map[string]interface{}) Option {
	return func(s *SCPI) { s.configs = configs }
}

// WithSuffix appends a suffix to the composite name, used when one command
// fans out to several components (channels, AC/DC variants).
func WithSuffix(suffix string) Option {
	return func(s *SCPI) { s.name = s.name + suffix }
}

// WithPrecision overrides the display precision (default 7).
func WithPrecision(p int) Option {
	return func(s *SCPI) { s.precision = p }
}

// WithDType overrides the describe dtype.
func WithDType(dtype string) Option {
	return func(s *SCPI) { s.dtype = dtype }
}

// WithMonitor attaches a status monitor, making Trigger gate on hardware
// state before completing.
func WithMonitor(m *StatusMonitor) Option {
	return func(s *SCPI) { s.monitor = m }
}

// NewSCPI builds a read-only signal for the named command of cl.
func NewSCPI(cl ControlLayer, cmdName string, opts ...Option) (*SCPI, error) {
	cmd, ok := cl.Commands().Get(cmdName)
	if !ok {
		return nil, fmt.Errorf("%s: no command %q", cl.Name(), cmdName)
	}
	s := &SCPI{
		cl:        cl,
		cmd:       cmd,
		name:      cl.Name() + "_" + cmdName,
		precision: 7,
		dtype:     DTypeFor(cmd.GetterType),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name returns the composite signal name.
func (s *SCPI) Name() string { return s.name }

// Command returns the command this signal wraps.
func (s *SCPI) Command() command.Command { return s.cmd }

// Configs returns the fixed template-field configs.
func (s *SCPI) Configs() map[string]interface{} { return s.configs }

// Get reads the raw value from the control layer.
func (s *SCPI) Get() (interface{}, error) {
	return s.cl.Get(s.cmd.Name, s.configs)
}

// Read reads the signal and formats it for data collection.
func (s *SCPI) Read() (map[string]Reading, error) {
	v, err := s.Get()
	if err != nil {
		return nil, err
	}
	return map[string]Reading{
		s.name: {Value: v, Timestamp: time.Now()},
	}, nil
}

// Describe returns the description of the signal's readings.
func (s *SCPI) Describe() map[string]Description {
	desc := Description{
		Source:    s.cl.Name() + ":" + s.name,
		DType:     s.dtype,
		Precision: s.precision,
		EnumStrs:  s.cmd.EnumStrs(),
	}
	if len(s.cmd.Limits) >= 2 {
		desc.LowerCtrlLimit = s.cmd.Limits[0]
		desc.UpperCtrlLimit = s.cmd.Limits[1]
	}
	return map[string]Description{s.name: desc}
}

// Trigger initiates acquisition.  Without a monitor it completes
// immediately; with one, the returned status completes after the monitor's
// threshold is met and the acknowledge is posted.
func (s *SCPI) Trigger() (*Status, error) {
	if s.monitor == nil {
		return NullStatus(), nil
	}
	st := NewStatus()
	go func() { st.Finish(s.monitor.Run()) }()
	return st, nil
}

// SettableSCPI is a SCPI signal with a setter.
type SettableSCPI struct {
	SCPI

	// Delay is an optional settle time; when nonzero, Set completes its
	// status asynchronously after the delay elapses.
	Delay time.Duration
}

// NewSettableSCPI builds a read-write signal for the named command of cl.
func NewSettableSCPI(cl ControlLayer, cmdName string, opts ...Option) (*SettableSCPI, error) {
	base, err := NewSCPI(cl, cmdName, opts...)
	if err != nil {
		return nil, err
	}
	return &SettableSCPI{SCPI: *base}, nil
}

// Set writes value to the instrument.  The returned status completes when
// the write (and the settle delay, if any) has finished.
func (s *SettableSCPI) Set(value interface{}) (*Status, error) {
	st := NewStatus()
	if s.Delay > 0 {
		go func() {
			err := s.cl.Set(s.cmd.Name, value, s.configs)
			time.Sleep(s.Delay)
			st.Finish(err)
		}()
		return st, nil
	}
	err := s.cl.Set(s.cmd.Name, value, s.configs)
	st.Finish(err)
	if err != nil {
		return st, err
	}
	return st, nil
}
