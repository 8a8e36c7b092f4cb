package device

import (
	"fmt"
	"strings"

	"github.com/ee-meas/instrgraph/command"
	"github.com/ee-meas/instrgraph/signal"
)

// ArrayRule tells the builder what to do with an array-returning getter,
// which is otherwise skipped.  New receives the control layer, the command
// name, the composite component name, and the rule's fixed configs, and
// returns the signal to place in the graph.
type ArrayRule struct {
	Configs map[string]interface{}
	Kind    Kind
	New     func(cl signal.ControlLayer, cmdName, compName string, configs map[string]interface{}) (signal.Readable, error)
}

// Extra is an additional fixed-config component derived from an existing
// command, e.g. a second copy of a per-channel command pinned to one channel.
type Extra struct {
	// Name is the component name; when empty it is synthesized from the
	// command name and configs.
	Name    string
	Command string
	Configs map[string]interface{}
	Kind    Kind
}

type buildOpts struct {
	channelField string
	channels     []int
	variants     map[string][]string
	arrayRules   map[string]ArrayRule
	extras       []Extra
}

// BuildOption configures graph synthesis.
type BuildOption func(*buildOpts)

// WithChannels expands commands templated on field into one component per
// channel, suffixed _<field><n>.
func WithChannels(field string, channels ...int) BuildOption {
	return func(o *buildOpts) {
		o.channelField = field
		o.channels = channels
	}
}

// WithVariants expands commands templated on field into one component per
// value, suffixed _<lowercased value>.
func WithVariants(field string, values ...string) BuildOption {
	return func(o *buildOpts) {
		if o.variants == nil {
			o.variants = map[string][]string{}
		}
		o.variants[field] = values
	}
}

// WithArrayRule registers an array-capture rule for cmdName.
func WithArrayRule(cmdName string, rule ArrayRule) BuildOption {
	return func(o *buildOpts) {
		if o.arrayRules == nil {
			o.arrayRules = map[string]ArrayRule{}
		}
		o.arrayRules[cmdName] = rule
	}
}

// WithExtra appends a fixed-config component after the dictionary walk.
func WithExtra(e Extra) BuildOption {
	return func(o *buildOpts) { o.extras = append(o.extras, e) }
}

// Build walks cl's command dictionary and synthesizes a device graph:
//
//   - commands flagged as configuration become config components, the rest
//     normal components
//   - a command with a setter, no getter inputs, and fewer than two setter
//     inputs becomes a settable signal; setter-only commands are omitted
//     from readings but remain addressable
//   - a getter-only command with no getter inputs becomes a read-only signal
//   - array-returning getters are skipped unless an ArrayRule is registered
//   - commands templated on the channel field fan out per channel, and
//     commands templated on a variant field fan out per value
//
// Commands the rules cannot place are recorded on the device's skip list.
func Build(name string, cl signal.ControlLayer, opts ...BuildOption) (*Device, error) {
	o := buildOpts{channelField: "chan"}
	for _, opt := range opts {
		opt(&o)
	}
	d := New(name)
	for _, cmdName := range cl.Commands().Names() {
		cmd, _ := cl.Commands().Get(cmdName)
		kind := Normal
		if cmd.IsConfig {
			kind = Config
		}
		if cmd.ReturnsArray() {
			rule, ok := o.arrayRules[cmdName]
			if !ok {
				d.skipped = append(d.skipped, cmdName)
				continue
			}
			compName := cl.Name() + "_" + cmdName
			sig, err := rule.New(cl, cmdName, compName, rule.Configs)
			if err != nil {
				return nil, fmt.Errorf("%s: array rule for %q: %w", name, cmdName, err)
			}
			if err := d.Add(cmdName, sig, rule.Kind); err != nil {
				return nil, err
			}
			continue
		}
		fields := configFields(cmd.Ascii)
		if len(fields) == 0 {
			if err := addPlain(d, cl, cmd, kind); err != nil {
				return nil, err
			}
			continue
		}
		if len(fields) == 1 && fields[0] == o.channelField && len(o.channels) > 0 {
			if err := addChannels(d, cl, cmd, kind, o.channelField, o.channels); err != nil {
				return nil, err
			}
			continue
		}
		if len(fields) == 1 && o.variants[fields[0]] != nil {
			if err := addVariants(d, cl, cmd, kind, fields[0], o.variants[fields[0]]); err != nil {
				return nil, err
			}
			continue
		}
		d.skipped = append(d.skipped, cmdName)
	}
	for _, e := range o.extras {
		if err := addExtra(d, cl, e); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// configFields returns the template fields a component must supply; the
// {value} placeholder is filled at set time, not by configs.
func configFields(ascii string) []string {
	var out []string
	for _, f := range command.Fields(ascii) {
		if f != "value" {
			out = append(out, f)
		}
	}
	return out
}

func addPlain(d *Device, cl signal.ControlLayer, cmd command.Command, kind Kind) error {
	if cmd.HasSetter && cmd.GetterInputs == 0 && cmd.SetterInputs < 2 {
		sig, err := signal.NewSettableSCPI(cl, cmd.Name)
		if err != nil {
			return err
		}
		if !cmd.HasGetter {
			// write-only, typically a trigger or reset; keep it out of
			// readings but addressable for Set
			kind = Omitted
		}
		return d.Add(cmd.Name, sig, kind)
	}
	if !cmd.HasSetter && cmd.GetterInputs == 0 {
		sig, err := signal.NewSCPI(cl, cmd.Name)
		if err != nil {
			return err
		}
		return d.Add(cmd.Name, sig, kind)
	}
	d.skipped = append(d.skipped, cmd.Name)
	return nil
}

func addChannels(d *Device, cl signal.ControlLayer, cmd command.Command, kind Kind, field string, channels []int) error {
	settable := cmd.HasSetter && cmd.GetterInputs == 1 && cmd.SetterInputs == 2
	readable := !cmd.HasSetter && cmd.GetterInputs == 1
	if !settable && !readable {
		d.skipped = append(d.skipped, cmd.Name)
		return nil
	}
	for _, ch := range channels {
		suffix := fmt.Sprintf("_%s%d", field, ch)
		configs := map[string]interface{}{field: ch}
		opts := []signal.Option{signal.WithConfigs(configs), signal.WithSuffix(suffix)}
		var (
			sig signal.Readable
			err error
		)
		if settable {
			sig, err = signal.NewSettableSCPI(cl, cmd.Name, opts...)
		} else {
			sig, err = signal.NewSCPI(cl, cmd.Name, opts...)
		}
		if err != nil {
			return err
		}
		if err := d.Add(cmd.Name+suffix, sig, kind); err != nil {
			return err
		}
	}
	return nil
}

func addVariants(d *Device, cl signal.ControlLayer, cmd command.Command, kind Kind, field string, values []string) error {
	settable := cmd.HasSetter && cmd.GetterInputs == 1 && cmd.SetterInputs == 2
	readable := !cmd.HasSetter && cmd.GetterInputs == 1
	if !settable && !readable {
		d.skipped = append(d.skipped, cmd.Name)
		return nil
	}
	for _, v := range values {
		suffix := "_" + strings.ToLower(v)
		configs := map[string]interface{}{field: v}
		opts := []signal.Option{signal.WithConfigs(configs), signal.WithSuffix(suffix)}
		var (
			sig signal.Readable
			err error
		)
		if settable {
			sig, err = signal.NewSettableSCPI(cl, cmd.Name, opts...)
		} else {
			sig, err = signal.NewSCPI(cl, cmd.Name, opts...)
		}
		if err != nil {
			return err
		}
		if err := d.Add(cmd.Name+suffix, sig, kind); err != nil {
			return err
		}
	}
	return nil
}

func addExtra(d *Device, cl signal.ControlLayer, e Extra) error {
	cmd, ok := cl.Commands().Get(e.Command)
	if !ok {
		return fmt.Errorf("%s: extra component references unknown command %q", d.name, e.Command)
	}
	name := e.Name
	if name == "" {
		name = e.Command + "_fixed"
	}
	suffix := strings.TrimPrefix(name, e.Command)
	opts := []signal.Option{signal.WithConfigs(e.Configs), signal.WithSuffix(suffix)}
	var (
		sig signal.Readable
		err error
	)
	if cmd.HasSetter {
		sig, err = signal.NewSettableSCPI(cl, e.Command, opts...)
	} else {
		sig, err = signal.NewSCPI(cl, e.Command, opts...)
	}
	if err != nil {
		return err
	}
	return d.Add(name, sig, e.Kind)
}
