package scpi

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ee-meas/instrgraph/comm"
	"github.com/ee-meas/instrgraph/command"
)

// Driver is a command-dictionary driven control layer for a SCPI instrument.
// It satisfies signal.ControlLayer: named commands are queried and set by
// short name, with template fields filled from a configs map.
type Driver struct {
	SCPI

	name string
	dict *command.Dict
}

// NewDriver returns a control layer for the instrument named name, speaking
// the commands in dict over pool.  Handshaking enables the error-query
// wrapping of every write.
func NewDriver(name string, dict *command.Dict, pool *comm.Pool, handshaking bool) *Driver {
	return &Driver{
		SCPI: SCPI{Pool: pool, Handshaking: handshaking},
		name: name,
		dict: dict,
	}
}

// NewTCPDriver is NewDriver over a single pooled TCP connection with
// backoff dialing, the common case for bench instruments on LAN.
func NewTCPDriver(name, addr string, dict *command.Dict, handshaking bool) *Driver {
	maker := comm.BackingOffTCPConnMaker(addr, timeout)
	pool := comm.NewPool(1, time.Hour, maker)
	return NewDriver(name, dict, pool, handshaking)
}

// Name returns the instrument name used to prefix signal names.
func (d *Driver) Name() string { return d.name }

// Commands returns the instrument's command table.
func (d *Driver) Commands() *command.Dict { return d.dict }

// Get queries the named command, filling template fields from configs, and
// returns the decoded value per the command's getter type.
func (d *Driver) Get(name string, configs map[string]interface{}) (interface{}, error) {
	cmd, ok := d.dict.Get(name)
	if !ok {
		return nil, errors.Errorf("%s: no command %q", d.name, name)
	}
	if !cmd.HasGetter {
		return nil, errors.Errorf("%s: command %q is not readable", d.name, name)
	}
	tmpl := cmd.Ascii
	if cmd.AsciiGet != "" {
		tmpl = cmd.AsciiGet
	}
	q, err := command.Render(tmpl, configs)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: %s", d.name, name)
	}
	if !strings.Contains(q, "?") {
		q = q + "?"
	}
	var v interface{}
	switch cmd.GetterType {
	case command.Float:
		v, err = d.ReadFloat(q)
	case command.Int:
		v, err = d.ReadInt(q)
	case command.Bool:
		v, err = d.ReadBool(q)
	case command.String:
		v, err = d.ReadString(q)
	case command.FloatArray:
		v, err = d.ReadFloatArray(q)
	case command.ByteArray:
		v, err = d.ReadBlock(q)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "%s: get %s", d.name, name)
	}
	if !cmd.ReturnsArray() {
		v = cmd.TranslateGet(v)
	}
	return v, nil
}

// Set writes the named command with value, filling template fields from
// configs.  String values are translated through the command's lookup table
// and numeric values are checked against its limits.
func (d *Driver) Set(name string, value interface{}, configs map[string]interface{}) error {
	cmd, ok := d.dict.Get(name)
	if !ok {
		return errors.Errorf("%s: no command %q", d.name, name)
	}
	if !cmd.HasSetter {
		return errors.Errorf("%s: command %q is not settable", d.name, name)
	}
	if value == nil {
		// bare command, e.g. a trigger initiation
		ascii, err := command.Render(cmd.Ascii, configs)
		if err != nil {
			return errors.Wrapf(err, "%s: %s", d.name, name)
		}
		return errors.Wrapf(d.Write(ascii), "%s: set %s", d.name, name)
	}
	wire, err := cmd.TranslateSet(value)
	if err != nil {
		return errors.Wrapf(err, "%s", d.name)
	}
	if err := cmd.CheckLimits(wire); err != nil {
		return errors.Wrapf(err, "%s", d.name)
	}
	if command.HasField(cmd.Ascii, "value") {
		merged := map[string]interface{}{"value": FormatValue(wire)}
		for k, v := range configs {
			merged[k] = v
		}
		ascii, err := command.Render(cmd.Ascii, merged)
		if err != nil {
			return errors.Wrapf(err, "%s: %s", d.name, name)
		}
		return errors.Wrapf(d.Write(ascii), "%s: set %s", d.name, name)
	}
	ascii, err := command.Render(cmd.Ascii, configs)
	if err != nil {
		return errors.Wrapf(err, "%s: %s", d.name, name)
	}
	return errors.Wrapf(d.Write(ascii, FormatValue(wire)), "%s: set %s", d.name, name)
}

// FormatValue formats a value for SCPI transmission.
func FormatValue(v interface{}) string {
	switch c := v.(type) {
	case float64:
		return strconv.FormatFloat(c, 'G', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(c), 'G', -1, 32)
	case int:
		return strconv.Itoa(c)
	case bool:
		if c {
			return "1"
		}
		return "0"
	case string:
		return c
	default:
		return fmt.Sprint(v)
	}
}
