// Package signal defines the readable/settable endpoints an instrument
// exposes and the contracts a data-collection engine consumes them through.
//
// A signal wraps one command of an instrument control layer.  Reading a
// signal produces named value/timestamp pairs; describing it produces the
// metadata a downstream consumer needs to interpret those values.  Signals
// that gate on hardware state implement Triggerable, and file-backed signals
// additionally implement Stager and AssetProducer.
package signal

import (
	"time"

	"github.com/ee-meas/instrgraph/command"
)

// Reading is one observation of a signal.
type Reading struct {
	Value     interface{} `json:"value"`
	Timestamp time.Time   `json:"timestamp"`
}

// Description is the metadata for one named reading.
type Description struct {
	// Source identifies where the value comes from, e.g. "lia:lia_freq"
	Source string `json:"source"`

	// DType is the data type for live display, "number", "integer",
	// "boolean", "string", or "array"
	DType string `json:"dtype"`

	// Shape is the data shape, empty for scalars
	Shape []int `json:"shape"`

	// Precision is the display precision in digits
	Precision int `json:"precision,omitempty"`

	// EnumStrs holds the allowed names for lookup-valued signals
	EnumStrs []string `json:"enum_strs,omitempty"`

	// LowerCtrlLimit and UpperCtrlLimit bound settable numeric signals
	LowerCtrlLimit float64 `json:"lower_ctrl_limit,omitempty"`
	UpperCtrlLimit float64 `json:"upper_ctrl_limit,omitempty"`

	// External is set when the value is a pointer to externally stored
	// data ("FILESTORE") rather than the data itself
	External string `json:"external,omitempty"`
}

// Readable is the minimal signal: it has a name, can be read, and can
// describe its readings.
type Readable interface {
	Name() string
	Read() (map[string]Reading, error)
	Describe() map[string]Description
}

// Settable is a Readable whose value can be written.  Set returns a Status
// which completes when the write has settled.
type Settable interface {
	Readable
	Set(value interface{}) (*Status, error)
}

// Triggerable is implemented by signals which must initiate an acquisition
// before their reading is meaningful.
type Triggerable interface {
	Trigger() (*Status, error)
}

// Stager is implemented by signals which allocate per-run resources.
type Stager interface {
	Stage() error
	Unstage() error
}

// AssetDoc is one asset document: a resource or datum record pointing at
// externally stored data.
type AssetDoc struct {
	// Name is the document type, "resource" or "datum"
	Name string `json:"name"`

	// Doc is the document body
	Doc interface{} `json:"doc"`
}

// AssetProducer is implemented by signals whose readings reference
// externally stored data; the documents drain in FIFO order.
type AssetProducer interface {
	CollectAssetDocs() []AssetDoc
}

// ControlLayer is the instrument-abstraction contract signals are built
// over: named commands, queried and set with template fields filled from a
// configs map.  scpi.Driver implements it for real hardware, sim.Layer for
// tests and mock nodes.
type ControlLayer interface {
	Name() string
	Commands() *command.Dict
	Get(name string, configs map[string]interface{}) (interface{}, error)
	Set(name string, value interface{}, configs map[string]interface{}) error
}
