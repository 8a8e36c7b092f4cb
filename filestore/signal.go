package filestore

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/snksoft/crc"

	"github.com/ee-meas/instrgraph/signal"
)

var crcTable = crc.NewTable(crc.XMODEM)

// newUID returns a 128-bit random identifier in hex.
func newUID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", b)
}

// Signal wraps an array-returning command.  Stage opens a file series and
// emits a resource document; each Trigger captures the array, writes one
// file, and emits a datum document; Read reports the datum ID in place of
// the samples.  The last captured buffer stays available through GetArray
// for in-process consumers like the statistics devices.
type Signal struct {
	cl      signal.ControlLayer
	cmdName string
	name    string
	configs map[string]interface{}
	root    string
	saver   Saver
	monitor *signal.StatusMonitor

	mu        sync.Mutex
	staged    bool
	uid       string
	counter   int
	pending   []signal.AssetDoc
	lastArray []float64
	lastDatum string
	lastTime  time.Time
}

// SignalOption configures a file-backed signal.
type SignalOption func(*Signal)

// WithMonitor gates each Trigger on a status monitor before capturing.
func WithMonitor(m *signal.StatusMonitor) SignalOption {
	return func(s *Signal) { s.monitor = m }
}

// WithConfigs fixes template-field configs sent with every capture.
func WithConfigs(configs map[string]interface{}) SignalOption {
	return func(s *Signal) { s.configs = configs }
}

// New builds a file-backed signal for cmdName of cl, saving under root with
// saver.  compName is the composite reading name.
func New(cl signal.ControlLayer, cmdName, compName, root string, saver Saver, opts ...SignalOption) (*Signal, error) {
	cmd, ok := cl.Commands().Get(cmdName)
	if !ok {
		return nil, fmt.Errorf("%s: no command %q", cl.Name(), cmdName)
	}
	if !cmd.ReturnsArray() {
		return nil, fmt.Errorf("%s: command %q does not return an array", cl.Name(), cmdName)
	}
	s := &Signal{cl: cl, cmdName: cmdName, name: compName, root: root, saver: saver}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name returns the composite reading name.
func (s *Signal) Name() string { return s.name }

// Stage opens a new file series: a fresh resource UID and a queued resource
// document.  The datum counter resets.
func (s *Signal) Stage() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staged {
		return fmt.Errorf("%s: already staged", s.name)
	}
	s.uid = newUID()
	s.counter = 0
	res := Resource{
		Spec:         s.saver.Spec(),
		Root:         s.root,
		ResourcePath: s.uid,
		ResourceKwargs: map[string]interface{}{
			"template": s.uid + "_%d." + s.saver.Ext(),
		},
		PathSemantics: "posix",
		UID:           s.uid,
	}
	s.pending = append(s.pending, signal.AssetDoc{Name: "resource", Doc: res})
	s.staged = true
	return nil
}

// Unstage closes the series and drops any uncollected documents and the
// held buffer.
func (s *Signal) Unstage() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged = false
	s.uid = ""
	s.counter = 0
	s.pending = nil
	s.lastArray = nil
	s.lastDatum = ""
	return nil
}

// Trigger captures the array to the next file in the series.  The returned
// status completes when the file is on disk and the datum is queued.
func (s *Signal) Trigger() (*signal.Status, error) {
	s.mu.Lock()
	staged := s.staged
	s.mu.Unlock()
	if !staged {
		return nil, fmt.Errorf("%s: trigger before stage", s.name)
	}
	st := signal.NewStatus()
	go func() { st.Finish(s.capture()) }()
	return st, nil
}

func (s *Signal) capture() error {
	tmpl, err := s.applyConfigs()
	if err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	repeats := 1
	if r, ok := tmpl["repeats"].(int); ok {
		repeats = r
		delete(tmpl, "repeats")
	}
	var v interface{}
	var joined []float64
	for i := 0; i < repeats; i++ {
		if s.monitor != nil {
			if err := s.monitor.Run(); err != nil {
				return fmt.Errorf("%s: %w", s.name, err)
			}
		}
		v, err = s.cl.Get(s.cmdName, tmpl)
		if err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		if arr, ok := v.([]float64); ok && repeats > 1 {
			joined = append(joined, arr...)
		}
	}
	if repeats > 1 {
		v = joined
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	index := s.counter
	path := filepath.Join(s.root, fmt.Sprintf("%s_%d.%s", s.uid, index, s.saver.Ext()))
	if err := s.saver.Save(path, v); err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	written, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	datumID := fmt.Sprintf("%s/%d", s.uid, index)
	kwargs := map[string]interface{}{
		"index":    index,
		"checksum": crcTable.CalculateCRC(written),
	}
	if data, ok := v.([]float64); ok {
		s.lastArray = data
	} else {
		s.lastArray = nil
	}
	s.pending = append(s.pending, signal.AssetDoc{Name: "datum", Doc: Datum{
		Resource:    s.uid,
		DatumID:     datumID,
		DatumKwargs: kwargs,
	}})
	s.counter++
	s.lastDatum = datumID
	s.lastTime = time.Now()
	return nil
}

// applyConfigs programs configs that name settable commands into the
// instrument, in sorted order, and returns the rest for template rendering.
// Captures like a voltage burst carry their sample count, aperture, and
// trigger setup this way.
func (s *Signal) applyConfigs() (map[string]interface{}, error) {
	if len(s.configs) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(s.configs))
	for k := range s.configs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tmpl := map[string]interface{}{}
	for _, k := range keys {
		if cmd, ok := s.cl.Commands().Get(k); ok && cmd.HasSetter {
			if err := s.cl.Set(k, s.configs[k], nil); err != nil {
				return nil, err
			}
			continue
		}
		tmpl[k] = s.configs[k]
	}
	return tmpl, nil
}

// Read reports the most recent datum ID; the samples live in the file.
// Before the first trigger there is nothing to report and the signal
// contributes no readings.
func (s *Signal) Read() (map[string]signal.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastDatum == "" {
		return map[string]signal.Reading{}, nil
	}
	return map[string]signal.Reading{
		s.name: {Value: s.lastDatum, Timestamp: s.lastTime},
	}, nil
}

// Describe marks the reading as externally stored array data.
func (s *Signal) Describe() map[string]signal.Description {
	s.mu.Lock()
	n := len(s.lastArray)
	s.mu.Unlock()
	return map[string]signal.Description{
		s.name: {
			Source:   s.cl.Name() + ":" + s.name,
			DType:    "array",
			Shape:    []int{n},
			External: "FILESTORE:",
		},
	}
}

// GetArray returns the buffer captured by the last trigger.  The slice is a
// copy.
func (s *Signal) GetArray() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, len(s.lastArray))
	copy(out, s.lastArray)
	return out
}

// CollectAssetDocs drains the queued resource and datum documents in the
// order they were produced.
func (s *Signal) CollectAssetDocs() []signal.AssetDoc {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out
}
