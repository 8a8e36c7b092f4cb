// Package devhttp exposes device graphs over HTTP.  Each device gets a
// submux of routes for reading, describing, staging, and triggering; a
// multiplexer mounts many devices under their endpoints and serves a
// supergraph of everything it carries.
package devhttp

import (
	"encoding/json"
	"net/http"
	"sort"

	"goji.io"
	"goji.io/pat"

	"github.com/ee-meas/instrgraph/device"
	"github.com/ee-meas/instrgraph/signal"
)

// RouteTable maps patterns to handlers for one device.
type RouteTable map[goji.Pattern]http.Handler

// Bind adds the table's routes to a mux.
func (rt RouteTable) Bind(m *goji.Mux) {
	for p, h := range rt {
		m.Handle(p, h)
	}
}

// Endpoints lists the table's patterns, sorted.
func (rt RouteTable) Endpoints() []string {
	out := make([]string, 0, len(rt))
	for p := range rt {
		if s, ok := p.(interface{ String() string }); ok {
			out = append(out, s.String())
		}
	}
	sort.Strings(out)
	return out
}

// HTTPer is anything that can hand out a route table.
type HTTPer interface {
	RT() RouteTable
}

// jsonReading is the wire form of one reading; timestamps travel as Unix
// seconds.
type jsonReading struct {
	Value     interface{} `json:"value"`
	Timestamp float64     `json:"timestamp"`
}

func encodeReadings(w http.ResponseWriter, readings map[string]signal.Reading) {
	out := make(map[string]jsonReading, len(readings))
	for k, r := range readings {
		out[k] = jsonReading{
			Value:     r.Value,
			Timestamp: float64(r.Timestamp.UnixNano()) / 1e9,
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func encodeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Controller wraps one device graph in HTTP routes.
type Controller struct {
	dev   *device.Device
	extra RouteTable

	// Observe, when non-nil, is called once per device operation with the
	// operation name and its error, for metrics
	Observe func(op string, err error)
}

func (c *Controller) observe(op string, err error) {
	if c.Observe != nil {
		c.Observe(op, err)
	}
}

// NewController returns a controller for dev.
func NewController(dev *device.Device) *Controller {
	return &Controller{dev: dev}
}

// Device returns the wrapped device.
func (c *Controller) Device() *device.Device { return c.dev }

// RT builds the route table:
//
//	GET  /read                    readings of normal and hinted components
//	GET  /read-configuration      readings of config components
//	GET  /describe                descriptions of normal and hinted components
//	GET  /describe-configuration  descriptions of config components
//	GET  /components              component names, kinds, and skip list
//	POST /stage                   prepare for acquisition
//	POST /trigger                 acquire, waiting for completion
//	POST /unstage                 release per-run resources
//	GET  /asset-docs              drain queued resource and datum documents
//	GET  /signal/:name            read one component by name
//	POST /signal/:name            set one component; body {"value": ...}
func (c *Controller) RT() RouteTable {
	rt := RouteTable{
		pat.Get("/read"):                   http.HandlerFunc(c.read),
		pat.Get("/read-configuration"):     http.HandlerFunc(c.readConfiguration),
		pat.Get("/describe"):               http.HandlerFunc(c.describe),
		pat.Get("/describe-configuration"): http.HandlerFunc(c.describeConfiguration),
		pat.Get("/components"):             http.HandlerFunc(c.components),
		pat.Post("/stage"):                 http.HandlerFunc(c.stage),
		pat.Post("/trigger"):               http.HandlerFunc(c.trigger),
		pat.Post("/unstage"):               http.HandlerFunc(c.unstage),
		pat.Get("/asset-docs"):             http.HandlerFunc(c.assetDocs),
		pat.Get("/signal/:name"):           http.HandlerFunc(c.getSignal),
		pat.Post("/signal/:name"):          http.HandlerFunc(c.setSignal),
	}
	for p, h := range c.extra {
		rt[p] = h
	}
	return rt
}

// RawCommunicator sends one raw command string to the instrument and
// returns the reply when the command is a query.
type RawCommunicator interface {
	Raw(cmd string) (string, error)
}

// InjectRawComm adds POST /raw to c's routes, a passthrough to the wire
// for debugging command syntax.  Body {"cmd": "FREQ?"} replies
// {"reply": "1000"}; non-query commands reply with an empty string.
func InjectRawComm(c *Controller, rw RawCommunicator) {
	if c.extra == nil {
		c.extra = RouteTable{}
	}
	c.extra[pat.Post("/raw")] = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := struct {
			Cmd string `json:"cmd"`
		}{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		reply, err := rw.Raw(body.Cmd)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		encodeJSON(w, struct {
			Reply string `json:"reply"`
		}{reply})
	})
}

func (c *Controller) read(w http.ResponseWriter, r *http.Request) {
	readings, err := c.dev.Read()
	c.observe("read", err)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	encodeReadings(w, readings)
}

func (c *Controller) readConfiguration(w http.ResponseWriter, r *http.Request) {
	readings, err := c.dev.ReadConfiguration()
	c.observe("read-configuration", err)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	encodeReadings(w, readings)
}

func (c *Controller) describe(w http.ResponseWriter, r *http.Request) {
	encodeJSON(w, c.dev.Describe())
}

func (c *Controller) describeConfiguration(w http.ResponseWriter, r *http.Request) {
	encodeJSON(w, c.dev.DescribeConfiguration())
}

type componentInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

func (c *Controller) components(w http.ResponseWriter, r *http.Request) {
	names := c.dev.Names()
	infos := make([]componentInfo, 0, len(names))
	for _, n := range names {
		comp, _ := c.dev.Component(n)
		infos = append(infos, componentInfo{Name: n, Kind: comp.Kind.String()})
	}
	encodeJSON(w, struct {
		Device     string          `json:"device"`
		Components []componentInfo `json:"components"`
		Skipped    []string        `json:"skipped,omitempty"`
	}{c.dev.Name(), infos, c.dev.Skipped()})
}

func (c *Controller) stage(w http.ResponseWriter, r *http.Request) {
	err := c.dev.Stage()
	c.observe("stage", err)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (c *Controller) trigger(w http.ResponseWriter, r *http.Request) {
	err := c.dev.Trigger()
	c.observe("trigger", err)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (c *Controller) unstage(w http.ResponseWriter, r *http.Request) {
	err := c.dev.Unstage()
	c.observe("unstage", err)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (c *Controller) assetDocs(w http.ResponseWriter, r *http.Request) {
	docs := c.dev.CollectAssetDocs()
	out := make([]map[string]interface{}, 0, len(docs))
	for _, d := range docs {
		out = append(out, map[string]interface{}{"name": d.Name, "doc": d.Doc})
	}
	encodeJSON(w, out)
}

func (c *Controller) getSignal(w http.ResponseWriter, r *http.Request) {
	name := pat.Param(r, "name")
	comp, ok := c.dev.Component(name)
	if !ok {
		http.Error(w, "no component "+name, http.StatusNotFound)
		return
	}
	readings, err := comp.Signal.Read()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	encodeReadings(w, readings)
}

// setBody is the payload for POST /signal/:name.  A null or absent value
// fires the bare command, the way a software trigger is issued.
type setBody struct {
	Value interface{} `json:"value"`
}

func (c *Controller) setSignal(w http.ResponseWriter, r *http.Request) {
	name := pat.Param(r, "name")
	comp, ok := c.dev.Component(name)
	if !ok {
		http.Error(w, "no component "+name, http.StatusNotFound)
		return
	}
	set, ok := comp.Signal.(signal.Settable)
	if !ok {
		http.Error(w, name+" is not settable", http.StatusMethodNotAllowed)
		return
	}
	var body setBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	// JSON numbers decode as float64; integer-typed commands want ints
	if f, ok := body.Value.(float64); ok && f == float64(int(f)) {
		if d := describeOne(comp.Signal); d != nil && d.DType == "integer" {
			body.Value = int(f)
		}
	}
	st, err := set.Set(body.Value)
	c.observe("set", err)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := st.Wait(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func describeOne(s signal.Readable) *signal.Description {
	for _, d := range s.Describe() {
		return &d
	}
	return nil
}
