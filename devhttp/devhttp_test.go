package devhttp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ee-meas/instrgraph/command"
	"github.com/ee-meas/instrgraph/device"
	"github.com/ee-meas/instrgraph/sim"
)

func testServer(t *testing.T) (*httptest.Server, *sim.Layer) {
	t.Helper()
	dict, err := command.NewDict(
		command.Command{Name: "freq", Ascii: "FREQ", HasGetter: true, HasSetter: true, GetterType: command.Float, Limits: []float64{0.001, 102000}},
		command.Command{Name: "tau", Ascii: "OFLT", HasGetter: true, HasSetter: true, GetterType: command.Int, IsConfig: true,
			Lookup: map[string]interface{}{"10ms": 6, "30ms": 7}},
		command.Command{Name: "trig", Ascii: "TRIG", HasSetter: true},
	)
	if err != nil {
		t.Fatal(err)
	}
	layer := sim.New("lia", dict)
	layer.SetValue("freq", nil, 137.0)
	dev, err := device.Build("lia", layer)
	if err != nil {
		t.Fatal(err)
	}
	var m Multiplexer
	m.Add("lab/lia", NewController(dev))
	srv := httptest.NewServer(m.BuildMux())
	t.Cleanup(srv.Close)
	return srv, layer
}

func getJSON(t *testing.T, url string, into interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatal(err)
	}
}

func TestReadRoute(t *testing.T) {
	srv, _ := testServer(t)
	var readings map[string]struct {
		Value     interface{} `json:"value"`
		Timestamp float64     `json:"timestamp"`
	}
	getJSON(t, srv.URL+"/lab/lia/read", &readings)
	r, ok := readings["lia_freq"]
	if !ok {
		t.Fatalf("missing lia_freq in %v", readings)
	}
	if r.Value != 137.0 {
		t.Errorf("lia_freq = %v, want 137", r.Value)
	}
	if r.Timestamp == 0 {
		t.Error("timestamp not set")
	}
	if _, ok := readings["lia_tau"]; ok {
		t.Error("config component in /read")
	}
}

func TestReadConfigurationRoute(t *testing.T) {
	srv, _ := testServer(t)
	var readings map[string]struct {
		Value interface{} `json:"value"`
	}
	getJSON(t, srv.URL+"/lab/lia/read-configuration", &readings)
	if _, ok := readings["lia_tau"]; !ok {
		t.Fatalf("missing lia_tau in %v", readings)
	}
}

func TestDescribeRoute(t *testing.T) {
	srv, _ := testServer(t)
	var desc map[string]struct {
		Source string `json:"source"`
		DType  string `json:"dtype"`
	}
	getJSON(t, srv.URL+"/lab/lia/describe", &desc)
	d, ok := desc["lia_freq"]
	if !ok {
		t.Fatal("missing lia_freq description")
	}
	if d.DType != "number" {
		t.Errorf("dtype = %q, want number", d.DType)
	}
}

func TestSetSignalRoute(t *testing.T) {
	srv, layer := testServer(t)
	resp, err := http.Post(srv.URL+"/lab/lia/signal/freq", "application/json",
		strings.NewReader(`{"value": 1000}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	recs := layer.SetsOf("freq")
	if len(recs) != 1 {
		t.Fatalf("freq sets = %+v", recs)
	}
}

func TestSetSignalRejectsOutOfLimits(t *testing.T) {
	srv, _ := testServer(t)
	resp, err := http.Post(srv.URL+"/lab/lia/signal/freq", "application/json",
		strings.NewReader(`{"value": 1e9}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500", resp.StatusCode)
	}
}

func TestFireBareCommand(t *testing.T) {
	srv, layer := testServer(t)
	resp, err := http.Post(srv.URL+"/lab/lia/signal/trig", "application/json",
		strings.NewReader(`{"value": null}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if len(layer.SetsOf("trig")) != 1 {
		t.Error("trig not fired")
	}
}

func TestSignalNotFound(t *testing.T) {
	srv, _ := testServer(t)
	resp, err := http.Get(srv.URL + "/lab/lia/signal/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d, want 404", resp.StatusCode)
	}
}

func TestEndpointsSupergraph(t *testing.T) {
	srv, _ := testServer(t)
	var graph map[string][]string
	getJSON(t, srv.URL+"/endpoints", &graph)
	routes, ok := graph["/lab/lia/"]
	if !ok {
		t.Fatalf("missing /lab/lia/ in %v", graph)
	}
	found := false
	for _, r := range routes {
		if strings.Contains(r, "/read") {
			found = true
		}
	}
	if !found {
		t.Errorf("routes = %v, want a /read entry", routes)
	}
}

func TestBearerAuth(t *testing.T) {
	secret := []byte("bench-secret")
	dict, err := command.NewDict(
		command.Command{Name: "freq", Ascii: "FREQ", HasGetter: true, HasSetter: true, GetterType: command.Float},
	)
	if err != nil {
		t.Fatal(err)
	}
	dev, err := device.Build("lia", sim.New("lia", dict))
	if err != nil {
		t.Fatal(err)
	}
	var m Multiplexer
	m.Add("lia", NewController(dev))
	srv := httptest.NewServer(BearerAuth(secret)(m.BuildMux()))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/lia/read")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status %d, want 401", resp.StatusCode)
	}

	tok, err := IssueToken(secret, "test")
	if err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/lia/read", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authenticated status %d, want 200", resp.StatusCode)
	}
}
