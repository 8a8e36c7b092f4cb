package main

import (
	"strings"
	"testing"
)

func TestBuildDevicesStats(t *testing.T) {
	c := Config{
		DataDir: t.TempDir(),
		Nodes: []Node{{
			Name:     "dmm",
			Type:     "dmm",
			Endpoint: "/lab/dmm",
			Mock:     true,
			Stats:    "burst_volt",
		}},
	}
	devs, _, err := BuildDevices(c)
	if err != nil {
		t.Fatal(err)
	}
	stats, ok := devs["/lab/dmm-stats"]
	if !ok {
		t.Fatalf("no stats device mounted, endpoints = %v", keys(devs))
	}
	want := []string{"filter_24dB_mean", "filter_24dB_std", "filter_6dB_mean", "filter_6dB_std"}
	got := stats.Names()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("stats components = %v, want %v", got, want)
	}
}

func TestBuildDevicesStatsUnknownComponent(t *testing.T) {
	c := Config{
		DataDir: t.TempDir(),
		Nodes: []Node{{
			Name:     "dmm",
			Type:     "dmm",
			Endpoint: "/lab/dmm",
			Mock:     true,
			Stats:    "no_such_buffer",
		}},
	}
	if _, _, err := BuildDevices(c); err == nil {
		t.Fatal("expected an error for an unknown stats component")
	}
}

func keys[M ~map[string]V, V any](m M) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
