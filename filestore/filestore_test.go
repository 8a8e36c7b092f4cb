package filestore

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/ee-meas/instrgraph/command"
	"github.com/ee-meas/instrgraph/sim"
)

func burstDict(t *testing.T) *command.Dict {
	t.Helper()
	d, err := command.NewDict(
		command.Command{Name: "burst_volt", Ascii: "READ", HasGetter: true, GetterType: command.FloatArray},
		command.Command{Name: "display_data", Ascii: "HCOPy:SDUMp:DATA", HasGetter: true, GetterType: command.ByteArray},
	)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func newBurstSignal(t *testing.T, saver Saver, cmd string) (*Signal, *sim.Layer, string) {
	t.Helper()
	layer := sim.New("dmm", burstDict(t))
	root := t.TempDir()
	s, err := New(layer, cmd, "dmm_"+cmd, root, saver)
	if err != nil {
		t.Fatal(err)
	}
	return s, layer, root
}

func waitTrigger(t *testing.T, s *Signal) {
	t.Helper()
	st, err := s.Trigger()
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := st.Wait(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestStageEmitsResource(t *testing.T) {
	s, _, root := newBurstSignal(t, CSVSaver{}, "burst_volt")
	if err := s.Stage(); err != nil {
		t.Fatal(err)
	}
	docs := s.CollectAssetDocs()
	if len(docs) != 1 || docs[0].Name != "resource" {
		t.Fatalf("docs = %+v, want one resource", docs)
	}
	res := docs[0].Doc.(Resource)
	if res.Spec != "CSV_SEQ" {
		t.Errorf("spec = %q, want CSV_SEQ", res.Spec)
	}
	if res.Root != root {
		t.Errorf("root = %q, want %q", res.Root, root)
	}
	if res.UID == "" || res.UID != res.ResourcePath {
		t.Errorf("uid %q and resource path %q should match", res.UID, res.ResourcePath)
	}
	if res.PathSemantics != "posix" {
		t.Errorf("path semantics = %q, want posix", res.PathSemantics)
	}
}

func TestTriggerSavesAndQueuesDatum(t *testing.T) {
	s, layer, root := newBurstSignal(t, CSVSaver{}, "burst_volt")
	layer.SetValue("burst_volt", nil, []float64{1.5, -2.25, 3})
	if err := s.Stage(); err != nil {
		t.Fatal(err)
	}
	waitTrigger(t, s)
	waitTrigger(t, s)

	docs := s.CollectAssetDocs()
	if len(docs) != 3 {
		t.Fatalf("got %d docs, want resource + 2 datums", len(docs))
	}
	res := docs[0].Doc.(Resource)
	for i, doc := range docs[1:] {
		datum := doc.Doc.(Datum)
		if datum.Resource != res.UID {
			t.Errorf("datum %d resource = %q, want %q", i, datum.Resource, res.UID)
		}
		if datum.DatumKwargs["index"] != i {
			t.Errorf("datum %d index = %v", i, datum.DatumKwargs["index"])
		}
		fn := filepath.Join(root, res.UID+"_"+strconv.Itoa(i)+".csv")
		written, err := os.ReadFile(fn)
		if err != nil {
			t.Fatalf("datum %d file: %v", i, err)
		}
		// the checksum covers the bytes on disk
		if got := datum.DatumKwargs["checksum"]; got != crcTable.CalculateCRC(written) {
			t.Errorf("datum %d checksum = %v, want CRC of the file", i, got)
		}
	}

	r, err := s.Read()
	if err != nil {
		t.Fatal(err)
	}
	got := r["dmm_burst_volt"].Value.(string)
	want := res.UID + "/1"
	if got != want {
		t.Errorf("read value = %q, want datum id %q", got, want)
	}

	arr := s.GetArray()
	if len(arr) != 3 || arr[1] != -2.25 {
		t.Errorf("GetArray = %v, want the captured buffer", arr)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	s, layer, root := newBurstSignal(t, CSVSaver{}, "burst_volt")
	want := []float64{0.5, 1.25, -9e-7}
	layer.SetValue("burst_volt", nil, want)
	if err := s.Stage(); err != nil {
		t.Fatal(err)
	}
	waitTrigger(t, s)
	res := s.CollectAssetDocs()[0].Doc.(Resource)
	f, err := os.Open(filepath.Join(root, res.UID+"_0.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d", len(rows), len(want))
	}
	for i, row := range rows {
		v, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			t.Fatal(err)
		}
		if v != want[i] {
			t.Errorf("row %d = %v, want %v", i, v, want[i])
		}
	}
}

func TestReadBeforeTriggerIsEmpty(t *testing.T) {
	s, _, _ := newBurstSignal(t, CSVSaver{}, "burst_volt")
	r, err := s.Read()
	if err != nil {
		t.Fatal(err)
	}
	if len(r) != 0 {
		t.Errorf("readings before trigger = %+v, want none", r)
	}
	if err := s.Stage(); err != nil {
		t.Fatal(err)
	}
	r, err = s.Read()
	if err != nil {
		t.Fatal(err)
	}
	if len(r) != 0 {
		t.Errorf("readings after stage = %+v, want none until a trigger", r)
	}
}

func TestFITSSaver(t *testing.T) {
	s, layer, root := newBurstSignal(t, FITSSaver{}, "burst_volt")
	want := []float64{1.5, -2.25, 3}
	layer.SetValue("burst_volt", nil, want)
	if err := s.Stage(); err != nil {
		t.Fatal(err)
	}
	waitTrigger(t, s)
	res := s.CollectAssetDocs()[0].Doc.(Resource)
	if res.Spec != "FITS_SEQ" {
		t.Errorf("spec = %q, want FITS_SEQ", res.Spec)
	}
	got, err := os.ReadFile(filepath.Join(root, res.UID+"_0.fits"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) < 6 || string(got[:6]) != "SIMPLE" {
		t.Error("file does not begin with a FITS primary header")
	}
	// header and data units pad to 2880-byte blocks
	if len(got)%2880 != 0 {
		t.Errorf("file length %d is not block aligned", len(got))
	}
}

func TestPNGSaver(t *testing.T) {
	s, layer, root := newBurstSignal(t, PNGSaver{}, "display_data")
	raw := []byte{0x89, 'P', 'N', 'G', 0}
	layer.SetValue("display_data", nil, raw)
	if err := s.Stage(); err != nil {
		t.Fatal(err)
	}
	waitTrigger(t, s)
	res := s.CollectAssetDocs()[0].Doc.(Resource)
	got, err := os.ReadFile(filepath.Join(root, res.UID+"_0.png"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(raw) {
		t.Errorf("file bytes = %v, want %v", got, raw)
	}
}

func TestUnstageClears(t *testing.T) {
	s, layer, _ := newBurstSignal(t, CSVSaver{}, "burst_volt")
	layer.SetValue("burst_volt", nil, []float64{1})
	if err := s.Stage(); err != nil {
		t.Fatal(err)
	}
	waitTrigger(t, s)
	if err := s.Unstage(); err != nil {
		t.Fatal(err)
	}
	if docs := s.CollectAssetDocs(); len(docs) != 0 {
		t.Errorf("docs after unstage = %+v, want none", docs)
	}
	r, err := s.Read()
	if err != nil {
		t.Fatal(err)
	}
	if len(r) != 0 {
		t.Errorf("readings after unstage = %+v, want none", r)
	}
	if _, err := s.Trigger(); err == nil {
		t.Error("trigger after unstage should fail")
	}
}

func TestDoubleStageFails(t *testing.T) {
	s, _, _ := newBurstSignal(t, CSVSaver{}, "burst_volt")
	if err := s.Stage(); err != nil {
		t.Fatal(err)
	}
	if err := s.Stage(); err == nil {
		t.Error("second stage should fail")
	}
}
