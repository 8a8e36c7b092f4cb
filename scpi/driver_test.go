package scpi_test

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ee-meas/instrgraph/comm"
	"github.com/ee-meas/instrgraph/command"
	"github.com/ee-meas/instrgraph/scpi"
)

// fakeInstrument is a TCP loopback that answers queries from a canned table
// and records writes, mimicking a handshaking SCPI device.
type fakeInstrument struct {
	mu      sync.Mutex
	replies map[string]string
	writes  []string
	addr    string
}

func newFakeInstrument(t *testing.T, replies map[string]string) *fakeInstrument {
	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })
	fi := &fakeInstrument{replies: replies, addr: ln.Addr().String()}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go fi.serve(conn)
		}
	}()
	return fi
}

func (fi *fakeInstrument) serve(conn net.Conn) {
	defer conn.Close()
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		handshaking := false
		if strings.HasPrefix(line, "*CLS;") {
			handshaking = true
			line = strings.TrimSpace(strings.TrimPrefix(line, "*CLS;"))
			line = strings.TrimSpace(strings.TrimSuffix(line, ";:SYSTem:ERRor?"))
		}
		if strings.Contains(line, "?") {
			fi.mu.Lock()
			reply, ok := fi.replies[line]
			fi.mu.Unlock()
			if !ok {
				reply = "-113,\"Undefined header\""
			}
			if handshaking {
				reply = reply + ";+0 No error"
			}
			io.WriteString(conn, reply+"\n")
			continue
		}
		fi.mu.Lock()
		fi.writes = append(fi.writes, line)
		fi.mu.Unlock()
		if handshaking {
			io.WriteString(conn, "+0 No error\n")
		}
	}
}

func (fi *fakeInstrument) lastWrite() string {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	if len(fi.writes) == 0 {
		return ""
	}
	return fi.writes[len(fi.writes)-1]
}

func testDict(t *testing.T) *command.Dict {
	d, err := command.NewDict(
		command.Command{Name: "freq", Ascii: "FREQ", HasGetter: true, HasSetter: true,
			SetterInputs: 1, GetterType: command.Float, Limits: []float64{0.001, 102000}},
		command.Command{Name: "tau", Ascii: "OFLT", HasGetter: true, HasSetter: true,
			SetterInputs: 1, GetterType: command.Int, IsConfig: true,
			Lookup: map[string]interface{}{"10ms": 4, "30ms": 5}},
		command.Command{Name: "scale", Ascii: "CHANnel{chan}:RANGe", HasGetter: true,
			HasSetter: true, GetterInputs: 1, SetterInputs: 2, GetterType: command.Float},
		command.Command{Name: "burst_volt", Ascii: "READ", HasGetter: true,
			GetterType: command.FloatArray},
	)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func newTestDriver(t *testing.T, fi *fakeInstrument, handshaking bool) *scpi.Driver {
	maker := func() (io.ReadWriteCloser, error) { return net.Dial("tcp", fi.addr) }
	pool := comm.NewPool(1, time.Hour, maker)
	return scpi.NewDriver("lia", testDict(t), pool, handshaking)
}

func TestDriverGetFloat(t *testing.T) {
	fi := newFakeInstrument(t, map[string]string{"FREQ?": "1.0E3"})
	drv := newTestDriver(t, fi, true)
	v, err := drv.Get("freq", nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.(float64) != 1000.0 {
		t.Errorf("expected 1000.0, got %v", v)
	}
}

func TestDriverGetWithConfigs(t *testing.T) {
	fi := newFakeInstrument(t, map[string]string{"CHANnel2:RANGe?": "8E0"})
	drv := newTestDriver(t, fi, false)
	v, err := drv.Get("scale", map[string]interface{}{"chan": 2})
	if err != nil {
		t.Fatal(err)
	}
	if v.(float64) != 8.0 {
		t.Errorf("expected 8.0, got %v", v)
	}
}

func TestDriverGetLookupReverse(t *testing.T) {
	fi := newFakeInstrument(t, map[string]string{"OFLT?": "4"})
	drv := newTestDriver(t, fi, false)
	v, err := drv.Get("tau", nil)
	if err != nil {
		t.Fatal(err)
	}
	if v != "10ms" {
		t.Errorf("expected reverse-translated 10ms, got %v", v)
	}
}

func TestDriverSetTranslatesAndLimits(t *testing.T) {
	fi := newFakeInstrument(t, nil)
	drv := newTestDriver(t, fi, true)
	if err := drv.Set("tau", "30ms", nil); err != nil {
		t.Fatal(err)
	}
	// give the recorded write a moment to land
	time.Sleep(10 * time.Millisecond)
	if got := fi.lastWrite(); got != "OFLT 5" {
		t.Errorf("expected OFLT 5 on the wire, got %q", got)
	}
	if err := drv.Set("freq", 200000.0, nil); err == nil {
		t.Error("expected limit violation for 200 kHz")
	}
	if err := drv.Set("burst_volt", 1.0, nil); err == nil {
		t.Error("expected error setting a getter-only command")
	}
}

func TestDriverGetFloatArray(t *testing.T) {
	n := 64
	vals := make([]string, n)
	for i := range vals {
		vals[i] = fmt.Sprintf("%.6E", float64(i)*0.25)
	}
	fi := newFakeInstrument(t, map[string]string{"READ?": strings.Join(vals, ",")})
	drv := newTestDriver(t, fi, false)
	v, err := drv.Get("burst_volt", nil)
	if err != nil {
		t.Fatal(err)
	}
	arr := v.([]float64)
	if len(arr) != n {
		t.Fatalf("expected %d samples, got %d", n, len(arr))
	}
	if arr[4] != 1.0 {
		t.Errorf("expected arr[4] == 1.0, got %v", arr[4])
	}
}

func TestParseFloatArray(t *testing.T) {
	arr, err := scpi.ParseFloatArray(" 1.5, -2.25 ,3E1 ")
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{1.5, -2.25, 30}
	for i := range want {
		if arr[i] != want[i] {
			t.Errorf("at %d: expected %v got %v", i, want[i], arr[i])
		}
	}
}

// brokenReadConn accepts writes but fails every read, like a device that
// dropped the link mid-exchange.
type brokenReadConn struct {
	mu     sync.Mutex
	closed bool
}

func (c *brokenReadConn) Write(p []byte) (int, error) { return len(p), nil }
func (c *brokenReadConn) Read(p []byte) (int, error)  { return 0, io.ErrUnexpectedEOF }
func (c *brokenReadConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func TestWriteDestroysConnOnHandshakeFailure(t *testing.T) {
	var (
		mu    sync.Mutex
		conns []*brokenReadConn
	)
	maker := func() (io.ReadWriteCloser, error) {
		c := &brokenReadConn{}
		mu.Lock()
		conns = append(conns, c)
		mu.Unlock()
		return c, nil
	}
	pool := comm.NewPool(1, time.Hour, maker)
	s := &scpi.SCPI{Pool: pool, Handshaking: true}
	if err := s.Write("FREQ 100"); err == nil {
		t.Fatal("write should surface the handshake read failure")
	}
	mu.Lock()
	dials := len(conns)
	closed := conns[0].closed
	mu.Unlock()
	if dials != 1 {
		t.Fatalf("dials = %d, want 1", dials)
	}
	if !closed {
		t.Error("poisoned connection was not closed")
	}
	// the next operation must dial fresh rather than reuse the bad conn
	if err := s.Write("FREQ 200"); err == nil {
		t.Fatal("write should surface the handshake read failure")
	}
	mu.Lock()
	dials = len(conns)
	mu.Unlock()
	if dials != 2 {
		t.Errorf("dials = %d, want a fresh connection after destroy", dials)
	}
}
