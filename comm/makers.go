package comm

import (
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gotmc/prologix"
	"github.com/tarm/serial"
	bugst "go.bug.st/serial"
)

// TCPSetup opens a new TCP connection and sets a timeout on connect, read, and write
func TCPSetup(addr string, timeout time.Duration) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(timeout)
	conn.SetReadDeadline(deadline)
	conn.SetWriteDeadline(deadline)
	return conn, nil
}

// BackingOffTCPConnMaker returns a CreationFunc which dials addr with an
// exponential backoff.  Some instruments do not like being connection
// thrashed and refuse the first dial after a disconnect.
func BackingOffTCPConnMaker(addr string, timeout time.Duration) CreationFunc {
	return func() (io.ReadWriteCloser, error) {
		var conn net.Conn
		wasTimeout := false
		op := func() error {
			var err error
			conn, err = TCPSetup(addr, timeout)
			if err != nil {
				errS := strings.ToLower(err.Error())
				if strings.Contains(errS, "refused") {
					return err
				}
				wasTimeout = true
				return nil
			}
			wasTimeout = false
			return nil
		}
		err := backoff.Retry(op, &backoff.ExponentialBackOff{
			InitialInterval:     25 * time.Millisecond,
			RandomizationFactor: 0.,
			Multiplier:          2.,
			MaxInterval:         1 * time.Second,
			MaxElapsedTime:      3 * time.Second,
			Clock:               backoff.SystemClock})
		if err == nil && !wasTimeout {
			return conn, nil
		}
		if wasTimeout {
			return nil, fmt.Errorf("connection timeout to %s", addr)
		}
		return nil, err
	}
}

// SerialConnMaker returns a CreationFunc which opens the serial port
// described by conf.
func SerialConnMaker(conf *serial.Config) CreationFunc {
	return func() (io.ReadWriteCloser, error) {
		return serial.OpenPort(conf)
	}
}

// gpibConn bundles a Prologix controller with the port under it so the pool
// can close both as one unit.
type gpibConn struct {
	*prologix.Controller
	port io.Closer
}

func (g gpibConn) Close() error {
	return g.port.Close()
}

// GPIBConnMaker returns a CreationFunc which opens the serial port of a
// Prologix USB-GPIB adapter and addresses the instrument at gpibAddr.
// The returned connection behaves like any other: writes go to the
// instrument, reads come back from it.
func GPIBConnMaker(port string, baud int, gpibAddr int) CreationFunc {
	return func() (io.ReadWriteCloser, error) {
		p, err := bugst.Open(port, &bugst.Mode{BaudRate: baud})
		if err != nil {
			return nil, err
		}
		ctl, err := prologix.NewController(p, gpibAddr, true)
		if err != nil {
			p.Close()
			return nil, err
		}
		return gpibConn{Controller: ctl, port: p}, nil
	}
}
