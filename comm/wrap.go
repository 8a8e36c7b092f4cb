package comm

import (
	"bytes"
	"io"
	"time"
)

// deadliner is the deadline-bearing subset of net.Conn.
type deadliner interface {
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// Terminator wraps a ReadWriter, appending the Tx terminator to each write
// and stripping trailing Rx terminators from each read.  Instruments nearly
// universally frame ASCII traffic this way.
type Terminator struct {
	rw io.ReadWriter
	rx byte
	tx byte
}

// NewTerminator returns a Terminator around rw with the given framing bytes.
func NewTerminator(rw io.ReadWriter, rx, tx byte) *Terminator {
	return &Terminator{rw: rw, rx: rx, tx: tx}
}

// Write sends b with the Tx terminator appended.
func (t *Terminator) Write(b []byte) (int, error) {
	n, err := t.rw.Write(append(b, t.tx))
	if n > 0 {
		// do not let the caller see the terminator in the count
		n--
	}
	return n, err
}

// Read reads into b and strips any trailing Rx terminator, also dropping a
// carriage return left behind by CRLF devices.
func (t *Terminator) Read(b []byte) (int, error) {
	n, err := t.rw.Read(b)
	if err != nil {
		return n, err
	}
	for n > 0 && (b[n-1] == t.rx || b[n-1] == '\r') {
		n--
	}
	return n, err
}

// SetReadDeadline forwards to the underlying connection if it supports
// deadlines, otherwise it is a no-op.
func (t *Terminator) SetReadDeadline(tt time.Time) error {
	if d, ok := t.rw.(deadliner); ok {
		return d.SetReadDeadline(tt)
	}
	return nil
}

// SetWriteDeadline forwards to the underlying connection if it supports
// deadlines, otherwise it is a no-op.
func (t *Terminator) SetWriteDeadline(tt time.Time) error {
	if d, ok := t.rw.(deadliner); ok {
		return d.SetWriteDeadline(tt)
	}
	return nil
}

// Timeout wraps a ReadWriter, applying a fresh deadline before each read and
// write when the underlying connection supports deadlines.
type Timeout struct {
	rw      io.ReadWriter
	timeout time.Duration
}

// NewTimeout returns rw wrapped with a per-operation timeout.  If the
// underlying connection has no notion of deadlines (serial ports configure
// timeouts at open), rw is returned unchanged.
func NewTimeout(rw io.ReadWriter, timeout time.Duration) (io.ReadWriter, error) {
	if _, ok := rw.(deadliner); !ok {
		return rw, nil
	}
	return &Timeout{rw: rw, timeout: timeout}, nil
}

func (t *Timeout) Write(b []byte) (int, error) {
	err := t.rw.(deadliner).SetWriteDeadline(time.Now().Add(t.timeout))
	if err != nil {
		return 0, err
	}
	return t.rw.Write(b)
}

func (t *Timeout) Read(b []byte) (int, error) {
	err := t.rw.(deadliner).SetReadDeadline(time.Now().Add(t.timeout))
	if err != nil {
		return 0, err
	}
	return t.rw.Read(b)
}

// ReadUntil reads from rw until the terminator byte is seen or the buffer
// limit is reached, returning everything before the terminator.
func ReadUntil(rw io.Reader, term byte, limit int) ([]byte, error) {
	buf := make([]byte, 0, 256)
	one := make([]byte, 1)
	for len(buf) < limit {
		n, err := rw.Read(one)
		if n > 0 {
			if one[0] == term {
				return bytes.TrimRight(buf, "\r"), nil
			}
			buf = append(buf, one[0])
		}
		if err != nil {
			return buf, err
		}
	}
	return buf, nil
}
