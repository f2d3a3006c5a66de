package shell

import (
	"errors"
	"io"
	"net"
	"os"
	"time"
)

// ErrNoData is returned by Conn.NextByte when the wait elapses without input.
var ErrNoData = errors.New("shell: no data")

// Conn is the byte stream a Session runs over.
type Conn interface {
	io.Writer

	// NextByte waits up to wait for one byte. It returns ErrNoData when the
	// wait elapses and io.EOF when the peer has closed the stream.
	NextByte(wait time.Duration) (byte, error)
}

// netConn adapts a net.Conn using read deadlines.
type netConn struct {
	conn net.Conn
	buf  [1]byte
}

// WrapConn adapts a net.Conn to Conn.
func WrapConn(conn net.Conn) Conn {
	return &netConn{conn: conn}
}

func (c *netConn) Write(p []byte) (int, error) {
	return c.conn.Write(p)
}

func (c *netConn) NextByte(wait time.Duration) (byte, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(wait)); err != nil {
		return 0, err
	}

	n, err := c.conn.Read(c.buf[:])
	if n == 1 {
		return c.buf[0], nil
	}
	if err == nil || errors.Is(err, os.ErrDeadlineExceeded) {
		return 0, ErrNoData
	}
	return 0, err
}
