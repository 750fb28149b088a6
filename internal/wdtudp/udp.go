// Package wdtudp owns the supervisor's single inbound datagram socket:
// bind once, then repeatedly receive with a bounded wait so the caller's
// loop stays responsive even when nothing arrives.
package wdtudp

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// MaxMessageBytes bounds a single accepted datagram; anything longer is
// still read (UDP has no partial reads) but truncated to this length.
const MaxMessageBytes = 255

// ErrTimeout is returned by Poll when no datagram arrived before the
// deadline, the equivalent of a poll(2) timeout.
var ErrTimeout = errors.New("wdtudp: poll timeout")

// Endpoint wraps a bound UDP socket.
type Endpoint struct {
	conn *net.UDPConn
}

// Bind opens a socket listening on all interfaces at port.
func Bind(port int) (*Endpoint, error) {
	addr := &net.UDPAddr{IP: net.IPv4zero, Port: port}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("bind udp :%d: %w", port, err)
	}
	return &Endpoint{conn: conn}, nil
}

// Close releases the socket.
func (e *Endpoint) Close() error {
	return e.conn.Close()
}

// LocalPort returns the port the socket is actually bound to, useful
// when Bind was called with port 0 to get an ephemeral one.
func (e *Endpoint) LocalPort() int {
	return e.conn.LocalAddr().(*net.UDPAddr).Port
}

// Poll waits up to timeout for one datagram. On success it returns the
// received bytes (at most MaxMessageBytes). On a clean timeout it
// returns ErrTimeout, which the caller treats as a normal no-op tick:
// log nothing, keep looping.
func (e *Endpoint) Poll(timeout time.Duration) ([]byte, error) {
	if err := e.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}

	buf := make([]byte, MaxMessageBytes)
	n, _, err := e.conn.ReadFromUDP(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("read udp: %w", err)
	}
	return buf[:n], nil
}
