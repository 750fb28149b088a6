package wdtudp

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollTimesOutWithNoTraffic(t *testing.T) {
	e, err := Bind(0)
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Poll(50 * time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestPollReceivesDatagram(t *testing.T) {
	e, err := Bind(0)
	require.NoError(t, err)
	defer e.Close()

	port := e.conn.LocalAddr().(*net.UDPAddr).Port
	sender, err := net.Dial("udp4", "127.0.0.1:"+strconv.Itoa(port))
	require.NoError(t, err)
	defer sender.Close()

	_, err = sender.Write([]byte("p1234"))
	require.NoError(t, err)

	data, err := e.Poll(time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte("p1234"), data)
}
