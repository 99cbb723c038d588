package x11record

import (
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/inputmon/input"
	"github.com/temoto/inputmon/log2"
)

const fakeRecordOpcode = 146

// fakeX is an in-process X server speaking just enough core protocol and
// RECORD for Open, Run and Close. EnableContext is answered with stream,
// all replies on the same sequence number.
type fakeX struct {
	t         testing.TB
	ln        net.Listener
	display   string
	stream    [][]byte
	enableErr bool

	mu    sync.Mutex
	calls []string
	conns []net.Conn
}

func newFakeX(t testing.TB, stream ...[]byte) *fakeX {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	if port < 6000 {
		ln.Close()
		t.Skipf("listen port=%d below X display base 6000", port)
	}
	x := &fakeX{
		t:       t,
		ln:      ln,
		display: "127.0.0.1:" + strconv.Itoa(port-6000),
		stream:  stream,
	}
	go x.accept()
	t.Cleanup(x.close)
	return x
}

func streamReply(category byte, data []byte) []byte {
	b := make([]byte, 32+len(data))
	b[0] = 1
	b[1] = category
	xgb.Put32(b[4:], uint32(len(data)/4))
	copy(b[32:], data)
	return b
}

func (self *fakeX) Calls() []string {
	self.mu.Lock()
	defer self.mu.Unlock()
	return append([]string(nil), self.calls...)
}

func (self *fakeX) called(s string) {
	self.mu.Lock()
	self.calls = append(self.calls, s)
	self.mu.Unlock()
}

func (self *fakeX) close() {
	self.ln.Close()
	self.mu.Lock()
	defer self.mu.Unlock()
	for _, c := range self.conns {
		c.Close()
	}
}

func (self *fakeX) accept() {
	for {
		conn, err := self.ln.Accept()
		if err != nil {
			return
		}
		self.mu.Lock()
		self.conns = append(self.conns, conn)
		self.mu.Unlock()
		go self.serve(conn)
	}
}

func (self *fakeX) serve(conn net.Conn) {
	defer conn.Close()

	setup := make([]byte, 12)
	if _, err := io.ReadFull(conn, setup); err != nil {
		return
	}
	auth := make([]byte, xgb.Pad(int(xgb.Get16(setup[6:])))+xgb.Pad(int(xgb.Get16(setup[8:]))))
	if _, err := io.ReadFull(conn, auth); err != nil {
		return
	}
	accept := make([]byte, 8+32)
	accept[0] = 1
	xgb.Put16(accept[2:], 11)
	xgb.Put16(accept[6:], 32/4)
	xgb.Put32(accept[12:], 0x00400000) // resource id base
	xgb.Put32(accept[16:], 0x001fffff) // resource id mask
	if _, err := conn.Write(accept); err != nil {
		return
	}

	seq := uint16(0)
	head := make([]byte, 4)
	for {
		if _, err := io.ReadFull(conn, head); err != nil {
			return
		}
		body := make([]byte, int(xgb.Get16(head[2:]))*4-4)
		if _, err := io.ReadFull(conn, body); err != nil {
			return
		}
		seq++
		reply := make([]byte, 32)
		reply[0] = 1
		xgb.Put16(reply[2:], seq)

		switch head[0] {
		case 98: // QueryExtension
			reply[8] = 1
			reply[9] = fakeRecordOpcode
			reply[11] = 160
		case 43: // GetInputFocus
		case fakeRecordOpcode:
			reply = self.record(conn, head[1], seq, reply)
		default:
			self.t.Logf("fakeX unexpected opcode=%d", head[0])
			reply = nil
		}
		if reply != nil {
			if _, err := conn.Write(reply); err != nil {
				return
			}
		}
	}
}

func (self *fakeX) record(conn net.Conn, minor byte, seq uint16, reply []byte) []byte {
	switch minor {
	case 0:
		self.called("version")
		xgb.Put16(reply[8:], 1)
		xgb.Put16(reply[10:], 13)
		return reply
	case 1:
		self.called("create")
	case 5:
		self.called("enable")
		if self.enableErr {
			reply[0] = 0
			reply[1] = 160 // BadContext
			xgb.Put16(reply[8:], 5)
			reply[10] = fakeRecordOpcode
			return reply
		}
		for _, r := range self.stream {
			xgb.Put16(r[2:], seq)
			if _, err := conn.Write(r); err != nil {
				return nil
			}
		}
	case 6:
		self.called("disable")
	case 7:
		self.called("free")
	}
	return nil
}

func runSource(t testing.TB, src *Source, events chan<- input.RawEvent) <-chan error {
	done := make(chan error, 1)
	go func() { done <- src.Run(func(e input.RawEvent) { events <- e }) }()
	return done
}

func waitDone(t testing.TB, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}

// record.Init writes package globals, these tests are not parallel.
func TestRunStream(t *testing.T) {
	x := newFakeX(t,
		streamReply(categoryStartOfData, nil),
		streamReply(categoryFromServer, xproto.KeyPressEvent{Detail: 9, RootX: 3, RootY: 4}.Bytes()),
		streamReply(categoryClientStarted, make([]byte, 8)),
		streamReply(categoryFromServer, concat(
			xproto.ButtonPressEvent{Detail: 1, RootX: 10, RootY: 20}.Bytes(),
			xproto.MotionNotifyEvent{RootX: 11, RootY: 21}.Bytes(),
		)),
	)
	src, err := Open(x.display, log2.NewTest(t, log2.LDebug))
	require.NoError(t, err, errors.ErrorStack(err))

	events := make(chan input.RawEvent, 16)
	done := runSource(t, src, events)
	expect := []input.RawEvent{
		{Kind: input.KeyDown, Detail: 9, X: 3, Y: 4},
		{Kind: input.ButtonDown, Detail: 1, X: 10, Y: 20},
		{Kind: input.PointerMove, X: 11, Y: 21},
	}
	for _, e := range expect {
		select {
		case got := <-events:
			assert.Equal(t, e, got)
		case <-time.After(5 * time.Second):
			t.Fatalf("timeout waiting for event=%v", e)
		}
	}

	require.NoError(t, src.Close())
	assert.NoError(t, waitDone(t, done))
	assert.Equal(t, []string{"create", "enable", "disable", "free"}, x.Calls())
	assert.NoError(t, src.Close())
}

func TestRunEndOfData(t *testing.T) {
	x := newFakeX(t,
		streamReply(categoryStartOfData, nil),
		streamReply(categoryFromServer, xproto.KeyReleaseEvent{Detail: 38}.Bytes()),
		streamReply(categoryEndOfData, nil),
	)
	src, err := Open(x.display, log2.NewTest(t, log2.LDebug))
	require.NoError(t, err, errors.ErrorStack(err))
	defer src.Close()

	events := make(chan input.RawEvent, 16)
	assert.NoError(t, waitDone(t, runSource(t, src, events)))
	require.Len(t, events, 1)
	assert.Equal(t, input.RawEvent{Kind: input.KeyUp, Detail: 38}, <-events)
}

func TestRunEnableError(t *testing.T) {
	x := newFakeX(t)
	x.enableErr = true
	src, err := Open(x.display, log2.NewTest(t, log2.LDebug))
	require.NoError(t, err, errors.ErrorStack(err))
	defer src.Close()

	err = waitDone(t, runSource(t, src, make(chan input.RawEvent, 1)))
	require.Error(t, err)
	assert.Equal(t, input.ErrEnable, errors.Cause(err))
	assert.Contains(t, err.Error(), "code=160")
}

func TestCloseIdle(t *testing.T) {
	// server never sends StartOfData
	x := newFakeX(t)
	src, err := Open(x.display, log2.NewTest(t, log2.LDebug))
	require.NoError(t, err, errors.ErrorStack(err))

	done := runSource(t, src, make(chan input.RawEvent, 1))
	deadline := time.Now().Add(5 * time.Second)
	for len(x.Calls()) < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, []string{"create", "enable"}, x.Calls())
	require.NoError(t, src.Close())
	assert.NoError(t, waitDone(t, done))
}

func TestQueryVersion(t *testing.T) {
	x := newFakeX(t)
	major, minor, err := Probe(x.display)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), major)
	assert.Equal(t, uint16(13), minor)
}

func TestParseDisplay(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input   string
		network string
		address string
		host    string
		err     bool
	}{
		{":0", "unix", "/tmp/.X11-unix/X0", "", false},
		{":1.0", "unix", "/tmp/.X11-unix/X1", "", false},
		{"unix:2", "unix", "/tmp/.X11-unix/X2", "", false},
		{"/run/x/sock:0", "unix", "/run/x/sock:0", "", false},
		{"box:10.1", "tcp", "box:6010", "box", false},
		{"tcp/127.0.0.1:3", "tcp", "127.0.0.1:6003", "127.0.0.1", false},
		{"box", "", "", "", true},
		{"box:x", "", "", "", true},
	}
	for _, c := range cases {
		c := c
		t.Run(c.input, func(t *testing.T) {
			a, err := parseDisplay(c.input)
			if c.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.network, a.network)
			assert.Equal(t, c.address, a.address)
			assert.Equal(t, c.host, a.host)
		})
	}
}
