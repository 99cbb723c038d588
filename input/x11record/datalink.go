package x11record

import (
	"encoding/binary"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/record"
	"github.com/juju/errors"
)

const handshakeTimeout = 10 * time.Second

// dataLink is a raw X connection carrying the RECORD reply stream.
// xgb pairs every request with exactly one reply, while EnableContext
// answers with many replies under one sequence number, so the stream is
// read here from the socket.
type dataLink struct {
	conn net.Conn
	head [32]byte
}

// displayAddr is a parsed display string, see xgb dial rules.
type displayAddr struct {
	network string
	address string
	host    string // xauth lookup, empty for local
	number  string
}

func parseDisplay(display string) (displayAddr, error) {
	a := displayAddr{}
	if display == "" {
		display = os.Getenv("DISPLAY")
	}
	if display == "" {
		return a, errors.NotValidf("empty display")
	}
	colon := strings.LastIndex(display, ":")
	if colon < 0 {
		return a, errors.NotValidf("display=%q", display)
	}
	var protocol, socket string
	if display[0] == '/' {
		socket = display[:colon]
	} else if slash := strings.LastIndex(display, "/"); slash >= 0 {
		protocol = display[:slash]
		a.host = display[slash+1 : colon]
	} else {
		a.host = display[:colon]
	}
	a.number = display[colon+1:]
	if dot := strings.LastIndex(a.number, "."); dot >= 0 {
		a.number = a.number[:dot]
	}
	n, err := strconv.Atoi(a.number)
	if err != nil || n < 0 {
		return a, errors.NotValidf("display=%q", display)
	}

	switch {
	case socket != "":
		a.network, a.address = "unix", socket+":"+a.number
	case a.host != "" && a.host != "unix":
		if protocol == "" {
			protocol = "tcp"
		}
		a.network, a.address = protocol, net.JoinHostPort(a.host, strconv.Itoa(6000+n))
	default:
		a.host = ""
		a.network, a.address = "unix", "/tmp/.X11-unix/X"+a.number
	}
	return a, nil
}

// dialData connects and completes X setup handshake.
func dialData(display string) (*dataLink, error) {
	addr, err := parseDisplay(display)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialTimeout(addr.network, addr.address, handshakeTimeout)
	if err != nil {
		return nil, errors.Annotatef(err, "dial %s %s", addr.network, addr.address)
	}
	// X server rejects unknown auth protocols, no auth is the fallback
	authName, authData, err := readXauth(addr.host, addr.number)
	if err != nil || authName != "MIT-MAGIC-COOKIE-1" || len(authData) != 16 {
		authName, authData = "", nil
	}
	if err = handshake(conn, authName, authData); err != nil {
		conn.Close()
		return nil, err
	}
	return &dataLink{conn: conn}, nil
}

func handshake(conn net.Conn, authName string, authData []byte) error {
	if err := conn.SetDeadline(time.Now().Add(handshakeTimeout)); err != nil {
		return errors.Trace(err)
	}
	buf := make([]byte, 12+xgb.Pad(len(authName))+xgb.Pad(len(authData)))
	buf[0] = 0x6c // little endian
	xgb.Put16(buf[2:], 11)
	xgb.Put16(buf[6:], uint16(len(authName)))
	xgb.Put16(buf[8:], uint16(len(authData)))
	copy(buf[12:], authName)
	copy(buf[12+xgb.Pad(len(authName)):], authData)
	if _, err := conn.Write(buf); err != nil {
		return errors.Annotate(err, "setup write")
	}

	head := make([]byte, 8)
	if _, err := io.ReadFull(conn, head); err != nil {
		return errors.Annotate(err, "setup read")
	}
	rest := make([]byte, int(xgb.Get16(head[6:]))*4)
	if _, err := io.ReadFull(conn, rest); err != nil {
		return errors.Annotate(err, "setup read")
	}
	if major, minor := xgb.Get16(head[2:]), xgb.Get16(head[4:]); major != 11 || minor != 0 {
		return errors.Errorf("x protocol version mismatch: %d.%d", major, minor)
	}
	if head[0] != 1 {
		reason := rest
		if n := int(head[1]); n <= len(rest) {
			reason = rest[:n]
		}
		return errors.Errorf("x setup refused code=%d reason=%s", head[0], string(reason))
	}
	return errors.Trace(conn.SetDeadline(time.Time{}))
}

// enable sends RECORD EnableContext, opcode is extension major opcode.
func (self *dataLink) enable(opcode byte, ctx record.Context) error {
	buf := make([]byte, 8)
	buf[0] = opcode
	buf[1] = 5 // EnableContext
	xgb.Put16(buf[2:], 2)
	xgb.Put32(buf[4:], uint32(ctx))
	_, err := self.conn.Write(buf)
	return errors.Annotate(err, "enable context write")
}

// next blocks until EnableContext reply and returns its category and data.
// X error reply is returned as error, events are skipped.
func (self *dataLink) next() (byte, []byte, error) {
	for {
		if _, err := io.ReadFull(self.conn, self.head[:]); err != nil {
			return 0, nil, err
		}
		switch self.head[0] {
		case 0:
			return 0, nil, errors.Errorf("x error code=%d major=%d minor=%d",
				self.head[1], self.head[10], xgb.Get16(self.head[8:]))
		case 1:
			data := make([]byte, int(xgb.Get32(self.head[4:]))*4)
			if _, err := io.ReadFull(self.conn, data); err != nil {
				return 0, nil, err
			}
			return self.head[1], data, nil
		}
	}
}

func (self *dataLink) Close() error { return self.conn.Close() }

// readXauth finds MIT cookie for host and display number in $XAUTHORITY or ~/.Xauthority.
func readXauth(host, number string) (string, []byte, error) {
	const familyLocal = 256
	const familyWild = 65535

	if host == "" || host == "localhost" {
		h, err := os.Hostname()
		if err != nil {
			return "", nil, errors.Trace(err)
		}
		host = h
	}
	fname := os.Getenv("XAUTHORITY")
	if fname == "" {
		home := os.Getenv("HOME")
		if home == "" {
			return "", nil, errors.NotFoundf("xauthority $XAUTHORITY, $HOME")
		}
		fname = home + "/.Xauthority"
	}
	f, err := os.Open(fname)
	if err != nil {
		return "", nil, errors.Trace(err)
	}
	defer f.Close()

	field := func() ([]byte, error) {
		var n uint16
		if err := binary.Read(f, binary.BigEndian, &n); err != nil {
			return nil, err
		}
		b := make([]byte, n)
		_, err := io.ReadFull(f, b)
		return b, err
	}
	for {
		var family uint16
		if err := binary.Read(f, binary.BigEndian, &family); err != nil {
			return "", nil, errors.Annotate(err, "xauthority no match")
		}
		var fields [4][]byte
		for i := range fields {
			if fields[i], err = field(); err != nil {
				return "", nil, errors.Annotatef(err, "xauthority %s", fname)
			}
		}
		addr, disp := string(fields[0]), string(fields[1])
		addrMatch := family == familyWild || (family == familyLocal && addr == host)
		if addrMatch && (disp == "" || disp == number) {
			return string(fields[2]), fields[3], nil
		}
	}
}
