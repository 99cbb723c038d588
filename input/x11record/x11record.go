// Package x11record captures global keyboard and pointer events from an X11
// server through the RECORD extension.
//
// Two connections are used, as RECORD requires. Control connection (xgb)
// creates, disables and frees the record context. Data connection is a raw
// socket blocked in EnableContext receiving intercepted events.
package x11record

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/record"
	"github.com/jezek/xgb/xproto"
	"github.com/juju/errors"
	"github.com/temoto/inputmon/helpers"
	"github.com/temoto/inputmon/input"
	"github.com/temoto/inputmon/log2"
)

const SourceTag = "x11record"

// RECORD reply categories
const (
	categoryFromServer    = 0
	categoryFromClient    = 1
	categoryClientStarted = 2
	categoryClientDied    = 3
	categoryStartOfData   = 4
	categoryEndOfData     = 5
)

const eventSize = 32

type Source struct {
	display string
	log     *log2.Log
	ctrl    *xgb.Conn
	data    *dataLink
	ctx     record.Context
	opcode  byte

	closed    uint32
	closeOnce sync.Once
	closeErr  error
}

// compile-time interface compliance test
var _ input.Source = new(Source)

func (self *Source) String() string { return fmt.Sprintf("%s(%s)", SourceTag, self.display) }

// DeviceRange selects KeyPress..MotionNotify core device events.
func DeviceRange() record.Range {
	return record.Range{
		DeviceEvents: record.Range8{First: xproto.KeyPress, Last: xproto.MotionNotify},
	}
}

// Open connects to display ("" means $DISPLAY) and registers a record context
// for all current and future clients. Errors have input startup kinds as cause.
func Open(display string, log *log2.Log) (*Source, error) {
	self := &Source{display: display, log: log}

	ctrl, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, input.WrapStartup(err, input.ErrDisplayUnavailable, "x11record display=%q control: %v", display, err)
	}
	self.ctrl = ctrl

	if err = record.Init(ctrl); err != nil {
		ctrl.Close()
		return nil, input.WrapStartup(err, input.ErrContextCreation, "x11record display=%q RECORD extension: %v", display, err)
	}

	rng := DeviceRange()
	if rng.DeviceEvents.First > rng.DeviceEvents.Last {
		ctrl.Close()
		return nil, input.WrapStartup(nil, input.ErrRangeAllocation, "x11record invalid range=%v", rng.DeviceEvents)
	}
	self.ctx, err = record.NewContextId(ctrl)
	if err != nil {
		ctrl.Close()
		return nil, input.WrapStartup(err, input.ErrRangeAllocation, "x11record display=%q context id: %v", display, err)
	}

	clients := []record.ClientSpec{record.CsAllClients}
	ranges := []record.Range{rng}
	err = record.CreateContextChecked(ctrl, self.ctx, 0,
		uint32(len(clients)), uint32(len(ranges)), clients, ranges).Check()
	if err != nil {
		ctrl.Close()
		return nil, input.WrapStartup(err, input.ErrContextCreation, "x11record display=%q create context: %v", display, err)
	}

	ctrl.ExtLock.RLock()
	self.opcode = ctrl.Extensions["RECORD"]
	ctrl.ExtLock.RUnlock()

	// data link must be separate, it blocks in EnableContext until disabled
	data, err := dialData(display)
	if err != nil {
		self.freeContext()
		ctrl.Close()
		return nil, input.WrapStartup(err, input.ErrDisplayUnavailable, "x11record display=%q data link: %v", display, err)
	}
	self.data = data
	self.log.Debugf("%s context=%d registered", self, self.ctx)
	return self, nil
}

// Run enables the context and emits events until Close or end of data.
// Failure before first reply is input.ErrEnable.
func (self *Source) Run(emit func(input.RawEvent)) error {
	if err := self.data.enable(self.opcode, self.ctx); err != nil {
		if self.isClosed() {
			return nil
		}
		return input.WrapStartup(err, input.ErrEnable, "%s enable: %v", self, err)
	}
	started := false
	for {
		category, data, err := self.data.next()
		if self.isClosed() {
			return nil
		}
		if err != nil {
			if !started {
				return input.WrapStartup(err, input.ErrEnable, "%s enable: %v", self, err)
			}
			return errors.Annotatef(err, "%s reply", self)
		}
		started = true
		switch category {
		case categoryFromServer:
			Decode(data, emit)
		case categoryStartOfData:
			self.log.Debugf("%s start of data", self)
		case categoryEndOfData:
			self.log.Debugf("%s end of data", self)
			return nil
		}
	}
}

// Close ends the data stream and releases the record context.
// Safe to call multiple times and concurrently with Run.
func (self *Source) Close() error {
	self.closeOnce.Do(func() {
		atomic.StoreUint32(&self.closed, 1)
		errs := make([]error, 0, 3)
		// unblocks Run
		errs = append(errs, errors.Annotate(helpers.CloseAll(self.data), "data link"))
		if err := record.DisableContextChecked(self.ctrl, self.ctx).Check(); err != nil {
			errs = append(errs, errors.Annotate(err, "disable context"))
		}
		errs = append(errs, self.freeContext())
		self.ctrl.Close()
		self.closeErr = helpers.FoldErrors(errs)
	})
	return self.closeErr
}

func (self *Source) isClosed() bool { return atomic.LoadUint32(&self.closed) == 1 }

func (self *Source) freeContext() error {
	return errors.Annotate(record.FreeContextChecked(self.ctrl, self.ctx).Check(), "free context")
}

// Decode converts intercepted core protocol events to raw events.
// Data holds one or more 32 byte wire events; unknown codes are skipped.
func Decode(data []byte, emit func(input.RawEvent)) {
	for len(data) >= eventSize {
		buf := data[:eventSize]
		data = data[eventSize:]
		// high bit marks SendEvent origin
		switch buf[0] & 0x7f {
		case xproto.KeyPress:
			ev := xproto.KeyPressEventNew(buf).(xproto.KeyPressEvent)
			emit(input.RawEvent{Kind: input.KeyDown, Detail: uint8(ev.Detail), X: int(ev.RootX), Y: int(ev.RootY)})
		case xproto.KeyRelease:
			ev := xproto.KeyReleaseEventNew(buf).(xproto.KeyReleaseEvent)
			emit(input.RawEvent{Kind: input.KeyUp, Detail: uint8(ev.Detail), X: int(ev.RootX), Y: int(ev.RootY)})
		case xproto.ButtonPress:
			ev := xproto.ButtonPressEventNew(buf).(xproto.ButtonPressEvent)
			emit(input.RawEvent{Kind: input.ButtonDown, Detail: uint8(ev.Detail), X: int(ev.RootX), Y: int(ev.RootY)})
		case xproto.ButtonRelease:
			ev := xproto.ButtonReleaseEventNew(buf).(xproto.ButtonReleaseEvent)
			emit(input.RawEvent{Kind: input.ButtonUp, Detail: uint8(ev.Detail), X: int(ev.RootX), Y: int(ev.RootY)})
		case xproto.MotionNotify:
			ev := xproto.MotionNotifyEventNew(buf).(xproto.MotionNotifyEvent)
			emit(input.RawEvent{Kind: input.PointerMove, Detail: uint8(ev.Detail), X: int(ev.RootX), Y: int(ev.RootY)})
		}
	}
}

// Probe connects to display and returns RECORD extension version.
func Probe(display string) (major, minor uint16, err error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return 0, 0, input.WrapStartup(err, input.ErrDisplayUnavailable, "x11record display=%q: %v", display, err)
	}
	defer conn.Close()
	if err = record.Init(conn); err != nil {
		return 0, 0, input.WrapStartup(err, input.ErrContextCreation, "x11record display=%q RECORD extension: %v", display, err)
	}
	reply, err := record.QueryVersion(conn, 1, 13).Reply()
	if err != nil {
		return 0, 0, errors.Annotatef(err, "x11record display=%q query version", display)
	}
	return reply.MajorVersion, reply.MinorVersion, nil
}
