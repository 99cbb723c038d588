// Package evdev reads Linux input devices (/dev/input/eventN) as raw input events.
// Keycodes are translated to X11 space (evdev code + 8), buttons to X11 numbering,
// relative wheel motion to wheel button pairs.
package evdev

import (
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/juju/errors"
	"github.com/temoto/inputevent-go"
	"github.com/temoto/inputmon/input"
	"github.com/temoto/inputmon/log2"
)

const SourceTag = "evdev"

// linux/input-event-codes.h
const (
	EV_SYN = 0x00
	EV_KEY = 0x01
	EV_REL = 0x02
	EV_ABS = 0x03

	SYN_REPORT = 0

	REL_X      = 0x00
	REL_Y      = 0x01
	REL_HWHEEL = 0x06
	REL_WHEEL  = 0x08

	ABS_X = 0x00
	ABS_Y = 0x01

	BTN_LEFT   = 0x110
	BTN_RIGHT  = 0x111
	BTN_MIDDLE = 0x112
	BTN_SIDE   = 0x113
	BTN_EXTRA  = 0x114

	KEY_ESC = 1
)

// X11 keycodes are evdev codes shifted by 8.
const keycodeOffset = 8

var buttonMap = map[uint16]uint8{
	BTN_LEFT:   input.ButtonPrimary,
	BTN_MIDDLE: input.ButtonMiddle,
	BTN_RIGHT:  input.ButtonSecondary,
	BTN_SIDE:   input.ButtonBack,
	BTN_EXTRA:  input.ButtonForward,
}

type Source struct {
	device string
	log    *log2.Log
	f      io.ReadCloser
	tr     Translator

	closed    uint32
	closeOnce sync.Once
	closeErr  error
}

// compile-time interface compliance test
var _ input.Source = new(Source)

func (self *Source) String() string { return SourceTag + "(" + self.device + ")" }

// Open fails with input.ErrDisplayUnavailable cause when device cannot be opened.
func Open(device string, log *log2.Log) (*Source, error) {
	f, err := os.Open(device)
	if err != nil {
		return nil, input.WrapStartup(err, input.ErrDisplayUnavailable, "evdev device=%s: %v", device, err)
	}
	return NewSource(device, f, log), nil
}

// NewSource reads input_event frames from r.
func NewSource(tag string, r io.ReadCloser, log *log2.Log) *Source {
	return &Source{device: tag, f: r, log: log}
}

func (self *Source) Run(emit func(input.RawEvent)) error {
	for {
		ie, err := inputevent.ReadOne(self.f)
		if err != nil {
			if atomic.LoadUint32(&self.closed) == 1 || err == io.EOF {
				return nil
			}
			return errors.Annotatef(err, "%s read", self)
		}
		self.tr.Feed(ie, emit)
	}
}

// Close unblocks Run by closing the device.
func (self *Source) Close() error {
	self.closeOnce.Do(func() {
		atomic.StoreUint32(&self.closed, 1)
		self.closeErr = self.f.Close()
	})
	return self.closeErr
}

// Translator keeps pointer position between evdev frames.
// Zero value is ready to use.
type Translator struct {
	X, Y  int
	moved bool
}

func (self *Translator) Feed(ie inputevent.InputEvent, emit func(input.RawEvent)) {
	switch ie.Type {
	case EV_KEY:
		self.key(ie, emit)

	case EV_REL:
		switch ie.Code {
		case REL_X:
			self.X = clamp(self.X + int(ie.Value))
			self.moved = true
		case REL_Y:
			self.Y = clamp(self.Y + int(ie.Value))
			self.moved = true
		case REL_WHEEL:
			self.wheel(ie.Value, input.ButtonWheelUp, input.ButtonWheelDown, emit)
		case REL_HWHEEL:
			self.wheel(ie.Value, input.ButtonWheelRight, input.ButtonWheelLeft, emit)
		}

	case EV_ABS:
		switch ie.Code {
		case ABS_X:
			self.X = clamp(int(ie.Value))
			self.moved = true
		case ABS_Y:
			self.Y = clamp(int(ie.Value))
			self.moved = true
		}

	case EV_SYN:
		if ie.Code == SYN_REPORT && self.moved {
			self.moved = false
			emit(input.RawEvent{Kind: input.PointerMove, X: self.X, Y: self.Y})
		}
	}
}

func (self *Translator) key(ie inputevent.InputEvent, emit func(input.RawEvent)) {
	up := ie.Value == int32(inputevent.KeyStateUp)
	if button, ok := buttonMap[ie.Code]; ok {
		if ie.Value == int32(inputevent.KeyStateHold) {
			return
		}
		kind := input.ButtonDown
		if up {
			kind = input.ButtonUp
		}
		emit(input.RawEvent{Kind: kind, Detail: button, X: self.X, Y: self.Y})
		return
	}
	code := int(ie.Code) + keycodeOffset
	if code > 0xff {
		// outside X11 core keycode range
		return
	}
	kind := input.KeyDown
	if up {
		kind = input.KeyUp
	}
	emit(input.RawEvent{Kind: kind, Detail: uint8(code), X: self.X, Y: self.Y})
}

// wheel emits press+release pair per detent, positive value is pos direction.
func (self *Translator) wheel(value int32, pos, neg uint8, emit func(input.RawEvent)) {
	button := pos
	n := int(value)
	if n < 0 {
		button = neg
		n = -n
	}
	for i := 0; i < n; i++ {
		emit(input.RawEvent{Kind: input.ButtonDown, Detail: button, X: self.X, Y: self.Y})
		emit(input.RawEvent{Kind: input.ButtonUp, Detail: button, X: self.X, Y: self.Y})
	}
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
