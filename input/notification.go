package input

import (
	"fmt"
	"sync"
)

type NotificationKind uint8

const (
	NotificationInvalid NotificationKind = iota
	LeftButtonPress
	RightButtonPress
	LeftButtonRelease
	RightButtonRelease
	MouseMove
	MouseDrag
	KeyPress
	KeyRelease
	EscapePressed
)

var notificationNames = [...]string{
	NotificationInvalid: "Invalid",
	LeftButtonPress:     "LeftButtonPress",
	RightButtonPress:    "RightButtonPress",
	LeftButtonRelease:   "LeftButtonRelease",
	RightButtonRelease:  "RightButtonRelease",
	MouseMove:           "MouseMove",
	MouseDrag:           "MouseDrag",
	KeyPress:            "KeyPress",
	KeyRelease:          "KeyRelease",
	EscapePressed:       "EscapePressed",
}

func (k NotificationKind) String() string {
	if int(k) < len(notificationNames) {
		return notificationNames[k]
	}
	return fmt.Sprintf("NotificationKind(%d)", uint8(k))
}

// IsPointer: notification carries X, Y.
func (k NotificationKind) IsPointer() bool {
	switch k {
	case LeftButtonPress, RightButtonPress, LeftButtonRelease, RightButtonRelease, MouseMove, MouseDrag:
		return true
	}
	return false
}

// IsMotion: high rate notifications, often filtered by consumers.
func (k NotificationKind) IsMotion() bool { return k == MouseMove || k == MouseDrag }

type Notification struct {
	Kind NotificationKind
	X, Y int
	Key  Keycode
}

func (n Notification) String() string {
	switch {
	case n.Kind.IsPointer():
		return fmt.Sprintf("%s(%d,%d)", n.Kind, n.X, n.Y)
	case n.Kind == KeyPress || n.Kind == KeyRelease:
		return fmt.Sprintf("%s(%d)", n.Kind, n.Key)
	}
	return n.Kind.String() + "()"
}

// Sink receives notifications synchronously on the classifier worker.
// Implementations must be safe to call from that goroutine and
// must not reorder notifications for a single subscriber.
type Sink interface {
	Notify(Notification)
}

type SinkFunc func(Notification)

func (f SinkFunc) Notify(n Notification) { f(n) }

// Handlers is a listener with one optional callback per notification variant.
// Nil callbacks are skipped.
type Handlers struct {
	OnLeftButtonPress    func(x, y int)
	OnRightButtonPress   func(x, y int)
	OnLeftButtonRelease  func(x, y int)
	OnRightButtonRelease func(x, y int)
	OnMouseMove          func(x, y int)
	OnMouseDrag          func(x, y int)
	OnKeyPress           func(key Keycode)
	OnKeyRelease         func(key Keycode)
	OnEscapePressed      func()
}

// compile-time interface compliance test
var _ Sink = new(Handlers)

func (self *Handlers) Notify(n Notification) {
	var pointer func(x, y int)
	var key func(Keycode)
	switch n.Kind {
	case LeftButtonPress:
		pointer = self.OnLeftButtonPress
	case RightButtonPress:
		pointer = self.OnRightButtonPress
	case LeftButtonRelease:
		pointer = self.OnLeftButtonRelease
	case RightButtonRelease:
		pointer = self.OnRightButtonRelease
	case MouseMove:
		pointer = self.OnMouseMove
	case MouseDrag:
		pointer = self.OnMouseDrag
	case KeyPress:
		key = self.OnKeyPress
	case KeyRelease:
		key = self.OnKeyRelease
	case EscapePressed:
		if self.OnEscapePressed != nil {
			self.OnEscapePressed()
		}
	}
	if pointer != nil {
		pointer(n.X, n.Y)
	}
	if key != nil {
		key(n.Key)
	}
}

// Collector remembers every notification, safe for concurrent use.
type Collector struct {
	mu   sync.Mutex
	list []Notification
}

func (self *Collector) Notify(n Notification) {
	self.mu.Lock()
	self.list = append(self.list, n)
	self.mu.Unlock()
}

// Take returns collected notifications and resets the list.
func (self *Collector) Take() []Notification {
	self.mu.Lock()
	defer self.mu.Unlock()
	list := self.list
	self.list = nil
	return list
}

func (self *Collector) Len() int {
	self.mu.Lock()
	defer self.mu.Unlock()
	return len(self.list)
}

// Tee forwards each notification to all sinks in order.
type Tee []Sink

func (self Tee) Notify(n Notification) {
	for _, s := range self {
		s.Notify(n)
	}
}
