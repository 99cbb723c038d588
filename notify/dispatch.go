// Fan-out of semantic input notifications to named subscribers.
package notify

import (
	"fmt"
	"sync"

	"github.com/temoto/inputmon/input"
	"github.com/temoto/inputmon/log2"
)

func Drain(ch <-chan input.Notification) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

type Func func(input.Notification)
type sub struct {
	name string
	ch   chan<- input.Notification
	fun  Func
	stop <-chan struct{}
}

// Dispatch delivers every notification to all subscribers.
// Notify blocks until Run accepted the notification, so order per subscriber
// equals emission order. Notify is safe from any goroutine.
type Dispatch struct {
	Log  *log2.Log
	bus  chan input.Notification
	mu   sync.Mutex
	subs map[string]*sub
	stop <-chan struct{}
}

// compile-time interface compliance test
var _ input.Sink = new(Dispatch)

func NewDispatch(log *log2.Log, stop <-chan struct{}) *Dispatch {
	return &Dispatch{
		Log:  log,
		bus:  make(chan input.Notification),
		subs: make(map[string]*sub, 16),
		stop: stop,
	}
}

// SubscribeChan returns channel receiving notifications until substop is closed.
// Subscriber must keep reading, slow reader stalls the monitor worker.
func (self *Dispatch) SubscribeChan(name string, substop <-chan struct{}) chan input.Notification {
	target := make(chan input.Notification)
	sub := &sub{
		name: name,
		ch:   target,
		stop: substop,
	}
	self.safeSubscribe(sub)
	return target
}

// SubscribeFunc calls fun on Run goroutine.
func (self *Dispatch) SubscribeFunc(name string, fun Func, substop <-chan struct{}) {
	sub := &sub{
		name: name,
		fun:  fun,
		stop: substop,
	}
	self.safeSubscribe(sub)
}

// SubscribeSink is SubscribeFunc for input.Sink implementations.
func (self *Dispatch) SubscribeSink(name string, sink input.Sink, substop <-chan struct{}) {
	self.SubscribeFunc(name, sink.Notify, substop)
}

func (self *Dispatch) Unsubscribe(name string) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if sub, ok := self.subs[name]; ok {
		self.subClose(sub)
	} else {
		panic("code error notify sub not found name=" + name)
	}
}

func (self *Dispatch) Run() {
	for {
		select {
		case n := <-self.bus:
			handled := false
			self.mu.Lock()
			for _, sub := range self.subs {
				self.subFire(sub, n)
				handled = true
			}
			self.mu.Unlock()
			if !handled {
				self.Log.Debugf("notification is not handled n=%s", n)
			}

		case <-self.stop:
			Drain(self.bus)
			self.mu.Lock()
			for _, sub := range self.subs {
				self.subClose(sub)
			}
			self.mu.Unlock()
			return
		}
	}
}

func (self *Dispatch) Notify(n input.Notification) {
	select {
	case self.bus <- n:
		self.Log.Debugf("notify emit=%s", n)
	case <-self.stop:
		return
	}
}

func (self *Dispatch) subFire(sub *sub, n input.Notification) {
	select {
	case <-sub.stop:
		self.subClose(sub)
		return
	default:
	}

	if sub.ch == nil && sub.fun == nil {
		panic(fmt.Sprintf("notify sub=%s ch=nil fun=nil", sub.name))
	}
	if sub.fun != nil {
		sub.fun(n)
	}
	if sub.ch != nil {
		select {
		case sub.ch <- n:
		case <-sub.stop:
			self.subClose(sub)
		}
	}
}

func (self *Dispatch) subClose(s *sub) {
	if s.ch != nil {
		close(s.ch)
	}
	delete(self.subs, s.name)
}

func (self *Dispatch) safeSubscribe(s *sub) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if existing, ok := self.subs[s.name]; ok {
		select {
		case <-s.stop:
			panic("code error notify subscribe already closed name=" + s.name)
		case <-existing.stop:
			self.subClose(existing)
		default:
			panic("code error notify duplicate subscribe name=" + s.name)
		}
	}
	self.subs[s.name] = s
}
