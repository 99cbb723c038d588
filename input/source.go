package input

import (
	"sync"
)

// Source is a blocking producer of raw events.
// Run delivers events to emit on the calling goroutine until Close or failure.
// Close unblocks Run; Run then returns nil.
type Source interface {
	Run(emit func(RawEvent)) error
	Close() error
	String() string
}

// ScriptSource replays a fixed event list, then blocks until Close.
type ScriptSource struct {
	Tag    string
	Events []RawEvent

	once      sync.Once
	closeOnce sync.Once
	stopch    chan struct{}
}

// compile-time interface compliance test
var _ Source = new(ScriptSource)

func NewScriptSource(tag string, events []RawEvent) *ScriptSource {
	return &ScriptSource{Tag: tag, Events: events, stopch: make(chan struct{})}
}

func (self *ScriptSource) String() string {
	if self.Tag == "" {
		return "script"
	}
	return self.Tag
}

func (self *ScriptSource) Run(emit func(RawEvent)) error {
	self.init()
	for _, e := range self.Events {
		select {
		case <-self.stopch:
			return nil
		default:
		}
		emit(e)
	}
	<-self.stopch
	return nil
}

func (self *ScriptSource) Close() error {
	self.init()
	self.closeOnce.Do(func() { close(self.stopch) })
	return nil
}

func (self *ScriptSource) init() {
	self.once.Do(func() {
		if self.stopch == nil {
			self.stopch = make(chan struct{})
		}
	})
}
