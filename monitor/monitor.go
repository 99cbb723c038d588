// Package monitor runs one raw input source through a classifier
// on a dedicated worker and delivers notifications to a sink.
package monitor

import (
	"runtime"
	"sync"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/inputmon/helpers"
	"github.com/temoto/inputmon/input"
	"github.com/temoto/inputmon/log2"
)

var ErrStarted = errors.New("monitor already started")

type Monitor struct {
	Log *log2.Log

	alive   *alive.Alive
	source  input.Source
	sink    input.Sink
	stat    *Stat // separate allocation keeps 64-bit atomics aligned on arm
	err     helpers.AtomicError
	startMu sync.Mutex
	started bool
}

func New(log *log2.Log, source input.Source, sink input.Sink) *Monitor {
	if source == nil || sink == nil {
		panic("code error monitor.New source and sink are mandatory")
	}
	return &Monitor{
		Log:    log,
		alive:  alive.NewAlive(),
		source: source,
		sink:   sink,
		stat:   new(Stat),
	}
}

// Start launches the worker and returns immediately.
// Startup failures of the source arrive through Wait/Done.
func (self *Monitor) Start() error {
	self.startMu.Lock()
	defer self.startMu.Unlock()
	if self.started {
		return ErrStarted
	}
	if !self.alive.Add(1) {
		return errors.Errorf("monitor stopped before start")
	}
	self.started = true
	go self.worker()
	return nil
}

// Stop closes the source, which unblocks the worker, and waits for it.
// Multiple and concurrent calls are allowed.
func (self *Monitor) Stop() {
	self.alive.Stop()
	if err := self.source.Close(); err != nil {
		self.Log.Errorf("monitor source=%s close err=%v", self.source, err)
	}
	self.alive.Wait()
}

// Done is closed when the worker has exited, for any reason.
func (self *Monitor) Done() <-chan struct{} { return self.alive.WaitChan() }

// Wait blocks until the worker exits and returns terminal error,
// nil after requested Stop.
func (self *Monitor) Wait() error {
	self.alive.Wait()
	return self.Err()
}

func (self *Monitor) Err() error {
	err, _ := self.err.Load()
	return err
}

func (self *Monitor) Stat() *Stat { return self.stat }

func (self *Monitor) worker() {
	defer self.alive.Done()
	// source may block in a syscall forever, keep it off shared threads
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	tag := self.source.String()
	self.Log.Debugf("monitor source=%s worker start", tag)
	counter := &countingSink{next: self.sink, stat: self.stat}
	classifier := input.NewClassifier(counter)
	err := self.source.Run(func(e input.RawEvent) {
		self.stat.rawEvent(e)
		classifier.Handle(e)
		self.stat.setButtonHeld(classifier.ButtonHeld())
	})
	switch {
	case err == nil:
		self.Log.Debugf("monitor source=%s stopped", tag)
	case !self.alive.IsRunning() && !input.IsStartupError(err):
		// read error caused by Close
		self.Log.Debugf("monitor source=%s stopped err=%v", tag, err)
	default:
		err = errors.Annotatef(err, "monitor source=%s", tag)
		if kind := input.StartupKind(err); kind != "" {
			self.Log.Errorf("monitor startup failed kind=%s err=%v", kind, err)
		} else {
			self.Log.Errorf("monitor source failed err=%v", err)
		}
		self.err.StoreOnce(err)
	}
	// worker exit finishes the monitor even without Stop()
	self.alive.Stop()
}

type countingSink struct {
	next input.Sink
	stat *Stat
}

func (self *countingSink) Notify(n input.Notification) {
	self.stat.notification(n)
	self.next.Notify(n)
}
