package monitor

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/temoto/atomic_clock"
	"github.com/temoto/inputmon/input"
	"github.com/temoto/inputmon/log2"
)

var (
	metricRawEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inputmon",
		Name:      "raw_events_total",
		Help:      "Raw input events received from the source.",
	}, []string{"kind"})
	metricNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inputmon",
		Name:      "notifications_total",
		Help:      "Semantic notifications emitted by the classifier.",
	}, []string{"kind"})
	metricButtonHeld = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "inputmon",
		Name:      "button_held",
		Help:      "1 while a non-wheel pointer button is held.",
	})
	metricLogErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "inputmon",
		Name:      "log_errors_total",
		Help:      "Error lines written to log.",
	})
)

// ForwardErrors counts every error line of log and passes it to status
// as systemd STATUS= text. Loggers cloned from log after the call inherit it.
func ForwardErrors(log *log2.Log, status func(string)) {
	log.SetErrorFunc(func(e error) {
		metricLogErrors.Inc()
		if status != nil {
			line := e.Error()
			if i := strings.IndexByte(line, '\n'); i >= 0 {
				line = line[:i]
			}
			status("STATUS=error: " + line)
		}
	})
}

// Stat is updated by the worker and safe to read from any goroutine.
type Stat struct {
	RawEvents     uint64
	Notifications uint64
	Escapes       uint64
	lastEvent     atomic_clock.Clock
	buttonHeld    uint32
}

func (self *Stat) rawEvent(e input.RawEvent) {
	atomic.AddUint64(&self.RawEvents, 1)
	self.lastEvent.SetNow()
	metricRawEvents.WithLabelValues(e.Kind.String()).Inc()
}

func (self *Stat) notification(n input.Notification) {
	atomic.AddUint64(&self.Notifications, 1)
	if n.Kind == input.EscapePressed {
		atomic.AddUint64(&self.Escapes, 1)
	}
	metricNotifications.WithLabelValues(n.Kind.String()).Inc()
}

func (self *Stat) setButtonHeld(held bool) {
	v := uint32(0)
	if held {
		v = 1
	}
	if atomic.SwapUint32(&self.buttonHeld, v) != v {
		metricButtonHeld.Set(float64(v))
	}
}

func (self *Stat) LoadRawEvents() uint64     { return atomic.LoadUint64(&self.RawEvents) }
func (self *Stat) LoadNotifications() uint64 { return atomic.LoadUint64(&self.Notifications) }
func (self *Stat) LoadEscapes() uint64       { return atomic.LoadUint64(&self.Escapes) }
func (self *Stat) ButtonHeld() bool          { return atomic.LoadUint32(&self.buttonHeld) == 1 }

// Idle is time since last raw event, zero if none seen yet.
func (self *Stat) Idle() time.Duration {
	if self.lastEvent.IsZero() {
		return 0
	}
	return atomic_clock.Since(&self.lastEvent)
}

func (self *Stat) String() string {
	return fmt.Sprintf("raw=%d notifications=%d escapes=%d held=%t idle=%v",
		self.LoadRawEvents(), self.LoadNotifications(), self.LoadEscapes(), self.ButtonHeld(), self.Idle())
}
