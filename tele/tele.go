package tele

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/temoto/inputmon/input"
	"github.com/temoto/inputmon/log2"
	tele_config "github.com/temoto/inputmon/tele/config"
)

var metricPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "inputmon",
	Subsystem: "tele",
	Name:      "published_total",
	Help:      "Notifications handed to tele transport, by result.",
}, []string{"result"})

// Tele contract:
// - Init() fails only with invalid config, network issues ignored
// - Notify() never blocks on network
// - motion notifications are skipped unless publish_motion
// - delivery is best effort, lost notifications are counted as Failed
type Tele struct { //nolint:maligned
	stat      Stat
	seq       uint64
	config    tele_config.Config
	log       *log2.Log
	transport Transporter
	source    string
	enabled   bool
	now       func() time.Time
}

type Stat struct {
	Sent    uint64
	Failed  uint64
	Skipped uint64
}

func (self *Stat) String() string {
	return fmt.Sprintf("sent=%d failed=%d skipped=%d",
		atomic.LoadUint64(&self.Sent), atomic.LoadUint64(&self.Failed), atomic.LoadUint64(&self.Skipped))
}

func New() *Tele {
	return &Tele{}
}
func NewWithTransporter(trans Transporter) *Tele {
	return &Tele{transport: trans}
}

// Init source is the monitored source name included in every message.
func (self *Tele) Init(ctx context.Context, log *log2.Log, teleConfig tele_config.Config, source string) error {
	self.config = teleConfig
	self.log = log
	self.source = source
	if self.now == nil {
		self.now = time.Now
	}
	if self.config.LogDebug {
		self.log.SetLevel(log2.LDebug)
	}
	if !self.config.Enabled {
		return nil
	}
	if self.config.ClientId == "" {
		self.config.ClientId = "inputmon-" + uuid.New().String()
	}

	// test code sets .transport
	if self.transport == nil { // production path
		switch self.config.Transport {
		case "", tele_config.TransportMqtt:
			self.transport = &transportMqtt{}
		case tele_config.TransportNats:
			self.transport = &transportNats{}
		default:
			return errors.NotValidf("tele transport=%s", self.config.Transport)
		}
	}
	if err := self.transport.Init(ctx, log, self.config); err != nil {
		return errors.Annotate(err, "tele transport")
	}
	self.enabled = true
	self.log.Debugf("tele init client_id=%s transport=%s", self.config.ClientId, self.config.Transport)
	return nil
}

func (self *Tele) Close() {
	if self.enabled {
		self.transport.Close()
	}
}

func (self *Tele) ClientId() string { return self.config.ClientId }
func (self *Tele) Stat() *Stat      { return &self.stat }

// Notify implements input.Sink.
func (self *Tele) Notify(n input.Notification) {
	if !self.enabled {
		return
	}
	if n.Kind.IsMotion() && !self.config.PublishMotion {
		atomic.AddUint64(&self.stat.Skipped, 1)
		metricPublished.WithLabelValues("skipped").Inc()
		return
	}
	pb := self.message(n)
	b, err := proto.Marshal(pb)
	if err != nil {
		atomic.AddUint64(&self.stat.Failed, 1)
		metricPublished.WithLabelValues("failed").Inc()
		self.log.Errorf("tele marshal n=%s err=%v", n, err)
		return
	}
	if self.transport.Publish(n.Kind.String(), b) {
		atomic.AddUint64(&self.stat.Sent, 1)
		metricPublished.WithLabelValues("sent").Inc()
	} else {
		atomic.AddUint64(&self.stat.Failed, 1)
		metricPublished.WithLabelValues("failed").Inc()
	}
}

func (self *Tele) message(n input.Notification) *Notification {
	return &Notification{
		Kind:   Kind(n.Kind),
		X:      int32(n.X),
		Y:      int32(n.Y),
		Key:    uint32(n.Key),
		Time:   self.now().UnixNano(),
		Seq:    atomic.AddUint64(&self.seq, 1),
		Source: self.source,
	}
}
