package tele

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/errors"
	"github.com/nats-io/nats.go"
	"github.com/temoto/inputmon/helpers"
	"github.com/temoto/inputmon/log2"
	tele_config "github.com/temoto/inputmon/tele/config"
)

// subset of *nats.Conn used here, tests replace it
type natsConn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

type transportNats struct {
	log     *log2.Log
	conn    natsConn
	connect func(url string, opts ...nats.Option) (natsConn, error)
	timeout time.Duration

	subjectPrefix string
}

func (self *transportNats) Init(ctx context.Context, log *log2.Log, teleConfig tele_config.Config) error {
	self.log = log
	url := teleConfig.Broker
	if url == "" {
		url = nats.DefaultURL
	}
	self.subjectPrefix = teleConfig.PrefixOrDefault()
	self.timeout = helpers.IntSecondDefault(teleConfig.TimeoutSec, 5*time.Second)

	opts := []nats.Option{
		nats.Name(teleConfig.ClientId),
		nats.Timeout(self.timeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			self.log.Infof("nats disconnect err=%v", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			self.log.Infof("nats reconnect url=%s", c.ConnectedUrl())
		}),
	}
	if teleConfig.Password != "" {
		opts = append(opts, nats.UserInfo(teleConfig.ClientId, teleConfig.Password))
	}
	if self.connect == nil {
		self.connect = func(url string, opts ...nats.Option) (natsConn, error) {
			return nats.Connect(url, opts...)
		}
	}
	conn, err := self.connect(url, opts...)
	if err != nil {
		// RetryOnFailedConnect leaves only config errors here
		return errors.Annotatef(err, "tele nats url=%s", url)
	}
	self.conn = conn
	return nil
}

func (self *transportNats) Close() {
	if self.conn == nil {
		return
	}
	if err := self.conn.FlushTimeout(self.timeout); err != nil {
		self.log.Debugf("nats flush err=%v", err)
	}
	self.conn.Close()
}

func (self *transportNats) Publish(kind string, payload []byte) bool {
	subject := self.subject(kind)
	if err := self.conn.Publish(subject, payload); err != nil {
		self.log.Debugf("nats publish subject=%s err=%v", subject, err)
		return false
	}
	return true
}

func (self *transportNats) subject(kind string) string {
	return fmt.Sprintf("%s.input.%s", self.subjectPrefix, kind)
}
