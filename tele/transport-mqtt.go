package tele

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"
	"github.com/temoto/inputmon/helpers"
	"github.com/temoto/inputmon/log2"
	tele_config "github.com/temoto/inputmon/tele/config"
)

// subset of mqtt.Client used here, tests replace it
type mqttClient interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

type transportMqtt struct {
	log       *log2.Log
	m         mqttClient
	mopt      *mqtt.ClientOptions
	newClient func(*mqtt.ClientOptions) mqttClient

	topicPrefix  string
	topicConnect string
}

func (self *transportMqtt) Init(ctx context.Context, log *log2.Log, teleConfig tele_config.Config) error {
	self.log = log
	mqtt.ERROR = log
	mqtt.CRITICAL = log
	mqtt.WARN = log
	if teleConfig.LogDebug {
		mqtt.DEBUG = log
	}
	if teleConfig.Broker == "" {
		return errors.NotValidf("tele mqtt broker=(empty)")
	}

	self.topicPrefix = teleConfig.PrefixOrDefault()
	self.topicConnect = fmt.Sprintf("%s/c", self.topicPrefix)
	keepAlive := helpers.IntSecondDefault(teleConfig.KeepaliveSec, 60*time.Second)
	pingTimeout := helpers.IntSecondDefault(teleConfig.TimeoutSec, 30*time.Second)
	clientId := teleConfig.ClientId
	credFun := func() (string, string) {
		return clientId, teleConfig.Password
	}
	self.mopt = mqtt.NewClientOptions().
		AddBroker(teleConfig.Broker).
		SetBinaryWill(self.topicConnect, []byte{0x00}, 1, true).
		SetCleanSession(true).
		SetClientID(clientId).
		SetCredentialsProvider(credFun).
		SetKeepAlive(keepAlive).
		SetPingTimeout(pingTimeout).
		SetConnectTimeout(pingTimeout).
		SetOrderMatters(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(keepAlive / 2).
		SetOnConnectHandler(self.onConnectHandler).
		SetConnectionLostHandler(self.connectLostHandler)
	if self.newClient == nil {
		self.newClient = func(o *mqtt.ClientOptions) mqttClient { return mqtt.NewClient(o) }
	}
	self.m = self.newClient(self.mopt)
	token := self.m.Connect()
	// with ConnectRetry the token completes only after first success, don't wait here
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			self.log.Errorf("tele mqtt connect err=%v", err)
		}
	default:
	}
	return nil
}

func (self *transportMqtt) Close() {
	if self.m == nil {
		return
	}
	self.log.Debugf("mqtt disconnect")
	self.m.Publish(self.topicConnect, 1, true, []byte{0x00}).WaitTimeout(time.Second)
	self.m.Disconnect(250)
}

func (self *transportMqtt) Publish(kind string, payload []byte) bool {
	topic := self.topic(kind)
	token := self.m.Publish(topic, 0, false, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			self.log.Debugf("mqtt publish topic=%s err=%v", topic, err)
			return false
		}
	default:
	}
	return true
}

func (self *transportMqtt) topic(kind string) string {
	return fmt.Sprintf("%s/input/%s", self.topicPrefix, kind)
}

func (self *transportMqtt) connectLostHandler(c mqtt.Client, err error) {
	self.log.Infof("mqtt disconnect err=%v", err)
}

func (self *transportMqtt) onConnectHandler(c mqtt.Client) {
	self.log.Infof("mqtt connect")
	c.Publish(self.topicConnect, 1, true, []byte{0x01})
}
