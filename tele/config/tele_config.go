// Separate package is workaround to import cycles.
package tele_config

const (
	TransportMqtt = "mqtt"
	TransportNats = "nats"
)

type Config struct { //nolint:maligned
	Enabled       bool   `hcl:"enable"`
	Transport     string `hcl:"transport"` // mqtt|nats
	Broker        string `hcl:"broker"`
	ClientId      string `hcl:"client_id"`
	Password      string `hcl:"password"` // secret
	Prefix        string `hcl:"prefix"`
	PublishMotion bool   `hcl:"publish_motion"`
	KeepaliveSec  int    `hcl:"keepalive_sec"`
	TimeoutSec    int    `hcl:"network_timeout_sec"`
	LogDebug      bool   `hcl:"log_debug"`
}

func (c *Config) PrefixOrDefault() string {
	if c.Prefix == "" {
		return "inputmon"
	}
	return c.Prefix
}
