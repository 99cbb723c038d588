// Decode tele payloads captured from broker, e.g.
// mosquitto_sub -t 'inputmon/input/#' -F %x | inputmon decode
package decode

import (
	"context"
	"encoding/hex"

	"github.com/c-bata/go-prompt"
	"github.com/golang/protobuf/proto"
	"github.com/juju/errors"
	"github.com/temoto/inputmon/cmd/inputmon/subcmd"
	"github.com/temoto/inputmon/config"
	"github.com/temoto/inputmon/helpers/cli"
	"github.com/temoto/inputmon/log2"
	"github.com/temoto/inputmon/tele"
)

const modName = "decode"

var Mod = subcmd.Mod{Name: modName, Usage: "decode hex tele notification payloads", Main: Main}

func Main(ctx context.Context, c *config.Config) error {
	log := log2.ContextValueLogger(ctx)
	return cli.MainLoop(modName, newExecutor(log), func(prompt.Document) []prompt.Suggest { return nil })
}

func newExecutor(log *log2.Log) func(string) {
	return func(line string) {
		pb, err := Decode(line)
		if err != nil {
			log.Errorf("%v", err)
			return
		}
		log.Info(proto.CompactTextString(pb))
	}
}

func Decode(line string) (*tele.Notification, error) {
	// mosquitto_sub wrongly strips leading zero in hex format
	if len(line)%2 == 1 {
		line = "0" + line
	}
	b, err := hex.DecodeString(line)
	if err != nil {
		return nil, errors.Annotate(err, "hex decode")
	}
	var pb tele.Notification
	if err = proto.Unmarshal(b, &pb); err != nil {
		return nil, errors.Annotate(err, "proto unmarshal")
	}
	return &pb, nil
}
