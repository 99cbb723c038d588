package probe

import (
	"context"
	"fmt"

	"github.com/juju/errors"
	"github.com/temoto/inputmon/cmd/inputmon/subcmd"
	"github.com/temoto/inputmon/config"
	"github.com/temoto/inputmon/input/evdev"
	"github.com/temoto/inputmon/input/x11record"
	"github.com/temoto/inputmon/log2"
)

const modName = "probe"

var Mod = subcmd.Mod{Name: modName, Usage: "check that configured source can be opened", Main: Main}

func Main(ctx context.Context, c *config.Config) error {
	log := log2.ContextValueLogger(ctx)
	switch c.Source.Driver {
	case config.DriverX11:
		major, minor, err := x11record.Probe(c.Source.Display)
		if err != nil {
			return err
		}
		fmt.Printf("x11 display=%q RECORD version=%d.%d\n", c.Source.Display, major, minor)

	case config.DriverEvdev:
		s, err := evdev.Open(c.Source.Device, log)
		if err != nil {
			return err
		}
		if err = s.Close(); err != nil {
			return errors.Annotate(err, "evdev close")
		}
		fmt.Printf("evdev device=%s ok\n", c.Source.Device)

	case config.DriverScript:
		s, err := subcmd.OpenScript(c.Source.Script)
		if err != nil {
			return err
		}
		fmt.Printf("script path=%s events=%d\n", c.Source.Script, len(s.Events))

	default:
		return errors.NotValidf("source.driver=%s", c.Source.Driver)
	}
	return nil
}
