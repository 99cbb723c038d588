// Sub-commands of inputmon application, glued into urfave/cli by main.
package subcmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/temoto/inputmon/config"
	"github.com/temoto/inputmon/input"
	"github.com/temoto/inputmon/input/evdev"
	"github.com/temoto/inputmon/input/x11record"
	"github.com/temoto/inputmon/log2"
)

type Mod struct {
	Name  string
	Usage string
	Main  func(context.Context, *config.Config) error
}

// Process exit codes, distinct per startup failure.
const (
	ExitOK                    = 0
	ExitError                 = 1
	ExitDisplayUnavailable    = 2
	ExitRangeAllocationFailed = 3
	ExitContextCreationFailed = 4
	ExitEnableFailed          = 5
)

func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch errors.Cause(err) {
	case input.ErrDisplayUnavailable:
		return ExitDisplayUnavailable
	case input.ErrRangeAllocation:
		return ExitRangeAllocationFailed
	case input.ErrContextCreation:
		return ExitContextCreationFailed
	case input.ErrEnable:
		return ExitEnableFailed
	}
	return ExitError
}

// OpenSource opens raw input source selected by config.Source.Driver.
func OpenSource(c *config.Config, log *log2.Log) (input.Source, error) {
	switch c.Source.Driver {
	case config.DriverX11:
		s, err := x11record.Open(c.Source.Display, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverEvdev:
		s, err := evdev.Open(c.Source.Device, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverScript:
		s, err := OpenScript(c.Source.Script)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, errors.NotValidf("source.driver=%s", c.Source.Driver)
}

// OpenScript parses replay file in input script text form.
func OpenScript(path string) (*input.ScriptSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Annotatef(err, "script path=%s", path)
	}
	defer f.Close()
	events, err := input.ParseScript(f)
	if err != nil {
		return nil, errors.Annotatef(err, "script path=%s", path)
	}
	return input.NewScriptSource(fmt.Sprintf("script(%s)", path), events), nil
}

// NewLog picks flags for systemd journal or terminal.
func NewLog(level log2.Level) *log2.Log {
	l := log2.NewStderr(level)
	if SdNotify("start") {
		// we're under systemd, assume systemd journal logging, remove timestamp
		l.SetFlags(log2.LServiceFlags)
	} else {
		l.SetFlags(log2.LInteractiveFlags)
	}
	return l
}

func SdNotify(s string) bool {
	ok, err := daemon.SdNotify(false, s)
	if err != nil {
		log.Fatal("sdnotify: ", errors.ErrorStack(err))
	}
	return ok
}
