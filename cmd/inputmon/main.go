package main

import (
	"context"
	"os"

	"github.com/juju/errors"
	"github.com/temoto/inputmon/cmd/inputmon/console"
	"github.com/temoto/inputmon/cmd/inputmon/decode"
	"github.com/temoto/inputmon/cmd/inputmon/probe"
	"github.com/temoto/inputmon/cmd/inputmon/run"
	"github.com/temoto/inputmon/cmd/inputmon/subcmd"
	"github.com/temoto/inputmon/config"
	"github.com/temoto/inputmon/input"
	"github.com/temoto/inputmon/log2"
	"github.com/urfave/cli"
)

var BuildVersion string = "unknown" // set by ldflags -X

var modules = []subcmd.Mod{
	run.Mod,
	console.Mod,
	probe.Mod,
	decode.Mod,
}

func main() {
	log := subcmd.NewLog(log2.LInfo)

	app := cli.NewApp()
	app.Name = "inputmon"
	app.Usage = "global keyboard and pointer monitor"
	app.Version = BuildVersion
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			Usage:  "path to HCL config, empty means defaults",
			EnvVar: "INPUTMON_CONFIG",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "debug logging, overrides config log.level",
		},
	}
	for _, mod := range modules {
		app.Commands = append(app.Commands, command(log, mod))
	}
	// no sub-command means run
	app.Action = command(log, run.Mod).Action

	err := app.Run(os.Args)
	if err != nil {
		if kind := input.StartupKind(err); kind != "" {
			log.Errorf("startup failed kind=%s", kind)
		}
		log.Error(errors.ErrorStack(err))
	}
	os.Exit(subcmd.ExitCode(err))
}

func command(log *log2.Log, mod subcmd.Mod) cli.Command {
	return cli.Command{
		Name:  mod.Name,
		Usage: mod.Usage,
		Action: func(c *cli.Context) error {
			cfg, err := config.ReadConfigFile(log, c.GlobalString("config"))
			if err != nil {
				return errors.Annotate(err, "config")
			}
			log.SetLevel(cfg.LogLevel())
			if c.GlobalBool("debug") {
				log.SetLevel(log2.LDebug)
			}
			log.Debugf("inputmon version=%s command=%s", BuildVersion, mod.Name)

			ctx := log2.ContextWithLogger(context.Background(), log)
			return mod.Main(ctx, cfg)
		},
	}
}
