// Interactive classifier playground: type raw events, see notifications.
package console

import (
	"context"
	"fmt"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/juju/errors"
	"github.com/temoto/inputmon/cmd/inputmon/subcmd"
	"github.com/temoto/inputmon/config"
	"github.com/temoto/inputmon/helpers/cli"
	"github.com/temoto/inputmon/input"
	"github.com/temoto/inputmon/log2"
	"github.com/temoto/inputmon/tele"
)

const modName = "console"

var Mod = subcmd.Mod{Name: modName, Usage: "feed typed raw events through classifier", Main: Main}

func Main(ctx context.Context, c *config.Config) error {
	log := log2.ContextValueLogger(ctx)

	teler := tele.New()
	if err := teler.Init(ctx, log.Clone(log2.LInfo), c.Tele, modName); err != nil {
		return errors.Annotate(err, "tele init")
	}
	defer teler.Close()

	con := New(input.Tee{
		input.SinkFunc(func(n input.Notification) { log.Info(n.String()) }),
		teler,
	})
	con.Log = log
	return cli.MainLoop(modName, con.Exec, con.Complete)
}

type Console struct {
	Log        *log2.Log
	classifier *input.Classifier
	words      map[string]string
}

func New(sink input.Sink) *Console {
	words := map[string]string{
		"key-down":    "key-down KEYCODE",
		"key-up":      "key-up KEYCODE",
		"button-down": "button-down BUTTON [X Y]",
		"button-up":   "button-up BUTTON [X Y]",
		"move":        "move X Y",
		"wheel":       "wheel up|down|left|right",
		"held":        "show shared button state",
	}
	for _, cmd := range input.ScriptCommands {
		if _, ok := words[cmd]; !ok {
			words[cmd] = ""
		}
	}
	return &Console{
		classifier: input.NewClassifier(sink),
		words:      words,
	}
}

func (self *Console) Exec(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}
	if line == "held" {
		self.Log.Info(fmt.Sprintf("held=%t", self.classifier.ButtonHeld()))
		return
	}
	events, err := input.ParseLine(line)
	if err != nil {
		self.Log.Errorf("%v", err)
		return
	}
	for _, e := range events {
		self.Log.Debugf("raw %s", e)
		self.classifier.Handle(e)
	}
}

func (self *Console) Complete(d prompt.Document) []prompt.Suggest {
	return cli.Complete(self.words, d)
}
