package cli

import (
	"bufio"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/juju/errors"
	"github.com/mattn/go-isatty"
	"golang.org/x/sys/unix"
)

// MainLoop runs interactive prompt when stdin is a terminal,
// otherwise executes stdin line by line as a script.
func MainLoop(tag string, exec func(line string), complete func(d prompt.Document) []prompt.Suggest) error {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh,
		unix.SIGHUP,
		unix.SIGINT,
		unix.SIGTERM,
		unix.SIGQUIT)
	defer signal.Stop(signalCh)
	go func() {
		for range signalCh {
			os.Exit(1)
		}
	}()

	if isatty.IsTerminal(os.Stdin.Fd()) {
		// TODO OptionHistory from ~/.inputmon_history
		prompt.New(exec, complete,
			prompt.OptionPrefix(tag+"> "),
			prompt.OptionTitle(tag),
		).Run()
		return nil
	}
	return ExecScript(os.Stdin, exec)
}

// ExecScript calls exec for every trimmed non-empty line of r.
func ExecScript(r io.Reader, exec func(line string)) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		exec(line)
	}
	return errors.Annotate(scanner.Err(), "cli script")
}

// Complete suggests words matching prefix before cursor, first word only.
func Complete(words map[string]string, d prompt.Document) []prompt.Suggest {
	before := d.TextBeforeCursor()
	if strings.Contains(before, " ") {
		return nil
	}
	ss := make([]prompt.Suggest, 0, len(words))
	for w, help := range words {
		ss = append(ss, prompt.Suggest{Text: w, Description: help})
	}
	return prompt.FilterHasPrefix(ss, d.GetWordBeforeCursor(), true)
}
