package input

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// Text form of raw events, one per line:
//   key-down 9
//   key-up 38
//   button-down 1 10 20
//   button-up 1 10 20
//   move 5 9
//   wheel up|down|left|right    (down+up pair, no position: x=0 y=0)
// Empty lines and lines starting with # are skipped by ParseScript.

var wheelNames = map[string]uint8{
	"up":    ButtonWheelUp,
	"down":  ButtonWheelDown,
	"left":  ButtonWheelLeft,
	"right": ButtonWheelRight,
}

// ScriptCommands lists the verbs accepted by ParseLine, for completion.
var ScriptCommands = []string{"key-down", "key-up", "button-down", "button-up", "move", "wheel"}

// ParseLine parses one line into raw events.
// Most verbs produce one event, wheel produces a ButtonDown/ButtonUp pair.
func ParseLine(line string) ([]RawEvent, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil, errors.Errorf("empty line")
	}
	verb, args := parts[0], parts[1:]
	switch verb {
	case "key-down", "key-up":
		if len(args) != 1 {
			return nil, errors.Errorf("%s expects keycode, line=%q", verb, line)
		}
		code, err := parseUint8(args[0])
		if err != nil {
			return nil, errors.Annotatef(err, "line=%q", line)
		}
		kind := KeyDown
		if verb == "key-up" {
			kind = KeyUp
		}
		return []RawEvent{{Kind: kind, Detail: code}}, nil

	case "button-down", "button-up":
		if len(args) != 1 && len(args) != 3 {
			return nil, errors.Errorf("%s expects button [x y], line=%q", verb, line)
		}
		button, err := parseUint8(args[0])
		if err != nil {
			return nil, errors.Annotatef(err, "line=%q", line)
		}
		e := RawEvent{Kind: ButtonDown, Detail: button}
		if verb == "button-up" {
			e.Kind = ButtonUp
		}
		if len(args) == 3 {
			if e.X, e.Y, err = parseXY(args[1], args[2]); err != nil {
				return nil, errors.Annotatef(err, "line=%q", line)
			}
		}
		return []RawEvent{e}, nil

	case "move":
		if len(args) != 2 {
			return nil, errors.Errorf("move expects x y, line=%q", line)
		}
		x, y, err := parseXY(args[0], args[1])
		if err != nil {
			return nil, errors.Annotatef(err, "line=%q", line)
		}
		return []RawEvent{{Kind: PointerMove, X: x, Y: y}}, nil

	case "wheel":
		if len(args) != 1 {
			return nil, errors.Errorf("wheel expects direction, line=%q", line)
		}
		button, ok := wheelNames[args[0]]
		if !ok {
			return nil, errors.Errorf("unknown wheel direction=%s valid: up, down, left, right", args[0])
		}
		return []RawEvent{
			{Kind: ButtonDown, Detail: button},
			{Kind: ButtonUp, Detail: button},
		}, nil
	}
	return nil, errors.NotValidf("command=%s", verb)
}

// ParseScript reads text form events until EOF.
func ParseScript(r io.Reader) ([]RawEvent, error) {
	var events []RawEvent
	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		es, err := ParseLine(line)
		if err != nil {
			return nil, errors.Annotatef(err, "script line=%d", lineno)
		}
		events = append(events, es...)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Annotate(err, "script read")
	}
	return events, nil
}

func parseUint8(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, errors.Annotatef(err, "parse %q", s)
	}
	return uint8(v), nil
}

func parseXY(sx, sy string) (int, int, error) {
	x, err := strconv.Atoi(sx)
	if err != nil {
		return 0, 0, errors.Annotatef(err, "parse x=%q", sx)
	}
	y, err := strconv.Atoi(sy)
	if err != nil {
		return 0, 0, errors.Annotatef(err, "parse y=%q", sy)
	}
	return x, y, nil
}
