package input

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClassifier() (*Classifier, *Collector) {
	c := new(Collector)
	return NewClassifier(c), c
}

func TestClassifierScenario(t *testing.T) {
	t.Parallel()

	type step struct {
		in     RawEvent
		expect []Notification
		held   bool
	}
	cases := []struct {
		name  string
		steps []step
	}{
		{"drag-then-move", []step{
			{RawEvent{Kind: ButtonDown, Detail: ButtonPrimary, X: 1, Y: 2},
				[]Notification{{Kind: LeftButtonPress, X: 1, Y: 2}}, true},
			{RawEvent{Kind: PointerMove, X: 5, Y: 9},
				[]Notification{{Kind: MouseDrag, X: 5, Y: 9}}, true},
			{RawEvent{Kind: ButtonUp, Detail: ButtonPrimary, X: 5, Y: 9},
				[]Notification{{Kind: LeftButtonRelease, X: 5, Y: 9}}, false},
			{RawEvent{Kind: PointerMove, X: 5, Y: 9},
				[]Notification{{Kind: MouseMove, X: 5, Y: 9}}, false},
		}},
		{"wheel-ignored", []step{
			{RawEvent{Kind: ButtonDown, Detail: ButtonWheelUp, X: 3, Y: 3}, nil, false},
			{RawEvent{Kind: PointerMove, X: 4, Y: 4},
				[]Notification{{Kind: MouseMove, X: 4, Y: 4}}, false},
			{RawEvent{Kind: ButtonUp, Detail: ButtonWheelUp, X: 4, Y: 4}, nil, false},
		}},
		{"escape", []step{
			{RawEvent{Kind: KeyDown, Detail: 9},
				[]Notification{{Kind: KeyPress, Key: 9}, {Kind: EscapePressed}}, false},
			{RawEvent{Kind: KeyUp, Detail: 9},
				[]Notification{{Kind: KeyRelease, Key: 9}}, false},
		}},
		{"right-button", []step{
			{RawEvent{Kind: ButtonDown, Detail: ButtonSecondary, X: 7, Y: 8},
				[]Notification{{Kind: RightButtonPress, X: 7, Y: 8}}, true},
			{RawEvent{Kind: ButtonUp, Detail: ButtonSecondary, X: 7, Y: 8},
				[]Notification{{Kind: RightButtonRelease, X: 7, Y: 8}}, false},
		}},
		{"middle-button-state-only", []step{
			{RawEvent{Kind: ButtonDown, Detail: ButtonMiddle}, nil, true},
			{RawEvent{Kind: PointerMove, X: 1, Y: 1},
				[]Notification{{Kind: MouseDrag, X: 1, Y: 1}}, true},
			{RawEvent{Kind: ButtonUp, Detail: ButtonMiddle}, nil, false},
		}},
		{"shared-flag-press-a-release-b", []step{
			{RawEvent{Kind: ButtonDown, Detail: ButtonPrimary},
				[]Notification{{Kind: LeftButtonPress}}, true},
			{RawEvent{Kind: ButtonDown, Detail: ButtonSecondary},
				[]Notification{{Kind: RightButtonPress}}, true},
			{RawEvent{Kind: ButtonUp, Detail: ButtonSecondary},
				[]Notification{{Kind: RightButtonRelease}}, false},
			{RawEvent{Kind: PointerMove, X: 2, Y: 2},
				[]Notification{{Kind: MouseMove, X: 2, Y: 2}}, false},
		}},
		{"unknown-kind", []step{
			{RawEvent{Kind: ButtonDown, Detail: ButtonBack}, nil, true},
			{RawEvent{Kind: Kind(200), Detail: ButtonPrimary, X: 1, Y: 1}, nil, true},
			{RawEvent{Kind: KindInvalid}, nil, true},
		}},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			cl, col := newTestClassifier()
			for i, s := range c.steps {
				cl.Handle(s.in)
				assert.Equal(t, s.expect, col.Take(), "step=%d input=%s", i, s.in)
				assert.Equal(t, s.held, cl.ButtonHeld(), "step=%d input=%s", i, s.in)
			}
		})
	}
}

func TestClassifierKeyPress(t *testing.T) {
	t.Parallel()

	cl, col := newTestClassifier()
	for code := 0; code <= 255; code++ {
		cl.Handle(RawEvent{Kind: KeyDown, Detail: uint8(code)})
		ns := col.Take()
		if Keycode(code) == KeyEscape {
			require.Equal(t, []Notification{{Kind: KeyPress, Key: KeyEscape}, {Kind: EscapePressed}}, ns)
		} else {
			require.Equal(t, []Notification{{Kind: KeyPress, Key: Keycode(code)}}, ns, "code=%d", code)
		}
	}
	assert.False(t, cl.ButtonHeld())
}

func TestClassifierWheelNeverChangesState(t *testing.T) {
	t.Parallel()

	for _, held := range []bool{false, true} {
		for _, w := range []uint8{ButtonWheelUp, ButtonWheelDown, ButtonWheelLeft, ButtonWheelRight} {
			cl, col := newTestClassifier()
			if held {
				cl.Handle(RawEvent{Kind: ButtonDown, Detail: ButtonMiddle})
			}
			cl.Handle(RawEvent{Kind: ButtonDown, Detail: w, X: 1, Y: 1})
			cl.Handle(RawEvent{Kind: ButtonUp, Detail: w, X: 1, Y: 1})
			assert.Equal(t, 0, col.Len(), "wheel=%d", w)
			assert.Equal(t, held, cl.ButtonHeld(), "wheel=%d", w)
		}
	}
}

// Random streams: buttonHeld follows the last non-wheel button event,
// and PointerMove yields exactly one notification of the matching kind.
func TestClassifierRandomStream(t *testing.T) {
	t.Parallel()

	rnd := rand.New(rand.NewSource(42))
	kinds := []Kind{KindInvalid, KeyDown, KeyUp, ButtonDown, ButtonUp, PointerMove, Kind(99)}
	for round := 0; round < 50; round++ {
		cl, col := newTestClassifier()
		expectHeld := false
		for i := 0; i < 200; i++ {
			e := RawEvent{
				Kind:   kinds[rnd.Intn(len(kinds))],
				Detail: uint8(rnd.Intn(12)),
				X:      rnd.Intn(4000),
				Y:      rnd.Intn(3000),
			}
			heldBefore := cl.ButtonHeld()
			cl.Handle(e)
			ns := col.Take()

			switch e.Kind {
			case ButtonDown, ButtonUp:
				if IsWheel(e.Detail) {
					require.Empty(t, ns)
					break
				}
				expectHeld = e.Kind == ButtonDown
				if e.Detail != ButtonPrimary && e.Detail != ButtonSecondary {
					require.Empty(t, ns)
				} else {
					require.Len(t, ns, 1)
					assert.Equal(t, e.X, ns[0].X)
					assert.Equal(t, e.Y, ns[0].Y)
				}
			case PointerMove:
				require.Len(t, ns, 1)
				expectKind := MouseMove
				if heldBefore {
					expectKind = MouseDrag
				}
				assert.Equal(t, Notification{Kind: expectKind, X: e.X, Y: e.Y}, ns[0])
			case KeyDown:
				require.NotEmpty(t, ns)
				assert.Equal(t, KeyPress, ns[0].Kind)
			case KeyUp:
				require.Len(t, ns, 1)
				assert.Equal(t, KeyRelease, ns[0].Kind)
			default:
				require.Empty(t, ns)
			}
			require.Equal(t, expectHeld, cl.ButtonHeld(), "round=%d i=%d event=%s", round, i, e)
		}
	}
}

func TestHandlers(t *testing.T) {
	t.Parallel()

	var log []string
	h := &Handlers{
		OnLeftButtonPress: func(x, y int) { log = append(log, Notification{Kind: LeftButtonPress, X: x, Y: y}.String()) },
		OnMouseDrag:       func(x, y int) { log = append(log, Notification{Kind: MouseDrag, X: x, Y: y}.String()) },
		OnKeyPress:        func(k Keycode) { log = append(log, Notification{Kind: KeyPress, Key: k}.String()) },
		OnEscapePressed:   func() { log = append(log, "esc") },
	}
	cl := NewClassifier(h)
	cl.Handle(RawEvent{Kind: ButtonDown, Detail: ButtonPrimary, X: 1, Y: 2})
	cl.Handle(RawEvent{Kind: PointerMove, X: 3, Y: 4})
	cl.Handle(RawEvent{Kind: ButtonUp, Detail: ButtonPrimary, X: 3, Y: 4}) // no handler
	cl.Handle(RawEvent{Kind: KeyDown, Detail: 9})
	cl.Handle(RawEvent{Kind: KeyUp, Detail: 9}) // no handler
	assert.Equal(t, []string{"LeftButtonPress(1,2)", "MouseDrag(3,4)", "KeyPress(9)", "esc"}, log)
}

func TestNotificationString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "MouseMove(5,9)", Notification{Kind: MouseMove, X: 5, Y: 9}.String())
	assert.Equal(t, "KeyRelease(38)", Notification{Kind: KeyRelease, Key: 38}.String())
	assert.Equal(t, "EscapePressed()", Notification{Kind: EscapePressed}.String())
	assert.Equal(t, "NotificationKind(77)", NotificationKind(77).String())
	assert.Equal(t, "ButtonDown(button=1 x=2 y=3)", RawEvent{Kind: ButtonDown, Detail: 1, X: 2, Y: 3}.String())
}
