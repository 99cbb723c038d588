// Raw platform input events and their semantic classification.
package input

import "fmt"

type Kind uint8

const (
	KindInvalid Kind = iota
	KeyDown
	KeyUp
	ButtonDown
	ButtonUp
	PointerMove
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "Invalid"
	case KeyDown:
		return "KeyDown"
	case KeyUp:
		return "KeyUp"
	case ButtonDown:
		return "ButtonDown"
	case ButtonUp:
		return "ButtonUp"
	case PointerMove:
		return "PointerMove"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Keycode in X11 keycode space (evdev code + 8).
type Keycode uint8

const KeyEscape Keycode = 9

// X11 core pointer button numbering.
const (
	ButtonPrimary    uint8 = 1
	ButtonMiddle     uint8 = 2
	ButtonSecondary  uint8 = 3
	ButtonWheelUp    uint8 = 4
	ButtonWheelDown  uint8 = 5
	ButtonWheelLeft  uint8 = 6
	ButtonWheelRight uint8 = 7
	ButtonBack       uint8 = 8
	ButtonForward    uint8 = 9
)

// IsWheel reports whether button detail is a synthetic scroll code.
func IsWheel(detail uint8) bool {
	switch detail {
	case ButtonWheelUp, ButtonWheelDown, ButtonWheelLeft, ButtonWheelRight:
		return true
	}
	return false
}

// RawEvent is one low-level event as delivered by a Source.
// Detail is keycode for key events and button index for button events.
// X, Y are root-relative and meaningful for pointer and button events.
type RawEvent struct {
	Kind   Kind
	Detail uint8
	X, Y   int
}

func (e RawEvent) String() string {
	switch e.Kind {
	case KeyDown, KeyUp:
		return fmt.Sprintf("%s(key=%d)", e.Kind, e.Detail)
	case ButtonDown, ButtonUp:
		return fmt.Sprintf("%s(button=%d x=%d y=%d)", e.Kind, e.Detail, e.X, e.Y)
	case PointerMove:
		return fmt.Sprintf("%s(x=%d y=%d)", e.Kind, e.X, e.Y)
	}
	return fmt.Sprintf("%s(detail=%d)", e.Kind, e.Detail)
}
