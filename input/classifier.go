package input

// Classifier turns raw events into notifications.
// Not safe for concurrent use: one classifier serves one source on one worker.
//
// buttonHeld is shared by all non-wheel buttons: press A, release B clears it.
type Classifier struct {
	sink       Sink
	buttonHeld bool
}

func NewClassifier(sink Sink) *Classifier {
	if sink == nil {
		panic("code error input.NewClassifier sink=nil")
	}
	return &Classifier{sink: sink}
}

func (self *Classifier) ButtonHeld() bool { return self.buttonHeld }

// Handle emits zero or more notifications for e, in order, before returning.
func (self *Classifier) Handle(e RawEvent) {
	switch e.Kind {
	case ButtonDown:
		if IsWheel(e.Detail) {
			return
		}
		self.buttonHeld = true
		switch e.Detail {
		case ButtonPrimary:
			self.emitPointer(LeftButtonPress, e)
		case ButtonSecondary:
			self.emitPointer(RightButtonPress, e)
		}

	case ButtonUp:
		if IsWheel(e.Detail) {
			return
		}
		self.buttonHeld = false
		switch e.Detail {
		case ButtonPrimary:
			self.emitPointer(LeftButtonRelease, e)
		case ButtonSecondary:
			self.emitPointer(RightButtonRelease, e)
		}

	case PointerMove:
		if self.buttonHeld {
			self.emitPointer(MouseDrag, e)
		} else {
			self.emitPointer(MouseMove, e)
		}

	case KeyDown:
		key := Keycode(e.Detail)
		self.sink.Notify(Notification{Kind: KeyPress, Key: key})
		if key == KeyEscape {
			self.sink.Notify(Notification{Kind: EscapePressed})
		}

	case KeyUp:
		self.sink.Notify(Notification{Kind: KeyRelease, Key: Keycode(e.Detail)})
	}
}

func (self *Classifier) emitPointer(kind NotificationKind, e RawEvent) {
	self.sink.Notify(Notification{Kind: kind, X: e.X, Y: e.Y})
}
