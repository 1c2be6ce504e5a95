package relay

// FakeSwitch is a test double that records every Set call.
type FakeSwitch struct {
	// On is the current state.
	On bool

	// History records each state transition in call order.
	History []bool

	// Closed tracks whether Close was called.
	Closed bool

	// SetError, if set, will be returned by Set.
	SetError error
}

// NewFakeSwitch returns a FakeSwitch, initially off.
func NewFakeSwitch() *FakeSwitch {
	return &FakeSwitch{}
}

// Set records the requested state.
func (f *FakeSwitch) Set(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.On = on
	f.History = append(f.History, on)
	return nil
}

// Close marks the switch as closed.
func (f *FakeSwitch) Close() error {
	f.Closed = true
	return nil
}
