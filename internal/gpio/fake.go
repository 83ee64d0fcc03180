package gpio

import "errors"

// FakePin is a test double for a single GPIO line.
type FakePin struct {
	// Reads contains scripted levels returned by Value.
	// Each call consumes the next entry; once exhausted Value returns Level.
	Reads []int

	// Level is the current line level.
	Level int

	// Writes records every value passed to SetValue.
	Writes []int

	// OnSet, if set, is called after each successful SetValue.
	OnSet func(v int)

	// ReadError, if set, will be returned by Value.
	ReadError error

	// WriteError, if set, will be returned by SetValue.
	WriteError error

	// Closed tracks if Close was called.
	Closed bool
}

// Value returns the next scripted level, or Level.
func (p *FakePin) Value() (int, error) {
	if p.ReadError != nil {
		return 0, p.ReadError
	}
	if p.Closed {
		return 0, errors.New("pin closed")
	}
	if len(p.Reads) > 0 {
		v := p.Reads[0]
		p.Reads = p.Reads[1:]
		return v, nil
	}
	return p.Level, nil
}

// SetValue records v and updates Level.
func (p *FakePin) SetValue(v int) error {
	if p.WriteError != nil {
		return p.WriteError
	}
	if p.Closed {
		return errors.New("pin closed")
	}
	p.Level = v
	p.Writes = append(p.Writes, v)
	if p.OnSet != nil {
		p.OnSet(v)
	}
	return nil
}

// Close marks the pin as closed.
func (p *FakePin) Close() error {
	p.Closed = true
	return nil
}

// FakeRelay records relay commands for test assertions.
type FakeRelay struct {
	// States contains every state passed to Set, in order.
	States []bool

	// SetError, if set, will be returned by Set.
	SetError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeRelay creates a FakeRelay.
func NewFakeRelay() *FakeRelay {
	return &FakeRelay{}
}

// Set records the state.
func (r *FakeRelay) Set(on bool) error {
	if r.SetError != nil {
		return r.SetError
	}
	r.States = append(r.States, on)
	return nil
}

// On returns the last recorded state (false if none).
func (r *FakeRelay) On() bool {
	if len(r.States) == 0 {
		return false
	}
	return r.States[len(r.States)-1]
}

// Close records the relay off and marks it closed.
func (r *FakeRelay) Close() error {
	r.States = append(r.States, false)
	r.Closed = true
	return nil
}

// Reset clears recorded state.
func (r *FakeRelay) Reset() {
	r.States = nil
	r.SetError = nil
	r.Closed = false
}
