package keypad

import "errors"

// FakeSource is a test double that returns scripted raw samples.
type FakeSource struct {
	// Samples contains scripted values. Each Read consumes the next one;
	// once exhausted the last value repeats.
	Samples []int

	index int

	// ReadError, if set, will be returned by Read.
	ReadError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeSource creates a FakeSource with the given samples.
func NewFakeSource(samples ...int) *FakeSource {
	return &FakeSource{Samples: samples}
}

// Read returns the next scripted sample.
func (f *FakeSource) Read() (int, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}
	v := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return v, nil
}

// Close marks the source as closed.
func (f *FakeSource) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds to the first sample.
func (f *FakeSource) Reset() {
	f.index = 0
	f.Closed = false
}
