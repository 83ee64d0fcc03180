package scale

import "errors"

// FakeSensor is a test double that returns scripted weights.
type FakeSensor struct {
	// Weights contains scripted readings in kg.
	// Each call to ReadKilograms consumes the next one; the last repeats.
	Weights []float64

	index int

	// Tares counts calls to Tare.
	Tares int

	// Samples records the sample count passed to each ReadKilograms call.
	Samples []int

	// ReadError, if set, will be returned by ReadKilograms.
	ReadError error

	// TareError, if set, will be returned by Tare.
	TareError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeSensor creates a FakeSensor with the given readings.
func NewFakeSensor(weights ...float64) *FakeSensor {
	return &FakeSensor{Weights: weights}
}

// Tare records the call.
func (f *FakeSensor) Tare() error {
	if f.TareError != nil {
		return f.TareError
	}
	f.Tares++
	return nil
}

// ReadKilograms returns the next scripted weight.
func (f *FakeSensor) ReadKilograms(samples int) (float64, error) {
	f.Samples = append(f.Samples, samples)
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.Weights) == 0 {
		return 0, errors.New("no weights configured")
	}
	w := f.Weights[f.index]
	if f.index < len(f.Weights)-1 {
		f.index++
	}
	return w, nil
}

// Close marks the sensor as closed.
func (f *FakeSensor) Close() error {
	f.Closed = true
	return nil
}

// FakeRaw returns scripted raw conversions.
type FakeRaw struct {
	Values []int32
	index  int
	Err    error
	Closed bool
}

// ReadRaw returns the next value, repeating the last.
func (f *FakeRaw) ReadRaw() (int32, error) {
	if f.Err != nil {
		return 0, f.Err
	}
	if len(f.Values) == 0 {
		return 0, errors.New("no values configured")
	}
	v := f.Values[f.index]
	if f.index < len(f.Values)-1 {
		f.index++
	}
	return v, nil
}

// Close marks the reader as closed.
func (f *FakeRaw) Close() error {
	f.Closed = true
	return nil
}
