// Package scale provides load-cell weight readings with hardware abstraction.
package scale

import (
	"errors"
	"fmt"
	"io"
)

// Sensor produces tare-relative weight readings.
type Sensor interface {
	// Tare makes the current load the new zero.
	Tare() error

	// ReadKilograms returns the average of samples readings, in kg.
	// It blocks for the duration of the sampling.
	ReadKilograms(samples int) (float64, error)

	// Close releases the sensor.
	Close() error
}

// RawReader returns single raw ADC conversions.
type RawReader interface {
	ReadRaw() (int32, error)
}

// DefaultTareSamples is the number of conversions averaged by Tare.
const DefaultTareSamples = 10

// Scale converts raw conversions to kilograms using a fixed calibration
// factor (counts per kg) and a tare offset.
type Scale struct {
	r           RawReader
	factor      float64
	offset      float64
	tareSamples int
}

// NewScale creates a Scale. factor must be non-zero.
func NewScale(r RawReader, factor float64) (*Scale, error) {
	if factor == 0 {
		return nil, errors.New("scale: calibration factor must be non-zero")
	}
	return &Scale{r: r, factor: factor, tareSamples: DefaultTareSamples}, nil
}

// ReadAverage returns the mean of n raw conversions (at least one).
func (s *Scale) ReadAverage(n int) (float64, error) {
	if n < 1 {
		n = 1
	}
	var sum int64
	for i := 0; i < n; i++ {
		v, err := s.r.ReadRaw()
		if err != nil {
			return 0, fmt.Errorf("read sample %d/%d: %w", i+1, n, err)
		}
		sum += int64(v)
	}
	return float64(sum) / float64(n), nil
}

// Tare sets the offset to the current average. The previous offset is kept
// if reading fails.
func (s *Scale) Tare() error {
	avg, err := s.ReadAverage(s.tareSamples)
	if err != nil {
		return fmt.Errorf("tare: %w", err)
	}
	s.offset = avg
	return nil
}

// ReadKilograms returns (average - offset) / factor. The value may be
// negative; clamping is the caller's policy.
func (s *Scale) ReadKilograms(samples int) (float64, error) {
	avg, err := s.ReadAverage(samples)
	if err != nil {
		return 0, err
	}
	return (avg - s.offset) / s.factor, nil
}

// Offset returns the current tare offset in raw counts.
func (s *Scale) Offset() float64 {
	return s.offset
}

// Close closes the underlying reader if it is closable.
func (s *Scale) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
