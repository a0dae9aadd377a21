package geometry

import (
	"errors"
	"fmt"
)

// Sweep is an increasing sequence of voltages in millivolts. Stop is exclusive.
type Sweep struct {
	Start int `toml:"start"`
	Stop  int `toml:"stop"`
	Step  int `toml:"step"`
}

// DefaultPreSweep is the pre-exposure readout sweep.
func DefaultPreSweep() Sweep {
	return Sweep{Start: 5000, Stop: 7000, Step: 100}
}

// DefaultPostSweep is the post-exposure readout sweep.
func DefaultPostSweep() Sweep {
	return Sweep{Start: 4000, Stop: 7000, Step: 100}
}

// Validate rejects empty or non-increasing sweeps. Voltages must be positive
// because 0 marks a bit that never set.
func (s Sweep) Validate() error {
	if s.Step <= 0 {
		return errors.New("step must be positive")
	}
	if s.Start <= 0 {
		return fmt.Errorf("start must be positive, got %d", s.Start)
	}
	if s.Stop <= s.Start {
		return fmt.Errorf("stop %d must exceed start %d", s.Stop, s.Start)
	}
	return nil
}

// Len returns the number of voltage levels in the sweep.
func (s Sweep) Len() int {
	if s.Step <= 0 || s.Stop <= s.Start {
		return 0
	}
	return (s.Stop - s.Start + s.Step - 1) / s.Step
}

// Voltages lists the sweep levels in increasing order.
func (s Sweep) Voltages() []int {
	out := make([]int, 0, s.Len())
	for v := s.Start; v < s.Stop && s.Step > 0; v += s.Step {
		out = append(out, v)
	}
	return out
}

// Contains reports whether v is one of the sweep levels.
func (s Sweep) Contains(v int) bool {
	if s.Step <= 0 || v < s.Start || v >= s.Stop {
		return false
	}
	return (v-s.Start)%s.Step == 0
}

func (s Sweep) String() string {
	return fmt.Sprintf("%d..%d/%d mV", s.Start, s.Stop, s.Step)
}
