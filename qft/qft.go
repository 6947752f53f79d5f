// Package qft builds quantum Fourier transform circuits over a
// contiguous qubit range, qubit 0 being the least significant bit.
package qft

import (
	"fmt"
	"math"

	"github.com/qforge-dev/phase-engine/circuit"
)

// Build returns the forward QFT on qubits [0, n): for each target from
// the top down, a Hadamard followed by the controlled-phase ladder with
// angle pi/2^distance, then the qubit-reversal swap network.
func Build(n int) (*circuit.Circuit, error) {
	if n <= 0 {
		return nil, fmt.Errorf("qft needs at least 1 qubit, got %d", n)
	}
	c := circuit.New(n, 0)
	appendForward(c, n)
	return c, nil
}

// BuildInverse returns the adjoint of Build(n): swap network first,
// then the ladder with negated angles in reversed order.
func BuildInverse(n int) (*circuit.Circuit, error) {
	f, err := Build(n)
	if err != nil {
		return nil, err
	}
	return f.Dagger()
}

// Append writes the forward QFT onto qubits [offset, offset+n) of an
// existing circuit.
func Append(c *circuit.Circuit, offset, n int) error {
	if err := checkRange(c, offset, n); err != nil {
		return err
	}
	sub := circuit.New(n, 0)
	appendForward(sub, n)
	appendShifted(c, sub, offset)
	return nil
}

// AppendInverse writes the inverse QFT onto qubits [offset, offset+n).
func AppendInverse(c *circuit.Circuit, offset, n int) error {
	if err := checkRange(c, offset, n); err != nil {
		return err
	}
	inv, err := BuildInverse(n)
	if err != nil {
		return err
	}
	appendShifted(c, inv, offset)
	return nil
}

func appendForward(c *circuit.Circuit, n int) {
	for target := n - 1; target >= 0; target-- {
		c.H(target)
		for control := target - 1; control >= 0; control-- {
			theta := math.Pi / math.Pow(2, float64(target-control))
			c.CP(theta, control, target)
		}
	}
	for i := 0; i < n/2; i++ {
		c.Swap(i, n-1-i)
	}
}

func appendShifted(dst *circuit.Circuit, src *circuit.Circuit, offset int) {
	for _, g := range src.Gates {
		g.Target += offset
		if g.Control >= 0 {
			g.Control += offset
		}
		dst.Gates = append(dst.Gates, g)
	}
}

func checkRange(c *circuit.Circuit, offset, n int) error {
	if n <= 0 {
		return fmt.Errorf("qft needs at least 1 qubit, got %d", n)
	}
	if offset < 0 || offset+n > c.NumQubits {
		return fmt.Errorf("qft range [%d,%d) exceeds circuit width %d", offset, offset+n, c.NumQubits)
	}
	return nil
}
