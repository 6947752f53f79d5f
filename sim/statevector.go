package sim

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/qforge-dev/phase-engine/circuit"
)

// StateVector holds 2^NumQubits amplitudes, basis index bit i being
// qubit i.
type StateVector struct {
	Amplitudes []complex128
	NumQubits  int
}

func NewStateVector(numQubits int) *StateVector {
	n := 1 << numQubits
	amps := make([]complex128, n)
	amps[0] = 1
	return &StateVector{Amplitudes: amps, NumQubits: numQubits}
}

func (s *StateVector) Clone() *StateVector {
	amps := make([]complex128, len(s.Amplitudes))
	copy(amps, s.Amplitudes)
	return &StateVector{Amplitudes: amps, NumQubits: s.NumQubits}
}

// Apply evolves the state by one gate. Measurements are not state
// evolution and are rejected; the sampler owns them.
func (s *StateVector) Apply(g circuit.Gate) error {
	switch g.Type {
	case circuit.Hadamard:
		s.applyH(g.Target)
	case circuit.PauliX:
		s.applyX(g.Target)
	case circuit.Phase:
		s.applyP(g.Target, g.Theta)
	case circuit.ControlledPhase:
		s.applyCP(g.Control, g.Target, g.Theta)
	case circuit.CNOT:
		s.applyCX(g.Control, g.Target)
	case circuit.Swap:
		s.applySwap(g.Control, g.Target)
	case circuit.Measure:
		return fmt.Errorf("measure is not a unitary gate")
	default:
		return fmt.Errorf("unknown gate type %q", g.Type)
	}
	return nil
}

func (s *StateVector) applyH(q int) {
	hFactor := complex(1.0/math.Sqrt2, 0)
	n := len(s.Amplitudes)
	bit := 1 << q
	newAmps := make([]complex128, n)
	for i := 0; i < n; i++ {
		if i&bit == 0 {
			j := i | bit
			newAmps[i] = hFactor * (s.Amplitudes[i] + s.Amplitudes[j])
			newAmps[j] = hFactor * (s.Amplitudes[i] - s.Amplitudes[j])
		}
	}
	s.Amplitudes = newAmps
}

func (s *StateVector) applyX(q int) {
	n := len(s.Amplitudes)
	bit := 1 << q
	for i := 0; i < n; i++ {
		if i&bit == 0 {
			j := i | bit
			s.Amplitudes[i], s.Amplitudes[j] = s.Amplitudes[j], s.Amplitudes[i]
		}
	}
}

func (s *StateVector) applyP(q int, theta float64) {
	n := len(s.Amplitudes)
	bit := 1 << q
	phase := cmplx.Exp(complex(0, theta))
	for i := 0; i < n; i++ {
		if i&bit != 0 {
			s.Amplitudes[i] *= phase
		}
	}
}

func (s *StateVector) applyCP(control, target int, theta float64) {
	n := len(s.Amplitudes)
	cBit := 1 << control
	tBit := 1 << target
	phase := cmplx.Exp(complex(0, theta))
	for i := 0; i < n; i++ {
		if i&cBit != 0 && i&tBit != 0 {
			s.Amplitudes[i] *= phase
		}
	}
}

func (s *StateVector) applyCX(control, target int) {
	n := len(s.Amplitudes)
	cBit := 1 << control
	tBit := 1 << target
	for i := 0; i < n; i++ {
		if i&cBit != 0 && i&tBit == 0 {
			j := i | tBit
			s.Amplitudes[i], s.Amplitudes[j] = s.Amplitudes[j], s.Amplitudes[i]
		}
	}
}

func (s *StateVector) applySwap(q1, q2 int) {
	n := len(s.Amplitudes)
	bit1 := 1 << q1
	bit2 := 1 << q2
	for i := 0; i < n; i++ {
		if i&bit1 != 0 && i&bit2 == 0 {
			j := (i & ^bit1) | bit2
			s.Amplitudes[i], s.Amplitudes[j] = s.Amplitudes[j], s.Amplitudes[i]
		}
	}
}

// Probabilities returns |amp|^2 for every basis state.
func (s *StateVector) Probabilities() []float64 {
	probs := make([]float64, len(s.Amplitudes))
	for i, amp := range s.Amplitudes {
		probs[i] = real(amp * cmplx.Conj(amp))
	}
	return probs
}

// MarginalProbabilities traces out every qubit not listed. The result
// is indexed by the outcome word whose bit j is the measured value of
// qubits[j].
func (s *StateVector) MarginalProbabilities(qubits []int) []float64 {
	probs := make([]float64, 1<<len(qubits))
	for i, amp := range s.Amplitudes {
		p := real(amp * cmplx.Conj(amp))
		if p == 0 {
			continue
		}
		outcome := 0
		for j, q := range qubits {
			if i&(1<<q) != 0 {
				outcome |= 1 << j
			}
		}
		probs[outcome] += p
	}
	return probs
}

// Evolve runs every unitary gate of the circuit on a fresh |0...0>
// state. Measurements are skipped.
func Evolve(c *circuit.Circuit) (*StateVector, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	state := NewStateVector(c.NumQubits)
	for _, g := range c.Gates {
		if g.Type == circuit.Measure {
			continue
		}
		if err := state.Apply(g); err != nil {
			return nil, err
		}
	}
	return state, nil
}
