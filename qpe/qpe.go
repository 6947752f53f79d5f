// Package qpe composes quantum phase estimation circuits and decodes
// their measurement statistics back into a phase estimate.
package qpe

import (
	"fmt"
	"math"
	"strconv"

	"github.com/qforge-dev/phase-engine/circuit"
	"github.com/qforge-dev/phase-engine/qft"
)

const MaxAncillaQubits = 24

// Params describes one phase estimation run. BasePhase is the phase
// theta (radians) applied by the estimated unitary P(theta) to |1>.
// PrepareEigenstate flips the eigenstate qubit to |1> first; leaving
// it false estimates the trivial eigenvalue of |0>.
type Params struct {
	AncillaQubits     int     `json:"ancilla_qubits" toml:"ancilla_qubits"`
	BasePhase         float64 `json:"base_phase" toml:"base_phase"`
	PrepareEigenstate bool    `json:"prepare_eigenstate" toml:"prepare_eigenstate"`
}

func (p *Params) Validate() error {
	if p.AncillaQubits < 1 {
		return fmt.Errorf("ancilla_qubits(%d) must be at least 1", p.AncillaQubits)
	}
	if p.AncillaQubits > MaxAncillaQubits {
		return fmt.Errorf("ancilla_qubits(%d) is over the limit(%d)", p.AncillaQubits, MaxAncillaQubits)
	}
	return nil
}

// Compose builds the full QPE pipeline on AncillaQubits+1 qubits:
// Hadamard on each ancilla, the controlled-phase kickback ladder with
// angle BasePhase*2^i controlled by ancilla i, the inverse QFT on the
// ancilla register, and an ancilla measurement into classical bits.
func Compose(p *Params) (*circuit.Circuit, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	n := p.AncillaQubits
	eigen := n // eigenstate qubit sits above the ancilla register
	c := circuit.New(n+1, n)
	if p.PrepareEigenstate {
		c.X(eigen)
	}
	for i := 0; i < n; i++ {
		c.H(i)
	}
	for i := 0; i < n; i++ {
		theta := p.BasePhase * math.Pow(2, float64(i))
		c.CP(theta, i, eigen)
	}
	if err := qft.AppendInverse(c, 0, n); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		c.Measure(i, i)
	}
	return c, nil
}

// Estimate is the decoded result of a QPE run.
type Estimate struct {
	Phase         float64 `json:"phase"`          // most frequent outcome, 2*pi*k/2^n
	WeightedPhase float64 `json:"weighted_phase"` // probability-weighted circular mean
	TopBitstring  string  `json:"top_bitstring"`
	TopFraction   float64 `json:"top_fraction"`
}

// Decode turns ancilla measurement counts into a phase estimate. The
// bitstring is read as the binary expansion of k with the leftmost
// character the highest classical bit, so theta = 2*pi*k/2^n.
func Decode(counts map[string]uint32, ancillaQubits int) (*Estimate, error) {
	if len(counts) == 0 {
		return nil, fmt.Errorf("no measurement counts to decode")
	}
	total := uint32(0)
	topKey := ""
	topCount := uint32(0)
	sinSum, cosSum := 0.0, 0.0
	for key, count := range counts {
		k, err := strconv.ParseUint(key, 2, 64)
		if err != nil {
			return nil, fmt.Errorf("bitstring %q is not binary: %s", key, err)
		}
		total += count
		if count > topCount || (count == topCount && key < topKey) {
			topKey = key
			topCount = count
		}
		theta := phaseOf(k, ancillaQubits)
		sinSum += float64(count) * math.Sin(theta)
		cosSum += float64(count) * math.Cos(theta)
	}
	if total == 0 {
		return nil, fmt.Errorf("no measurement counts to decode")
	}
	topK, err := strconv.ParseUint(topKey, 2, 64)
	if err != nil {
		return nil, err
	}
	weighted := math.Atan2(sinSum, cosSum)
	if weighted < 0 {
		weighted += 2 * math.Pi
	}
	return &Estimate{
		Phase:         phaseOf(topK, ancillaQubits),
		WeightedPhase: weighted,
		TopBitstring:  topKey,
		TopFraction:   float64(topCount) / float64(total),
	}, nil
}

func phaseOf(k uint64, ancillaQubits int) float64 {
	return 2 * math.Pi * float64(k) / math.Pow(2, float64(ancillaQubits))
}
