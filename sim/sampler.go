package sim

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/qforge-dev/phase-engine/circuit"
	"github.com/qforge-dev/phase-engine/core"
)

// SampleCounts draws shots from the marginal distribution over the
// circuit's measured qubits. Keys are bitstrings of the classical
// register width, leftmost character the highest classical bit;
// unmeasured classical bits stay 0. Counts always sum to shots.
func SampleCounts(state *StateVector, c *circuit.Circuit, shots int, rng *rand.Rand) (core.Counts, error) {
	measures := c.MeasuredQubits()
	if len(measures) == 0 {
		return nil, fmt.Errorf("circuit has no measurements")
	}
	if shots <= 0 {
		return nil, fmt.Errorf("shots(%d) must be greater than 0", shots)
	}
	qubits := make([]int, len(measures))
	for i, m := range measures {
		qubits[i] = m.Target
	}
	probs := state.MarginalProbabilities(qubits)
	cumulative := make([]float64, len(probs))
	sum := 0.0
	for i, p := range probs {
		sum += p
		cumulative[i] = sum
	}
	// state vectors are normalized up to float error
	if sum <= 0 {
		return nil, fmt.Errorf("state has no probability mass on measured qubits")
	}

	counts := make(core.Counts)
	width := c.NumClbits
	for s := 0; s < shots; s++ {
		r := rng.Float64() * sum
		outcome := sort.SearchFloat64s(cumulative, r)
		if outcome >= len(probs) {
			outcome = len(probs) - 1
		}
		counts[bitstringOf(outcome, measures, width)]++
	}
	return counts, nil
}

func bitstringOf(outcome int, measures []circuit.Gate, width int) string {
	bits := make([]byte, width)
	for i := range bits {
		bits[i] = '0'
	}
	for j, m := range measures {
		if outcome&(1<<j) != 0 {
			bits[width-1-m.Cbit] = '1'
		}
	}
	return string(bits)
}

// flipReadout applies a per-qubit readout flip to a sampled outcome
// word, modelling measurement assignment error.
func flipReadout(outcome int, numBits int, p10, p01 float64, rng *rand.Rand) int {
	for j := 0; j < numBits; j++ {
		bit := outcome & (1 << j)
		if bit == 0 {
			if rng.Float64() < p10 {
				outcome |= 1 << j
			}
		} else {
			if rng.Float64() < p01 {
				outcome &^= 1 << j
			}
		}
	}
	return outcome
}

// SampleCountsNoisy is SampleCounts with the backend's readout error
// applied to every shot.
func SampleCountsNoisy(state *StateVector, c *circuit.Circuit, shots int, p10, p01 float64, rng *rand.Rand) (core.Counts, error) {
	measures := c.MeasuredQubits()
	if len(measures) == 0 {
		return nil, fmt.Errorf("circuit has no measurements")
	}
	if shots <= 0 {
		return nil, fmt.Errorf("shots(%d) must be greater than 0", shots)
	}
	qubits := make([]int, len(measures))
	for i, m := range measures {
		qubits[i] = m.Target
	}
	probs := state.MarginalProbabilities(qubits)
	cumulative := make([]float64, len(probs))
	sum := 0.0
	for i, p := range probs {
		sum += p
		cumulative[i] = sum
	}
	if sum <= 0 {
		return nil, fmt.Errorf("state has no probability mass on measured qubits")
	}

	counts := make(core.Counts)
	width := c.NumClbits
	for s := 0; s < shots; s++ {
		r := rng.Float64() * sum
		outcome := sort.SearchFloat64s(cumulative, r)
		if outcome >= len(probs) {
			outcome = len(probs) - 1
		}
		outcome = flipReadout(outcome, len(measures), p10, p01, rng)
		counts[bitstringOf(outcome, measures, width)]++
	}
	return counts, nil
}
