package transpiler

import (
	"math"

	"github.com/qforge-dev/phase-engine/circuit"
)

const angleEpsilon = 1e-12

// fuseAdjacentPhases merges runs of phase and controlled-phase gates
// acting on identical operands into a single gate with summed angle,
// and drops rotations whose angle vanished. Gate order across other
// operands is preserved; nothing is moved past a measurement.
func fuseAdjacentPhases(c *circuit.Circuit) *circuit.Circuit {
	out := circuit.New(c.NumQubits, c.NumClbits)
	for _, g := range c.Gates {
		if !isPhaseGate(g) {
			out.Gates = append(out.Gates, g)
			continue
		}
		if n := len(out.Gates); n > 0 {
			last := out.Gates[n-1]
			if isPhaseGate(last) && last.Type == g.Type &&
				last.Target == g.Target && last.Control == g.Control {
				merged := last
				merged.Theta = circuit.NormalizeAngle(last.Theta + g.Theta)
				if math.Abs(merged.Theta) < angleEpsilon {
					out.Gates = out.Gates[:n-1]
				} else {
					out.Gates[n-1] = merged
				}
				continue
			}
		}
		if math.Abs(circuit.NormalizeAngle(g.Theta)) < angleEpsilon {
			continue
		}
		out.Gates = append(out.Gates, g)
	}
	return out
}

func isPhaseGate(g circuit.Gate) bool {
	return g.Type == circuit.Phase || g.Type == circuit.ControlledPhase
}

// decomposeSwaps rewrites every swap into its three-CNOT identity,
// the form the basis-gate set of most hardware targets wants.
func decomposeSwaps(c *circuit.Circuit) *circuit.Circuit {
	out := circuit.New(c.NumQubits, c.NumClbits)
	for _, g := range c.Gates {
		if g.Type != circuit.Swap {
			out.Gates = append(out.Gates, g)
			continue
		}
		a, b := g.Control, g.Target
		out.CX(a, b)
		out.CX(b, a)
		out.CX(a, b)
	}
	return out
}
