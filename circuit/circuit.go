package circuit

import (
	"fmt"
	"math"
)

type GateType string

const (
	Hadamard        GateType = "h"
	PauliX          GateType = "x"
	Phase           GateType = "p"
	ControlledPhase GateType = "cp"
	CNOT            GateType = "cx"
	Swap            GateType = "swap"
	Measure         GateType = "measure"
)

// Gate is a single operation over qubit indices. Control is -1 for
// single-qubit gates, Cbit is -1 for everything but measurements.
type Gate struct {
	Type    GateType
	Target  int
	Control int
	Theta   float64
	Cbit    int
}

func (g Gate) String() string {
	switch g.Type {
	case ControlledPhase:
		return fmt.Sprintf("%s(%g) q[%d],q[%d]", g.Type, g.Theta, g.Control, g.Target)
	case Phase:
		return fmt.Sprintf("%s(%g) q[%d]", g.Type, g.Theta, g.Target)
	case CNOT, Swap:
		return fmt.Sprintf("%s q[%d],q[%d]", g.Type, g.Control, g.Target)
	case Measure:
		return fmt.Sprintf("measure q[%d] -> c[%d]", g.Target, g.Cbit)
	default:
		return fmt.Sprintf("%s q[%d]", g.Type, g.Target)
	}
}

// Circuit is an ordered gate sequence over NumQubits qubits and
// NumClbits classical bits.
type Circuit struct {
	NumQubits int
	NumClbits int
	Gates     []Gate
}

func New(numQubits, numClbits int) *Circuit {
	return &Circuit{
		NumQubits: numQubits,
		NumClbits: numClbits,
		Gates:     []Gate{},
	}
}

func (c *Circuit) Clone() *Circuit {
	gates := make([]Gate, len(c.Gates))
	copy(gates, c.Gates)
	return &Circuit{
		NumQubits: c.NumQubits,
		NumClbits: c.NumClbits,
		Gates:     gates,
	}
}

func (c *Circuit) H(target int) *Circuit {
	c.Gates = append(c.Gates, Gate{Type: Hadamard, Target: target, Control: -1, Cbit: -1})
	return c
}

func (c *Circuit) X(target int) *Circuit {
	c.Gates = append(c.Gates, Gate{Type: PauliX, Target: target, Control: -1, Cbit: -1})
	return c
}

func (c *Circuit) P(theta float64, target int) *Circuit {
	c.Gates = append(c.Gates, Gate{Type: Phase, Target: target, Control: -1, Theta: theta, Cbit: -1})
	return c
}

func (c *Circuit) CP(theta float64, control, target int) *Circuit {
	c.Gates = append(c.Gates, Gate{Type: ControlledPhase, Target: target, Control: control, Theta: theta, Cbit: -1})
	return c
}

func (c *Circuit) CX(control, target int) *Circuit {
	c.Gates = append(c.Gates, Gate{Type: CNOT, Target: target, Control: control, Cbit: -1})
	return c
}

func (c *Circuit) Swap(a, b int) *Circuit {
	c.Gates = append(c.Gates, Gate{Type: Swap, Target: b, Control: a, Cbit: -1})
	return c
}

func (c *Circuit) Measure(qubit, cbit int) *Circuit {
	c.Gates = append(c.Gates, Gate{Type: Measure, Target: qubit, Control: -1, Cbit: cbit})
	return c
}

// Append copies all gates of other onto c. Register sizes must already
// cover other's indices; Validate catches violations.
func (c *Circuit) Append(other *Circuit) *Circuit {
	c.Gates = append(c.Gates, other.Gates...)
	return c
}

// Dagger returns the adjoint circuit: gate order reversed, rotation
// angles negated. Measurements have no adjoint and are rejected.
func (c *Circuit) Dagger() (*Circuit, error) {
	d := New(c.NumQubits, c.NumClbits)
	for i := len(c.Gates) - 1; i >= 0; i-- {
		g := c.Gates[i]
		switch g.Type {
		case Measure:
			return nil, fmt.Errorf("cannot invert a circuit containing measurements")
		case Phase, ControlledPhase:
			g.Theta = -g.Theta
		}
		d.Gates = append(d.Gates, g)
	}
	return d, nil
}

// Validate checks the index invariant: every referenced qubit index is
// within [0, NumQubits) and every classical bit within [0, NumClbits).
func (c *Circuit) Validate() error {
	if c.NumQubits <= 0 {
		return fmt.Errorf("circuit has no qubits")
	}
	if len(c.Gates) == 0 {
		return fmt.Errorf("circuit has no gates")
	}
	for i, g := range c.Gates {
		if g.Target < 0 || g.Target >= c.NumQubits {
			return fmt.Errorf("gate %d (%s): target %d out of range [0,%d)", i, g.Type, g.Target, c.NumQubits)
		}
		switch g.Type {
		case ControlledPhase, CNOT, Swap:
			if g.Control < 0 || g.Control >= c.NumQubits {
				return fmt.Errorf("gate %d (%s): control %d out of range [0,%d)", i, g.Type, g.Control, c.NumQubits)
			}
			if g.Control == g.Target {
				return fmt.Errorf("gate %d (%s): control and target are both q[%d]", i, g.Type, g.Target)
			}
		case Measure:
			if g.Cbit < 0 || g.Cbit >= c.NumClbits {
				return fmt.Errorf("gate %d (measure): classical bit %d out of range [0,%d)", i, g.Cbit, c.NumClbits)
			}
		}
	}
	return nil
}

// MeasuredQubits returns qubit->cbit pairs in gate order.
func (c *Circuit) MeasuredQubits() []Gate {
	ms := []Gate{}
	for _, g := range c.Gates {
		if g.Type == Measure {
			ms = append(ms, g)
		}
	}
	return ms
}

// MeasureAll appends a measurement of qubit i to classical bit i for
// the first NumClbits qubits.
func (c *Circuit) MeasureAll() *Circuit {
	n := c.NumClbits
	if c.NumQubits < n {
		n = c.NumQubits
	}
	for i := 0; i < n; i++ {
		c.Measure(i, i)
	}
	return c
}

// NormalizeAngle maps theta into (-2π, 2π) keeping the gate's action
// on the state unchanged.
func NormalizeAngle(theta float64) float64 {
	return math.Mod(theta, 2*math.Pi)
}
