//go:build unit
// +build unit

package circuit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilders(t *testing.T) {
	c := New(3, 2)
	c.H(0).X(2).CP(math.Pi/2, 0, 2).Swap(0, 1).Measure(0, 0).Measure(1, 1)

	assert.Equal(t, 3, c.NumQubits)
	assert.Equal(t, 2, c.NumClbits)
	assert.Equal(t, 6, len(c.Gates))
	assert.Equal(t, Hadamard, c.Gates[0].Type)
	assert.Equal(t, -1, c.Gates[0].Control)
	assert.Equal(t, ControlledPhase, c.Gates[2].Type)
	assert.Equal(t, 0, c.Gates[2].Control)
	assert.Equal(t, 2, c.Gates[2].Target)
	assert.Nil(t, c.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		circuit *Circuit
		wantErr string
	}{
		{
			name:    "no qubits",
			circuit: New(0, 0),
			wantErr: "circuit has no qubits",
		},
		{
			name:    "no gates",
			circuit: New(2, 0),
			wantErr: "circuit has no gates",
		},
		{
			name:    "target out of range",
			circuit: New(2, 0).H(2),
			wantErr: "gate 0 (h): target 2 out of range [0,2)",
		},
		{
			name:    "control out of range",
			circuit: New(2, 0).CP(0.1, -1, 1),
			wantErr: "gate 0 (cp): control -1 out of range [0,2)",
		},
		{
			name:    "control equals target",
			circuit: New(2, 0).Swap(1, 1),
			wantErr: "gate 0 (swap): control and target are both q[1]",
		},
		{
			name:    "classical bit out of range",
			circuit: New(2, 1).Measure(0, 1),
			wantErr: "gate 0 (measure): classical bit 1 out of range [0,1)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.EqualError(t, tt.circuit.Validate(), tt.wantErr)
		})
	}
}

func TestDagger(t *testing.T) {
	c := New(2, 0).H(0).P(math.Pi/4, 0).CP(math.Pi/2, 0, 1).Swap(0, 1)
	d, err := c.Dagger()
	assert.Nil(t, err)
	assert.Equal(t, 4, len(d.Gates))

	// reversed order, negated angles
	assert.Equal(t, Swap, d.Gates[0].Type)
	assert.Equal(t, ControlledPhase, d.Gates[1].Type)
	assert.Equal(t, -math.Pi/2, d.Gates[1].Theta)
	assert.Equal(t, Phase, d.Gates[2].Type)
	assert.Equal(t, -math.Pi/4, d.Gates[2].Theta)
	assert.Equal(t, Hadamard, d.Gates[3].Type)
}

func TestDaggerRejectsMeasurement(t *testing.T) {
	c := New(1, 1).H(0).Measure(0, 0)
	_, err := c.Dagger()
	assert.EqualError(t, err, "cannot invert a circuit containing measurements")
}

func TestClone(t *testing.T) {
	c := New(2, 2).H(0).Measure(0, 0)
	clone := c.Clone()
	clone.X(1)
	assert.Equal(t, 2, len(c.Gates))
	assert.Equal(t, 3, len(clone.Gates))
}

func TestMeasuredQubits(t *testing.T) {
	c := New(3, 2).H(0).Measure(2, 0).Measure(0, 1)
	ms := c.MeasuredQubits()
	assert.Equal(t, 2, len(ms))
	assert.Equal(t, 2, ms[0].Target)
	assert.Equal(t, 0, ms[0].Cbit)
	assert.Equal(t, 0, ms[1].Target)
	assert.Equal(t, 1, ms[1].Cbit)
}

func TestMeasureAll(t *testing.T) {
	c := New(3, 2).H(0).MeasureAll()
	ms := c.MeasuredQubits()
	assert.Equal(t, 2, len(ms))
	for i, m := range ms {
		assert.Equal(t, i, m.Target)
		assert.Equal(t, i, m.Cbit)
	}
}

func TestNormalizeAngle(t *testing.T) {
	assert.InDelta(t, 0.0, NormalizeAngle(2*math.Pi), 1e-12)
	assert.InDelta(t, math.Pi/2, NormalizeAngle(math.Pi/2+4*math.Pi), 1e-12)
	assert.InDelta(t, -math.Pi/2, NormalizeAngle(-math.Pi/2), 1e-12)
}
