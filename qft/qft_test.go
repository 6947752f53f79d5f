//go:build unit
// +build unit

package qft

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qforge-dev/phase-engine/circuit"
)

func TestBuildStructure(t *testing.T) {
	c, err := Build(3)
	assert.Nil(t, err)
	assert.Equal(t, 3, c.NumQubits)
	// n Hadamards, n(n-1)/2 controlled phases, floor(n/2) swaps
	assert.Equal(t, 3+3+1, len(c.Gates))

	want := []struct {
		typ     circuit.GateType
		target  int
		control int
		theta   float64
	}{
		{circuit.Hadamard, 2, -1, 0},
		{circuit.ControlledPhase, 2, 1, math.Pi / 2},
		{circuit.ControlledPhase, 2, 0, math.Pi / 4},
		{circuit.Hadamard, 1, -1, 0},
		{circuit.ControlledPhase, 1, 0, math.Pi / 2},
		{circuit.Hadamard, 0, -1, 0},
		{circuit.Swap, 2, 0, 0},
	}
	for i, w := range want {
		g := c.Gates[i]
		assert.Equal(t, w.typ, g.Type, "gate %d", i)
		assert.Equal(t, w.target, g.Target, "gate %d", i)
		assert.Equal(t, w.control, g.Control, "gate %d", i)
		assert.InDelta(t, w.theta, g.Theta, 1e-15, "gate %d", i)
	}
}

func TestBuildSingleQubit(t *testing.T) {
	c, err := Build(1)
	assert.Nil(t, err)
	assert.Equal(t, 1, len(c.Gates))
	assert.Equal(t, circuit.Hadamard, c.Gates[0].Type)
}

func TestBuildRejectsNonPositive(t *testing.T) {
	_, err := Build(0)
	assert.EqualError(t, err, "qft needs at least 1 qubit, got 0")
	_, err = Build(-2)
	assert.NotNil(t, err)
}

func TestBuildInverseIsDagger(t *testing.T) {
	f, err := Build(4)
	assert.Nil(t, err)
	inv, err := BuildInverse(4)
	assert.Nil(t, err)
	assert.Equal(t, len(f.Gates), len(inv.Gates))
	for i := range inv.Gates {
		fg := f.Gates[len(f.Gates)-1-i]
		ig := inv.Gates[i]
		assert.Equal(t, fg.Type, ig.Type)
		assert.Equal(t, fg.Target, ig.Target)
		assert.Equal(t, fg.Control, ig.Control)
		assert.InDelta(t, -fg.Theta, ig.Theta, 1e-15)
	}
}

func TestAppendShiftsIndices(t *testing.T) {
	c := circuit.New(5, 0)
	err := Append(c, 2, 3)
	assert.Nil(t, err)
	for _, g := range c.Gates {
		assert.GreaterOrEqual(t, g.Target, 2)
		assert.Less(t, g.Target, 5)
		if g.Control >= 0 {
			assert.GreaterOrEqual(t, g.Control, 2)
		}
	}
	assert.Nil(t, c.Validate())
}

func TestAppendInverseRange(t *testing.T) {
	c := circuit.New(3, 0)
	assert.NotNil(t, AppendInverse(c, 2, 2))
	assert.NotNil(t, AppendInverse(c, -1, 2))
	assert.NotNil(t, AppendInverse(c, 0, 0))
	assert.Nil(t, AppendInverse(c, 0, 3))
}
