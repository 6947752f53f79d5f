//go:build unit
// +build unit

package estimation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qforge-dev/phase-engine/core"
	"github.com/qforge-dev/phase-engine/qpe"
	"github.com/qforge-dev/phase-engine/sim"
)

func TestParseParams(t *testing.T) {
	params, err := ParseParams(`{"qpe":{"ancilla_qubits":3,"base_phase":0.785,"prepare_eigenstate":true}}`)
	assert.Nil(t, err)
	assert.Equal(t, &qpe.Params{
		AncillaQubits:     3,
		BasePhase:         0.785,
		PrepareEigenstate: true,
	}, params)

	_, err = ParseParams("")
	assert.EqualError(t, err, "no phase estimation parameters")

	_, err = ParseParams("{broken")
	assert.Error(t, err)

	_, err = ParseParams(`{"sweep":{"ancilla_qubits":3}}`)
	assert.EqualError(t, err, "Info JSON has no qpe section")

	_, err = ParseParams(`{"qpe":{"ancilla_qubits":0}}`)
	assert.EqualError(t, err, "ancilla_qubits(0) must be at least 1")
}

func TestPhaseEstimationJob(t *testing.T) {
	s := core.SCWithSimulator(&sim.LocalSimulator{})
	defer s.TearDown()

	jd := core.NewJobData()
	jd.ID = "estimation-job-test"
	jd.Shots = 100
	jd.Seed = 3
	jd.Info = `{"qpe":{"ancilla_qubits":3,"base_phase":2.356194490192345,"prepare_eigenstate":true}}`
	j := (&PhaseEstimationJob{}).New(jd, nil)

	j.PreProcess()
	assert.False(t, j.IsFinished())
	assert.NotEmpty(t, jd.QASM)

	j.Process()
	assert.Equal(t, core.SUCCEEDED, jd.Status)

	j.PostProcess()
	assert.True(t, j.IsFinished())
	// base phase 3*pi/4 is exactly representable with 3 ancillas
	assert.NotNil(t, jd.Result.Estimation)
	assert.Equal(t, "011", jd.Result.Estimation.TopBitstring)
	assert.Equal(t, 1.0, jd.Result.Estimation.TopFraction)
	assert.InDelta(t, 3*math.Pi/4, jd.Result.Estimation.Phase, 1e-12)
}

func TestPhaseEstimationJobBadInfo(t *testing.T) {
	s := core.SCWithSimulator(&sim.LocalSimulator{})
	defer s.TearDown()

	jd := core.NewJobData()
	jd.ID = "estimation-bad-info-test"
	j := (&PhaseEstimationJob{}).New(jd, nil)
	j.PreProcess()
	assert.True(t, j.IsFinished())
	assert.Equal(t, core.FAILED, jd.Status)
	assert.Equal(t, "no phase estimation parameters", jd.Result.Message)
}

func TestPhaseEstimationJobConflictingID(t *testing.T) {
	s := core.SCWithSimulator(&sim.LocalSimulator{})
	defer s.TearDown()

	info := `{"qpe":{"ancilla_qubits":2,"base_phase":0.5}}`
	jd := core.NewJobData()
	jd.ID = "estimation-conflict-test"
	jd.Info = info
	j := (&PhaseEstimationJob{}).New(jd, nil)
	j.PreProcess()
	assert.NotEqual(t, core.FAILED, jd.Status)

	again := (&PhaseEstimationJob{}).New(jd.Clone(), nil)
	again.PreProcess()
	assert.Equal(t, core.FAILED, again.JobData().Status)
	assert.Equal(t, core.ErrorJobIDConflict.Error(), again.JobData().Result.Message)
}

func TestPhaseEstimationJobSkipsDecodeOnFailure(t *testing.T) {
	s := core.SCWithSimulator(&sim.LocalSimulator{})
	defer s.TearDown()

	jd := core.NewJobData()
	jd.ID = "estimation-failed-run-test"
	jd.Info = `{"qpe":{"ancilla_qubits":2,"base_phase":0.5}}`
	j := (&PhaseEstimationJob{}).New(jd, nil)
	j.PreProcess()
	jd.Status = core.FAILED
	j.PostProcess()
	assert.True(t, j.IsFinished())
	assert.Nil(t, jd.Result.Estimation)
}
