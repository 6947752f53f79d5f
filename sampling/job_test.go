//go:build unit
// +build unit

package sampling

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qforge-dev/phase-engine/circuit"
	"github.com/qforge-dev/phase-engine/core"
	"github.com/qforge-dev/phase-engine/sim"
)

func bellQASM() string {
	c := circuit.New(2, 2)
	c.H(0)
	c.CX(0, 1)
	c.MeasureAll()
	return c.ToQASM()
}

func TestSamplingJob(t *testing.T) {
	s := core.SCWithSimulator(&sim.LocalSimulator{})
	defer s.TearDown()

	jd := core.NewJobData()
	jd.ID = "sampling-job-test"
	jd.QASM = bellQASM()
	jd.Shots = 1000
	jd.Seed = 11
	j := (&SamplingJob{}).New(jd, nil)

	j.PreProcess()
	assert.NotEqual(t, core.FAILED, jd.Status)
	assert.False(t, j.IsFinished())

	j.Process()
	assert.Equal(t, core.SUCCEEDED, jd.Status)
	assert.True(t, j.IsFinished())

	assert.Equal(t, uint32(1000), jd.Result.Counts.Total())
	for key := range jd.Result.Counts {
		assert.Contains(t, []string{"00", "11"}, key)
	}
}

func TestSamplingJobTranspiles(t *testing.T) {
	s := core.SCWithSimulator(&sim.LocalSimulator{})
	defer s.TearDown()

	jd := core.NewJobData()
	jd.ID = "sampling-transpile-test"
	jd.QASM = bellQASM()
	jd.Shots = 10
	jd.Transpiler = core.DefaultTranspilerConfig()
	j := (&SamplingJob{}).New(jd, nil)

	j.PreProcess()
	assert.NotEqual(t, core.FAILED, jd.Status)
}

func TestSamplingJobBadCircuit(t *testing.T) {
	s := core.SCWithSimulator(&sim.LocalSimulator{})
	defer s.TearDown()

	jd := core.NewJobData()
	jd.ID = "sampling-bad-circuit-test"
	jd.QASM = "not a circuit"
	jd.Shots = 10
	j := (&SamplingJob{}).New(jd, nil)

	j.PreProcess()
	assert.Equal(t, core.FAILED, jd.Status)
	assert.True(t, j.IsFinished())
}

func TestSamplingJobConflictingID(t *testing.T) {
	s := core.SCWithSimulator(&sim.LocalSimulator{})
	defer s.TearDown()

	jd := core.NewJobData()
	jd.ID = "sampling-conflict-test"
	jd.QASM = bellQASM()
	jd.Shots = 10
	j := (&SamplingJob{}).New(jd, nil)
	j.PreProcess()
	assert.NotEqual(t, core.FAILED, jd.Status)

	again := (&SamplingJob{}).New(jd.Clone(), nil)
	again.PreProcess()
	assert.Equal(t, core.FAILED, again.JobData().Status)
	assert.Equal(t, core.ErrorJobIDConflict.Error(), again.JobData().Result.Message)
}

func TestSamplingJobMitigationLifecycle(t *testing.T) {
	s := core.SCWithSimulator(&sim.LocalSimulator{})
	defer s.TearDown()

	jd := core.NewJobData()
	jd.ID = "sampling-mitigation-test"
	jd.QASM = bellQASM()
	jd.Shots = 100
	jd.Seed = 5
	jd.Info = `{"mitigation":{"readout":"pseudo_inverse"}}`
	j := (&SamplingJob{}).New(jd, nil)

	j.PreProcess()
	j.Process()
	assert.Equal(t, core.SUCCEEDED, jd.Status)
	// mitigation requested, so the job is not finished until PostProcess
	assert.False(t, j.IsFinished())

	j.PostProcess()
	assert.True(t, j.IsFinished())
	// the default backend is noiseless, counts stay untouched
	assert.Equal(t, uint32(100), jd.Result.Counts.Total())
}
