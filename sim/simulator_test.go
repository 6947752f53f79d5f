//go:build unit
// +build unit

package sim

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qforge-dev/phase-engine/core"
	"github.com/qforge-dev/phase-engine/qpe"
)

func testSimulator() *LocalSimulator {
	return &LocalSimulator{
		backendSetting: NewBackendSetting(),
		seed:           1234,
	}
}

func TestLocalSimulatorValidate(t *testing.T) {
	s := testSimulator()
	s.backendSetting.MaxQubits = 2

	err := s.Validate("qreg q[2];\ncreg c[2];\nh q[0];\nmeasure q[0] -> c[0];\n")
	assert.NoError(t, err)

	err = s.Validate("qreg q[3];\nh q[0];\n")
	assert.EqualError(t, err, "Too many qubits in your circuit. We only have 2 qubits.")

	err = s.Validate("")
	assert.Error(t, err)
}

func TestLocalSimulatorSend(t *testing.T) {
	c, err := qpe.Compose(&qpe.Params{
		AncillaQubits:     3,
		BasePhase:         2 * math.Pi * 5 / 8,
		PrepareEigenstate: true,
	})
	assert.NoError(t, err)

	jd := core.NewJobData()
	jd.ID = "sim-send-test"
	jd.QASM = c.ToQASM()
	jd.Shots = 100
	jd.Seed = 42
	j := (&core.NormalJob{}).New(jd, nil)

	s := testSimulator()
	assert.NoError(t, s.Send(j))
	assert.Equal(t, core.SUCCEEDED, jd.Status)
	// theta = 2*pi*5/8 gives the deterministic outcome 101
	assert.Equal(t, core.Counts{"101": 100}, jd.Result.Counts)
	assert.False(t, jd.Ended.IsZero())
}

func TestLocalSimulatorSendBadQASM(t *testing.T) {
	jd := core.NewJobData()
	jd.ID = "sim-send-bad"
	jd.QASM = "not a circuit"
	jd.Shots = 10
	j := (&core.NormalJob{}).New(jd, nil)

	s := testSimulator()
	assert.Error(t, s.Send(j))
	assert.Equal(t, core.FAILED, jd.Status)
	assert.NotEmpty(t, jd.Result.Message)
}

func TestLocalSimulatorSendPerShotSeed(t *testing.T) {
	qasm := "qreg q[1];\ncreg c[1];\nh q[0];\nmeasure q[0] -> c[0];\n"
	run := func(seed int64) core.Counts {
		jd := core.NewJobData()
		jd.ID = "sim-seed"
		jd.QASM = qasm
		jd.Shots = 200
		jd.Seed = seed
		j := (&core.NormalJob{}).New(jd, nil)
		assert.NoError(t, testSimulator().Send(j))
		return jd.Result.Counts
	}
	assert.Equal(t, run(7), run(7))
}

func TestGetBackendInfo(t *testing.T) {
	s := testSimulator()
	s.backendSetting.ReadoutError = &ReadoutError{
		Enabled:        true,
		ProbMeas1Prep0: 0.02,
		ProbMeas0Prep1: 0.04,
	}
	bi := s.GetBackendInfo()
	assert.Equal(t, "local_statevector", bi.BackendName)
	assert.Equal(t, LocalBackendType, bi.Type)
	assert.Equal(t, core.Available, bi.Status)
	assert.True(t, bi.Noisy)
	assert.Equal(t, 0.02, bi.ProbMeas1Prep0)
	assert.Equal(t, 0.04, bi.ProbMeas0Prep1)
}

func TestLoadBackendSetting(t *testing.T) {
	bs, err := LoadBackendSetting(filepath.Join(t.TempDir(), "missing.toml"))
	assert.NoError(t, err)
	assert.Equal(t, "local_statevector", bs.BackendName)
	assert.Equal(t, 25, bs.MaxQubits)
	assert.False(t, bs.ReadoutError.Enabled)

	path := filepath.Join(t.TempDir(), "backend_setting.toml")
	blob := `
backend_name = "bench"
max_qubits = 5
max_shots = 2048

[readout_error]
enabled = true
prob_meas1_prep0 = 0.01
prob_meas0_prep1 = 0.03
`
	assert.NoError(t, os.WriteFile(path, []byte(blob), 0644))
	bs, err = LoadBackendSetting(path)
	assert.NoError(t, err)
	assert.Equal(t, "bench", bs.BackendName)
	assert.Equal(t, 5, bs.MaxQubits)
	assert.Equal(t, 2048, bs.MaxShots)
	assert.True(t, bs.ReadoutError.Enabled)
	assert.Equal(t, 0.01, bs.ReadoutError.ProbMeas1Prep0)

	broken := filepath.Join(t.TempDir(), "broken.toml")
	assert.NoError(t, os.WriteFile(broken, []byte("max_qubits = }"), 0644))
	_, err = LoadBackendSetting(broken)
	assert.Error(t, err)
}
