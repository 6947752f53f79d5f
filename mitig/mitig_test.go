//go:build unit
// +build unit

package mitig

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qforge-dev/phase-engine/core"
)

func TestNewMitigationInfoFromJobData(t *testing.T) {
	tests := []struct {
		name string
		info string
		want MitigationInfo
	}{
		{
			name: "no info",
			info: "",
			want: MitigationInfo{},
		},
		{
			name: "broken json",
			info: "{readout",
			want: MitigationInfo{},
		},
		{
			name: "no mitigation section",
			info: `{"qpe":{"ancilla_qubits":3}}`,
			want: MitigationInfo{},
		},
		{
			name: "pseudo inverse",
			info: `{"mitigation":{"readout":"pseudo_inverse"}}`,
			want: MitigationInfo{Readout: ReadoutPseudoInverse, NeedToBeMitigated: true},
		},
		{
			name: "unknown readout method",
			info: `{"mitigation":{"readout":"majority_vote"}}`,
			want: MitigationInfo{Readout: "majority_vote"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jd := core.NewJobData()
			jd.ID = "mitig-info-test"
			jd.Info = tt.info
			assert.Equal(t, &tt.want, NewMitigationInfoFromJobData(jd))
		})
	}
}

func TestApplyPseudoInverseNoError(t *testing.T) {
	counts := core.Counts{"00": 60, "11": 40}
	out, err := ApplyPseudoInverse(counts, 0.0, 0.0)
	assert.NoError(t, err)
	assert.Equal(t, counts, out)
}

func TestApplyPseudoInverseKnownInversion(t *testing.T) {
	// observed counts are the exact image of [80, 20] under the
	// confusion matrix with p10=0.1, p01=0.3
	out, err := ApplyPseudoInverse(core.Counts{"0": 78, "1": 22}, 0.1, 0.3)
	assert.NoError(t, err)
	assert.Equal(t, core.Counts{"0": 80, "1": 20}, out)
}

func TestApplyPseudoInversePreservesTotal(t *testing.T) {
	counts := core.Counts{"000": 700, "001": 120, "101": 150, "111": 30}
	out, err := ApplyPseudoInverse(counts, 0.02, 0.04)
	assert.NoError(t, err)
	assert.Equal(t, counts.Total(), out.Total())
	for key := range out {
		assert.Len(t, key, 3)
	}
}

func TestApplyPseudoInverseClampsNegatives(t *testing.T) {
	// the corrected "1" entry goes negative and is clamped away
	out, err := ApplyPseudoInverse(core.Counts{"0": 95, "1": 5}, 0.4, 0.4)
	assert.NoError(t, err)
	assert.Equal(t, core.Counts{"0": 100}, out)
}

func TestApplyPseudoInverseErrors(t *testing.T) {
	_, err := ApplyPseudoInverse(core.Counts{}, 0.1, 0.1)
	assert.EqualError(t, err, "counts is empty")

	_, err = ApplyPseudoInverse(core.Counts{"0": 1, "00": 2}, 0.1, 0.1)
	assert.EqualError(t, err, "different length of keys in counts")

	_, err = ApplyPseudoInverse(core.Counts{"0x": 1}, 0.1, 0.1)
	assert.EqualError(t, err, "invalid bit string: 0x")

	_, err = ApplyPseudoInverse(core.Counts{"0": 1}, 0.5, 0.5)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "confusion matrix is singular")
}

type noisyBackendSimulatorForTest struct {
	core.UnimplementedSimulator
	noisy bool
	p10   float64
	p01   float64
}

func (s *noisyBackendSimulatorForTest) GetBackendInfo() *core.BackendInfo {
	return &core.BackendInfo{
		BackendName: "noisy-for-test",
		Status:      core.Available,
		Noisy:       s.noisy,
		ProbMeas1Prep0: s.p10,
		ProbMeas0Prep1: s.p01,
	}
}

func TestPseudoInverseMitigation(t *testing.T) {
	s := core.SCWithSimulator(&noisyBackendSimulatorForTest{noisy: true, p10: 0.1, p01: 0.3})
	defer s.TearDown()

	jd := core.NewJobData()
	jd.ID = "mitigation-test"
	jd.Status = core.SUCCEEDED
	jd.Result.Counts = core.Counts{"0": 78, "1": 22}
	PseudoInverseMitigation(jd)
	assert.Equal(t, core.SUCCEEDED, jd.Status)
	assert.Equal(t, core.Counts{"0": 80, "1": 20}, jd.Result.Counts)
}

func TestPseudoInverseMitigationNoiselessBackend(t *testing.T) {
	s := core.SCWithSimulator(&noisyBackendSimulatorForTest{noisy: false})
	defer s.TearDown()

	jd := core.NewJobData()
	jd.ID = "mitigation-noiseless-test"
	jd.Status = core.SUCCEEDED
	jd.Result.Counts = core.Counts{"1": 10}
	PseudoInverseMitigation(jd)
	assert.Equal(t, core.SUCCEEDED, jd.Status)
	assert.Equal(t, core.Counts{"1": 10}, jd.Result.Counts)
}

func TestPseudoInverseMitigationFailsOnBadCounts(t *testing.T) {
	s := core.SCWithSimulator(&noisyBackendSimulatorForTest{noisy: true, p10: 0.1, p01: 0.1})
	defer s.TearDown()

	jd := core.NewJobData()
	jd.ID = "mitigation-fail-test"
	jd.Status = core.SUCCEEDED
	jd.Result.Counts = core.Counts{}
	PseudoInverseMitigation(jd)
	assert.Equal(t, core.FAILED, jd.Status)
}
