package mitig

import (
	"fmt"
	"math"
	"sort"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/qforge-dev/phase-engine/core"
)

const ReadoutPseudoInverse = "pseudo_inverse"

var jsonIter = jsoniter.ConfigCompatibleWithStandardLibrary

type MitigationInfo struct {
	Readout           string `json:"readout" toml:"readout"`
	NeedToBeMitigated bool   `json:"-" toml:"-"`
	Mitigated         bool   `json:"-" toml:"-"`
}

type infoEnvelope struct {
	Mitigation *MitigationInfo `json:"mitigation"`
}

// NewMitigationInfoFromJobData reads the mitigation section of the
// job's Info JSON. A missing or unparseable section means no mitigation.
func NewMitigationInfoFromJobData(jd *core.JobData) *MitigationInfo {
	m := &MitigationInfo{}
	if jd.Info == "" {
		zap.L().Debug(fmt.Sprintf("JobID:%s has no Info, assuming not mitigated", jd.ID))
		return m
	}
	var env infoEnvelope
	if err := jsonIter.Unmarshal([]byte(jd.Info), &env); err != nil {
		zap.L().Warn(fmt.Sprintf("failed to unmarshal Info of a job(%s), assuming not mitigated. Reason:%s",
			jd.ID, err))
		return m
	}
	if env.Mitigation == nil {
		zap.L().Debug(fmt.Sprintf("JobID:%s does not need to be mitigated", jd.ID))
		return m
	}
	m.Readout = env.Mitigation.Readout
	if m.Readout == ReadoutPseudoInverse {
		zap.L().Debug(fmt.Sprintf("JobID:%s need to be mitigated", jd.ID))
		m.NeedToBeMitigated = true
	} else {
		zap.L().Debug(fmt.Sprintf("JobID:%s has unknown readout mitigation:%s, skipping",
			jd.ID, m.Readout))
	}
	return m
}

// PseudoInverseMitigation corrects the counts of a finished job with
// the inverse of the backend's per-qubit readout confusion matrix.
// The corrected distribution is clamped to non-negative values and
// rescaled so the counts still sum to the original shot total.
func PseudoInverseMitigation(jd *core.JobData) {
	bi := core.GetSystemComponents().GetBackendInfo()
	if bi == nil {
		zap.L().Error(fmt.Sprintf("failed to get backend info for a job(%s)", jd.ID))
		jd.Status = core.FAILED
		return
	}
	if !bi.Noisy {
		zap.L().Debug(fmt.Sprintf("backend is noiseless, counts of a job(%s) are kept as-is", jd.ID))
		return
	}
	mitigated, err := ApplyPseudoInverse(jd.Result.Counts, bi.ProbMeas1Prep0, bi.ProbMeas0Prep1)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to mitigate counts of a job(%s). Reason:%s",
			jd.ID, err))
		jd.Status = core.FAILED
		return
	}
	zap.L().Debug(fmt.Sprintf("mitigated counts of a job(%s): %v", jd.ID, mitigated))
	jd.Result.Counts = mitigated
}

// ApplyPseudoInverse inverts the tensor product of identical 2x2
// confusion matrices over the measured bits. p10 is the probability
// of reading 1 after preparing 0, p01 the reverse.
func ApplyPseudoInverse(counts core.Counts, p10, p01 float64) (core.Counts, error) {
	width, err := bitWidth(counts)
	if err != nil {
		return nil, err
	}
	det := 1.0 - p10 - p01
	if math.Abs(det) < 1e-9 {
		return nil, fmt.Errorf("confusion matrix is singular (p10=%f, p01=%f)", p10, p01)
	}
	// Inverse of [[1-p10, p01], [p10, 1-p01]].
	inv00 := (1.0 - p01) / det
	inv01 := -p01 / det
	inv10 := -p10 / det
	inv11 := (1.0 - p10) / det

	dim := 1 << width
	vec := make([]float64, dim)
	total := uint32(0)
	for k, v := range counts {
		idx, err := bitstringToIndex(k)
		if err != nil {
			return nil, err
		}
		vec[idx] = float64(v)
		total += v
	}

	// Apply the single-bit inverse along each bit axis in turn.
	for bit := 0; bit < width; bit++ {
		mask := 1 << bit
		for i := 0; i < dim; i++ {
			if i&mask != 0 {
				continue
			}
			v0 := vec[i]
			v1 := vec[i|mask]
			vec[i] = inv00*v0 + inv01*v1
			vec[i|mask] = inv10*v0 + inv11*v1
		}
	}

	clampedSum := 0.0
	for i := range vec {
		if vec[i] < 0 {
			vec[i] = 0
		}
		clampedSum += vec[i]
	}
	if clampedSum == 0 {
		return nil, fmt.Errorf("mitigated distribution vanished")
	}
	scale := float64(total) / clampedSum

	return roundToCounts(vec, scale, width, total), nil
}

// roundToCounts converts the scaled vector back to integer counts,
// assigning the rounding remainder to the largest entries so that
// the total is preserved exactly.
func roundToCounts(vec []float64, scale float64, width int, total uint32) core.Counts {
	type entry struct {
		idx   int
		whole uint32
		frac  float64
	}
	entries := make([]entry, 0, len(vec))
	assigned := uint32(0)
	for i, v := range vec {
		scaled := v * scale
		if scaled <= 0 {
			continue
		}
		whole := uint32(math.Floor(scaled))
		entries = append(entries, entry{idx: i, whole: whole, frac: scaled - math.Floor(scaled)})
		assigned += whole
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].frac > entries[j].frac
	})
	for i := 0; assigned < total && i < len(entries); i++ {
		entries[i].whole++
		assigned++
	}
	out := make(core.Counts)
	for _, e := range entries {
		if e.whole == 0 {
			continue
		}
		out[indexToBitstring(e.idx, width)] = e.whole
	}
	return out
}

func bitWidth(counts core.Counts) (int, error) {
	if len(counts) == 0 {
		return 0, fmt.Errorf("counts is empty")
	}
	width := 0
	for k := range counts {
		if width == 0 {
			width = len(k)
		} else if width != len(k) {
			return 0, fmt.Errorf("different length of keys in counts")
		}
	}
	return width, nil
}

// bitstringToIndex maps the leftmost character to the highest bit.
func bitstringToIndex(s string) (int, error) {
	idx := 0
	for _, c := range s {
		switch c {
		case '0':
			idx = idx << 1
		case '1':
			idx = idx<<1 | 1
		default:
			return 0, fmt.Errorf("invalid bit string: %s", s)
		}
	}
	return idx, nil
}

func indexToBitstring(idx, width int) string {
	buf := make([]byte, width)
	for i := 0; i < width; i++ {
		if idx&(1<<(width-1-i)) != 0 {
			buf[i] = '1'
		} else {
			buf[i] = '0'
		}
	}
	return string(buf)
}
