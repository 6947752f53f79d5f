package sweep

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-openapi/strfmt"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/qforge-dev/phase-engine/circuit"
	"github.com/qforge-dev/phase-engine/core"
	"github.com/qforge-dev/phase-engine/qpe"
)

const SWEEP_JOB = "sweep"

var (
	ErrorCircuitCombineFail = errors.New("circuit combine failed")

	jsonIter = jsoniter.ConfigCompatibleWithStandardLibrary
)

// Params describes a phase sweep: one phase estimation circuit per
// entry of Phases, all combined into a single run on disjoint qubit
// blocks.
type Params struct {
	AncillaQubits     int       `json:"ancilla_qubits" toml:"ancilla_qubits"`
	Phases            []float64 `json:"phases" toml:"phases"`
	PrepareEigenstate bool      `json:"prepare_eigenstate" toml:"prepare_eigenstate"`
}

func (p *Params) Validate() error {
	if len(p.Phases) == 0 {
		return fmt.Errorf("phases must not be empty")
	}
	point := qpe.Params{
		AncillaQubits:     p.AncillaQubits,
		PrepareEigenstate: p.PrepareEigenstate,
	}
	return point.Validate()
}

type infoEnvelope struct {
	Sweep *Params `json:"sweep"`
}

// SweepJob combines the per-phase circuits of a sweep into one wide
// circuit, runs it once, and divides the sampled counts back into
// per-phase count maps.
type SweepJob struct {
	jobData          *core.JobData
	jobContext       *core.JobContext
	params           *Params
	combinedBitsList []int

	postProcessed bool
}

func (j *SweepJob) New(jd *core.JobData, jc *core.JobContext) core.Job {
	return &SweepJob{
		jobData:          jd,
		jobContext:       jc,
		combinedBitsList: make([]int, 0),
	}
}

func (j *SweepJob) PreProcess() {
	if err := j.preProcessImpl(); err != nil {
		zap.L().Error(fmt.Sprintf("failed to pre-process a job(%s). Reason:%s",
			j.JobData().ID, err.Error()))
		core.SetFailureWithError(j, err)
		return
	}
}

func (j *SweepJob) preProcessImpl() (err error) {
	err = nil
	jd := j.JobData()
	container := core.GetSystemComponents().Container
	err = container.Invoke(
		func(d core.DBManager) error {
			if d.ExistInInnerJobIDSet(jd.ID) {
				return core.ErrorJobIDConflict
			}
			return nil
		})
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to check the existence of a job(%s). Reason:%s",
			jd.ID, err.Error()))
		return
	}

	params, err := ParseParams(jd.Info)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to parse sweep parameters of a job(%s). Reason:%s",
			jd.ID, err.Error()))
		return
	}
	j.params = params

	combined, bitsList, err := combineCircuits(params)
	if err != nil {
		jd.Result.Message = err.Error()
		zap.L().Error(fmt.Sprintf("failed to combine circuits of a job(%s). Reason:%s",
			jd.ID, err.Error()))
		return
	}
	j.combinedBitsList = bitsList
	jd.QASM = combined.ToQASM()

	err = container.Invoke(
		func(sim core.Simulator) error {
			return sim.Validate(jd.QASM)
		})
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to validate the combined circuit of a job(%s). Reason:%s",
			jd.ID, err.Error()))
		return
	}

	if jd.NeedTranspiling() {
		err = container.Invoke(
			func(t core.Transpiler) error {
				return t.Transpile(j)
			})
		if err != nil {
			zap.L().Error(fmt.Sprintf("failed to transpile a job(%s). Reason:%s", jd.ID, err.Error()))
			return
		}
	}
	_ = container.Invoke(
		func(d core.DBManager) error {
			d.AddToInnerJobIDSet(jd.ID)
			return nil
		})
	return
}

func (j *SweepJob) Process() {
	c := core.GetSystemComponents().Container
	err := c.Invoke(
		func(sim core.Simulator) error {
			return sim.Send(j)
		})
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to send a job(%s) to the backend. Reason:%s",
			j.JobData().ID, err.Error()))
		j.jobData.Status = core.FAILED
	}
}

func (j *SweepJob) PostProcess() {
	jd := j.JobData()
	j.postProcessed = true
	if jd.Status != core.SUCCEEDED {
		return
	}
	if err := DivideResult(jd, j.combinedBitsList); err != nil {
		zap.L().Error(fmt.Sprintf("failed to divide the result of a job(%s). Reason:%s",
			jd.ID, err.Error()))
		core.SetFailureWithError(j, fmt.Errorf("post-process failed"))
		return
	}
	jd.Ended = strfmt.DateTime(time.Now())
}

func (j *SweepJob) IsFinished() bool {
	return j.postProcessed || j.JobData().Status == core.FAILED
}

func (j *SweepJob) JobData() *core.JobData {
	return j.jobData
}

func (j *SweepJob) JobType() string {
	return SWEEP_JOB
}

func (j *SweepJob) JobContext() *core.JobContext {
	return j.jobContext
}

func (j *SweepJob) Clone() core.Job {
	cloned := &SweepJob{
		jobData:          j.jobData.Clone(),
		jobContext:       j.jobContext,
		params:           j.params,
		combinedBitsList: append([]int{}, j.combinedBitsList...),
		postProcessed:    j.postProcessed,
	}
	return cloned
}

// ParseParams extracts and validates the sweep section of a job's
// Info JSON.
func ParseParams(info string) (*Params, error) {
	if info == "" {
		return nil, fmt.Errorf("no sweep parameters")
	}
	var env infoEnvelope
	if err := jsonIter.Unmarshal([]byte(info), &env); err != nil {
		return nil, fmt.Errorf("invalid Info JSON: %w", err)
	}
	if env.Sweep == nil {
		return nil, fmt.Errorf("Info JSON has no sweep section")
	}
	if err := env.Sweep.Validate(); err != nil {
		return nil, err
	}
	return env.Sweep, nil
}

// combineCircuits lays the per-phase circuits side by side on disjoint
// qubit and classical-bit blocks. The returned list holds the measured
// bit width of each block, in circuit order.
func combineCircuits(p *Params) (*circuit.Circuit, []int, error) {
	blockQubits := p.AncillaQubits + 1
	numCircuits := len(p.Phases)
	combined := circuit.New(blockQubits*numCircuits, p.AncillaQubits*numCircuits)
	bitsList := make([]int, 0, numCircuits)
	for i, phase := range p.Phases {
		point := &qpe.Params{
			AncillaQubits:     p.AncillaQubits,
			BasePhase:         phase,
			PrepareEigenstate: p.PrepareEigenstate,
		}
		c, err := qpe.Compose(point)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: phase %d: %s", ErrorCircuitCombineFail, i, err)
		}
		appendShifted(combined, c, i*blockQubits, i*p.AncillaQubits)
		bitsList = append(bitsList, p.AncillaQubits)
	}
	if err := combined.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrorCircuitCombineFail, err)
	}
	return combined, bitsList, nil
}

func appendShifted(dst, src *circuit.Circuit, qubitOffset, cbitOffset int) {
	for _, g := range src.Gates {
		g.Target += qubitOffset
		switch g.Type {
		case circuit.ControlledPhase, circuit.CNOT, circuit.Swap:
			g.Control += qubitOffset
		case circuit.Measure:
			g.Cbit += cbitOffset
		}
		dst.Gates = append(dst.Gates, g)
	}
}
