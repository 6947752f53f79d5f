package estimation

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/qforge-dev/phase-engine/core"
	"github.com/qforge-dev/phase-engine/mitig"
	"github.com/qforge-dev/phase-engine/qpe"
)

const PHASE_ESTIMATION_JOB = "phase_estimation"

var jsonIter = jsoniter.ConfigCompatibleWithStandardLibrary

type infoEnvelope struct {
	QPE *qpe.Params `json:"qpe"`
}

// PhaseEstimationJob assembles a phase estimation circuit from the
// parameters in the job's Info JSON, runs it, and decodes the sampled
// counts into a phase estimate.
type PhaseEstimationJob struct {
	jobData    *core.JobData
	jobContext *core.JobContext
	params     *qpe.Params
	finished   bool
}

func (j *PhaseEstimationJob) New(jd *core.JobData, jc *core.JobContext) core.Job {
	return &PhaseEstimationJob{
		jobData:    jd,
		jobContext: jc,
	}
}

func (j *PhaseEstimationJob) PreProcess() {
	if err := j.preProcessImpl(); err != nil {
		zap.L().Error(fmt.Sprintf("failed to pre-process a job(%s). Reason:%s",
			j.JobData().ID, err.Error()))
		core.SetFailureWithError(j, err)
		j.finished = true
		return
	}
	return
}

func (j *PhaseEstimationJob) preProcessImpl() (err error) {
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
		zap.L().Error(fmt.Sprintf("failed to parse phase estimation parameters of a job(%s). Reason:%s",
			jd.ID, err.Error()))
		return
	}
	j.params = params

	c, err := qpe.Compose(params)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to compose a circuit of a job(%s). Reason:%s",
			jd.ID, err.Error()))
		return
	}
	jd.QASM = c.ToQASM()
	zap.L().Debug(fmt.Sprintf("composed QASM of a job(%s):\n%s", jd.ID, jd.QASM))

	err = container.Invoke(
		func(sim core.Simulator) error {
			return sim.Validate(jd.QASM)
		})
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to validate the circuit of a job(%s). Reason:%s",
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

func (j *PhaseEstimationJob) Process() {
	c := core.GetSystemComponents().Container
	err := c.Invoke(
		func(sim core.Simulator) error {
			return sim.Send(j)
		})
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to send a job(%s) to the backend. Reason:%s",
			j.JobData().ID, err.Error()))
		j.JobData().Status = core.FAILED
	}
}

func (j *PhaseEstimationJob) PostProcess() {
	defer func() { j.finished = true }()
	jd := j.JobData()
	if jd.Status != core.SUCCEEDED || j.params == nil {
		return
	}
	mi := mitig.NewMitigationInfoFromJobData(jd)
	if mi.NeedToBeMitigated {
		zap.L().Debug(fmt.Sprintf("mitigating counts of a job(%s) before decoding", jd.ID))
		mitig.PseudoInverseMitigation(jd)
		if jd.Status == core.FAILED {
			return
		}
	}
	est, err := qpe.Decode(jd.Result.Counts, j.params.AncillaQubits)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to decode counts of a job(%s). Reason:%s",
			jd.ID, err.Error()))
		core.SetFailureWithError(j, err)
		return
	}
	jd.Result.Estimation = est
	zap.L().Debug(fmt.Sprintf("decoded an estimate of a job(%s): phase=%f top=%s",
		jd.ID, est.Phase, est.TopBitstring))
}

func (j *PhaseEstimationJob) IsFinished() bool {
	return j.finished
}

func (j *PhaseEstimationJob) JobData() *core.JobData {
	return j.jobData
}

func (j *PhaseEstimationJob) JobType() string {
	return PHASE_ESTIMATION_JOB
}

func (j *PhaseEstimationJob) JobContext() *core.JobContext {
	return j.jobContext
}

func (j *PhaseEstimationJob) Clone() core.Job {
	return &PhaseEstimationJob{
		jobData:    j.jobData.Clone(),
		jobContext: j.jobContext,
		params:     j.params,
		finished:   j.finished,
	}
}

// ParseParams extracts and validates the phase estimation section of a
// job's Info JSON.
func ParseParams(info string) (*qpe.Params, error) {
	if info == "" {
		return nil, fmt.Errorf("no phase estimation parameters")
	}
	var env infoEnvelope
	if err := jsonIter.Unmarshal([]byte(info), &env); err != nil {
		return nil, fmt.Errorf("invalid Info JSON: %w", err)
	}
	if env.QPE == nil {
		return nil, fmt.Errorf("Info JSON has no qpe section")
	}
	if err := env.QPE.Validate(); err != nil {
		return nil, err
	}
	return env.QPE, nil
}
