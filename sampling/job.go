package sampling

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/qforge-dev/phase-engine/core"
	"github.com/qforge-dev/phase-engine/mitig"
)

const SAMPLING_JOB = "sampling"

// SamplingJob runs a submitted circuit on the state-vector backend and
// optionally applies readout-error mitigation to the sampled counts.
type SamplingJob struct {
	jobData        *core.JobData
	jobContext     *core.JobContext
	mitigationInfo *mitig.MitigationInfo
}

func (j *SamplingJob) New(jd *core.JobData, jc *core.JobContext) core.Job {
	return &SamplingJob{
		jobData:    jd,
		jobContext: jc,
	}
}

func (j *SamplingJob) PreProcess() {
	if err := j.preProcessImpl(); err != nil {
		zap.L().Error(fmt.Sprintf("failed to pre-process a job(%s). Reason:%s",
			j.JobData().ID, err.Error()))
		core.SetFailureWithError(j, err)
		return
	}
	j.mitigationInfo = mitig.NewMitigationInfoFromJobData(j.JobData())
	return
}

func (j *SamplingJob) preProcessImpl() (err error) {
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
	} else {
		zap.L().Debug(fmt.Sprintf("skip transpiling a job(%s)/Transpiler:%v",
			jd.ID, jd.Transpiler))
	}
	_ = container.Invoke(
		func(d core.DBManager) error {
			d.AddToInnerJobIDSet(jd.ID)
			return nil
		})
	return
}

func (j *SamplingJob) Process() {
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
	zap.L().Debug(fmt.Sprintf("finished to process a job(%s)/status:%s",
		j.JobData().ID, j.JobData().Status))
}

func (j *SamplingJob) PostProcess() {
	if j.mitigationInfo == nil {
		return
	}
	if j.mitigationInfo.NeedToBeMitigated && j.JobData().Status == core.SUCCEEDED {
		zap.L().Debug(fmt.Sprintf("start to do pseudo inverse mitigation for a job(%s)",
			j.JobData().ID))
		mitig.PseudoInverseMitigation(j.JobData())
	} else {
		zap.L().Debug(fmt.Sprintf("skip pseudo inverse mitigation for a job(%s)",
			j.JobData().ID))
	}
	j.mitigationInfo.Mitigated = true
	return
}

func (j *SamplingJob) IsFinished() bool {
	if j.mitigationInfo != nil && j.mitigationInfo.NeedToBeMitigated {
		return j.mitigationInfo.Mitigated
	}
	return j.JobData().Status == core.SUCCEEDED || j.JobData().Status == core.FAILED
}

func (j *SamplingJob) JobData() *core.JobData {
	return j.jobData
}

func (j *SamplingJob) JobType() string {
	return SAMPLING_JOB
}

func (j *SamplingJob) JobContext() *core.JobContext {
	return j.jobContext
}

func (j *SamplingJob) Clone() core.Job {
	return &SamplingJob{
		jobData:        j.jobData.Clone(),
		jobContext:     j.jobContext,
		mitigationInfo: j.mitigationInfo,
	}
}
