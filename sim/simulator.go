package sim

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/go-openapi/strfmt"
	"go.uber.org/zap"

	"github.com/qforge-dev/phase-engine/circuit"
	"github.com/qforge-dev/phase-engine/core"
)

const LocalBackendType = "statevector_simulator"

// LocalSimulator is the in-process execution oracle: it takes a
// finished circuit description off a job and hands back measurement
// counts. Jobs never see past the core.Simulator interface.
type LocalSimulator struct {
	backendSetting *BackendSetting
	seed           int64
}

func (s *LocalSimulator) Setup(conf *core.Conf) error {
	zap.L().Debug("setting up local statevector simulator")
	bs, err := LoadBackendSetting(conf.BackendSettingPath)
	if err != nil {
		zap.L().Error(fmt.Sprintf("Failed to load a backend setting. Reason:%s", err))
		return err
	}
	s.backendSetting = bs
	s.seed = conf.Seed
	return nil
}

func (s *LocalSimulator) Validate(qasm string) error {
	circ, err := circuit.ParseQASM(qasm)
	if err != nil {
		zap.L().Info(err.Error())
		return err
	}
	if circ.NumQubits > s.backendSetting.MaxQubits {
		msg := fmt.Sprintf("Too many qubits in your circuit. We only have %d qubits.",
			s.backendSetting.MaxQubits)
		zap.L().Info(msg)
		return fmt.Errorf(msg)
	}
	return nil
}

func (s *LocalSimulator) Send(j core.Job) error {
	jd := j.JobData()
	zap.L().Info("Starting local simulation of Job ID:" + jd.ID)
	started := time.Now()

	circ, err := circuit.ParseQASM(jd.CircuitQASM())
	if err != nil {
		msg := core.SetFailureWithError(j, err)
		zap.L().Info(msg)
		return err
	}
	if circ.NumQubits > s.backendSetting.MaxQubits {
		err := fmt.Errorf("circuit needs %d qubits, backend has %d",
			circ.NumQubits, s.backendSetting.MaxQubits)
		msg := core.SetFailureWithError(j, err)
		zap.L().Info(msg)
		return err
	}

	state, err := Evolve(circ)
	if err != nil {
		msg := core.SetFailureWithError(j, err)
		zap.L().Info(msg)
		return err
	}

	rng := s.newRNG(jd.Seed)
	var counts core.Counts
	ro := s.backendSetting.ReadoutError
	if ro.Enabled {
		counts, err = SampleCountsNoisy(state, circ, jd.Shots, ro.ProbMeas1Prep0, ro.ProbMeas0Prep1, rng)
	} else {
		counts, err = SampleCounts(state, circ, jd.Shots, rng)
	}
	if err != nil {
		msg := core.SetFailureWithError(j, err)
		zap.L().Info(msg)
		return err
	}

	jd.Result.Counts = counts
	jd.Result.ExecutionTime = time.Since(started)
	jd.Status = core.SUCCEEDED
	jd.Ended = strfmt.DateTime(time.Now())
	zap.L().Debug(fmt.Sprintf("Job ID:%s is processed/status: %s", jd.ID, jd.Status))
	return nil
}

func (s *LocalSimulator) GetBackendInfo() *core.BackendInfo {
	return &core.BackendInfo{
		BackendName:    s.backendSetting.BackendName,
		ProviderName:   s.backendSetting.ProviderName,
		Type:           LocalBackendType,
		Status:         core.Available,
		MaxQubits:      s.backendSetting.MaxQubits,
		MaxShots:       s.backendSetting.MaxShots,
		Noisy:          s.backendSetting.ReadoutError.Enabled,
		ProbMeas1Prep0: s.backendSetting.ReadoutError.ProbMeas1Prep0,
		ProbMeas0Prep1: s.backendSetting.ReadoutError.ProbMeas0Prep1,
	}
}

func (s *LocalSimulator) newRNG(jobSeed int64) *rand.Rand {
	seed := jobSeed
	if seed == 0 {
		seed = s.seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
