package core

import (
	"fmt"
	"time"

	"github.com/go-openapi/strfmt"
	jsoniter "github.com/json-iterator/go"
	"github.com/mohae/deepcopy"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"

	"github.com/qforge-dev/phase-engine/qpe"
)

type Status int
type Counts map[string]uint32

var jsonIter = jsoniter.ConfigCompatibleWithStandardLibrary

func (c Counts) String() string {
	st, err := jsonIter.Marshal(c)
	if err != nil {
		zap.L().Error("Failed to marshal core.Counts")
		return ""
	}
	return string(st)
}

// Total is the shot count the map accounts for.
func (c Counts) Total() uint32 {
	var total uint32
	for _, v := range c {
		total += v
	}
	return total
}

func ToStatus(s string) (Status, error) {
	switch s {
	case "submitted":
		return SUBMITTED, nil
	case "ready":
		return READY, nil
	case "running":
		return RUNNING, nil
	case "succeeded":
		return SUCCEEDED, nil
	case "failed":
		return FAILED, nil
	case "cancelled":
		return CANCELLED, nil
	default:
		return 0, fmt.Errorf("unknown status: %s", s)
	}
}

// DividedResult holds per-circuit counts of a sweep job.
// key1: circuit index, key2: bit string, value: count
type DividedResult map[uint32]Counts

const (
	SUBMITTED Status = iota // Accepted but not yet handled.
	READY                   // Queued for the scheduler. All fresh jobs start here.
	RUNNING                 // On the simulator backend.
	SUCCEEDED               // Finished successfully.
	FAILED                  // Finished with failure.
	CANCELLED               // Finished with cancellation.
)

func (s Status) String() string {
	switch s {
	case SUBMITTED:
		return "submitted"
	case READY:
		return "ready"
	case RUNNING:
		return "running"
	case SUCCEEDED:
		return "succeeded"
	case FAILED:
		return "failed"
	case CANCELLED:
		return "cancelled"
	default:
		return "unknown"
	}
}

type Result struct {
	Counts        Counts        `json:"counts"`
	DividedResult DividedResult `json:"divided_result,omitempty"`
	Estimation    *qpe.Estimate `json:"estimation,omitempty"`
	Message       string        `json:"message"`
	ExecutionTime time.Duration `json:"execution_time"`
}

func NewResult() *Result {
	return &Result{
		Counts: make(Counts),
	}
}

func (r *Result) ToString() string {
	st, err := jsonIter.Marshal(r)
	if err != nil {
		zap.L().Error("Failed to marshal core.Result")
		return ""
	}
	st = pretty.Pretty(st)
	return string(st)
}

func cloneCounts(counts Counts) Counts {
	clone := make(Counts)
	for k, v := range counts {
		clone[k] = v
	}
	return clone
}

type JobData struct {
	ID             string
	Status         Status
	Shots          int
	Seed           int64 // 0 means time-seeded
	QASM           string
	TranspiledQASM string
	Transpiler     *TranspilerConfig
	Result         *Result
	JobType        string
	Info           string // job-type specific parameters, JSON
	Created        strfmt.DateTime
	Ended          strfmt.DateTime
}

func NewJobData() *JobData {
	return &JobData{
		Result:  NewResult(),
		Created: strfmt.DateTime(time.Now()),
	}
}

func (jd *JobData) Clone() *JobData {
	c := deepcopy.Copy(jd).(*JobData)
	c.Created = *jd.Created.DeepCopy()
	c.Ended = *jd.Ended.DeepCopy()
	return c
}

func (jd *JobData) NeedTranspiling() bool {
	return jd.Transpiler != nil && jd.Transpiler.OptimizationLevel > 0
}

// CircuitQASM is the text the backend should run: the transpiled
// circuit when one exists, the submitted circuit otherwise.
func (jd *JobData) CircuitQASM() string {
	if jd.TranspiledQASM != "" {
		return jd.TranspiledQASM
	}
	return jd.QASM
}

func CloneJobData(i *JobData) *JobData {
	o := NewJobData()
	o.ID = i.ID
	o.Status = i.Status
	o.Shots = i.Shots
	o.Seed = i.Seed
	o.QASM = i.QASM
	o.TranspiledQASM = i.TranspiledQASM
	o.Transpiler = i.Transpiler
	o.Result.Counts = cloneCounts(i.Result.Counts)
	o.Result.Estimation = i.Result.Estimation
	o.Result.Message = i.Result.Message
	o.JobType = i.JobType
	o.Info = i.Info
	o.Created = i.Created
	o.Ended = i.Ended
	return o
}

type TranspilerConfig struct {
	OptimizationLevel int `json:"optimization_level" toml:"optimization_level"`
}

func DefaultTranspilerConfig() *TranspilerConfig {
	return &TranspilerConfig{OptimizationLevel: 1}
}

func NoTranspiler() *TranspilerConfig {
	return &TranspilerConfig{OptimizationLevel: 0}
}

func UnmarshalToTranspilerConfig(raw string) TranspilerConfig {
	var c TranspilerConfig
	err := jsonIter.Unmarshal([]byte(raw), &c)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to unmarshal transpiler config from :%s/reason:%s",
			raw, err))
	}
	return c
}
