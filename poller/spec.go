package poller

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/qforge-dev/phase-engine/core"
	"github.com/qforge-dev/phase-engine/estimation"
	"github.com/qforge-dev/phase-engine/mitig"
	"github.com/qforge-dev/phase-engine/qpe"
	"github.com/qforge-dev/phase-engine/sampling"
	"github.com/qforge-dev/phase-engine/sweep"
)

var jsonIter = jsoniter.ConfigCompatibleWithStandardLibrary

// JobSpec is one job submission file dropped into the watch dir.
// Either an inline circuit (qasm), a circuit file (qasm_file), a qpe
// section, or a sweep section supplies the work.
type JobSpec struct {
	JobID      string                 `toml:"job_id"`
	JobType    string                 `toml:"job_type"`
	Shots      int                    `toml:"shots"`
	Seed       int64                  `toml:"seed"`
	QASM       string                 `toml:"qasm"`
	QASMFile   string                 `toml:"qasm_file"`
	Transpiler *core.TranspilerConfig `toml:"transpiler"`
	QPE        *qpe.Params            `toml:"qpe"`
	Sweep      *sweep.Params          `toml:"sweep"`
	Mitigation *mitig.MitigationInfo  `toml:"mitigation"`
}

type infoPayload struct {
	QPE        *qpe.Params           `json:"qpe,omitempty"`
	Sweep      *sweep.Params         `json:"sweep,omitempty"`
	Mitigation *mitig.MitigationInfo `json:"mitigation,omitempty"`
}

// ReadJobSpec parses one TOML job file.
func ReadJobSpec(path string) (*JobSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job spec %s: %w", path, err)
	}
	var spec JobSpec
	if _, err := toml.Decode(string(raw), &spec); err != nil {
		return nil, fmt.Errorf("failed to decode job spec %s: %w", path, err)
	}
	return &spec, nil
}

// ToJobParam resolves a spec into a submittable JobParam. Relative
// qasm_file paths are taken from the spec file's directory.
func (s *JobSpec) ToJobParam(baseDir string) (*core.JobParam, error) {
	qasm := s.QASM
	if qasm == "" && s.QASMFile != "" {
		path := s.QASMFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read qasm file %s: %w", path, err)
		}
		qasm = string(raw)
	}

	jobType := s.JobType
	if jobType == "" {
		switch {
		case s.QPE != nil:
			jobType = estimation.PHASE_ESTIMATION_JOB
		case s.Sweep != nil:
			jobType = sweep.SWEEP_JOB
		default:
			jobType = sampling.SAMPLING_JOB
		}
	}
	if qasm == "" && s.QPE == nil && s.Sweep == nil {
		return nil, fmt.Errorf("job spec has no circuit and no parameters")
	}

	jobID := strings.TrimSpace(s.JobID)
	if jobID == "" {
		jobID = uuid.NewString()
	}

	info := ""
	if s.QPE != nil || s.Sweep != nil || s.Mitigation != nil {
		raw, err := jsonIter.Marshal(&infoPayload{
			QPE:        s.QPE,
			Sweep:      s.Sweep,
			Mitigation: s.Mitigation,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal job info: %w", err)
		}
		info = string(raw)
	}

	return &core.JobParam{
		JobID:      jobID,
		QASM:       qasm,
		Shots:      s.Shots,
		Seed:       s.Seed,
		Transpiler: s.Transpiler,
		JobType:    jobType,
		Info:       info,
	}, nil
}
