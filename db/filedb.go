package db

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-openapi/strfmt"
	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"

	"github.com/qforge-dev/phase-engine/common"
	"github.com/qforge-dev/phase-engine/core"
)

var jsonIter = jsoniter.ConfigCompatibleWithStandardLibrary

// jobRecord is the on-disk shape of a job. Only JobData survives a
// round trip, the job is rebuilt through the JobManager on load.
type jobRecord struct {
	ID             string                 `json:"id"`
	Status         string                 `json:"status"`
	Shots          int                    `json:"shots"`
	Seed           int64                  `json:"seed,omitempty"`
	QASM           string                 `json:"qasm"`
	TranspiledQASM string                 `json:"transpiled_qasm,omitempty"`
	Transpiler     *core.TranspilerConfig `json:"transpiler,omitempty"`
	Result         *core.Result           `json:"result"`
	JobType        string                 `json:"job_type"`
	Info           string                 `json:"info,omitempty"`
	Created        strfmt.DateTime        `json:"created"`
	Ended          strfmt.DateTime        `json:"ended,omitempty"`
}

func toRecord(jd *core.JobData) *jobRecord {
	return &jobRecord{
		ID:             jd.ID,
		Status:         jd.Status.String(),
		Shots:          jd.Shots,
		Seed:           jd.Seed,
		QASM:           jd.QASM,
		TranspiledQASM: jd.TranspiledQASM,
		Transpiler:     jd.Transpiler,
		Result:         jd.Result,
		JobType:        jd.JobType,
		Info:           jd.Info,
		Created:        jd.Created,
		Ended:          jd.Ended,
	}
}

func (r *jobRecord) toJobData() (*core.JobData, error) {
	st, err := core.ToStatus(r.Status)
	if err != nil {
		return nil, err
	}
	jd := core.NewJobData()
	jd.ID = r.ID
	jd.Status = st
	jd.Shots = r.Shots
	jd.Seed = r.Seed
	jd.QASM = r.QASM
	jd.TranspiledQASM = r.TranspiledQASM
	jd.Transpiler = r.Transpiler
	if r.Result != nil {
		jd.Result = r.Result
	}
	jd.JobType = r.JobType
	jd.Info = r.Info
	jd.Created = r.Created
	jd.Ended = r.Ended
	return jd, nil
}

// FileDB keeps jobs in memory and mirrors every change to one JSON
// file per job, so results survive a restart. An empty result dir
// falls back to the in-memory map only.
type FileDB struct {
	dir           string
	dbMap         map[string]core.Job
	dbChan        <-chan core.Job
	innerJobIDSet map[string]struct{}
	mu            sync.RWMutex
}

func (d *FileDB) Setup(dbc core.DBChan, c *core.Conf) error {
	d.dbMap = make(map[string]core.Job)
	d.innerJobIDSet = make(map[string]struct{})
	d.dbChan = dbc
	d.dir = c.ResultDir
	if d.dir != "" {
		if err := os.MkdirAll(d.dir, 0755); err != nil {
			return fmt.Errorf("failed to create result dir %s: %w", d.dir, err)
		}
		if err := common.IsDirWritable(d.dir); err != nil {
			return fmt.Errorf("result dir %s is not writable: %w", d.dir, err)
		}
	}
	go func() {
		for {
			job := <-d.dbChan
			if job == nil { //when dbChan is closed
				return
			}
			zap.L().Debug(fmt.Sprintf("[FileDB] Received %s", job.JobData().ID))
			if err := d.Update(job); err != nil {
				zap.L().Error(fmt.Sprintf("failed to update a job(%s). Reason:%s",
					job.JobData().ID, err.Error()))
			}
		}
	}()
	return nil
}

func (d *FileDB) Insert(j core.Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dbMap[j.JobData().ID] = j
	return d.writeRecord(j.JobData())
}

func (d *FileDB) Get(jobID string) (core.Job, error) {
	d.mu.RLock()
	if val, ok := d.dbMap[jobID]; ok {
		d.mu.RUnlock()
		return val, nil
	}
	d.mu.RUnlock()
	job, err := d.loadJob(jobID)
	if err != nil {
		zap.L().Info("[FileDB]", zap.Field(zap.Error(err)))
		return &core.NormalJob{}, err
	}
	d.mu.Lock()
	d.dbMap[jobID] = job
	d.mu.Unlock()
	return job, nil
}

func (d *FileDB) Update(j core.Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dbMap[j.JobData().ID] = j
	return d.writeRecord(j.JobData())
}

func (d *FileDB) Delete(jobID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, inMemory := d.dbMap[jobID]
	delete(d.dbMap, jobID)
	if d.dir == "" {
		if !inMemory {
			err := fmt.Errorf("failed to find %s", jobID)
			zap.L().Info("[FileDB]", zap.Field(zap.Error(err)))
			return err
		}
		return nil
	}
	err := os.Remove(d.recordPath(jobID))
	if err != nil && !inMemory {
		zap.L().Info("[FileDB]", zap.Field(zap.Error(err)))
		return fmt.Errorf("failed to find %s", jobID)
	}
	zap.L().Info(fmt.Sprintf("[FileDB] deleted %s from DB", jobID))
	return nil
}

func (d *FileDB) AddToInnerJobIDSet(jobID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.innerJobIDSet[jobID] = struct{}{}
}

func (d *FileDB) RemoveFromInnerJobIDSet(jobID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.innerJobIDSet, jobID)
}

func (d *FileDB) ExistInInnerJobIDSet(jobID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.innerJobIDSet[jobID]
	return ok
}

func (d *FileDB) recordPath(jobID string) string {
	return filepath.Join(d.dir, jobID+".json")
}

func (d *FileDB) writeRecord(jd *core.JobData) error {
	if d.dir == "" {
		return nil
	}
	raw, err := jsonIter.Marshal(toRecord(jd))
	if err != nil {
		return fmt.Errorf("failed to marshal a job(%s): %w", jd.ID, err)
	}
	raw = pretty.Pretty(raw)
	tmp := d.recordPath(jd.ID) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("failed to write a job(%s): %w", jd.ID, err)
	}
	return os.Rename(tmp, d.recordPath(jd.ID))
}

func (d *FileDB) loadJob(jobID string) (core.Job, error) {
	if d.dir == "" {
		return nil, fmt.Errorf("not found %s", jobID)
	}
	raw, err := os.ReadFile(d.recordPath(jobID))
	if err != nil {
		return nil, fmt.Errorf("not found %s", jobID)
	}
	var rec jobRecord
	if err := jsonIter.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("broken record of %s: %w", jobID, err)
	}
	jd, err := rec.toJobData()
	if err != nil {
		return nil, fmt.Errorf("broken record of %s: %w", jobID, err)
	}
	jc, err := core.NewJobContext()
	if err != nil {
		return nil, err
	}
	jm := core.GetJobManager()
	if jm == nil {
		return nil, fmt.Errorf("job manager is not initialized")
	}
	return jm.NewJobFromJobData(jd, jc)
}
