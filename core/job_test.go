//go:build unit
// +build unit

package core

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/qforge-dev/phase-engine/common"
)

func TestJobManager(t *testing.T) {
	s := SCWithUnimplementedContainer()
	defer s.TearDown()
	jm, err := NewJobManager(
		&NormalJob{},
	)
	assert.Nil(t, err)
	assert.NotNil(t, jm)
	as := jm.AcceptableJobTypes()
	assert.Equal(t, len(as), 1)
	assert.Equal(t, as[0], "normal")

	err = jm.RegisterJob(&NormalJob{})
	assert.EqualError(t, err, "job:normal is already registered")

	as = jm.AcceptableJobTypes()
	assert.Equal(t, len(as), 1)
	assert.Equal(t, as[0], "normal")

	jc, err := NewJobContext()
	assert.Nil(t, err)

	job, err := jm.NewJobFromJobData(
		&JobData{ID: "test"},
		jc,
	)

	assert.Nil(t, err)
	assert.Equal(t, job.JobData().ID, "test")
}

func TestNewJobFromJobDataUnknownType(t *testing.T) {
	s := SCWithUnimplementedContainer()
	defer s.TearDown()
	jm, err := NewJobManager(&NormalJob{})
	assert.Nil(t, err)

	jc, err := NewJobContext()
	assert.Nil(t, err)
	_, err = jm.NewJobFromJobData(&JobData{ID: "test", JobType: "exotic"}, jc)
	assert.EqualError(t, err, "job type exotic is not registered")
}

func TestNewJob(t *testing.T) {
	s := SCWithDBContainer()
	defer s.TearDown()

	testQASM, err := common.GetAsset("phase_kickback.qasm")
	assert.Nil(t, err)

	jm, err := NewJobManager()
	assert.Nil(t, err)
	assert.NotNil(t, jm)
	jm.RegisterJob(&NormalJob{})

	param := JobParam{
		JobID:      uuid.NewString(),
		QASM:       testQASM,
		Shots:      -1,
		Transpiler: DefaultTranspilerConfig(),
	}
	tests := []struct {
		name        string
		param       *JobParam
		wantError   string
		wantJobData *JobData
	}{
		{
			name: "0 shots",
			param: &JobParam{
				JobID:      uuid.NewString(),
				QASM:       testQASM,
				Shots:      0,
				Transpiler: DefaultTranspilerConfig(),
			},
			wantError: "shots(0) must be greater than 0",
		},
		{
			name:      "negative shots",
			param:     &param,
			wantError: "shots(-1) must be greater than 0",
		},
		{
			name: "over max shots",
			param: &JobParam{
				JobID:      uuid.NewString(),
				QASM:       testQASM,
				Shots:      MockMaxShots + 1,
				Transpiler: DefaultTranspilerConfig(),
			},
			wantError: fmt.Sprintf(
				"shots(%d) is over the limit(%d)",
				MockMaxShots+1, MockMaxShots),
		},
		{
			name: "empty job id",
			param: &JobParam{
				QASM:       testQASM,
				Shots:      1000,
				Transpiler: DefaultTranspilerConfig(),
			},
			wantError: "jobID is empty",
		},
		{
			name: "bad optimization level",
			param: &JobParam{
				JobID:      uuid.NewString(),
				QASM:       testQASM,
				Shots:      1000,
				Transpiler: &TranspilerConfig{OptimizationLevel: 9},
			},
			wantError: "optimization level 9 is not acceptable",
		},
		{
			name: "normal with max shots",
			param: &JobParam{
				JobID:      uuid.NewString(),
				QASM:       testQASM,
				Shots:      MockMaxShots,
				Transpiler: DefaultTranspilerConfig(),
			},
			wantError: "",
			wantJobData: &JobData{
				JobType:    NORMAL_JOB,
				Transpiler: DefaultTranspilerConfig(),
				QASM:       testQASM,
				Shots:      MockMaxShots,
			},
		},
		{
			name: "normal with 1 shot",
			param: &JobParam{
				JobID:      uuid.NewString(),
				QASM:       testQASM,
				Shots:      1,
				Transpiler: DefaultTranspilerConfig(),
			},
			wantError: "",
			wantJobData: &JobData{
				JobType:    NORMAL_JOB,
				Transpiler: DefaultTranspilerConfig(),
				QASM:       testQASM,
				Shots:      1,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jc, err := NewJobContext()
			assert.Nil(t, err)
			job, err := jm.NewJobWithValidation(tt.param, jc)
			if tt.wantError == "" {
				assert.Nil(t, err)
				tt.wantJobData.ID = tt.param.JobID
				tt.wantJobData.Result = NewResult()
				tt.wantJobData.Created = job.JobData().Created // ignore time
				assert.Equal(t, job.JobData(), tt.wantJobData)
			} else {
				assert.Equal(t, err.Error(), tt.wantError)
			}
		})
	}
}

func TestCloneNormalJob(t *testing.T) {
	s := SCWithUnimplementedContainer()
	defer s.TearDown()
	jm, err := NewJobManager(&NormalJob{})
	assert.Nil(t, err)

	jd := &JobData{
		ID:    "test",
		QASM:  "test_qasm",
		Shots: 1000,
	}
	jc, err := NewJobContext()
	assert.Nil(t, err)
	org, err := jm.NewJobFromJobData(jd, jc)
	assert.Nil(t, err)
	cloned := org.Clone()
	assert.Nil(t, err)
	assert.False(t, cloned == org)
	assert.False(t, cloned.JobData() == org.JobData(),
		"cloned.JobData()=%p, nj.JobData()=%p", cloned.JobData(), org.JobData())
	assert.Equal(t, cloned.JobData().ID, org.JobData().ID)
	assert.Equal(t, cloned.JobData().QASM, org.JobData().QASM)
	assert.Equal(t, cloned.JobData().Shots, org.JobData().Shots)

	org.JobData().ID = "test2"
	assert.NotEqual(t, cloned.JobData().ID, org.JobData().ID)

	org.JobData().Status = RUNNING
	cloned.JobData().Status = SUCCEEDED
	assert.NotEqual(t, cloned.JobData().Status, org.JobData().Status)
}
