package core

import (
	"fmt"

	"go.uber.org/dig"
)

const MockMaxQubits int = 10
const MockMaxShots int = 10000
const validateErrorMessage string = "no input qasm"

type UnimplementedJob struct {
	jobData    *JobData
	jobContext *JobContext
}

func (j *UnimplementedJob) New(jd *JobData, jc *JobContext) Job {
	return &UnimplementedJob{
		jobData:    jd,
		jobContext: jc,
	}
}

func (j *UnimplementedJob) PreProcess() {
	return
}

func (j *UnimplementedJob) Process() {
	return
}

func (j *UnimplementedJob) PostProcess() {
	return
}

func (j *UnimplementedJob) IsFinished() bool {
	return j.JobData().Status == SUCCEEDED || j.JobData().Status == FAILED
}

func (j *UnimplementedJob) JobData() *JobData {
	return j.jobData
}

func (j *UnimplementedJob) JobType() string {
	return j.jobData.JobType
}

func (j *UnimplementedJob) JobContext() *JobContext {
	return j.jobContext
}

func (j *UnimplementedJob) Clone() Job {
	cloned := &UnimplementedJob{
		jobData:    j.jobData.Clone(),
		jobContext: j.jobContext,
	}
	return cloned
}

type UnimplementedSimulator struct{}

func (u *UnimplementedSimulator) Setup(*Conf) error {
	return nil
}

func (u *UnimplementedSimulator) Send(Job) error {
	return nil
}

func (u *UnimplementedSimulator) Validate(string) error {
	return nil
}

func (u *UnimplementedSimulator) GetBackendInfo() *BackendInfo {
	return &BackendInfo{
		MaxQubits:   MockMaxQubits,
		MaxShots:    MockMaxShots,
		BackendName: "unimplementedSimulator",
		Status:      Available,
	}
}

type validateErrorSimulatorForTest struct {
	UnimplementedSimulator
}

func (validateErrorSimulatorForTest) Validate(string) error {
	return fmt.Errorf(validateErrorMessage)
}

type successSimulatorForTest struct {
	UnimplementedSimulator
}

func (successSimulatorForTest) Send(j Job) error {
	j.JobData().Status = SUCCEEDED
	return nil
}

type unimplementedDB struct {
	innerJobIDSet map[string]struct{}
}

func (u *unimplementedDB) Setup(DBChan, *Conf) error {
	u.innerJobIDSet = make(map[string]struct{})
	return nil
}
func (u *unimplementedDB) Insert(Job) error { return nil }
func (u *unimplementedDB) Get(jobID string) (Job, error) {
	return &NormalJob{}, nil
}
func (u *unimplementedDB) Update(Job) error    { return nil }
func (u *unimplementedDB) Delete(string) error { return nil }
func (u *unimplementedDB) AddToInnerJobIDSet(jobID string) {
	u.innerJobIDSet[jobID] = struct{}{}
}
func (u *unimplementedDB) RemoveFromInnerJobIDSet(jobID string) {
	delete(u.innerJobIDSet, jobID)
}
func (u *unimplementedDB) ExistInInnerJobIDSet(jobID string) bool {
	_, ok := u.innerJobIDSet[jobID]
	return ok
}

type successDBForTest struct {
	unimplementedDB
}

func (successDBForTest) Get(jobID string) (Job, error) {
	return &NormalJob{
		jobData: &JobData{
			ID:     jobID,
			Status: RUNNING,
		},
	}, nil
}

type notFindDBForTest struct {
	unimplementedDB
}

func (notFindDBForTest) Get(jobID string) (Job, error) {
	return &NormalJob{}, fmt.Errorf("failed to find %s", jobID)
}

type passTranspilerForTest struct{}

func (passTranspilerForTest) Setup(*Conf) error   { return nil }
func (passTranspilerForTest) Transpile(Job) error { return nil }
func (passTranspilerForTest) IsAcceptableOptimizationLevel(int) bool {
	return true
}
func (passTranspilerForTest) TearDown() {}

type nopReporterForTest struct{}

func (nopReporterForTest) Setup(*Conf) error { return nil }
func (nopReporterForTest) Report(Job) error  { return nil }

type unimplementedScheduler struct{}

func (u *unimplementedScheduler) Setup(*Conf) error           { return nil }
func (u *unimplementedScheduler) Start() error                { return nil }
func (u *unimplementedScheduler) HandleJob(_ Job)             { return }
func (u *unimplementedScheduler) GetCurrentQueueSize() int    { return 0 }
func (u *unimplementedScheduler) IsOverRefillThreshold() bool { return false }

func SCWithUnimplementedContainer() *SystemComponents {
	c := dig.New()
	c.Provide(func() Simulator { return &successSimulatorForTest{} })
	c.Provide(func() Transpiler { return &passTranspilerForTest{} })
	c.Provide(func() DBManager {
		db := &successDBForTest{}
		db.Setup(nil, &Conf{})
		return db
	})
	c.Provide(func() Scheduler { return &unimplementedScheduler{} })
	c.Provide(func() Reporter { return nopReporterForTest{} })
	s := NewSystemComponents(c)
	s.Setup(&Conf{})
	return s
}

func SCWithValidateErrorContainer() *SystemComponents {
	c := dig.New()
	c.Provide(func() Simulator { return &validateErrorSimulatorForTest{} })
	c.Provide(func() Transpiler { return &passTranspilerForTest{} })
	c.Provide(func() DBManager {
		db := &successDBForTest{}
		db.Setup(nil, &Conf{})
		return db
	})
	c.Provide(func() Scheduler { return &unimplementedScheduler{} })
	c.Provide(func() Reporter { return nopReporterForTest{} })
	s := NewSystemComponents(c)
	s.Setup(&Conf{})
	return s
}

func SCWithDBContainer() *SystemComponents {
	c := dig.New()
	c.Provide(func() Simulator { return &successSimulatorForTest{} })
	c.Provide(func() DBManager { return &MemoryDB{} })
	c.Provide(func() Transpiler { return &passTranspilerForTest{} })
	c.Provide(func() Scheduler { return &unimplementedScheduler{} })
	c.Provide(func() Reporter { return nopReporterForTest{} })
	s := NewSystemComponents(c)
	s.Setup(&Conf{})
	return s
}

func SCWithScheduler(sc Scheduler) *SystemComponents {
	c := dig.New()
	c.Provide(func() Simulator { return &successSimulatorForTest{} })
	c.Provide(func() DBManager { return &MemoryDB{} })
	c.Provide(func() Transpiler { return &passTranspilerForTest{} })
	c.Provide(func() Scheduler { return sc })
	c.Provide(func() Reporter { return nopReporterForTest{} })
	s := NewSystemComponents(c)
	s.Setup(&Conf{QueueMaxSize: 1000})
	return s
}

// SCWithSimulator wires a real simulator backend over the in-memory DB.
func SCWithSimulator(sim Simulator) *SystemComponents {
	c := dig.New()
	c.Provide(func() Simulator { return sim })
	c.Provide(func() DBManager { return &MemoryDB{} })
	c.Provide(func() Transpiler { return &passTranspilerForTest{} })
	c.Provide(func() Scheduler { return &unimplementedScheduler{} })
	c.Provide(func() Reporter { return nopReporterForTest{} })
	s := NewSystemComponents(c)
	s.Setup(&Conf{})
	return s
}
