package core

import (
	"fmt"

	"go.uber.org/dig"
	"go.uber.org/zap"
)

var systemComponents *SystemComponents

type DBChan chan Job

type Channels struct {
	DBChan
	// when more channels are needed, add here
}

func NewChannels() *Channels {
	return &Channels{
		DBChan: make(DBChan),
	}
}

func (c *Channels) Close() {
	close(c.DBChan)
}

func (c *Channels) Check() error {
	if c.DBChan == nil {
		return fmt.Errorf("DBChan is nil")
	}
	return nil
}

type BackendStatus int

const (
	Available BackendStatus = iota
	Unavailable
	QueuePaused
)

func (bs BackendStatus) String() string {
	switch bs {
	case Available:
		return "Available"
	case Unavailable:
		return "Unavailable"
	case QueuePaused:
		return "QueuePaused"
	default:
		return "Unknown"
	}
}

type BackendInfo struct {
	BackendName    string        `json:"backend_name"`
	ProviderName   string        `json:"provider_name"`
	Type           string        `json:"type"`
	Status         BackendStatus `json:"status"`
	MaxQubits      int           `json:"max_qubits"`
	MaxShots       int           `json:"max_shots"`
	Noisy          bool          `json:"noisy"`
	ProbMeas1Prep0 float64       `json:"prob_meas1_prep0,omitempty"`
	ProbMeas0Prep1 float64       `json:"prob_meas0_prep1,omitempty"`
}

// Simulator is the execution oracle. Jobs hand it a finished circuit
// description and get measurement-outcome counts back on JobData.
type Simulator interface {
	Setup(*Conf) error
	Send(Job) error
	Validate(qasm string) error
	GetBackendInfo() *BackendInfo
}

type Transpiler interface {
	Setup(*Conf) error
	Transpile(Job) error
	IsAcceptableOptimizationLevel(int) bool
	TearDown()
}

type Scheduler interface {
	Setup(*Conf) error
	Start() error
	HandleJob(Job)
	// Queue Data Access
	GetCurrentQueueSize() int
	IsOverRefillThreshold() bool
}

type DBManager interface {
	Setup(DBChan, *Conf) error
	Insert(Job) error
	Get(string) (Job, error)
	Update(Job) error
	Delete(string) error

	AddToInnerJobIDSet(string)
	RemoveFromInnerJobIDSet(string)
	ExistInInnerJobIDSet(string) bool
}

type Reporter interface {
	Setup(*Conf) error
	Report(Job) error
}

type SystemComponents struct {
	*dig.Container
	*Channels
}

func NewSystemComponents(con *dig.Container) *SystemComponents {
	return &SystemComponents{
		con,
		NewChannels(),
	}
}

func GetSystemComponents() *SystemComponents {
	return systemComponents
}

func (s *SystemComponents) Setup(conf *Conf) error {
	dbChan := s.DBChan

	zap.L().Debug("Setting up transpiler")
	var err error
	err = s.Invoke(
		func(t Transpiler) error {
			return t.Setup(conf)
		})
	if err != nil {
		return err
	}

	zap.L().Debug("Setting up scheduler")
	err = s.Invoke(
		func(sc Scheduler) error {
			return sc.Setup(conf)
		})
	if err != nil {
		return err
	}

	zap.L().Debug("Setting up DB")
	err = s.Invoke(
		func(d DBManager) error {
			return d.Setup(dbChan, conf)
		})
	if err != nil {
		return err
	}

	zap.L().Debug("Setting up simulator backend")
	err = s.Invoke(func(sim Simulator) error {
		return sim.Setup(conf)
	})
	if err != nil {
		return err
	}

	zap.L().Debug("Setting up reporter")
	err = s.Invoke(
		func(r Reporter) error {
			return r.Setup(conf)
		})
	if err != nil {
		return err
	}
	systemComponents = s
	return nil
}

func (s *SystemComponents) TearDown() {
	_ = s.Invoke(
		func(t Transpiler) {
			t.TearDown()
		})
	s.Channels.Close()
}

func (s *SystemComponents) StartContainer() error {
	return s.Container.Invoke(
		func(sc Scheduler) error {
			return sc.Start()
		})
}

func (s *SystemComponents) GetBackendInfo() *BackendInfo {
	var backendInfo *BackendInfo
	s.Invoke(
		func(sim Simulator) error {
			backendInfo = sim.GetBackendInfo()
			return nil
		})
	return backendInfo
}

func (s *SystemComponents) GetCurrentQueueSize() int {
	var size int
	s.Invoke(
		func(sc Scheduler) {
			size = sc.GetCurrentQueueSize()
		})
	return size
}

func (s *SystemComponents) IsQueueOverRefillThreshold() bool {
	var over bool
	s.Invoke(
		func(sc Scheduler) {
			over = sc.IsOverRefillThreshold()
		})
	return over
}
