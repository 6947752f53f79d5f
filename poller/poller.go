package poller

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/qforge-dev/phase-engine/core"
)

type state int

const PollerTaskName = "poller"

const (
	POLLING state = iota
	SUB_IDLE
	IDLE
)

const (
	DEFAULT_COUNT         = 10
	DEFAULT_NORMAL_PERIOD = time.Duration(10) * time.Second
	DEFAULT_IDLE_PERIOD   = time.Duration(60) * time.Second
	DEFAULT_MAX_RETRY     = 3
)

func (s state) String() string {
	switch s {
	case POLLING:
		return "POLLING"
	case SUB_IDLE:
		return "SUB_IDLE"
	case IDLE:
		return "IDLE"
	default:
		return "UNKNOWN"
	}
}

// Poller periodically scans the watch dir for job spec files and
// feeds them to the scheduler. It backs off to the idle period after
// MaxRetry consecutive empty scans.
type Poller struct {
	Dir          string        `toml:"dir"`
	Count        int           `toml:"count"`
	NormalPeriod time.Duration `toml:"normal_period"`
	IdlePeriod   time.Duration `toml:"idle_period"`
	MaxRetry     int           `toml:"max_retry"`

	currentPeriod time.Duration
	noJobsCount   int
	state         state

	sysCom *core.SystemComponents
}

func (p *Poller) GetEmptyParams() interface{} {
	return &Poller{}
}

func (p *Poller) SetParams(params interface{}) error {
	if params == nil {
		zap.L().Debug("no params for poller")
		return nil
	}
	pp, ok := params.(map[string]interface{})
	if !ok {
		msg := fmt.Errorf("failed to set params for poller/params: %s", params)
		zap.L().Error(msg.Error())
		return msg
	}
	zap.L().Debug(fmt.Sprintf("Set params for poller: %v", pp))
	setField[string]("dir", &p.Dir, pp, "")
	setField[int]("count", &p.Count, pp, DEFAULT_COUNT)
	setField[int]("max_retry", &p.MaxRetry, pp, DEFAULT_MAX_RETRY)
	setDurationField("normal_period", &p.NormalPeriod, pp, DEFAULT_NORMAL_PERIOD)
	setDurationField("idle_period", &p.IdlePeriod, pp, DEFAULT_IDLE_PERIOD)
	return nil
}

func setField[T string | int | bool](key string, target *T, pp map[string]interface{}, defaultVal T) {
	if v, ok := pp[key]; ok && !reflect.ValueOf(v).IsZero() {
		*target = v.(T)
		return
	}
	zap.L().Debug(fmt.Sprintf("Set default value for %s: %v", key, defaultVal))
	*target = defaultVal
}

func setDurationField(key string, target *time.Duration, pp map[string]interface{}, defaultVal time.Duration) {
	if v, ok := pp[key]; ok && !reflect.ValueOf(v).IsZero() {
		dur, err := time.ParseDuration(v.(string))
		if err != nil {
			zap.L().Error(fmt.Sprintf("failed to parse duration for %s/reason:%s", key, err))
		}
		*target = dur
		return
	}
	zap.L().Debug(fmt.Sprintf("Set default value for %s: %v", key, defaultVal))
	*target = defaultVal
}

func (p *Poller) RequirePeriodUpdate() (bool, time.Duration) {
	return true, p.currentPeriod
}

func (p *Poller) Setup() error {
	if p.Dir == "" && core.CurrentInfo != nil {
		p.Dir = core.CurrentInfo.Conf.WatchDir
	}
	if p.Dir == "" {
		return fmt.Errorf("no watch dir for poller")
	}
	if err := os.MkdirAll(p.Dir, 0755); err != nil {
		zap.L().Error(fmt.Sprintf("failed to create watch dir %s/reason:%s", p.Dir, err))
		return err
	}
	zap.L().Info(fmt.Sprintf("Polling job specs in %s", p.Dir))
	p.currentPeriod = p.NormalPeriod
	p.noJobsCount = 0
	p.state = POLLING
	p.sysCom = core.GetSystemComponents()
	return nil
}

func (p *Poller) Task() {
	zap.L().Debug("Poller is getting jobs")
	jobsNum, err := p.getJobs()
	if err != nil || jobsNum == 0 {
		if err != nil {
			zap.L().Info(fmt.Sprintf("Failed to get jobs. NoJobsCount:%d, Reason:%s",
				p.noJobsCount, err))
		} else {
			zap.L().Debug(fmt.Sprintf("Get no jobs. NoJobsCount:%d", p.noJobsCount))
		}
		switch p.state {
		case POLLING:
			p.noJobsCount = 1
			p.updateState(SUB_IDLE)
			zap.L().Debug(fmt.Sprintf("Transition to sub idle mode. Retry after %s", p.NormalPeriod))
			return
		case SUB_IDLE:
			p.noJobsCount++
			if p.noJobsCount < p.MaxRetry {
				zap.L().Debug(fmt.Sprintf("Retry after %s", p.NormalPeriod))
			} else {
				zap.L().Info("Reached max retry. Transition to idle mode")
				p.noJobsCount = 0
				p.updateState(IDLE)
				p.currentPeriod = p.IdlePeriod
			}
		case IDLE:
			zap.L().Debug(fmt.Sprintf("Already in idle mode. Retry after idle period %s", p.IdlePeriod))
		default:
			zap.L().Error(fmt.Sprintf("Unknown state %d", int(p.state)))
		}
	} else { // got jobs
		switch p.state {
		case POLLING:
			zap.L().Debug("keep polling")
		case SUB_IDLE:
			zap.L().Info("Transition to polling mode from sub_idle state")
			p.updateState(POLLING)
			p.noJobsCount = 0
		case IDLE:
			zap.L().Info("Transition to polling mode from idle state")
			p.currentPeriod = p.NormalPeriod
			p.updateState(POLLING)
			p.noJobsCount = 0
		default:
			zap.L().Error(fmt.Sprintf("Unknown state %d", int(p.state)))
		}
	}
}

func (p *Poller) Cleanup() {
	zap.L().Info("Poller is cleaning up")
}

func (p *Poller) updateState(next state) {
	zap.L().Debug(fmt.Sprintf("Poller state %s -> %s", p.state, next))
	p.state = next
}

func (p *Poller) getJobs() (int, error) {
	if err := passPollingCondition(); err != nil {
		zap.L().Info(fmt.Sprintf("not get jobs. reason:%s", err))
		return 0, nil
	}
	paths, err := listSpecFiles(p.Dir, p.Count)
	if err != nil {
		zap.L().Error(fmt.Sprintf("Failed to scan %s. Reason:%s", p.Dir, err))
		return 0, err
	}
	handled := 0
	for _, path := range paths {
		if IngestSpecFile(path) {
			handled++
		}
	}
	return handled, nil
}

func passPollingCondition() error {
	s := core.GetSystemComponents()
	if s == nil {
		return fmt.Errorf("system components is not initialized")
	}
	if s.IsQueueOverRefillThreshold() {
		return fmt.Errorf("queue is over the refill threshold(size:%d)", s.GetCurrentQueueSize())
	}
	return nil
}

func listSpecFiles(dir string, limit int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	paths := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".toml") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	if limit > 0 && len(paths) > limit {
		paths = paths[:limit]
	}
	return paths, nil
}

// IngestSpecFile submits one job spec file to the scheduler. The file
// is renamed afterwards so a scan never picks it up twice. Broken
// specs are renamed too, with the reason logged.
func IngestSpecFile(path string) bool {
	spec, err := ReadJobSpec(path)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to read a job spec(%s). Reason:%s", path, err))
		markSpecFile(path, ".broken")
		return false
	}
	param, err := spec.ToJobParam(filepath.Dir(path))
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to resolve a job spec(%s). Reason:%s", path, err))
		markSpecFile(path, ".broken")
		return false
	}
	jc, err := core.NewJobContext()
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to create a job context. Reason:%s", err))
		return false
	}
	job, err := core.GetJobManager().NewJobWithValidation(param, jc)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to create a job from a spec(%s). Reason:%s", path, err))
		markSpecFile(path, ".broken")
		return false
	}
	job.JobData().Status = core.READY
	markSpecFile(path, ".submitted")
	zap.L().Info(fmt.Sprintf("submitting a job(%s) of type %s from %s",
		param.JobID, param.JobType, path))
	core.GetSystemComponents().Invoke(
		func(s core.Scheduler) error {
			s.HandleJob(job)
			return nil
		})
	return true
}

func markSpecFile(path, suffix string) {
	if err := os.Rename(path, path+suffix); err != nil {
		zap.L().Error(fmt.Sprintf("failed to rename a job spec(%s). Reason:%s", path, err))
	}
}
