//go:build unit
// +build unit

package poller

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/qforge-dev/phase-engine/core"
	"github.com/qforge-dev/phase-engine/estimation"
	"github.com/qforge-dev/phase-engine/sampling"
	"github.com/qforge-dev/phase-engine/sweep"
)

type recordingScheduler struct {
	mu      sync.Mutex
	handled []core.Job
}

func (r *recordingScheduler) Setup(*core.Conf) error { return nil }
func (r *recordingScheduler) Start() error           { return nil }

func (r *recordingScheduler) HandleJob(j core.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handled = append(r.handled, j)
}

func (r *recordingScheduler) GetCurrentQueueSize() int    { return 0 }
func (r *recordingScheduler) IsOverRefillThreshold() bool { return false }

func (r *recordingScheduler) handledJobs() []core.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.Job{}, r.handled...)
}

func setUpPollerTest(t *testing.T) (*recordingScheduler, *core.SystemComponents) {
	rs := &recordingScheduler{}
	s := core.SCWithScheduler(rs)
	_, err := core.NewJobManager(
		&core.NormalJob{},
		&sampling.SamplingJob{},
		&estimation.PhaseEstimationJob{},
		&sweep.SweepJob{},
	)
	assert.Nil(t, err)
	return rs, s
}

func TestSetParams(t *testing.T) {
	p := &Poller{}
	assert.Nil(t, p.SetParams(map[string]interface{}{
		"dir":           "/tmp/jobs",
		"count":         5,
		"normal_period": "5s",
		"idle_period":   "2m",
		"max_retry":     7,
	}))
	assert.Equal(t, "/tmp/jobs", p.Dir)
	assert.Equal(t, 5, p.Count)
	assert.Equal(t, 5*time.Second, p.NormalPeriod)
	assert.Equal(t, 2*time.Minute, p.IdlePeriod)
	assert.Equal(t, 7, p.MaxRetry)
}

func TestSetParamsDefaults(t *testing.T) {
	p := &Poller{}
	assert.Nil(t, p.SetParams(map[string]interface{}{}))
	assert.Equal(t, "", p.Dir)
	assert.Equal(t, DEFAULT_COUNT, p.Count)
	assert.Equal(t, DEFAULT_NORMAL_PERIOD, p.NormalPeriod)
	assert.Equal(t, DEFAULT_IDLE_PERIOD, p.IdlePeriod)
	assert.Equal(t, DEFAULT_MAX_RETRY, p.MaxRetry)

	assert.Nil(t, p.SetParams(nil))
	assert.Error(t, p.SetParams("not a map"))
}

func TestPollerIdleTransitions(t *testing.T) {
	_, s := setUpPollerTest(t)
	defer s.TearDown()

	p := &Poller{Dir: t.TempDir()}
	assert.Nil(t, p.SetParams(map[string]interface{}{"max_retry": 2}))
	p.Dir = t.TempDir()
	assert.Nil(t, p.Setup())
	assert.Equal(t, POLLING, p.state)
	assert.Equal(t, p.NormalPeriod, p.currentPeriod)

	p.Task() // empty dir
	assert.Equal(t, SUB_IDLE, p.state)

	p.Task() // reaches max retry
	assert.Equal(t, IDLE, p.state)
	assert.Equal(t, p.IdlePeriod, p.currentPeriod)

	update, period := p.RequirePeriodUpdate()
	assert.True(t, update)
	assert.Equal(t, p.IdlePeriod, period)

	// a new job spec brings it back to polling
	writeSpecFile(t, p.Dir, "job.toml", `
shots = 100
qasm = "qreg q[1];\nh q[0];\n"
`)
	p.Task()
	assert.Equal(t, POLLING, p.state)
	assert.Equal(t, p.NormalPeriod, p.currentPeriod)
}

func TestPollerSetupWithoutDir(t *testing.T) {
	saved := core.CurrentInfo
	core.CurrentInfo = nil
	defer func() { core.CurrentInfo = saved }()

	p := &Poller{}
	assert.EqualError(t, p.Setup(), "no watch dir for poller")
}

func TestIngestSpecFile(t *testing.T) {
	rs, s := setUpPollerTest(t)
	defer s.TearDown()

	dir := t.TempDir()
	path := writeSpecFile(t, dir, "sampling.toml", `
job_id = "ingest-test"
shots = 100
qasm = "qreg q[1];\ncreg c[1];\nh q[0];\nmeasure q[0] -> c[0];\n"
`)
	assert.True(t, IngestSpecFile(path))

	handled := rs.handledJobs()
	assert.Equal(t, 1, len(handled))
	assert.Equal(t, "ingest-test", handled[0].JobData().ID)
	assert.Equal(t, sampling.SAMPLING_JOB, handled[0].JobType())
	assert.Equal(t, core.READY, handled[0].JobData().Status)

	_, err := os.Stat(path + ".submitted")
	assert.Nil(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestIngestSpecFileBroken(t *testing.T) {
	rs, s := setUpPollerTest(t)
	defer s.TearDown()

	dir := t.TempDir()
	path := writeSpecFile(t, dir, "broken.toml", "shots = }")
	assert.False(t, IngestSpecFile(path))
	assert.Empty(t, rs.handledJobs())
	_, err := os.Stat(path + ".broken")
	assert.Nil(t, err)

	// validation failures are marked as broken too
	path = writeSpecFile(t, dir, "invalid.toml", `
shots = 0
qasm = "qreg q[1];\nh q[0];\n"
`)
	assert.False(t, IngestSpecFile(path))
	_, err = os.Stat(path + ".broken")
	assert.Nil(t, err)
}

func TestListSpecFiles(t *testing.T) {
	dir := t.TempDir()
	writeSpecFile(t, dir, "b.toml", "")
	writeSpecFile(t, dir, "a.toml", "")
	writeSpecFile(t, dir, "c.toml", "")
	writeSpecFile(t, dir, "ignored.txt", "")
	assert.Nil(t, os.Mkdir(filepath.Join(dir, "sub.toml"), 0755))

	paths, err := listSpecFiles(dir, 2)
	assert.Nil(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.toml"),
		filepath.Join(dir, "b.toml"),
	}, paths)

	paths, err = listSpecFiles(dir, 0)
	assert.Nil(t, err)
	assert.Equal(t, 3, len(paths))
}

func TestWatcherIngestsNewSpecs(t *testing.T) {
	rs, s := setUpPollerTest(t)
	defer s.TearDown()

	dir := t.TempDir()
	w := &Watcher{Dir: dir}
	assert.Nil(t, w.Setup())
	assert.Nil(t, w.Start())
	defer w.Cleanup()

	writeSpecFile(t, dir, "watched.toml", `
job_id = "watched-test"
shots = 100
qasm = "qreg q[1];\ncreg c[1];\nh q[0];\nmeasure q[0] -> c[0];\n"
`)
	assert.Eventually(t, func() bool {
		return len(rs.handledJobs()) == 1
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, "watched-test", rs.handledJobs()[0].JobData().ID)
}
