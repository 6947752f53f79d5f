package scheduler

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/qforge-dev/phase-engine/core"
)

type statusHistory map[string][]core.Status

// NormalScheduler serializes job execution: handlers run the pre and
// post phases concurrently, but Process calls go through a single
// queue consumer so the backend sees one circuit at a time.
type NormalScheduler struct {
	queue         *NormalQueue
	statusHistory statusHistory
	mu            sync.Mutex
}

type jobInScheduler struct {
	job      core.Job
	finished *sync.WaitGroup
}

func (n *NormalScheduler) Setup(conf *core.Conf) error {
	n.queue = &NormalQueue{}
	if err := n.queue.Setup(conf); err != nil {
		return err
	}
	n.statusHistory = make(statusHistory)
	return nil
}

func (n *NormalScheduler) Start() error {
	go func() {
		for {
			zap.L().Debug("checking the queue...")
			jis, err := n.queue.Dequeue(true)
			if err != nil {
				zap.L().Error(fmt.Sprintf("failed to get a job from queue. Reason:%s", err))
				continue
			}
			jid := jis.job.JobData().ID
			zap.L().Debug(fmt.Sprintf("processing job:%s", jid))
			st := core.RUNNING
			n.appendHistory(jid, st)
			jis.job.JobData().Status = st
			jis.job.JobContext().DBChan <- jis.job.Clone()
			n.process(jis)
			zap.L().Debug(fmt.Sprintf("finished to process job(%s), status:%s", jid, jis.job.JobData().Status))
			jis.finished.Done()
		}
	}()
	return nil
}

// process shields the consumer loop from panicking jobs.
func (n *NormalScheduler) process(jis *jobInScheduler) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error(fmt.Sprintf("recovered from panic in job(%s): %v",
				jis.job.JobData().ID, r))
			jis.job.JobData().Status = core.FAILED
		}
	}()
	jis.job.Process()
}

func (n *NormalScheduler) HandleJob(j core.Job) {
	zap.L().Debug(fmt.Sprintf("starting to handle job(%s) in %s", j.JobData().ID, j.JobData().Status))
	go func() {
		defer func() {
			n.mu.Lock()
			zap.L().Debug(fmt.Sprintf("status history job(%s): %v", j.JobData().ID, n.statusHistory[j.JobData().ID]))
			delete(n.statusHistory, j.JobData().ID)
			n.mu.Unlock()
		}()
		n.handleImpl(j)
	}()
}

func (n *NormalScheduler) HandleJobForTest(j core.Job, wg *sync.WaitGroup) {
	go func() {
		defer wg.Done()
		n.handleImpl(j)
	}()
}

func (n *NormalScheduler) handleImpl(j core.Job) {
	jid := j.JobData().ID
	st := j.JobData().Status // must be ready
	n.appendHistory(jid, st)
	if st != core.READY {
		zap.L().Error(
			fmt.Sprintf("finished to handle job(%s) with unexpected status:%s", jid, st.String()))
		// not write to DB
		return
	}
	zap.L().Debug(fmt.Sprintf("handling job(%s). start pre-processing", jid))
	j.PreProcess()
	j.JobContext().DBChan <- j.Clone()
	if j.IsFinished() {
		zap.L().Debug(fmt.Sprintf("finished to handle job(%s) after pre-processing", jid))
		n.appendHistory(jid, j.JobData().Status)
		reportFinished(j)
		return
	}
	var wg sync.WaitGroup
	wg.Add(1)
	jis := &jobInScheduler{
		job:      j,
		finished: &wg,
	}
	n.queue.queueChan <- jis
	wg.Wait() // wait for processing
	zap.L().Debug(fmt.Sprintf("Processed Job Status: %s", j.JobData().Status))
	if j.IsFinished() {
		zap.L().Debug(fmt.Sprintf("finished to handle job(%s) after processing with status:%s",
			jid, j.JobData().Status.String()))
		n.appendHistory(jid, j.JobData().Status)
		j.JobContext().DBChan <- j.Clone()
		reportFinished(j)
		return
	}
	zap.L().Debug(fmt.Sprintf("handling job(%s). start post-processing", jid))
	j.PostProcess()
	zap.L().Debug(fmt.Sprintf("finished to handle job(%s) after post-processing with status:%s",
		jid, j.JobData().Status.String()))
	n.appendHistory(jid, j.JobData().Status)
	j.JobContext().DBChan <- j.Clone()
	reportFinished(j)
}

func reportFinished(j core.Job) {
	err := core.GetSystemComponents().Invoke(
		func(r core.Reporter) error {
			return r.Report(j)
		})
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to report job(%s). Reason:%s", j.JobData().ID, err))
	}
}

func (n *NormalScheduler) appendHistory(jobID string, st core.Status) {
	n.mu.Lock()
	n.statusHistory[jobID] = append(n.statusHistory[jobID], st)
	n.mu.Unlock()
}

func (n *NormalScheduler) GetCurrentQueueSize() int {
	return n.queue.fifo.GetLen()
}

func (n *NormalScheduler) IsOverRefillThreshold() bool {
	return n.queue.refillThreshold <= n.queue.fifo.GetLen()
}
