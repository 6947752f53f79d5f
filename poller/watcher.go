package poller

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/qforge-dev/phase-engine/core"
)

const WatcherServerName = "watcher"

// debounce window per file, writers rarely deliver a spec in one event
const settleDelay = 100 * time.Millisecond

// Watcher reacts to job spec files the moment they land in the watch
// dir. The periodic Poller remains the safety net for files written
// while the watcher was down.
type Watcher struct {
	Dir string `toml:"dir"`

	watcher  *fsnotify.Watcher
	doneChan chan struct{}
	pending  map[string]*time.Timer
	mu       sync.Mutex
}

func (w *Watcher) GetEmptyParams() interface{} {
	return &Watcher{}
}

func (w *Watcher) SetParams(params interface{}) error {
	if params == nil {
		zap.L().Debug("no params for watcher")
		return nil
	}
	pp, ok := params.(map[string]interface{})
	if !ok {
		msg := fmt.Errorf("failed to set params for watcher/params: %s", params)
		zap.L().Error(msg.Error())
		return msg
	}
	setField[string]("dir", &w.Dir, pp, "")
	return nil
}

func (w *Watcher) Setup() error {
	if w.Dir == "" && core.CurrentInfo != nil {
		w.Dir = core.CurrentInfo.Conf.WatchDir
	}
	if w.Dir == "" {
		return fmt.Errorf("no watch dir for watcher")
	}
	w.doneChan = make(chan struct{})
	w.pending = make(map[string]*time.Timer)
	return nil
}

func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to create a file watcher. Reason:%s", err))
		return err
	}
	if err := watcher.Add(w.Dir); err != nil {
		watcher.Close()
		zap.L().Error(fmt.Sprintf("failed to watch %s. Reason:%s", w.Dir, err))
		return err
	}
	w.watcher = watcher
	zap.L().Info(fmt.Sprintf("Watching job specs in %s", w.Dir))
	go w.loop()
	return nil
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.doneChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !strings.HasSuffix(event.Name, ".toml") {
				continue
			}
			w.scheduleIngest(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			zap.L().Error(fmt.Sprintf("file watcher error: %s", err))
		}
	}
}

// scheduleIngest delays the ingest a little and resets the delay on
// every further write, so a file is only picked up once it is settled.
func (w *Watcher) scheduleIngest(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(settleDelay)
		return
	}
	w.pending[path] = time.AfterFunc(settleDelay, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		IngestSpecFile(path)
	})
}

func (w *Watcher) Cleanup() {
	close(w.doneChan)
	if w.watcher != nil {
		if err := w.watcher.Close(); err != nil {
			zap.L().Error(fmt.Sprintf("failed to close the file watcher. Reason:%s", err))
		}
	}
	w.mu.Lock()
	for _, t := range w.pending {
		t.Stop()
	}
	w.mu.Unlock()
	zap.L().Info("Watcher is cleaned up")
}

func (w *Watcher) Handle(j core.Job) error {
	core.GetSystemComponents().Invoke(
		func(s core.Scheduler) error {
			s.HandleJob(j)
			return nil
		})
	return nil
}
