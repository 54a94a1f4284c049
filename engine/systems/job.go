package systems

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/anima-core/engine/core"
	"github.com/spaghettifunk/anima-core/engine/renderer/metadata"
)

type JobSystem struct {
	numWorkers int
	jobQueue   chan metadata.JobTask
	wg         sync.WaitGroup
	closeOnce  sync.Once

	// guards sends against the close of jobQueue
	mutex  sync.RWMutex
	closed bool
}

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")
var ErrJobSystemShutdown = fmt.Errorf("job submitted after the job system was shut down")

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	jq := make(chan metadata.JobTask, channelSize)
	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   jq,
	}

	js.start()

	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				js.run(job)
			}
		}()
	}
}

func (js *JobSystem) run(job metadata.JobTask) {
	if job.OnCompletionCallback != nil {
		defer job.OnCompletionCallback()
	}
	if job.OnStart == nil {
		core.LogError("job submitted without an entry point")
		return
	}
	result, err := job.OnStart(job.InputParams)
	if err != nil {
		core.LogError(err.Error())
		if job.OnFailure != nil {
			job.OnFailure(err)
		}
		return
	}
	if job.OnComplete != nil {
		job.OnComplete(result)
	}
}

// Workers returns the number of worker goroutines.
func (js *JobSystem) Workers() int {
	return js.numWorkers
}

/**
 * @brief Shuts the job system down. Queued jobs are drained first.
 */
func (js *JobSystem) Shutdown() error {
	js.closeOnce.Do(func() {
		js.mutex.Lock()
		js.closed = true
		close(js.jobQueue)
		js.mutex.Unlock()
	})
	js.wg.Wait()
	return nil
}

// AddWorkNonBlocking adds work to the queue and returns immediately
func (js *JobSystem) AddWorkNonBlocking(jt metadata.JobTask) {
	go func() {
		_ = js.Submit(jt)
	}()
}

/**
 * @brief Submits the provided job to be queued for execution. After Shutdown the
 * job is rejected: its failure and completion callbacks run on the caller's goroutine.
 * @param jt The description of the job to be executed.
 */
func (js *JobSystem) Submit(jt metadata.JobTask) error {
	js.mutex.RLock()
	if !js.closed {
		js.jobQueue <- jt
		js.mutex.RUnlock()
		return nil
	}
	js.mutex.RUnlock()

	core.LogError(ErrJobSystemShutdown.Error())
	if jt.OnFailure != nil {
		jt.OnFailure(ErrJobSystemShutdown)
	}
	if jt.OnCompletionCallback != nil {
		jt.OnCompletionCallback()
	}
	return ErrJobSystemShutdown
}

// SubmitAndWait queues every task and blocks until all of them have run.
func (js *JobSystem) SubmitAndWait(tasks []metadata.JobTask) {
	var wg sync.WaitGroup
	wg.Add(len(tasks))
	for _, t := range tasks {
		done := t.OnCompletionCallback
		t.OnCompletionCallback = func() {
			if done != nil {
				done()
			}
			wg.Done()
		}
		_ = js.Submit(t)
	}
	wg.Wait()
}
