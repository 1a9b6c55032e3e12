package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrClosed       = errors.New("dispatcher closed")
	ErrUnknownQueue = errors.New("no handler for queue")
)

type Args map[string]interface{}

type Handler func(ctx context.Context, args Args) error

type Job struct {
	Queue string `json:"queue"`
	Args  Args   `json:"args"`

	ctx    context.Context
	result chan<- error
}

type Worker struct {
	WorkerPool chan chan Job
	JobChannel chan Job
	quit       chan struct{}
}

func NewWorker(workerPool chan chan Job, quit chan struct{}) Worker {
	return Worker{
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		quit:       quit,
	}
}

func (w Worker) Start(d *Dispatcher) {
	go func() {
		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-w.quit:
				return
			}

			select {
			case job := <-w.JobChannel:
				job.result <- d.exec(job)
			case <-w.quit:
				return
			}
		}
	}()
}

// Dispatcher runs jobs on a fixed number of in-process workers. Jobs wait
// for an idle worker.
type Dispatcher struct {
	WorkerPool chan chan Job
	MaxWorkers int

	mu         sync.RWMutex
	queueTasks map[string]Handler
	start      sync.Once
	stop       sync.Once
	quit       chan struct{}
}

func NewDispatcher(maxWorkers int) *Dispatcher {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Dispatcher{
		WorkerPool: make(chan chan Job, maxWorkers),
		MaxWorkers: maxWorkers,
		queueTasks: make(map[string]Handler),
		quit:       make(chan struct{}),
	}
}

func (d *Dispatcher) AddHandler(queue string, fn Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queueTasks[queue] = fn
}

// Run starts the workers. Calling it again has no effect.
func (d *Dispatcher) Run() {
	d.start.Do(func() {
		for i := 0; i < d.MaxWorkers; i++ {
			NewWorker(d.WorkerPool, d.quit).Start(d)
		}
	})
}

// Close stops idle workers. Running jobs finish but their results are
// still delivered.
func (d *Dispatcher) Close() {
	d.stop.Do(func() {
		close(d.quit)
	})
}

// RunBatch executes jobs concurrently and returns one error per job, in
// job order. A job that cannot get a worker before ctx ends reports the
// context error.
func (d *Dispatcher) RunBatch(ctx context.Context, jobs []Job) []error {
	d.Run()

	errs := make([]error, len(jobs))
	var wg sync.WaitGroup
	for i := range jobs {
		wg.Add(1)
		go func(i int, job Job) {
			defer wg.Done()
			errs[i] = d.Do(ctx, job)
		}(i, jobs[i])
	}
	wg.Wait()
	return errs
}

// Do runs one job and waits for its result.
func (d *Dispatcher) Do(ctx context.Context, job Job) error {
	d.Run()

	result := make(chan error, 1)
	job.ctx = ctx
	job.result = result

	// block until a worker is idle
	var jobChannel chan Job
	select {
	case jobChannel = <-d.WorkerPool:
	case <-ctx.Done():
		return ctx.Err()
	case <-d.quit:
		return ErrClosed
	}

	select {
	case jobChannel <- job:
	case <-d.quit:
		return ErrClosed
	}

	return <-result
}

func (d *Dispatcher) exec(job Job) (err error) {
	d.mu.RLock()
	fn, ok := d.queueTasks[job.Queue]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQueue, job.Queue)
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Queue, r)
		}
		if err != nil {
			slog.Debug("job failed", "queue", job.Queue, "err", err.Error(), "took", time.Since(start).String())
		}
	}()

	ctx := job.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, job.Args)
}
