package execution

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

// Task is one unit of out-of-band work. Name is advisory, for
// diagnostics only.
type Task struct {
	Name string
	Run  func(ctx context.Context)
}

// DispatcherConfig contains configuration for the dispatcher pool
type DispatcherConfig struct {
	Workers    int `json:"workers"`     // Number of concurrent workers
	QueueDepth int `json:"queue_depth"` // Advisory depth before backlog warnings
}

// DefaultDispatcherConfig returns sensible defaults
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Workers:    4,
		QueueDepth: 256,
	}
}

// Dispatcher runs submitted tasks on a bounded pool of workers fed by an
// explicit FIFO queue. Submission never blocks: when all workers are
// busy the task queues.
type Dispatcher struct {
	cfg DispatcherConfig

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Task
	stopped bool
	active  int

	parentCtx context.Context
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	logger    *zap.SugaredLogger
}

// NewDispatcher creates a dispatcher. Callers must call Start before
// submitted tasks execute.
func NewDispatcher(ctx context.Context, cfg DispatcherConfig, logger *zap.SugaredLogger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultDispatcherConfig().Workers
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = DefaultDispatcherConfig().QueueDepth
	}

	workerCtx, cancel := context.WithCancel(ctx)
	d := &Dispatcher{
		cfg:       cfg,
		parentCtx: ctx,
		ctx:       workerCtx,
		cancel:    cancel,
		logger:    logger.Named("dispatch"),
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Start spawns the worker pool
func (d *Dispatcher) Start() {
	d.mu.Lock()
	// Recreate context if Stop() ran before (mirrors restartable pools)
	select {
	case <-d.ctx.Done():
		d.ctx, d.cancel = context.WithCancel(d.parentCtx)
		d.stopped = false
	default:
	}
	d.mu.Unlock()

	if warning := d.checkMemoryPressure(); warning != "" {
		d.logger.Warnw("Memory pressure warning", "warning", warning, "workers", d.cfg.Workers)
	}

	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.logger.Infow("Dispatcher started", "workers", d.cfg.Workers, "queue_depth", d.cfg.QueueDepth)
}

// Submit enqueues a task for asynchronous execution and returns
// immediately. Tasks submitted after Stop are dropped with a warning.
func (d *Dispatcher) Submit(name string, run func(ctx context.Context)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		d.logger.Warnw("Task submitted after dispatcher stop, dropping", "task", name)
		return
	}

	d.queue = append(d.queue, Task{Name: name, Run: run})
	if len(d.queue) > d.cfg.QueueDepth {
		d.logger.Warnw("Dispatcher queue backlog",
			"task", name,
			"queued", len(d.queue),
			"queue_depth", d.cfg.QueueDepth)
	}
	d.cond.Signal()
}

// worker pulls tasks off the queue until shutdown
func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	for {
		task, ok := d.next()
		if !ok {
			return
		}

		d.mu.Lock()
		d.active++
		d.mu.Unlock()

		d.runTask(id, task)

		d.mu.Lock()
		d.active--
		d.mu.Unlock()
	}
}

// runTask executes one task with panic containment. A panicking task
// must never take down a worker; the orchestration layer additionally
// guarantees terminal record state via its own deferred mark.
func (d *Dispatcher) runTask(workerID int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Errorw("Task panicked",
				"worker_id", workerID,
				"task", task.Name,
				"panic", r)
		}
	}()

	task.Run(d.ctx)
}

// next blocks until a task is available or shutdown is requested.
// The second return is false on shutdown.
func (d *Dispatcher) next() (Task, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for len(d.queue) == 0 && !d.stopped {
		d.cond.Wait()
	}

	if d.stopped && len(d.queue) == 0 {
		return Task{}, false
	}

	task := d.queue[0]
	d.queue = d.queue[1:]
	return task, true
}

// Stop cancels in-flight task contexts, lets workers drain the queue,
// and waits for them to exit. Uses a generous timeout so a wedged runner
// does not block shutdown indefinitely.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	d.cancel()
	d.cond.Broadcast()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	timeout := 30 * time.Second
	select {
	case <-done:
		d.logger.Infow("Dispatcher stopped, all workers exited")
	case <-time.After(timeout):
		d.logger.Warnw("Dispatcher stop timeout, workers may still be finishing", "timeout", timeout)
	}
}

// QueueLen returns the number of tasks waiting for a worker
func (d *Dispatcher) QueueLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// ActiveWorkers returns the number of workers currently executing tasks
func (d *Dispatcher) ActiveWorkers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Workers returns the configured pool size
func (d *Dispatcher) Workers() int {
	return d.cfg.Workers
}

// checkMemoryPressure validates worker count against available memory.
// Returns a warning message if the pool may be oversized for the host,
// empty string if OK. Runner capabilities (browsers, containerized
// builds) are memory-hungry, so this is advisory only.
func (d *Dispatcher) checkMemoryPressure() string {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return ""
	}

	const memoryPerWorkerGB = 2.0
	availableGB := float64(vm.Available) / 1024 / 1024 / 1024
	neededGB := float64(d.cfg.Workers) * memoryPerWorkerGB

	if availableGB < neededGB {
		return "available memory may be too low for configured worker count"
	}
	return ""
}
