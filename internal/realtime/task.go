package realtime

import (
	"log/slog"
	"sync"
)

type (
	// TaskRunner executes queued client tasks sequentially. Every state
	// transition of a Client runs on its TaskRunner goroutine
	TaskRunner struct {
		queue   []Task
		wake    chan struct{}
		started sync.Once
		runWG   sync.WaitGroup
		mu      sync.Mutex
		closed  bool
	}

	Task func()
)

// NewTaskRunner creates a new task runner
func NewTaskRunner() *TaskRunner {
	return &TaskRunner{
		wake: make(chan struct{}, 1),
	}
}

// Start begins processing queued tasks
func (t *TaskRunner) Start() {
	t.started.Do(func() {
		t.runWG.Go(t.run)
	})
}

// Enqueue adds a task to the queue. Returns false once Flush has been
// called, in which case the task is discarded
func (t *TaskRunner) Enqueue(fn Task) bool {
	if fn == nil {
		return false
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return false
	}
	t.queue = append(t.queue, fn)
	t.mu.Unlock()
	t.notify()
	return true
}

// Flush rejects further tasks, runs every task accepted so far, and stops
// the runner. It must not be called from a task
func (t *TaskRunner) Flush() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.notify()

	t.Start()
	t.runWG.Wait()
}

func (t *TaskRunner) run() {
	for {
		fn, ok := t.next()
		if !ok {
			return
		}
		if fn == nil {
			<-t.wake
			continue
		}
		t.runTask(fn)
	}
}

// next pops the oldest task. It returns a nil task when the queue is empty
// and the runner is still open, and false once it is empty and closed
func (t *TaskRunner) next() (Task, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.queue) == 0 {
		return nil, !t.closed
	}
	fn := t.queue[0]
	t.queue[0] = nil
	t.queue = t.queue[1:]
	return fn, true
}

func (t *TaskRunner) notify() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

func (t *TaskRunner) runTask(fn Task) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Realtime task panic",
				slog.Any("panic", r))
		}
	}()
	fn()
}
