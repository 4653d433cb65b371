package wiring

import "sync"

// taskQueue is an unbounded FIFO of pending tasks. Capacity limits are the
// business of object counters, not of the queue; the queue only orders tasks
// and parks the consuming goroutine when empty.
type taskQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tasks  []func()
	closed bool
}

func newTaskQueue() *taskQueue {
	q := &taskQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends a task. Pushing to a closed queue drops the task and returns
// false.
func (q *taskQueue) push(task func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, task)
	q.cond.Signal()
	return true
}

// pop removes the oldest task, blocking while the queue is empty. It returns
// false once the queue is closed and drained.
func (q *taskQueue) pop() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.tasks) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.tasks) == 0 {
		return nil, false
	}
	task := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	return task, true
}

// close marks the queue closed. Already-enqueued tasks are still popped.
func (q *taskQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// workerPool runs tasks from a shared queue on a fixed number of goroutines.
// Concurrent schedulers submit here.
type workerPool struct {
	queue *taskQueue
	size  int
}

func newWorkerPool(size int) *workerPool {
	if size <= 0 {
		size = 1
	}
	return &workerPool{
		queue: newTaskQueue(),
		size:  size,
	}
}

func (p *workerPool) start(wg *sync.WaitGroup) {
	for i := 0; i < p.size; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				task, ok := p.queue.pop()
				if !ok {
					return
				}
				task()
			}
		}()
	}
}

func (p *workerPool) submit(task func()) bool {
	return p.queue.push(task)
}

func (p *workerPool) stop() {
	p.queue.close()
}
