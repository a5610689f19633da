package upload

import "sync"

// queue is an unbounded concurrent FIFO of pending tasks. It guarantees no
// ordering across tasks; item order within a task is carried by the task
// itself.
type queue struct {
	mu    sync.Mutex
	tasks []*Task
}

func newQueue() *queue {
	return &queue{}
}

// offer appends a task to the tail of the queue.
func (q *queue) offer(t *Task) {
	q.mu.Lock()
	q.tasks = append(q.tasks, t)
	q.mu.Unlock()
}

// poll removes and returns the task at the head of the queue, or nil when
// the queue is empty.
func (q *queue) poll() *Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil
	}
	t := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	return t
}

// size returns the current number of queued tasks.
func (q *queue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}
