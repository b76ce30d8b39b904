// Package taskqueue serializes every commit-producing operation
// against one database: a single consumer drains a strict FIFO so the
// working tree and Git index are never touched by two goroutines at
// once. Readers bypass the queue entirely.
package taskqueue

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/sosuisen/gitdocdb/internal/kinds"
)

// Task is one unit of serialized work. Run receives a context that is
// canceled cooperatively on queue close or task cancel; Run must
// check ctx at its own suspension points (network, filesystem calls).
type Task struct {
	Label string
	Run   func(ctx context.Context) (any, error)
}

// Future is the handle a caller uses to await a submitted task's result.
type Future struct {
	done chan struct{}
	val  any
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(val any) {
	f.val = val
	close(f.done)
}

func (f *Future) reject(err error) {
	f.err = err
	close(f.done)
}

// Wait blocks until the task completes or ctx is done, whichever
// comes first.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type entry struct {
	task   Task
	future *Future
	cancel context.CancelFunc
	ctx    context.Context
}

// Queue is a single-consumer FIFO serializing tasks for one database.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	pending  *list.List // of *entry
	running  *entry
	closing  bool
	closed   bool
	rootCtx  context.Context
	rootStop context.CancelFunc
}

// New starts a Queue's consumer goroutine and returns the Queue.
func New() *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		pending:  list.New(),
		rootCtx:  ctx,
		rootStop: cancel,
	}
	q.cond = sync.NewCond(&q.mu)
	go q.consume()
	return q
}

// Submit enqueues a task and returns a Future for its result. It
// fails with kinds.Closing if the queue has begun closing.
func (q *Queue) Submit(t Task) (*Future, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closing || q.closed {
		return nil, kinds.New(kinds.Closing, "taskqueue.Submit", nil)
	}

	ctx, cancel := context.WithCancel(q.rootCtx)
	e := &entry{task: t, future: newFuture(), cancel: cancel, ctx: ctx}
	q.pending.PushBack(e)
	q.cond.Signal()
	return e.future, nil
}

func (q *Queue) consume() {
	for {
		q.mu.Lock()
		for q.pending.Len() == 0 && !q.closed {
			q.cond.Wait()
		}
		if q.pending.Len() == 0 && q.closed {
			q.mu.Unlock()
			return
		}
		front := q.pending.Front()
		q.pending.Remove(front)
		e := front.Value.(*entry)
		q.running = e
		q.mu.Unlock()

		val, err := e.task.Run(e.ctx)

		q.mu.Lock()
		q.running = nil
		q.mu.Unlock()

		if err != nil {
			e.future.reject(err)
		} else {
			e.future.resolve(val)
		}
		e.cancel()
	}
}

// Close refuses new submissions and waits up to timeout for the queue
// to drain. If the queue doesn't drain in time: when force is true,
// every pending task is canceled (rejected with kinds.TaskCancel) and
// the queue is stopped immediately; otherwise Close returns a
// kinds.CloseTimeout error and the queue is left intact, still
// processing its backlog.
func (q *Queue) Close(timeout time.Duration, force bool) error {
	q.mu.Lock()
	q.closing = true
	q.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		for {
			q.mu.Lock()
			empty := q.pending.Len() == 0 && q.running == nil
			q.mu.Unlock()
			if empty {
				close(drained)
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}()

	select {
	case <-drained:
		q.stop()
		return nil
	case <-time.After(timeout):
	}

	if !force {
		return kinds.New(kinds.CloseTimeout, "taskqueue.Close", nil)
	}

	q.mu.Lock()
	for e := q.pending.Front(); e != nil; e = e.Next() {
		ent := e.Value.(*entry)
		ent.cancel()
		ent.future.reject(kinds.New(kinds.TaskCancel, "taskqueue.Close", nil))
	}
	q.pending.Init()
	if q.running != nil {
		q.running.cancel()
	}
	q.mu.Unlock()

	q.stop()
	return nil
}

func (q *Queue) stop() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
	q.rootStop()
}

// Len reports the number of tasks currently queued (not counting any
// task in flight).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Len()
}
