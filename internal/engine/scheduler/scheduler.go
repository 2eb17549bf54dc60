// Package scheduler executes the stale target set across a fixed worker
// pool, respecting dependency order and failing fast on the first error.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/edwingeng/deque"
	"github.com/tevino/abool/v2"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

// Item is one unit of work: a stale target and the argv that produces it.
type Item struct {
	Target *domain.Target
	Argv   []string
}

// Result reports what the pool accomplished.
type Result struct {
	// Built lists the targets whose commands succeeded, in completion order.
	Built []domain.InternedString

	// Failed identifies the first failing target; FailedResult carries its
	// captured output. Zero values when the run succeeded.
	Failed       domain.InternedString
	FailedResult *ports.CommandResult
}

// ProgressFunc observes scheduler transitions: done counts finished
// commands, total the size of the stale set.
type ProgressFunc func(done, total int, target string)

// Scheduler owns the worker pool. A single mutex guards the ready queue,
// the per-target predecessor counters, and the result bookkeeping; workers
// block only on the queue's condition variable and on their child process.
type Scheduler struct {
	executor ports.Executor
	logger   ports.Logger

	// OnProgress, when set, is called after every completed command.
	OnProgress ProgressFunc

	remaining atomic.Int64
}

// NewScheduler creates a Scheduler.
func NewScheduler(executor ports.Executor, logger ports.Logger) *Scheduler {
	return &Scheduler{executor: executor, logger: logger}
}

// Remaining publishes the count of stale targets not yet built. The
// driver's progress UI reads it; nothing else writes it.
func (s *Scheduler) Remaining() int64 {
	return s.remaining.Load()
}

// poison is the shutdown sentinel. A worker that dequeues it puts it back
// for its siblings and exits.
type poison struct{}

// runState is the shared state of one Run, guarded by mu.
type runState struct {
	mu    sync.Mutex
	cond  *sync.Cond
	ready deque.Deque

	// pending counts, per stale target, the stale predecessors not yet
	// built. A target enqueues when its count reaches zero.
	pending map[domain.InternedString]int
	items   map[domain.InternedString]*Item

	outstanding int
	done        int
	total       int

	failed   *abool.AtomicBool
	firstErr error
	result   Result
}

// Run executes every item across a pool of the given size. Items may only
// reference each other and already-final targets; the caller passes the
// full stale set with commands attached. Run returns when the pool has
// drained or fail-fast shutdown has completed.
func (s *Scheduler) Run(ctx context.Context, g *domain.Graph, items []*Item, workers int) (*Result, error) {
	if len(items) == 0 {
		return &Result{}, nil
	}
	if workers < 1 {
		workers = 1
	}

	st := s.newRunState(g, items)
	s.remaining.Store(int64(st.outstanding))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.work(ctx, g, st)
		}()
	}
	wg.Wait()

	s.remaining.Store(int64(st.outstanding))
	if st.firstErr != nil {
		return &st.result, st.firstErr
	}
	return &st.result, nil
}

func (s *Scheduler) newRunState(g *domain.Graph, items []*Item) *runState {
	st := &runState{
		ready:   deque.NewDeque(),
		pending: make(map[domain.InternedString]int, len(items)),
		items:   make(map[domain.InternedString]*Item, len(items)),
		failed:  abool.New(),
	}
	st.cond = sync.NewCond(&st.mu)

	for _, item := range items {
		st.items[item.Target.Out] = item
	}

	// A target waits only for predecessors that are themselves stale.
	// Everything else is already final, and a library-cycle back-edge
	// carries no ordering constraint (the linker's multi-pass semantics
	// resolve it), so it must not gate either side of the cycle.
	for _, item := range items {
		count := 0
		for _, dep := range item.Target.Deps() {
			if g.IsCycleEdge(item.Target.Out, dep) {
				continue
			}
			if _, stale := st.items[dep]; stale {
				count++
			}
		}
		st.pending[item.Target.Out] = count
		if count == 0 {
			st.ready.PushBack(item)
		}
	}

	st.outstanding = len(items)
	st.total = len(items)
	return st
}

// work is one worker's loop: dequeue, spawn, account. Workers suspend only
// on the queue and on the child process.
func (s *Scheduler) work(ctx context.Context, g *domain.Graph, st *runState) {
	for {
		item, ok := s.dequeue(st)
		if !ok {
			return
		}

		res, err := s.executor.Run(ctx, item.Argv)
		if err != nil {
			s.fail(st, item, res, err)
			return
		}
		s.complete(g, st, item)
	}
}

// dequeue blocks until work or shutdown. It returns false when the worker
// should exit: the queue drained with nothing outstanding, or the poison
// token surfaced.
func (s *Scheduler) dequeue(st *runState) (*Item, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	for st.ready.Empty() && st.outstanding > 0 {
		st.cond.Wait()
	}

	if st.ready.Empty() {
		// Drained: wake any sibling still waiting.
		st.cond.Broadcast()
		return nil, false
	}

	head := st.ready.Front()
	if _, poisoned := head.(poison); poisoned {
		// Leave the token for the other workers.
		st.cond.Broadcast()
		return nil, false
	}
	st.ready.PopFront()
	return head.(*Item), true
}

// complete finalizes a successful command: the target's rebuilt state
// becomes final before any successor can enqueue.
func (s *Scheduler) complete(g *domain.Graph, st *runState, item *Item) {
	st.mu.Lock()
	defer st.mu.Unlock()

	item.Target.Rebuilt = true
	st.result.Built = append(st.result.Built, item.Target.Out)
	st.outstanding--
	st.done++
	s.remaining.Add(-1)

	if !st.failed.IsSet() {
		for _, consumer := range g.Consumers(item.Target.Out) {
			if _, stale := st.items[consumer]; !stale {
				continue
			}
			st.pending[consumer]--
			if st.pending[consumer] == 0 {
				st.ready.PushBack(st.items[consumer])
				st.cond.Signal()
			}
		}
	}

	if st.outstanding == 0 {
		st.cond.Broadcast()
	}

	if s.OnProgress != nil {
		s.OnProgress(st.done, st.total, item.Target.Out.String())
	}
}

// fail records the first error, injects the poison token, and stops all
// enqueuing. In-flight children of other workers run to completion; no new
// command starts.
func (s *Scheduler) fail(st *runState, item *Item, res *ports.CommandResult, err error) {
	first := st.failed.SetToIf(false, true)

	st.mu.Lock()
	defer st.mu.Unlock()

	if first {
		st.firstErr = zerr.With(err, "target", item.Target.Out.String())
		st.result.Failed = item.Target.Out
		st.result.FailedResult = res
		st.ready.PushFront(poison{})
		st.cond.Broadcast()
		return
	}

	// Later failures are logged but not promoted.
	s.logger.Error(zerr.With(err, "target", item.Target.Out.String()))
}
