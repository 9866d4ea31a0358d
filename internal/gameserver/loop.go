package gameserver

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultQueueSize is the per-category event buffer when none is configured.
const DefaultQueueSize = 64

var (
	// ErrLoopStopped is returned for events submitted after Stop.
	ErrLoopStopped = errors.New("event loop stopped")
	// ErrLoopBusy is returned by Post when the category's queue is full.
	ErrLoopBusy = errors.New("event loop busy")
)

// Handler handles one event.
type Handler interface {
	Handle(ctx context.Context, ev Event) (Outcome, error)
}

// Result is the outcome of one enqueued event.
type Result struct {
	Outcome Outcome
	Err     error
}

type job struct {
	id    uuid.UUID
	ctx   context.Context
	ev    Event
	reply chan Result
}

// Loop feeds events to a Handler with one worker per Category: events of a
// category are handled one at a time in arrival order while different
// categories proceed concurrently.
type Loop struct {
	handler Handler
	queues  [categoryCount]chan job
	logger  *zap.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
	// base carries posted events and is cancelled by Stop.
	base       context.Context
	cancelBase context.CancelFunc
}

// NewLoop creates a stopped Loop.
//
// Precondition: handler and logger must be non-nil. queueSize <= 0 selects
// DefaultQueueSize.
func NewLoop(handler Handler, queueSize int, logger *zap.Logger) *Loop {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	base, cancel := context.WithCancel(context.Background())
	l := &Loop{
		handler:    handler,
		logger:     logger,
		done:       make(chan struct{}),
		base:       base,
		cancelBase: cancel,
	}
	for i := range l.queues {
		l.queues[i] = make(chan job, queueSize)
	}
	return l
}

// Start launches one worker per category. Workers exit on Stop or when ctx
// is cancelled. Calling Start more than once has no effect.
func (l *Loop) Start(ctx context.Context) {
	l.startOnce.Do(func() {
		for i := range l.queues {
			l.wg.Add(1)
			go l.run(ctx, Category(i), l.queues[i])
		}
	})
}

// Stop stops the workers and waits for the event in progress, if any.
// Queued events are dropped; their submitters receive ErrLoopStopped.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.done)
		l.cancelBase()
	})
	l.wg.Wait()
}

// Enqueue adds ev to its category's queue, blocking while the queue is full,
// and returns the channel its Result will be delivered on. Events enqueued
// by one goroutine are handled in enqueue order within a category.
//
// Postcondition: Returns ErrLoopStopped after Stop, or ctx.Err() if ctx
// ends before ev is queued. The channel is buffered and receives at most
// one Result; none is sent if the loop stops first.
func (l *Loop) Enqueue(ctx context.Context, ev Event) (<-chan Result, error) {
	j := job{id: uuid.New(), ctx: ctx, ev: ev, reply: make(chan Result, 1)}
	if err := l.enqueue(ctx, j); err != nil {
		return nil, err
	}
	return j.reply, nil
}

// Submit enqueues ev and waits for its outcome.
//
// Postcondition: Returns ErrLoopStopped after Stop, or ctx.Err() if ctx
// ends first.
func (l *Loop) Submit(ctx context.Context, ev Event) (Outcome, error) {
	reply, err := l.Enqueue(ctx, ev)
	if err != nil {
		return Outcome{}, err
	}
	select {
	case r := <-reply:
		return r.Outcome, r.Err
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	case <-l.done:
		return Outcome{}, ErrLoopStopped
	}
}

// Post enqueues ev without waiting. It never blocks.
//
// Postcondition: Returns ErrLoopBusy when the category's queue is full,
// ErrLoopStopped after Stop.
func (l *Loop) Post(ev Event) error {
	select {
	case <-l.done:
		return ErrLoopStopped
	default:
	}
	j := job{id: uuid.New(), ctx: l.base, ev: ev}
	select {
	case l.queue(ev) <- j:
		return nil
	default:
		return ErrLoopBusy
	}
}

func (l *Loop) queue(ev Event) chan job {
	c := ev.Category()
	if c >= categoryCount {
		c = CategoryServer
	}
	return l.queues[c]
}

func (l *Loop) enqueue(ctx context.Context, j job) error {
	select {
	case <-l.done:
		return ErrLoopStopped
	default:
	}
	select {
	case l.queue(j.ev) <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopStopped
	}
}

func (l *Loop) run(ctx context.Context, cat Category, q <-chan job) {
	defer l.wg.Done()
	defer l.logger.Debug("event worker stopped", zap.Stringer("category", cat))
	for {
		select {
		case <-l.done:
			return
		case <-ctx.Done():
			return
		case j := <-q:
			l.handle(j)
		}
	}
}

func (l *Loop) handle(j job) {
	if j.ctx.Err() != nil {
		if j.reply != nil {
			j.reply <- Result{Err: j.ctx.Err()}
		}
		return
	}

	out, err := l.handler.Handle(j.ctx, j.ev)
	if err != nil {
		l.logger.Error("event failed",
			zap.String("event_id", j.id.String()),
			zap.String("event", j.ev.Name()),
			zap.Error(err),
		)
	} else {
		l.logger.Debug("event handled",
			zap.String("event_id", j.id.String()),
			zap.String("event", j.ev.Name()),
		)
	}
	if j.reply != nil {
		j.reply <- Result{Outcome: out, Err: err}
	}
}
