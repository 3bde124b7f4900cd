package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vitwit/walletkit/types"
)

// ChannelSource is an in-process EventSource. Events published to it are
// delivered one at a time, in order, by Run.
type ChannelSource struct {
	events chan types.Event

	mu       sync.RWMutex
	handlers map[types.EventKind]Handler
}

func NewChannelSource(buffer int) *ChannelSource {
	return &ChannelSource{
		events:   make(chan types.Event, buffer),
		handlers: make(map[types.EventKind]Handler),
	}
}

// On registers h for kind, replacing any earlier handler.
func (s *ChannelSource) On(kind types.EventKind, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[kind] = h
}

// Publish queues ev for delivery.
func (s *ChannelSource) Publish(ctx context.Context, ev types.Event) error {
	select {
	case s.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run delivers events until ctx is done.
func (s *ChannelSource) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.events:
			s.deliver(ctx, ev)
		}
	}
}

func (s *ChannelSource) deliver(ctx context.Context, ev types.Event) {
	s.mu.RLock()
	h, ok := s.handlers[ev.Kind]
	s.mu.RUnlock()
	if ok && h != nil {
		h(ctx, ev)
	}
}

// ChanRunner is a WorkflowRunner that queues workflows on a channel for a
// UI layer to consume.
type ChanRunner struct {
	ch chan Workflow
}

func NewChanRunner(buffer int) *ChanRunner {
	return &ChanRunner{ch: make(chan Workflow, buffer)}
}

// Submit queues wf without blocking. It fails with ErrRunnerFull when the
// queue has no room.
func (r *ChanRunner) Submit(ctx context.Context, wf Workflow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case r.ch <- wf:
		return nil
	default:
		return ErrRunnerFull
	}
}

// Workflows is the queue of submitted workflows.
func (r *ChanRunner) Workflows() <-chan Workflow {
	return r.ch
}

// Serve initializes the manager on source and runs the source loop next to
// the expiry sweeper until ctx is done. Open workflows are cancelled on
// the way out.
func (m *Manager) Serve(ctx context.Context, source RunnableSource) error {
	if err := m.Init(ctx, source); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return source.Run(gctx)
	})
	g.Go(func() error {
		return m.sweepLoop(gctx)
	})
	err := g.Wait()

	if cerr := m.CancelAll(context.WithoutCancel(ctx)); cerr != nil {
		m.logger.Error("failed to cancel open workflows", map[string]any{"error": cerr})
	}
	m.logger.Info("event manager stopped", nil)

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (m *Manager) sweepLoop(ctx context.Context) error {
	if m.sweepInterval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := m.Sweep(ctx); n > 0 {
				m.logger.Info("expired workflows cancelled", map[string]any{"count": n})
			}
		}
	}
}
