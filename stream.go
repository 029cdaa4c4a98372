package graphkv

import (
	"context"
	"fmt"
	log "log/slog"
	"sync"
)

// Stream is a single-shot asynchronous result: it emits exactly one terminal event, a value
// or an error, then closes. The underlying operation starts on the first Subscribe, Wait or Done
// call and runs at most once.
//
// Subscribers and pending Wait calls are the stream's consumers. The operation is canceled when
// the last consumer detaches before the terminal event; consumers attached later then observe
// the cancellation error.
type Stream[T any] struct {
	run    func(ctx context.Context) (T, error)
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
	value  T
	err    error

	mu        sync.Mutex
	consumers int
}

// NewStream wraps run into a Stream. run receives a context derived from ctx that is
// canceled when the last consumer detaches or once run returned.
func NewStream[T any](ctx context.Context, run func(ctx context.Context) (T, error)) *Stream[T] {
	ctx, cancel := context.WithCancel(ctx)
	return &Stream[T]{
		run:    run,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// FailedStream returns a Stream whose terminal event is err.
func FailedStream[T any](err error) *Stream[T] {
	return NewStream(context.Background(), func(context.Context) (T, error) {
		var zero T
		return zero, err
	})
}

func (s *Stream[T]) start() {
	s.once.Do(func() {
		go func() {
			defer s.cancel()
			defer close(s.done)
			// A panicking operation fails the stream instead of the process.
			defer func() {
				if r := recover(); r != nil {
					log.Error("stream operation panicked", "panic", fmt.Sprint(r))
					var zero T
					s.value, s.err = zero, fmt.Errorf("stream operation panicked: %v", r)
				}
			}()
			s.value, s.err = s.run(s.ctx)
		}()
	})
}

func (s *Stream[T]) attach() {
	s.mu.Lock()
	s.consumers++
	s.mu.Unlock()
}

func (s *Stream[T]) detach() {
	s.mu.Lock()
	s.consumers--
	last := s.consumers == 0
	s.mu.Unlock()
	if last {
		s.cancel()
	}
}

// Done returns a channel closed after the terminal event.
func (s *Stream[T]) Done() <-chan struct{} {
	s.start()
	return s.done
}

// Wait blocks until the terminal event or until ctx is done. Giving up on ctx detaches the caller.
func (s *Stream[T]) Wait(ctx context.Context) (T, error) {
	s.attach()
	defer s.detach()
	s.start()
	select {
	case <-s.done:
		return s.value, s.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Subscribe registers the callbacks of the terminal event: onNext on success, onError on failure.
// Exactly one of them is invoked, on a separate goroutine, unless the subscription is disposed first.
// Either callback may be nil.
func (s *Stream[T]) Subscribe(onNext func(T), onError func(error)) *Subscription {
	s.attach()
	sub := &Subscription{
		disposed: make(chan struct{}),
		detach:   s.detach,
	}
	s.start()
	go func() {
		select {
		case <-sub.disposed:
			return
		case <-s.done:
		}
		// Both may be ready, detachment wins.
		select {
		case <-sub.disposed:
			return
		default:
		}
		if s.err != nil {
			if onError != nil {
				onError(s.err)
			}
			return
		}
		if onNext != nil {
			onNext(s.value)
		}
	}()
	return sub
}

// Subscription is the handle of a Subscribe call.
type Subscription struct {
	once     sync.Once
	disposed chan struct{}
	detach   func()
}

// Dispose detaches the subscriber. The pending operation is canceled when no other consumer
// remains. It is safe to call more than once and after the terminal event.
func (sub *Subscription) Dispose() {
	if sub == nil {
		return
	}
	sub.once.Do(func() {
		close(sub.disposed)
		sub.detach()
	})
}
