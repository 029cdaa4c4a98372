package guard

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"

	"github.com/sharedcode/graphkv"
)

// ErrWriteRejected is the per-key error of writes the policy did not allow.
var ErrWriteRejected = errors.New("write rejected by policy")

// Store forwards to an inner store, dropping the writes its policy rejects.
type Store struct {
	inner     graphkv.Store
	evaluator *Evaluator
}

// New returns a Store allowing only the pairs expression evaluates true for.
func New(inner graphkv.Store, expression string) (*Store, error) {
	if inner == nil {
		return nil, graphkv.ErrNilStore
	}
	e, err := NewEvaluator(expression)
	if err != nil {
		return nil, err
	}
	return &Store{
		inner:     inner,
		evaluator: e,
	}, nil
}

// MultiGet passes through to the inner store.
func (s *Store) MultiGet(ctx context.Context, keys []string) ([]graphkv.Item, error) {
	return s.inner.MultiGet(ctx, keys)
}

// MultiSet writes the allowed items to the inner store. Rejected items, and items the policy failed
// to evaluate, are reported as graphkv.KeyFailures together with the inner store's failures.
func (s *Store) MultiSet(ctx context.Context, items []graphkv.Item) error {
	allowed := make([]graphkv.Item, 0, len(items))
	var failures graphkv.KeyFailures
	for _, item := range items {
		ok, err := s.evaluator.Evaluate(item.Key, item.Value)
		switch {
		case err != nil:
			failures = append(failures, graphkv.KeyFailure{Key: item.Key, Err: fmt.Errorf("%w: %w", ErrWriteRejected, err)})
		case !ok:
			log.Debug("write rejected by policy", "key", item.Key)
			failures = append(failures, graphkv.KeyFailure{Key: item.Key, Err: ErrWriteRejected})
		default:
			allowed = append(allowed, item)
		}
	}
	if len(allowed) > 0 {
		failures = append(failures, graphkv.FailuresOf(s.inner.MultiSet(ctx, allowed), allowed)...)
	}
	if len(failures) > 0 {
		return failures
	}
	return nil
}

// Close closes the inner store if it holds resources.
func (s *Store) Close() error {
	if c, ok := s.inner.(graphkv.CloseableStore); ok {
		return c.Close()
	}
	return nil
}
