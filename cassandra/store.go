package cassandra

import (
	"context"
	"fmt"
	"strings"

	"github.com/gocql/gocql"

	"github.com/sharedcode/graphkv"
)

func init() {
	graphkv.RegisterStoreFactory(graphkv.Cassandra, func(opts graphkv.Options) (graphkv.Store, error) {
		if _, err := OpenConnection(ConfigFromOptions(opts.Cassandra)); err != nil {
			return nil, err
		}
		return NewStore(opts.MaxConcurrency), nil
	})
}

const closedConnectionMessage = "Cassandra connection is closed, 'call OpenConnection(config) to open it"

// Store reads and writes the key/value table of the global connection.
type Store struct {
	maxConcurrency int
}

// NewStore returns a Store. maxConcurrency bounds the parallel INSERTs issued by MultiSet,
// zero or less means graphkv.DefaultMaxConcurrency.
func NewStore(maxConcurrency int) *Store {
	if maxConcurrency <= 0 {
		maxConcurrency = graphkv.DefaultMaxConcurrency
	}
	return &Store{maxConcurrency: maxConcurrency}
}

// MultiGet fetches keys with a single SELECT ... WHERE key IN (...) query.
func (s *Store) MultiGet(ctx context.Context, keys []string) ([]graphkv.Item, error) {
	if connection == nil {
		return nil, fmt.Errorf(closedConnectionMessage)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	paramQ := make([]string, len(keys))
	args := make([]any, len(keys))
	for i := range keys {
		paramQ[i] = "?"
		args[i] = keys[i]
	}
	selectStatement := fmt.Sprintf("SELECT key, value FROM %s WHERE key in (%s);",
		connection.Config.tableName(), strings.Join(paramQ, ", "))

	found := make(map[string][]byte, len(keys))
	if err := graphkv.Retry(ctx, func(ctx context.Context) error {
		qry := connection.Session.Query(selectStatement, args...).WithContext(ctx)
		if connection.Config.ConsistencyBook.Get > gocql.Any {
			qry.Consistency(connection.Config.ConsistencyBook.Get)
		}
		iter := qry.Iter()
		var k string
		var ba []byte
		for iter.Scan(&k, &ba) {
			found[k] = ba
			ba = nil
		}
		return graphkv.RetryableIf(iter.Close())
	}, nil); err != nil {
		return nil, err
	}

	// Rows come back in partition order, answer in request order.
	r := make([]graphkv.Item, 0, len(found))
	var failures graphkv.KeyFailures
	for _, k := range keys {
		ba, ok := found[k]
		if !ok {
			continue
		}
		delete(found, k)
		v, err := graphkv.UnmarshalValue(graphkv.DefaultMarshaler, ba)
		if err != nil {
			failures = append(failures, graphkv.KeyFailure{Key: k, Err: err})
			continue
		}
		r = append(r, graphkv.Item{Key: k, Value: v})
	}
	if len(failures) > 0 {
		return r, failures
	}
	return r, nil
}

// MultiSet upserts every item, one INSERT per key issued concurrently. Keys whose INSERT
// failed are reported as graphkv.KeyFailures.
func (s *Store) MultiSet(ctx context.Context, items []graphkv.Item) error {
	if connection == nil {
		return fmt.Errorf(closedConnectionMessage)
	}
	if len(items) == 0 {
		return nil
	}
	insertStatement := fmt.Sprintf("INSERT INTO %s (key, value) VALUES(?,?);", connection.Config.tableName())
	errs := make([]error, len(items))

	tr := graphkv.NewTaskRunner(ctx, s.maxConcurrency)
	for i := range items {
		tr.Go(func() error {
			ba, err := graphkv.DefaultMarshaler.Marshal(items[i].Value)
			if err != nil {
				errs[i] = err
				return nil
			}
			errs[i] = graphkv.Retry(tr.GetContext(), func(ctx context.Context) error {
				qry := connection.Session.Query(insertStatement, items[i].Key, ba).WithContext(ctx)
				if connection.Config.ConsistencyBook.Set > gocql.Any {
					qry.Consistency(connection.Config.ConsistencyBook.Set)
				}
				return graphkv.RetryableIf(qry.Exec())
			}, nil)
			// Per key errors are collected, not returned, so one failed key does not cancel the others.
			return nil
		})
	}
	tr.Wait()

	var failures graphkv.KeyFailures
	for i, err := range errs {
		if err != nil {
			failures = append(failures, graphkv.KeyFailure{Key: items[i].Key, Err: err})
		}
	}
	if len(failures) > 0 {
		return failures
	}
	return nil
}
