// Package datasource serves JSON Graph get, set and call operations out of a flat key/value store.
package datasource

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"

	"github.com/sharedcode/graphkv"
	"github.com/sharedcode/graphkv/keycodec"
	"github.com/sharedcode/graphkv/projector"
)

const (
	readFailMessage    = "Failed to read from store"
	unsupportedMessage = "data source does not support call operations"
)

// DataSource bridges JSON Graph requests to a graphkv.Store. Every operation issues at most one
// bulk store request and emits its outcome through a single-shot graphkv.Stream.
type DataSource struct {
	store             graphkv.Store
	codec             keycodec.Codec
	projector         *projector.Projector
	keyedReadFailures bool
	logger            *log.Logger
}

// Option customizes a DataSource.
type Option func(*DataSource)

// WithKeyCodec overrides the path to storage key projection.
func WithKeyCodec(c keycodec.Codec) Option {
	return func(ds *DataSource) {
		ds.codec = c
	}
}

// WithCodecFuncs overrides the projection with an encode/decode function pair.
// The pair must round-trip, see keycodec.Verify.
func WithCodecFuncs(encode func(graphkv.Path) string, decode func(string) graphkv.Path) Option {
	return WithKeyCodec(keycodec.Funcs{EncodeFunc: encode, DecodeFunc: decode})
}

// WithKeyedReadFailures makes Get fold per-key read failures into the response graph as read_fail
// markers, for stores able to report them as graphkv.KeyFailures. Any other read error still fails
// the whole operation.
func WithKeyedReadFailures() Option {
	return func(ds *DataSource) {
		ds.keyedReadFailures = true
	}
}

// WithLogger sets the logger operations are traced to. Defaults to slog.Default().
func WithLogger(l *log.Logger) Option {
	return func(ds *DataSource) {
		ds.logger = l
	}
}

// verifySample is round-tripped through caller supplied codecs at construction time.
var verifySample = graphkv.NewPath("byId", 0, "name")

// New returns a DataSource over store.
func New(store graphkv.Store, opts ...Option) (*DataSource, error) {
	if store == nil {
		return nil, graphkv.ErrNilStore
	}
	ds := &DataSource{
		store: store,
		codec: keycodec.Default,
	}
	for _, o := range opts {
		o(ds)
	}
	if err := keycodec.Verify(ds.codec, verifySample); err != nil {
		return nil, fmt.Errorf("invalid key codec: %w", err)
	}
	if ds.logger == nil {
		ds.logger = log.Default()
	}
	ds.projector = projector.New(ds.codec)
	return ds, nil
}

// Get reads the values pathSets address. The stream emits the response envelope, whose Paths is a
// copy of pathSets and whose graph holds every value found; keys the store does not have are absent.
// A rejected bulk read fails the stream with a read_fail graphkv.Error.
func (ds *DataSource) Get(ctx context.Context, pathSets []graphkv.PathSet) *graphkv.Stream[graphkv.Envelope] {
	pss := graphkv.ClonePathSets(pathSets)
	return graphkv.NewStream(ctx, func(ctx context.Context) (graphkv.Envelope, error) {
		opID := graphkv.NewOpID()
		keys := ds.projector.PathSetsToKeys(pss)
		ds.logger.Debug("get", "op_id", opID.String(), "keys", len(keys))

		items, err := ds.store.MultiGet(ctx, keys)
		if err == nil {
			return ds.projector.KeysToEnvelope(pss, items), nil
		}

		var kfs graphkv.KeyFailures
		if ds.keyedReadFailures && errors.As(err, &kfs) {
			ds.logger.Warn("get partially failed", "op_id", opID.String(), "failed_keys", len(kfs))
			env := ds.projector.KeysToEnvelope(pss, items)
			env.JSONGraph = ds.projector.MergeReadFailuresIntoGraph(env.JSONGraph, kfs)
			return env, nil
		}
		ds.logger.Warn("get failed", "op_id", opID.String(), "error", err.Error())
		return graphkv.Envelope{}, graphkv.Error{
			Status:  graphkv.ReadFail,
			Message: readFailMessage,
		}
	})
}

// Set writes the values of env.JSONGraph found at env.Paths. The stream always succeeds: it emits a
// copy of env when every key was written, otherwise a copy whose failed locations hold write_fail
// error markers. Callers detect partial failure by inspecting the graph leaves.
func (ds *DataSource) Set(ctx context.Context, env graphkv.Envelope) *graphkv.Stream[graphkv.Envelope] {
	req := env.Clone()
	return graphkv.NewStream(ctx, func(ctx context.Context) (graphkv.Envelope, error) {
		opID := graphkv.NewOpID()
		items := ds.projector.EnvelopeToKeyValuePairs(req)
		ds.logger.Debug("set", "op_id", opID.String(), "keys", len(items))

		err := ds.store.MultiSet(ctx, items)
		if err == nil {
			return req.Clone(), nil
		}
		failures := graphkv.FailuresOf(err, items)
		ds.logger.Warn("set partially failed", "op_id", opID.String(), "failed_keys", len(failures), "error", err.Error())
		return graphkv.Envelope{
			Paths:     graphkv.ClonePathSets(req.Paths),
			JSONGraph: ds.projector.MergeFailuresIntoGraph(req, failures),
		}, nil
	})
}

// Call is not supported: the stream fails with an unsupported graphkv.Error whatever the arguments,
// without touching the store.
func (ds *DataSource) Call(ctx context.Context, callPath graphkv.Path, args ...any) *graphkv.Stream[graphkv.Envelope] {
	return graphkv.NewStream(ctx, func(context.Context) (graphkv.Envelope, error) {
		return graphkv.Envelope{}, graphkv.Error{
			Status:  graphkv.Unsupported,
			Message: unsupportedMessage,
		}
	})
}
