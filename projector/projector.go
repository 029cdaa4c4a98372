// Package projector converts between graph envelopes and the flat key/value pairs
// exchanged with stores, in both the read and the write direction.
package projector

import (
	"github.com/sharedcode/graphkv"
	"github.com/sharedcode/graphkv/keycodec"
	"github.com/sharedcode/graphkv/pathset"
)

const (
	writeFailMessage = "Failed to write to store"
	readFailMessage  = "Failed to read from store"

	// maxPrealloc caps the capacity reserved up front for expanded keys.
	maxPrealloc = 1024
)

// Projector builds store requests out of path-sets and envelopes and rebuilds
// envelopes out of store results, using codec to map paths to keys.
type Projector struct {
	codec keycodec.Codec
}

// New returns a Projector using codec, or keycodec.Default when codec is nil.
func New(codec keycodec.Codec) *Projector {
	if codec == nil {
		codec = keycodec.Default
	}
	return &Projector{codec: codec}
}

// PathSetsToKeys expands pathSets and encodes every concrete path, in expansion order.
func (p *Projector) PathSetsToKeys(pathSets []graphkv.PathSet) []string {
	return pathset.Reduce(pathSets, func(keys []string, path graphkv.Path) []string {
		return append(keys, p.codec.Encode(path))
	}, make([]string, 0, min(pathset.Count(pathSets), maxPrealloc)))
}

// KeysToEnvelope writes every returned pair into a fresh graph at its decoded path. Keys missing
// from items are simply absent from the graph. Paths is a structural copy of pathSets.
func (p *Projector) KeysToEnvelope(pathSets []graphkv.PathSet, items []graphkv.Item) graphkv.Envelope {
	g := graphkv.NewGraph()
	for _, item := range items {
		g.Set(p.codec.Decode(item.Key), graphkv.CloneValue(item.Value))
	}
	return graphkv.Envelope{
		Paths:     graphkv.ClonePathSets(pathSets),
		JSONGraph: g,
	}
}

// EnvelopeToKeyValuePairs expands env.Paths and pairs every encoded path with the value found at
// that path in env.JSONGraph. A path absent from the graph is paired with a nil value.
func (p *Projector) EnvelopeToKeyValuePairs(env graphkv.Envelope) []graphkv.Item {
	return pathset.Reduce(env.Paths, func(items []graphkv.Item, path graphkv.Path) []graphkv.Item {
		v, _ := env.JSONGraph.Get(path)
		return append(items, graphkv.Item{
			Key:   p.codec.Encode(path),
			Value: graphkv.CloneValue(v),
		})
	}, make([]graphkv.Item, 0, min(pathset.Count(env.Paths), maxPrealloc)))
}

// MergeFailuresIntoGraph returns a copy of env.JSONGraph where the location of every failed key holds
// a write_fail error marker. Locations of keys that were written keep the values given in env.
func (p *Projector) MergeFailuresIntoGraph(env graphkv.Envelope, failures graphkv.KeyFailures) graphkv.Graph {
	return p.mergeFailures(env.JSONGraph, failures, graphkv.WriteFail, writeFailMessage)
}

// MergeReadFailuresIntoGraph returns a copy of g where the location of every failed key holds
// a read_fail error marker.
func (p *Projector) MergeReadFailuresIntoGraph(g graphkv.Graph, failures graphkv.KeyFailures) graphkv.Graph {
	return p.mergeFailures(g, failures, graphkv.ReadFail, readFailMessage)
}

func (p *Projector) mergeFailures(g graphkv.Graph, failures graphkv.KeyFailures, status graphkv.ErrorCode, msg string) graphkv.Graph {
	r := g.Clone()
	if r == nil {
		r = graphkv.NewGraph()
	}
	for _, f := range failures {
		r.Set(p.codec.Decode(f.Key), graphkv.Error{
			Status:  status,
			Message: msg,
			Key:     f.Key,
			Detail:  f.Message(),
		}.Marker())
	}
	return r
}
