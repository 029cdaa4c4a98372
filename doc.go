// Package graphkv defines the core types, interfaces and helpers used across the graphkv codebase.
// It bridges a hierarchical, addressable JSON Graph data model and flat key/value stores: path-sets
// name the graph locations a client reads or writes, each concrete path maps to one storage key,
// and bulk store results are reassembled into graph shaped envelopes.
//
// Path expansion lives in the pathset package, the path/key projection in keycodec, envelope
// assembly in projector and the get/set/call orchestration in datasource. Concrete stores live in
// subpackages such as inmemory, redis, cassandra, aws_s3 and fs.
//
// See `datasource.New` for the entry point most applications need.
package graphkv
