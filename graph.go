package graphkv

// Graph is a JSON Graph: a tree keyed by strings at every level whose leaves are
// scalar values or error markers. Inner nodes are either Graph or map[string]any,
// the latter being what encoding/json produces for nested objects.
type Graph map[string]any

// NewGraph returns an empty graph.
func NewGraph() Graph {
	return make(Graph)
}

func asNode(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case Graph:
		return t, t != nil
	case map[string]any:
		return t, t != nil
	}
	return nil, false
}

// Get returns the value found at path. An empty path returns the graph itself.
func (g Graph) Get(path Path) (any, bool) {
	var node map[string]any = g
	if node == nil {
		return nil, false
	}
	for i, k := range path {
		v, ok := node[string(k)]
		if !ok {
			return nil, false
		}
		if i == len(path)-1 {
			return v, true
		}
		if node, ok = asNode(v); !ok {
			return nil, false
		}
	}
	return g, true
}

// Set stores value at path, creating inner nodes as needed and replacing
// any leaf found on the way. Setting an empty path is a no-op.
func (g Graph) Set(path Path, value any) {
	if len(path) == 0 {
		return
	}
	var node map[string]any = g
	for _, k := range path[:len(path)-1] {
		next, ok := asNode(node[string(k)])
		if !ok {
			next = Graph{}
			node[string(k)] = next
		}
		node = next
	}
	node[string(path[len(path)-1])] = value
}

// Clone returns a deep structural copy of the graph.
func (g Graph) Clone() Graph {
	if g == nil {
		return nil
	}
	return CloneValue(g).(Graph)
}

// CloneValue returns a deep copy of the JSON-like value v. Maps and slices are copied,
// every other value is returned as is.
func CloneValue(v any) any {
	switch t := v.(type) {
	case Graph:
		if t == nil {
			return t
		}
		r := make(Graph, len(t))
		for k, e := range t {
			r[k] = CloneValue(e)
		}
		return r
	case map[string]any:
		if t == nil {
			return t
		}
		r := make(map[string]any, len(t))
		for k, e := range t {
			r[k] = CloneValue(e)
		}
		return r
	case []any:
		if t == nil {
			return t
		}
		r := make([]any, len(t))
		for i, e := range t {
			r[i] = CloneValue(e)
		}
		return r
	case *ErrorMarker:
		if t == nil {
			return t
		}
		em := *t
		return &em
	}
	return v
}
