package graphkv

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// PathSet is an ordered sequence of key specifications, one per depth.
// A nil element denotes a missing specification at that depth.
type PathSet []KeySet

// Path is a concrete path, i.e. a PathSet with a single key at every depth.
type Path []Key

// ParsePathSets decodes the JSON text of a list of path-sets, e.g. `[["byId",[5,{"from":1,"to":2}],"taste"]]`.
func ParsePathSets(data []byte) ([]PathSet, error) {
	var pss []PathSet
	if err := json.Unmarshal(data, &pss); err != nil {
		return nil, fmt.Errorf("invalid path-sets: %w", err)
	}
	return pss, nil
}

// UnmarshalJSON decodes a JSON array of key specifications.
func (ps *PathSet) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r := make(PathSet, len(raw))
	for i, v := range raw {
		ks, err := ParseKeySet(v)
		if err != nil {
			return fmt.Errorf("depth %d: %w", i, err)
		}
		r[i] = ks
	}
	*ps = r
	return nil
}

// Clone returns a structural copy of the path-set.
func (ps PathSet) Clone() PathSet {
	if ps == nil {
		return nil
	}
	r := make(PathSet, len(ps))
	for i := range ps {
		r[i] = cloneKeySet(ps[i])
	}
	return r
}

// ClonePathSets returns a structural copy of a list of path-sets.
func ClonePathSets(pss []PathSet) []PathSet {
	if pss == nil {
		return nil
	}
	r := make([]PathSet, len(pss))
	for i := range pss {
		r[i] = pss[i].Clone()
	}
	return r
}

// NewPath builds a Path out of string and int keys, handy in tests and callers building
// paths by hand. It panics on any other key type.
func NewPath(keys ...any) Path {
	p := make(Path, len(keys))
	for i, k := range keys {
		switch t := k.(type) {
		case Key:
			p[i] = t
		case string:
			p[i] = Key(t)
		case int:
			p[i] = IntKey(t)
		default:
			panic(fmt.Sprintf("unsupported path key %v (%T)", k, k))
		}
	}
	return p
}

// Clone returns a copy of the path.
func (p Path) Clone() Path {
	return slices.Clone(p)
}

// Equal reports whether both paths have the same keys in the same order.
func (p Path) Equal(other Path) bool {
	return slices.Equal(p, other)
}

// Strings returns the keys as plain strings.
func (p Path) Strings() []string {
	r := make([]string, len(p))
	for i := range p {
		r[i] = string(p[i])
	}
	return r
}

func (p Path) String() string {
	return "[" + strings.Join(p.Strings(), ", ") + "]"
}
