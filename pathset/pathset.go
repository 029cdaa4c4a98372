// Package pathset expands path-sets into the concrete paths they denote.
//
// Expansion is depth-first and deterministic: path-sets are visited in input order, depths
// outer to inner, and the keys of a depth in the order their key specification yields them.
// A path-set that is empty, or has a depth with no keys, expands to nothing.
package pathset

import (
	"iter"
	"math"

	"github.com/sharedcode/graphkv"
)

// Expand lazily yields the concrete paths of pathSets. Every yielded Path is a fresh copy
// the caller may keep.
func Expand(pathSets []graphkv.PathSet) iter.Seq[graphkv.Path] {
	return func(yield func(graphkv.Path) bool) {
		for _, ps := range pathSets {
			if !dive(ps, 0, make(graphkv.Path, 0, len(ps)), yield) {
				return
			}
		}
	}
}

// dive visits depth of ps with curr holding the keys chosen on the outer depths.
// It returns false when the consumer stopped the iteration.
func dive(ps graphkv.PathSet, depth int, curr graphkv.Path, yield func(graphkv.Path) bool) bool {
	if len(ps) == 0 || ps[depth] == nil {
		return true
	}
	leaf := depth+1 == len(ps)
	for k := range ps[depth].Keys() {
		curr = append(curr, k)
		if leaf {
			if !yield(curr.Clone()) {
				return false
			}
		} else if !dive(ps, depth+1, curr, yield) {
			return false
		}
		curr = curr[:len(curr)-1]
	}
	return true
}

// ForEach calls fn for every concrete path of pathSets, in expansion order.
func ForEach(pathSets []graphkv.PathSet, fn func(graphkv.Path)) {
	for p := range Expand(pathSets) {
		fn(p)
	}
}

// Reduce folds the concrete paths of pathSets into acc.
func Reduce[A any](pathSets []graphkv.PathSet, fn func(acc A, path graphkv.Path) A, acc A) A {
	for p := range Expand(pathSets) {
		acc = fn(acc, p)
	}
	return acc
}

// Count returns how many concrete paths pathSets expand to, without expanding them.
// The count saturates at math.MaxInt.
func Count(pathSets []graphkv.PathSet) int {
	total := 0
	for _, ps := range pathSets {
		if len(ps) == 0 {
			continue
		}
		n := 1
		for _, ks := range ps {
			if ks == nil {
				n = 0
				break
			}
			n = mulSat(n, ks.Len())
		}
		if total > math.MaxInt-n {
			return math.MaxInt
		}
		total += n
	}
	return total
}

func mulSat(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxInt/b {
		return math.MaxInt
	}
	return a * b
}
