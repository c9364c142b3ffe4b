// Package intersect provides key intersection over two maps, a primitive the
// standard library offers for sets but not for maps.
//
// The sequence always iterates the smaller map and probes the larger one, so
// the cost is O(min(|A|,|B|)) lookups no matter which argument is smaller.
package intersect

import "iter"

// Pair is one key present in both maps, carrying the value from each side.
// First always comes from the first argument of Maps, Second from the
// second, regardless of which map was iterated internally.
type Pair[K comparable, V any] struct {
	Key    K
	First  V
	Second V
}

// Maps returns a lazy, restartable sequence over the keys present in both
// maps. Order is unspecified; every shared key appears exactly once.
func Maps[K comparable, V any](first, second map[K]V) iter.Seq[Pair[K, V]] {
	iterated, probed := first, second
	swapped := false
	if len(first) > len(second) {
		iterated, probed = second, first
		swapped = true
	}

	return func(yield func(Pair[K, V]) bool) {
		for k, v := range iterated {
			other, ok := probed[k]
			if !ok {
				continue
			}
			p := Pair[K, V]{Key: k, First: v, Second: other}
			if swapped {
				p.First, p.Second = p.Second, p.First
			}
			if !yield(p) {
				return
			}
		}
	}
}

// Collect materialises the intersection into a map keyed by the shared keys.
func Collect[K comparable, V any](first, second map[K]V) map[K]Pair[K, V] {
	out := make(map[K]Pair[K, V])
	for p := range Maps(first, second) {
		out[p.Key] = p
	}
	return out
}
