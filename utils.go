package lanenet

import (
	"sort"

	"github.com/samber/lo"
	"golang.org/x/exp/constraints"
)

// sortedKeys returns map keys in ascending order
func sortedKeys[K constraints.Ordered, V any](m map[K]V) []K {
	keys := lo.Keys(m)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// uniqSorted returns distinct values in ascending order
func uniqSorted[T constraints.Ordered](values []T) []T {
	result := lo.Uniq(values)
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}
