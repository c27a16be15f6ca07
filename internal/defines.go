package internal

import (
	"iter"
	"maps"
	"slices"
)

// Defines concatenates define tables into a single sequence.
// A name is only yielded from the first table that defines it.
func Defines(tables ...iter.Seq2[string, string]) iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		seen := map[string]bool{}
		for _, table := range tables {
			for name, value := range table {
				if seen[name] {
					continue
				}
				seen[name] = true
				if !yield(name, value) {
					return // Stop if the consumer stops
				}
			}
		}
	}
}

// SortedDefines collects a define sequence, ordered by name.
func SortedDefines(defines iter.Seq2[string, string]) (names []string, values map[string]string) {
	values = maps.Collect(defines)
	names = slices.Sorted(maps.Keys(values))
	return
}
