package internal

import (
	"iter"
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIterSeq2Concat(t *testing.T) {
	assert := assert.New(t)

	first := slices.All([]string{"a", "b"})
	second := slices.All([]string{"c"})

	var keys []int
	var values []string
	for key, value := range IterSeq2Concat(first, second) {
		keys = append(keys, key)
		values = append(values, value)
	}

	assert.Equal([]int{0, 1, 0}, keys)
	assert.Equal([]string{"a", "b", "c"}, values)

	// Stops early, without starting later sequences.
	started := false
	late := iter.Seq2[int, string](func(yield func(int, string) bool) {
		started = true
	})
	for range IterSeq2Concat(first, late) {
		break
	}
	assert.False(started)

	assert.Empty(maps.Collect(IterSeq2Concat[string, string]()))
}
