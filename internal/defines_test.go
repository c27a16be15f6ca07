package internal

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefines(t *testing.T) {
	assert := assert.New(t)

	a := map[string]string{"A": "1", "B": "2"}
	b := map[string]string{"B": "3", "C": "4"}

	values := maps.Collect(Defines(maps.All(a), maps.All(b)))
	assert.Equal(map[string]string{"A": "1", "B": "2", "C": "4"}, values)

	count := 0
	for range Defines(maps.All(a), maps.All(b)) {
		count++
		break
	}
	assert.Equal(1, count)

	assert.Empty(maps.Collect(Defines()))
}

func TestSortedDefines(t *testing.T) {
	assert := assert.New(t)

	names, values := SortedDefines(maps.All(map[string]string{"Z": "26", "A": "1", "M": "13"}))
	assert.Equal([]string{"A", "M", "Z"}, names)
	assert.Equal("13", values["M"])
}
