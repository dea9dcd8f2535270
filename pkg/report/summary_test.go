package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregate_SummaryTable(t *testing.T) {
	a := NewAggregate()
	a.Add(Key{Package: "rcl", ErrorName: "data race", Location: "a"}, "")
	a.Add(Key{Package: "rcl", ErrorName: "data race", Location: "a"}, "")
	a.Add(Key{Package: "rcl", ErrorName: "data race", Location: "b"}, "")
	a.Add(Key{Package: "rcl", ErrorName: "lock-order-inversion", Location: "c"}, "")
	a.Add(Key{ErrorName: "detected memory leaks", Location: "d"}, "")

	assert.Equal(t, [][]string{
		{"Package", "Error", "Locations", "Count"},
		{"<none>", "detected memory leaks", "1", "1"},
		{"rcl", "data race", "2", "3"},
		{"rcl", "lock-order-inversion", "1", "1"},
	}, a.SummaryTable())
}

func TestAggregate_SummaryTableEmpty(t *testing.T) {
	assert.Equal(t, [][]string{{"Package", "Error", "Locations", "Count"}}, NewAggregate().SummaryTable())
}
