package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartition(t *testing.T) {
	mk := func(n int) []Record {
		out := make([]Record, n)
		for i := range out {
			out[i] = Record{"i": i}
		}
		return out
	}

	tests := []struct {
		name      string
		records   int
		size      int
		wantSizes []int
	}{
		{"empty", 0, 10, nil},
		{"exact multiple", 4, 2, []int{2, 2}},
		{"remainder", 3, 2, []int{2, 1}},
		{"size larger than input", 3, 1000, []int{3}},
		{"size one", 3, 1, []int{1, 1, 1}},
		{"non-positive size means one batch", 5, 0, []int{5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches := Partition(mk(tt.records), tt.size)

			var sizes []int
			total := 0
			for _, b := range batches {
				sizes = append(sizes, len(b))
				total += len(b)
			}
			assert.Equal(t, tt.wantSizes, sizes)
			assert.Equal(t, tt.records, total)
		})
	}
}

func TestPartition_PreservesOrder(t *testing.T) {
	records := []Record{{"i": 0}, {"i": 1}, {"i": 2}, {"i": 3}, {"i": 4}}
	batches := Partition(records, 2)

	next := 0
	for _, b := range batches {
		for _, r := range b {
			assert.Equal(t, next, r["i"])
			next++
		}
	}
}

func TestPartition_BatchesDoNotAliasOnAppend(t *testing.T) {
	records := []Record{{"i": 0}, {"i": 1}, {"i": 2}}
	batches := Partition(records, 2)

	_ = append(batches[0], Record{"i": 99})
	assert.Equal(t, 2, records[2]["i"])
}

func TestColumns(t *testing.T) {
	records := []Record{
		{"b": 1, "a": 2},
		{"a": 3, "c": nil},
		{"z": 1, "d": 2},
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "z"}, Columns(records))
	assert.Nil(t, Columns(nil))
}

func TestRecord_HasDistinguishesNullFromAbsent(t *testing.T) {
	r := Record{"name": nil}
	assert.True(t, r.Has("name"))
	assert.False(t, r.Has("email"))

	c := r.Clone()
	c["email"] = "x"
	assert.False(t, r.Has("email"))
}
