// Package models provides the record model shared by connectors, the
// transformation pipeline and the migration engine.
//
// A Record is a flat mapping from field name to value. Absent keys and keys
// holding nil are distinct: a nil value is an explicit null, an absent key
// means the field was never produced.
package models

import "sort"

// Record is a single row, document or object flowing through a migration.
type Record map[string]interface{}

// Clone returns a shallow copy of the record
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Has reports whether the field is present (even when its value is nil)
func (r Record) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// Fields returns the record's field names in sorted order
func (r Record) Fields() []string {
	fields := make([]string, 0, len(r))
	for k := range r {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

// Columns returns the union of field names across records: the sorted
// fields of the first record followed by the sorted fields that only later
// records carry.
// SQL loaders use it to build one INSERT shape for a whole batch.
func Columns(records []Record) []string {
	if len(records) == 0 {
		return nil
	}

	seen := make(map[string]struct{})
	columns := records[0].Fields()
	for _, c := range columns {
		seen[c] = struct{}{}
	}

	var extra []string
	for _, r := range records[1:] {
		for k := range r {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	return append(columns, extra...)
}

// Partition splits records into consecutive batches of at most size records.
// Every batch except possibly the last has exactly size records. The batches
// share the backing array of records.
func Partition(records []Record, size int) [][]Record {
	if size <= 0 {
		size = len(records)
	}
	if len(records) == 0 {
		return nil
	}

	batches := make([][]Record, 0, (len(records)+size-1)/size)
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		batches = append(batches, records[start:end:end])
	}
	return batches
}
