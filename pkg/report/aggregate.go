package report

import (
	"sort"

	"golang.org/x/exp/maps"
)

// A Key identifies a counting bucket: the same error type at the same
// location in the same package.
type Key struct {
	Package   string `json:"package"`
	ErrorName string `json:"error_name"`
	Location  string `json:"key"`
}

// A Record holds the number of occurrences of a key and the stack trace
// of its first occurrence.
type Record struct {
	Key
	Count  int    `json:"count"`
	Sample string `json:"sample_stack_trace,omitempty"`
}

// An Aggregate counts sanitizer errors by Key.
type Aggregate struct {
	records map[Key]*Record
}

func NewAggregate() *Aggregate {
	return &Aggregate{records: map[Key]*Record{}}
}

// Add counts one occurrence of key. The sample is only stored if this
// is the first occurrence, later samples are ignored.
func (a *Aggregate) Add(key Key, sample string) {
	a.addCount(key, 1, sample)
}

func (a *Aggregate) addCount(key Key, count int, sample string) {
	if r, ok := a.records[key]; ok {
		r.Count += count
		return
	}
	a.records[key] = &Record{Key: key, Count: count, Sample: sample}
}

// Merge adds the counts of other to a. For keys which exist in both,
// the sample of a is kept.
func (a *Aggregate) Merge(other *Aggregate) {
	for _, r := range other.Records() {
		a.addCount(r.Key, r.Count, r.Sample)
	}
}

// Count returns the number of occurrences of key.
func (a *Aggregate) Count(key Key) int {
	if r, ok := a.records[key]; ok {
		return r.Count
	}
	return 0
}

// Len returns the number of distinct keys.
func (a *Aggregate) Len() int {
	return len(a.records)
}

// Total returns the sum of all counts.
func (a *Aggregate) Total() int {
	total := 0
	for _, r := range a.records {
		total += r.Count
	}
	return total
}

// Records returns all records sorted by package, error name and
// location.
func (a *Aggregate) Records() []*Record {
	keys := maps.Keys(a.records)
	sort.Slice(keys, func(i, j int) bool {
		return keyLess(keys[i], keys[j])
	})

	records := make([]*Record, len(keys))
	for i, k := range keys {
		records[i] = a.records[k]
	}
	return records
}

// Packages returns the sorted names of all packages with at least one
// record.
func (a *Aggregate) Packages() []string {
	seen := map[string]struct{}{}
	for k := range a.records {
		seen[k.Package] = struct{}{}
	}
	packages := maps.Keys(seen)
	sort.Strings(packages)
	return packages
}

// PackageTotals returns the sum of counts per package.
func (a *Aggregate) PackageTotals() map[string]int {
	totals := map[string]int{}
	for k, r := range a.records {
		totals[k.Package] += r.Count
	}
	return totals
}

func keyLess(a, b Key) bool {
	if a.Package != b.Package {
		return a.Package < b.Package
	}
	if a.ErrorName != b.ErrorName {
		return a.ErrorName < b.ErrorName
	}
	return a.Location < b.Location
}
