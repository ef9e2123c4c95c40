package value

import "sort"

// Array is AWK's associative array: a mapping from string keys to Values.
// Keys preserve insertion order by default; Sorted() returns them in sorted
// order when config requests it (spec.md §3, §6 "-t").
//
// Multi-dimensional subscripts a[i,j] are realised by the caller joining
// subscripts with SUBSEP before calling into Array — this package only
// ever sees the already-joined key.
type Array struct {
	keys   []string
	values map[string]Value
}

// NewArrayContainer constructs an empty associative array.
func NewArrayContainer() *Array {
	return &Array{values: make(map[string]Value)}
}

// Get returns the value at key and whether it is present. Get never
// mutates: an absent key is not created. Use GetOrCreate for the
// auto-vivifying read used by $-less subscripting.
func (a *Array) Get(key string) (Value, bool) {
	v, ok := a.values[key]
	return v, ok
}

// GetOrCreate returns the value at key, inserting an Uninitialized entry
// (and recording it in iteration order) if the key was not already present.
// This matches AWK's auto-vivification rule: evaluating a[i] for reading
// an absent key still creates it.
func (a *Array) GetOrCreate(key string) Value {
	if v, ok := a.values[key]; ok {
		return v
	}
	a.keys = append(a.keys, key)
	a.values[key] = Uninitialized
	return Uninitialized
}

// Set assigns value to key, appending to iteration order if new.
func (a *Array) Set(key string, v Value) {
	if _, ok := a.values[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.values[key] = v
}

// Has reports whether key is present, without creating it.
func (a *Array) Has(key string) bool {
	_, ok := a.values[key]
	return ok
}

// Delete removes key, without disturbing the relative order of the rest.
func (a *Array) Delete(key string) {
	if _, ok := a.values[key]; !ok {
		return
	}
	delete(a.values, key)
	for i, k := range a.keys {
		if k == key {
			a.keys = append(a.keys[:i], a.keys[i+1:]...)
			break
		}
	}
}

// Clear removes every key (the "delete arr" whole-array form).
func (a *Array) Clear() {
	a.keys = nil
	a.values = make(map[string]Value)
}

// Len returns the number of entries.
func (a *Array) Len() int { return len(a.keys) }

// Keys returns keys in insertion order. Callers that need sorted order
// (config.SortedArrays) should call Sorted instead.
func (a *Array) Keys() []string {
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Sorted returns keys in ascending string order, leaving the backing
// insertion-order slice untouched.
func (a *Array) Sorted() []string {
	out := a.Keys()
	sort.Strings(out)
	return out
}
