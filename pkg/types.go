package pkg

import (
	"fmt"
	"strings"
	"time"
)

// Core types shared by the draft store, flow controller and step forms

// Record is the accumulated set of answers for one in-progress flow.
// Values are strings, numbers or nested objects (map[string]any).
type Record map[string]any

// NewRecord returns an empty record
func NewRecord() Record {
	return Record{}
}

// Clone returns a shallow copy of the record. Nested objects are shared.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge returns a new record where top-level keys of partial overwrite
// matching keys of r. Nested objects are replaced, never deep-merged.
func (r Record) Merge(partial Record) Record {
	out := r.Clone()
	for k, v := range partial {
		out[k] = v
	}
	return out
}

// Pick returns a record holding only the named keys that are present in r
func (r Record) Pick(keys []string) Record {
	out := make(Record, len(keys))
	for _, k := range keys {
		if v, ok := r[k]; ok {
			out[k] = v
		}
	}
	return out
}

// Has reports whether key holds a non-empty value
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && !IsEmpty(v)
}

// IsEmpty reports whether a field value counts as "not filled in".
// Numbers and booleans are never empty.
func IsEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case map[string]any:
		return len(val) == 0
	case Record:
		return len(val) == 0
	case []any:
		return len(val) == 0
	default:
		return false
	}
}

// SameValue compares two field values loosely, so that a number decoded from
// storage (float64) equals the int written in a flow table.
func SameValue(a, b any) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// Row is one row of named numeric fields returned by a remote procedure,
// e.g. current_balance and available_credit.
type Row map[string]float64

// Balance is a polled account snapshot
type Balance struct {
	AccountID string    `json:"account_id"`
	Fields    Row       `json:"fields"`
	FetchedAt time.Time `json:"fetched_at"`
}
