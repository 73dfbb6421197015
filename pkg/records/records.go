// Package records defines the row type shared by the extract, transform, and
// load stages. A Record maps canonical column names to values; missing columns
// and nil values are equivalent (the coercion layer turns both into defaults).
package records

// Record is one tabular row keyed by canonical column name.
type Record map[string]any

// Get returns the value for key, or nil when the column is absent.
func (r Record) Get(key string) any {
	if r == nil {
		return nil
	}
	return r[key]
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
