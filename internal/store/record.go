package store

// Column is a single named value of a Record.
type Column struct {
	Name  string
	Value any
}

// Record is an ordered set of column values for one row. Order is significant:
// INSERT and UPDATE statements list columns and bind values in record order.
type Record []Column

// NewRecord returns an empty record with room for n columns.
func NewRecord(n int) Record {
	return make(Record, 0, n)
}

// With returns the record with name set to value. An existing column keeps its
// position; a new column is appended.
func (r Record) With(name string, value any) Record {
	for i := range r {
		if r[i].Name == name {
			r[i].Value = value
			return r
		}
	}
	return append(r, Column{Name: name, Value: value})
}

// Get returns the value stored under name.
func (r Record) Get(name string) (any, bool) {
	for _, col := range r {
		if col.Name == name {
			return col.Value, true
		}
	}
	return nil, false
}

// Names returns the column names in order.
func (r Record) Names() []string {
	names := make([]string, len(r))
	for i, col := range r {
		names[i] = col.Name
	}
	return names
}

// Values returns the column values in order.
func (r Record) Values() []any {
	values := make([]any, len(r))
	for i, col := range r {
		values[i] = col.Value
	}
	return values
}
