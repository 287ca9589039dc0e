// Package storage defines the backend-agnostic record model and the
// key-value backend interface the job store persists through.
package storage

// Kind discriminates the value types a record field can hold.
type Kind int

const (
	KindAbsent Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
)

// Value is a tagged scalar or list, the only shapes the backend stores.
type Value struct {
	Kind Kind
	S    string
	N    int64
	B    bool
	L    []Value
}

// String returns a string-kinded value.
func String(s string) Value { return Value{Kind: KindString, S: s} }

// Number returns a number-kinded value. Numbers are whole; epoch fields are
// seconds since 1970-01-01T00:00:00Z.
func Number(n int64) Value { return Value{Kind: KindNumber, N: n} }

// Bool returns a boolean-kinded value.
func Bool(b bool) Value { return Value{Kind: KindBool, B: b} }

// List returns a list-kinded value.
func List(vs ...Value) Value { return Value{Kind: KindList, L: vs} }

// Absent returns the absent value.
func Absent() Value { return Value{Kind: KindAbsent} }

// IsAbsent reports whether the value is absent.
func (v Value) IsAbsent() bool { return v.Kind == KindAbsent }

// Equal reports deep equality of two values.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.S == o.S
	case KindNumber:
		return v.N == o.N
	case KindBool:
		return v.B == o.B
	case KindList:
		if len(v.L) != len(o.L) {
			return false
		}
		for i := range v.L {
			if !v.L[i].Equal(o.L[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Field is one named value in a record.
type Field struct {
	Name  string
	Value Value
}

// Record is an ordered mapping of field name to value. Field order is
// insertion order; Set on an existing name replaces in place.
type Record struct {
	fields []Field
}

// Set adds or replaces a field. Setting an absent value removes the field,
// matching backends that cannot store absent attributes.
func (r *Record) Set(name string, v Value) {
	if v.IsAbsent() {
		r.Remove(name)
		return
	}
	for i := range r.fields {
		if r.fields[i].Name == name {
			r.fields[i].Value = v
			return
		}
	}
	r.fields = append(r.fields, Field{Name: name, Value: v})
}

// Remove deletes a field if present.
func (r *Record) Remove(name string) {
	for i := range r.fields {
		if r.fields[i].Name == name {
			r.fields = append(r.fields[:i], r.fields[i+1:]...)
			return
		}
	}
}

// Get returns the named value, or an absent value when the field is missing.
func (r Record) Get(name string) Value {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value
		}
	}
	return Absent()
}

// Has reports whether the named field exists.
func (r Record) Has(name string) bool {
	return !r.Get(name).IsAbsent()
}

// GetString returns the named field's string, or "" when missing.
func (r Record) GetString(name string) string { return r.Get(name).S }

// GetNumber returns the named field's number, or 0 when missing.
func (r Record) GetNumber(name string) int64 { return r.Get(name).N }

// GetBool returns the named field's boolean, or false when missing.
func (r Record) GetBool(name string) bool { return r.Get(name).B }

// Fields returns the fields in insertion order.
func (r Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Len returns the field count.
func (r Record) Len() int { return len(r.fields) }

// Clone returns a deep copy.
func (r Record) Clone() Record {
	var out Record
	out.fields = make([]Field, len(r.fields))
	copy(out.fields, r.fields)
	return out
}

// Equal reports field-for-field equality, order-insensitive. Serialization
// round-trip tests compare records with this.
func (r Record) Equal(o Record) bool {
	if len(r.fields) != len(o.fields) {
		return false
	}
	for _, f := range r.fields {
		if !f.Value.Equal(o.Get(f.Name)) {
			return false
		}
	}
	return true
}

// Matches reports whether every field of key equals the corresponding field
// of this record. Backends use it for primary-key lookup.
func (r Record) Matches(key Record) bool {
	for _, f := range key.fields {
		if !r.Get(f.Name).Equal(f.Value) {
			return false
		}
	}
	return true
}
