package param

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Location classifies where a field travels on the wire.
type Location string

const (
	InQuery Location = "query"
	InBody  Location = "body"
)

// Fields is the ordered key-value container behind every generated
// parameter model. It is inspectable and mutable both through the typed
// struct fields it was collected from and by string key; edits through
// either view land in the same storage, so they are observably equivalent.
type Fields struct {
	keys    []string
	entries map[string]*entry
}

type entry struct {
	value    any
	explicit bool // explicit null
	in       Location
}

// NewFields returns an empty container.
func NewFields() *Fields {
	return &Fields{entries: make(map[string]*entry)}
}

// Collect reflects over a generated parameter model and gathers every
// non-unset Field in declaration order. Wire names come from the json tag;
// the in tag selects query vs body (body when absent). Non-Field members and
// unexported fields are skipped.
func Collect(m any) *Fields {
	f := NewFields()
	if m == nil {
		return f
	}
	v := reflect.ValueOf(m)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return f
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return f
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := strings.Split(sf.Tag.Get("json"), ",")[0]
		if name == "" || name == "-" {
			continue
		}
		fv, ok := v.Field(i).Interface().(valuer)
		if !ok {
			continue
		}
		value, state := fv.fieldValue()
		if state == Unset {
			continue
		}
		loc := InBody
		if sf.Tag.Get("in") == string(InQuery) {
			loc = InQuery
		}
		if state == Null {
			f.setNull(name, loc)
		} else {
			f.set(name, value, loc)
		}
	}
	return f
}

// Set stores a body value under key, preserving first-insertion order.
func (f *Fields) Set(key string, value any) *Fields {
	f.set(key, value, InBody)
	return f
}

// SetQuery stores a query value under key.
func (f *Fields) SetQuery(key string, value any) *Fields {
	f.set(key, value, InQuery)
	return f
}

// SetNull stores an explicit null body value under key.
func (f *Fields) SetNull(key string) *Fields {
	f.setNull(key, InBody)
	return f
}

func (f *Fields) set(key string, value any, in Location) {
	if f.entries == nil {
		f.entries = make(map[string]*entry)
	}
	if e, ok := f.entries[key]; ok {
		e.value = value
		e.explicit = false
		e.in = in
		return
	}
	f.keys = append(f.keys, key)
	f.entries[key] = &entry{value: value, in: in}
}

func (f *Fields) setNull(key string, in Location) {
	f.set(key, nil, in)
	f.entries[key].explicit = true
}

// Get returns the stored value and whether the key is present. Explicit
// nulls are present with a nil value.
func (f *Fields) Get(key string) (any, bool) {
	e, ok := f.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// In returns the wire location recorded for key (InBody when absent).
func (f *Fields) In(key string) Location {
	if e, ok := f.entries[key]; ok {
		return e.in
	}
	return InBody
}

// IsNull reports whether key holds an explicit null.
func (f *Fields) IsNull(key string) bool {
	e, ok := f.entries[key]
	return ok && e.explicit
}

// Delete removes key, returning whether it was present.
func (f *Fields) Delete(key string) bool {
	if _, ok := f.entries[key]; !ok {
		return false
	}
	delete(f.entries, key)
	for i, k := range f.keys {
		if k == key {
			f.keys = append(f.keys[:i], f.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the stored keys in insertion order.
func (f *Fields) Keys() []string {
	return append([]string(nil), f.keys...)
}

// Len returns the number of stored keys.
func (f *Fields) Len() int { return len(f.keys) }

// Where returns a view containing only the fields at loc, keeping order.
func (f *Fields) Where(loc Location) *Fields {
	out := NewFields()
	for _, k := range f.keys {
		e := f.entries[k]
		if e.in != loc {
			continue
		}
		out.set(k, e.value, e.in)
		out.entries[k].explicit = e.explicit
	}
	return out
}

// MarshalJSON renders the fields as a JSON object in insertion order,
// emitting explicit nulls and omitting nothing else.
func (f *Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range f.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		e := f.entries[k]
		if e.explicit || e.value == nil {
			buf.WriteString("null")
			continue
		}
		valJSON, err := json.Marshal(e.value)
		if err != nil {
			return nil, fmt.Errorf("marshaling field %q: %w", k, err)
		}
		buf.Write(valJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
