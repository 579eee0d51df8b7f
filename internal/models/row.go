package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field is one named value of a Row. Value is a scalar (string, int64, float64,
// bool or nil) or a []any of scalars.
type Field struct {
	Name  string
	Value any
}

// Row is a graph query result row: an ordered, open-ended mapping from field
// name to value. Field order is the order the query returned them in.
type Row struct {
	Fields []Field
}

// NewRow builds a row from parallel key and value slices.
func NewRow(keys []string, values []any) Row {
	r := Row{Fields: make([]Field, 0, len(keys))}
	for i, k := range keys {
		var v any
		if i < len(values) {
			v = values[i]
		}
		r.Fields = append(r.Fields, Field{Name: k, Value: v})
	}
	return r
}

// Set replaces the value of an existing field or appends a new one.
func (r *Row) Set(name string, value any) {
	for i := range r.Fields {
		if r.Fields[i].Name == name {
			r.Fields[i].Value = value
			return
		}
	}
	r.Fields = append(r.Fields, Field{Name: name, Value: value})
}

// Get returns the value of the named field.
func (r Row) Get(name string) (any, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Keys returns the field names in order.
func (r Row) Keys() []string {
	keys := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		keys[i] = f.Name
	}
	return keys
}

// Len returns the number of fields.
func (r Row) Len() int {
	return len(r.Fields)
}

// MarshalJSON encodes the row as a JSON object keeping field order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal field %q: %w", f.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into the row keeping key order.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("row must be a JSON object")
	}
	r.Fields = r.Fields[:0]
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("row key must be a string")
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("failed to decode field %q: %w", key, err)
		}
		r.Fields = append(r.Fields, Field{Name: key, Value: normalizeJSONValue(raw)})
	}
	_, err = dec.Token()
	return err
}

func normalizeJSONValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case []any:
		for i := range x {
			x[i] = normalizeJSONValue(x[i])
		}
		return x
	default:
		return v
	}
}
