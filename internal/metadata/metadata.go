// Package metadata models the free-form metadata attached to chunks.
//
// Metadata is an insertion-ordered map of string keys to a small closed set
// of JSON-like values. Round-trip serialization preserves key order without
// requiring a fixed schema, which keeps provenance fields readable in the
// database and in logs.
package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind identifies the variant stored in a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindArray
	KindObject
)

// Value is a tagged union over the JSON scalar, array and object types.
// The zero Value is null.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	arr  []Value
	obj  *Map
}

// String creates a string Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number creates a numeric Value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Int creates a numeric Value from an int.
func Int(i int) Value { return Value{kind: KindNumber, num: float64(i)} }

// Bool creates a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Null creates a null Value.
func Null() Value { return Value{kind: KindNull} }

// Array creates an array Value.
func Array(vs ...Value) Value { return Value{kind: KindArray, arr: vs} }

// Object creates an object Value wrapping the given map.
func Object(m *Map) Value { return Value{kind: KindObject, obj: m} }

// Kind reports which variant the Value holds.
func (v Value) Kind() Kind { return v.kind }

// AsString returns the string payload and whether the Value is a string.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsNumber returns the numeric payload and whether the Value is a number.
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

// AsInt returns the numeric payload truncated to int.
func (v Value) AsInt() (int, bool) { return int(v.num), v.kind == KindNumber }

// AsBool returns the boolean payload and whether the Value is a bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsArray returns the array payload and whether the Value is an array.
func (v Value) AsArray() ([]Value, bool) { return v.arr, v.kind == KindArray }

// AsObject returns the object payload and whether the Value is an object.
func (v Value) AsObject() (*Map, bool) { return v.obj, v.kind == KindObject }

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		// JSON has no NaN or infinity; FormatFloat would emit them
		// verbatim and produce output the database rejects.
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return nil, fmt.Errorf("metadata: non-finite number %v is not representable in JSON", v.num)
		}
		// strconv keeps integral values free of exponent notation
		return []byte(strconv.FormatFloat(v.num, 'f', -1, 64)), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindArray:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, elem := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			data, err := elem.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(data)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case KindObject:
		if v.obj == nil {
			return []byte("null"), nil
		}
		return v.obj.MarshalJSON()
	default:
		return nil, fmt.Errorf("metadata: unknown value kind %d", v.kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	parsed, err := decodeValue(dec)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Map is an insertion-ordered map of string keys to Values.
// The zero Map is empty and ready to use.
type Map struct {
	keys []string
	vals map[string]Value
}

// Set stores a value under key, appending the key on first use.
// Setting an existing key keeps its original position.
func (m *Map) Set(key string, v Value) {
	if m.vals == nil {
		m.vals = make(map[string]Value)
	}
	if _, exists := m.vals[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
}

// Get returns the value for key and whether it exists.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil || m.vals == nil {
		return Value{}, false
	}
	v, ok := m.vals[key]
	return v, ok
}

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order. The slice is a copy.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// MarshalJSON implements json.Marshaler, emitting keys in insertion order.
func (m Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyData, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyData)
		buf.WriteByte(':')
		valData, err := m.vals[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(valData)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler. Key order in the input is
// preserved; a duplicate key keeps its first position and last value,
// mirroring jsonb semantics.
func (m *Map) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("metadata: reading object start: %w", err)
	}
	if tok == nil {
		*m = Map{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("metadata: expected object, got %v", tok)
	}

	parsed, err := decodeObject(dec)
	if err != nil {
		return err
	}
	*m = *parsed
	return nil
}

// decodeValue reads one JSON value from the decoder.
func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, fmt.Errorf("metadata: reading value: %w", err)
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj, err := decodeObject(dec)
			if err != nil {
				return Value{}, err
			}
			return Object(obj), nil
		case '[':
			var arr []Value
			for dec.More() {
				elem, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				arr = append(arr, elem)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return Value{}, fmt.Errorf("metadata: reading array end: %w", err)
			}
			return Array(arr...), nil
		default:
			return Value{}, fmt.Errorf("metadata: unexpected delimiter %v", t)
		}
	case string:
		return String(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("metadata: parsing number %q: %w", t, err)
		}
		return Number(f), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null(), nil
	default:
		return Value{}, fmt.Errorf("metadata: unexpected token %v", tok)
	}
}

// decodeObject reads object members after the opening '{' has been consumed.
func decodeObject(dec *json.Decoder) (*Map, error) {
	m := &Map{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("metadata: reading object key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("metadata: expected string key, got %v", keyTok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		m.Set(key, val)
	}
	if _, err := dec.Token(); err != nil { // consume '}'
		return nil, fmt.Errorf("metadata: reading object end: %w", err)
	}
	return m, nil
}
