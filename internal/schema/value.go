package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBoolean
	KindNull
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindNull:
		return "null"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Field is one key of an object Value. Objects keep their fields in the order
// the example declared them.
type Field struct {
	Key   string
	Value Value
}

// Value is an example value reduced to the JSON data model.
type Value struct {
	Kind Kind
	// Scalar holds a string, json.Number or bool for primitive kinds.
	Scalar any
	Elems  []Value
	Fields []Field
}

// String returns a string Value.
func String(s string) Value { return Value{Kind: KindString, Scalar: s} }

// Of converts an arbitrary example into a Value. It never fails: anything that
// cannot be expressed as JSON degrades to a string Value.
//
// Raw JSON ([]byte or json.RawMessage) keeps its object key order; Go structs
// keep their field order; Go maps are ordered by key.
func Of(example any) Value {
	switch v := example.(type) {
	case Value:
		return v
	case *Value:
		if v == nil {
			return Value{Kind: KindNull}
		}
		return *v
	case nil:
		return Value{Kind: KindNull}
	case string:
		return String(v)
	case bool:
		return Value{Kind: KindBoolean, Scalar: v}
	case json.RawMessage:
		return parse(v)
	case []byte:
		return parse(v)
	}
	data, err := json.Marshal(example)
	if err != nil {
		return String(fmt.Sprint(example))
	}
	return parse(data)
}

// Parse decodes raw JSON into a Value, preserving object key order.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, errors.New("trailing data after JSON value")
	}
	return v, nil
}

func parse(data []byte) Value {
	v, err := Parse(data)
	if err != nil {
		return String(string(data))
	}
	return v
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			out := Value{Kind: KindObject, Fields: []Field{}}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("unexpected object key %v", keyTok)
				}
				child, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				out.Fields = append(out.Fields, Field{Key: key, Value: child})
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return out, nil
		case '[':
			out := Value{Kind: KindArray, Elems: []Value{}}
			for dec.More() {
				child, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				out.Elems = append(out.Elems, child)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return out, nil
		default:
			return Value{}, fmt.Errorf("unexpected delimiter %q", t)
		}
	case string:
		return String(t), nil
	case json.Number:
		return Value{Kind: KindNumber, Scalar: t}, nil
	case bool:
		return Value{Kind: KindBoolean, Scalar: t}, nil
	case nil:
		return Value{Kind: KindNull}, nil
	default:
		return Value{}, fmt.Errorf("unexpected token %v", tok)
	}
}

// MarshalJSON writes the value with object fields in their original order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.Kind {
	case KindObject:
		buf.WriteByte('{')
		for i, f := range v.Fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(f.Key)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := f.Value.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case KindArray:
		buf.WriteByte('[')
		for i, e := range v.Elems {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindNull:
		buf.WriteString("null")
	default:
		scalar := v.Scalar
		if scalar == nil {
			switch v.Kind {
			case KindNumber:
				scalar = json.Number("0")
			case KindBoolean:
				scalar = false
			default:
				scalar = ""
			}
		}
		data, err := json.Marshal(scalar)
		if err != nil {
			return err
		}
		buf.Write(data)
	}
	return nil
}

// RequiresStructure reports whether an example asks for structured output:
// true for any non-nil example that is not a plain string.
func RequiresStructure(example any) bool {
	if example == nil {
		return false
	}
	if _, ok := example.(string); ok {
		return false
	}
	switch Of(example).Kind {
	case KindString, KindNull:
		return false
	}
	return true
}
