package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// ValueKind tags the variant held by a Value.
type ValueKind string

const (
	KindNull   ValueKind = "null"
	KindString ValueKind = "string"
	KindNumber ValueKind = "number"
	KindBool   ValueKind = "bool"
	KindList   ValueKind = "list"
	KindMap    ValueKind = "map"
)

// Value is a dynamically typed metadata value. Exactly one payload field is
// meaningful, selected by Kind. The zero Value is null.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
	List []Value
	Map  map[string]Value
}

func StringValue(s string) Value  { return Value{Kind: KindString, Str: s} }
func NumberValue(n float64) Value { return Value{Kind: KindNumber, Num: n} }
func BoolValue(b bool) Value      { return Value{Kind: KindBool, Bool: b} }
func ListValue(vs ...Value) Value { return Value{Kind: KindList, List: vs} }

func MapValue(m map[string]Value) Value { return Value{Kind: KindMap, Map: m} }

// TimeValue encodes t as an RFC3339 string value.
func TimeValue(t time.Time) Value { return StringValue(t.UTC().Format(time.RFC3339)) }

// StringListValue builds a list value of strings.
func StringListValue(ss []string) Value {
	vs := make([]Value, len(ss))
	for i, s := range ss {
		vs[i] = StringValue(s)
	}
	return ListValue(vs...)
}

// ValueOf converts a decoded JSON/YAML tree into a Value.
func ValueOf(raw any) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return Value{Kind: KindNull}, nil
	case Value:
		return v, nil
	case string:
		return StringValue(v), nil
	case bool:
		return BoolValue(v), nil
	case float64:
		return NumberValue(v), nil
	case float32:
		return NumberValue(float64(v)), nil
	case int:
		return NumberValue(float64(v)), nil
	case int64:
		return NumberValue(float64(v)), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("parsing number %q: %w", v, err)
		}
		return NumberValue(f), nil
	case time.Time:
		return TimeValue(v), nil
	case []any:
		out := make([]Value, 0, len(v))
		for i, item := range v {
			iv, err := ValueOf(item)
			if err != nil {
				return Value{}, fmt.Errorf("list index %d: %w", i, err)
			}
			out = append(out, iv)
		}
		return ListValue(out...), nil
	case []string:
		return StringListValue(v), nil
	case map[string]any:
		out := make(map[string]Value, len(v))
		for k, item := range v {
			iv, err := ValueOf(item)
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = iv
		}
		return MapValue(out), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}

// Interface converts the Value back into plain Go values.
func (v Value) Interface() any {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num
	case KindBool:
		return v.Bool
	case KindList:
		out := make([]any, len(v.List))
		for i, item := range v.List {
			out[i] = item.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.Map))
		for k, item := range v.Map {
			out[k] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

func (v Value) IsNull() bool { return v.Kind == "" || v.Kind == KindNull }

func (v Value) AsString() (string, bool) {
	if v.Kind != KindString {
		return "", false
	}
	return v.Str, true
}

// AsNumber accepts numbers and numeric strings.
func (v Value) AsNumber() (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Num, !math.IsNaN(v.Num) && !math.IsInf(v.Num, 0)
	case KindString:
		f, err := strconv.ParseFloat(v.Str, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func (v Value) AsBool() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.Bool, true
}

// AsTime parses an RFC3339 string value.
func (v Value) AsTime() (time.Time, bool) {
	s, ok := v.AsString()
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// AsStringList returns the list items when every item is a string.
func (v Value) AsStringList() ([]string, bool) {
	if v.Kind != KindList {
		return nil, false
	}
	out := make([]string, 0, len(v.List))
	for _, item := range v.List {
		s, ok := item.AsString()
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// Clone returns a deep copy.
func (v Value) Clone() Value {
	out := v
	if v.List != nil {
		out.List = make([]Value, len(v.List))
		for i, item := range v.List {
			out.List[i] = item.Clone()
		}
	}
	if v.Map != nil {
		out.Map = CloneValueMap(v.Map)
	}
	return out
}

// CloneValueMap deep-copies a metadata map. A nil map stays nil.
func CloneValueMap(m map[string]Value) map[string]Value {
	if m == nil {
		return nil
	}
	out := make(map[string]Value, len(m))
	for k, v := range m {
		out[k] = v.Clone()
	}
	return out
}

func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindList, KindMap:
		b, _ := json.Marshal(v)
		return string(b)
	default:
		return "null"
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		return json.Marshal(v.Str)
	case KindNumber:
		if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
			return nil, fmt.Errorf("value: cannot encode non-finite number")
		}
		return json.Marshal(v.Num)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindList:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	case KindMap:
		// Sorted keys keep encoded snapshots byte-stable.
		keys := make([]string, 0, len(v.Map))
		for k := range v.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			vb, err := v.Map[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decoding value: %w", err)
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
