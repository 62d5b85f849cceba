package valueobjects

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// ValueKind tags the representation held by a Value
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindRaw
)

// String returns the kind name
func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindRaw:
		return "raw"
	default:
		return "null"
	}
}

// Value is a tagged attribute value: string, number, bool, string list,
// or raw JSON for structured data such as decoration settings.
// Values are immutable; accessors return copies of slices.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	flag bool
	list []string
	raw  json.RawMessage
}

// NullValue returns the null value
func NullValue() Value { return Value{} }

// StringValue wraps a string
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// NumberValue wraps a number
func NumberValue(n float64) Value { return Value{kind: KindNumber, num: n} }

// BoolValue wraps a boolean
func BoolValue(b bool) Value { return Value{kind: KindBool, flag: b} }

// ListValue wraps a list of strings
func ListValue(items []string) Value {
	list := make([]string, len(items))
	copy(list, items)
	return Value{kind: KindList, list: list}
}

// RawValue wraps an arbitrary JSON document. Invalid JSON becomes null.
func RawValue(raw json.RawMessage) Value {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return NullValue()
	}
	return Value{kind: KindRaw, raw: json.RawMessage(buf.Bytes())}
}

// ValueOf converts a plain Go value into a Value.
// Unsupported types are encoded through encoding/json as raw values.
func ValueOf(v interface{}) Value {
	switch t := v.(type) {
	case nil:
		return NullValue()
	case Value:
		return t
	case string:
		return StringValue(t)
	case bool:
		return BoolValue(t)
	case float64:
		return NumberValue(t)
	case float32:
		return NumberValue(float64(t))
	case int:
		return NumberValue(float64(t))
	case int64:
		return NumberValue(float64(t))
	case int32:
		return NumberValue(float64(t))
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return NumberValue(f)
		}
		return StringValue(t.String())
	case []string:
		return ListValue(t)
	case json.RawMessage:
		var out Value
		if err := out.UnmarshalJSON(t); err != nil {
			return NullValue()
		}
		return out
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return NullValue()
		}
		var out Value
		if err := out.UnmarshalJSON(data); err != nil {
			return NullValue()
		}
		return out
	}
}

// Kind returns the value's tag
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether the value is null
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsString returns the string payload
func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

// AsNumber returns the numeric payload
func (v Value) AsNumber() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// AsBool returns the boolean payload
func (v Value) AsBool() (bool, bool) {
	return v.flag, v.kind == KindBool
}

// AsList returns a copy of the list payload
func (v Value) AsList() ([]string, bool) {
	if v.kind != KindList {
		return nil, false
	}
	out := make([]string, len(v.list))
	copy(out, v.list)
	return out, true
}

// Raw returns a copy of the raw JSON payload
func (v Value) Raw() (json.RawMessage, bool) {
	if v.kind != KindRaw {
		return nil, false
	}
	out := make(json.RawMessage, len(v.raw))
	copy(out, v.raw)
	return out, true
}

// Numeric returns a finite number for numeric values and numeric strings.
func (v Value) Numeric() (float64, bool) {
	var n float64
	switch v.kind {
	case KindNumber:
		n = v.num
	case KindString:
		parsed, err := strconv.ParseFloat(v.str, 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// Strings returns the string coercion of the value used for facet matching.
// Lists and JSON arrays yield one entry per element; null yields nothing.
func (v Value) Strings() []string {
	switch v.kind {
	case KindNull:
		return nil
	case KindString:
		return []string{v.str}
	case KindNumber:
		return []string{formatNumber(v.num)}
	case KindBool:
		return []string{strconv.FormatBool(v.flag)}
	case KindList:
		out := make([]string, len(v.list))
		copy(out, v.list)
		return out
	default:
		var items []json.RawMessage
		if err := json.Unmarshal(v.raw, &items); err != nil {
			return []string{string(v.raw)}
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			var elem Value
			if err := elem.UnmarshalJSON(item); err != nil {
				continue
			}
			if elem.kind == KindRaw {
				out = append(out, string(elem.raw))
				continue
			}
			out = append(out, elem.Strings()...)
		}
		return out
	}
}

// String returns a display form of the value
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindString:
		return v.str
	case KindRaw:
		return string(v.raw)
	default:
		data, _ := v.MarshalJSON()
		return string(data)
	}
}

// Interface returns the value as a plain Go value (string, float64, bool,
// []string, nil, or the decoded JSON for raw values).
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.flag
	case KindList:
		out := make([]string, len(v.list))
		copy(out, v.list)
		return out
	case KindRaw:
		var out interface{}
		if err := json.Unmarshal(v.raw, &out); err != nil {
			return nil
		}
		return out
	default:
		return nil
	}
}

// Equal reports whether two values hold the same tag and payload
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == other.str
	case KindNumber:
		return v.num == other.num
	case KindBool:
		return v.flag == other.flag
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != other.list[i] {
				return false
			}
		}
		return true
	default:
		return bytes.Equal(v.raw, other.raw)
	}
}

// MarshalJSON implements json.Marshaler
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return []byte("null"), nil
		}
		return []byte(formatNumber(v.num)), nil
	case KindBool:
		return json.Marshal(v.flag)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindRaw:
		return v.raw, nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty attribute value")
	}

	switch data[0] {
	case 'n':
		*v = NullValue()
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
		return nil
	case '[':
		if list, ok := stringList(data); ok {
			*v = ListValue(list)
			return nil
		}
		if !json.Valid(data) {
			return fmt.Errorf("invalid attribute array")
		}
		*v = RawValue(data)
		return nil
	case '{':
		if !json.Valid(data) {
			return fmt.Errorf("invalid attribute object")
		}
		*v = RawValue(data)
		return nil
	default:
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("invalid attribute value %q", string(data))
		}
		*v = NumberValue(n)
		return nil
	}
}

// stringList decodes a JSON array whose elements are all non-null strings.
// Null elements would otherwise decode to "" and be lost on output.
func stringList(data []byte) ([]string, bool) {
	var items []*string
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false
	}
	list := make([]string, len(items))
	for i, item := range items {
		if item == nil {
			return nil, false
		}
		list[i] = *item
	}
	return list, true
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// Attributes is an open attribute bag keyed by attribute name
type Attributes map[string]Value

// NewAttributes builds an attribute bag from plain Go values
func NewAttributes(values map[string]interface{}) Attributes {
	attrs := make(Attributes, len(values))
	for k, v := range values {
		attrs[k] = ValueOf(v)
	}
	return attrs
}

// Get returns the named value
func (a Attributes) Get(name string) (Value, bool) {
	v, ok := a[name]
	return v, ok
}

// Has reports whether the attribute is present and not null
func (a Attributes) Has(name string) bool {
	v, ok := a[name]
	return ok && !v.IsNull()
}

// Keys returns attribute names in sorted order
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of the bag
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		switch v.kind {
		case KindList:
			v = ListValue(v.list)
		case KindRaw:
			raw := make(json.RawMessage, len(v.raw))
			copy(raw, v.raw)
			v.raw = raw
		}
		out[k] = v
	}
	return out
}

// Merge returns a copy of the bag with the patch applied.
// A null value in the patch removes the attribute.
func (a Attributes) Merge(patch Attributes) Attributes {
	out := a.Clone()
	for k, v := range patch.Clone() {
		if v.IsNull() {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

// Without returns a copy of the bag without the named attributes
func (a Attributes) Without(names ...string) Attributes {
	out := a.Clone()
	for _, name := range names {
		delete(out, name)
	}
	return out
}

// Equal reports whether both bags hold the same names and values
func (a Attributes) Equal(other Attributes) bool {
	if len(a) != len(other) {
		return false
	}
	for k, v := range a {
		ov, ok := other[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// ToMap converts the bag into plain Go values
func (a Attributes) ToMap() map[string]interface{} {
	out := make(map[string]interface{}, len(a))
	for k, v := range a {
		out[k] = v.Interface()
	}
	return out
}
