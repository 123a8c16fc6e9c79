package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf16"
)

// IRValue is a sealed interface representing constrained value types.
// Only IRNull, IRString, IRInt, IRBool, IRArray, and IRObject implement this.
// There is no float variant: stat arithmetic is integer-only.
type IRValue interface {
	irValue()
}

// IRNull represents an explicit null. Port values that were never produced are
// absent, not IRNull.
type IRNull struct{}

func (IRNull) irValue() {}

// MarshalJSON implements json.Marshaler for IRNull.
func (IRNull) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// IRString represents a string value.
type IRString string

func (IRString) irValue() {}

// IRInt represents an integer value. Owner references are carried as IRInt.
type IRInt int64

func (IRInt) irValue() {}

// IRBool represents a boolean value.
type IRBool bool

func (IRBool) irValue() {}

// IRArray represents an ordered list of values.
type IRArray []IRValue

func (IRArray) irValue() {}

// IRObject represents a map of string keys to values.
// Use SortedKeys() for deterministic iteration.
type IRObject map[string]IRValue

func (IRObject) irValue() {}

// IRPair is a key-value pair for typed IRObject construction.
type IRPair struct {
	Key   string
	Value IRValue
}

// O is a shorthand for IRPair.
// Example: Obj(O("attacker", IRInt(1)), O("target", IRInt(2)))
func O(key string, value IRValue) IRPair {
	return IRPair{Key: key, Value: value}
}

// Obj builds an IRObject from pairs.
func Obj(pairs ...IRPair) IRObject {
	obj := make(IRObject, len(pairs))
	for _, p := range pairs {
		obj[p.Key] = p.Value
	}
	return obj
}

// IsNull reports whether v is nil or IRNull.
func IsNull(v IRValue) bool {
	if v == nil {
		return true
	}
	_, ok := v.(IRNull)
	return ok
}

// AsInt extracts an int64 from v. Returns false for any other type.
func AsInt(v IRValue) (int64, bool) {
	n, ok := v.(IRInt)
	return int64(n), ok
}

// AsString extracts a string from v. Returns false for any other type.
func AsString(v IRValue) (string, bool) {
	s, ok := v.(IRString)
	return string(s), ok
}

// AsBool extracts a bool from v. Returns false for any other type.
func AsBool(v IRValue) (bool, bool) {
	b, ok := v.(IRBool)
	return bool(b), ok
}

// GetInt returns obj[key] as an int64.
func (obj IRObject) GetInt(key string) (int64, bool) {
	return AsInt(obj[key])
}

// GetString returns obj[key] as a string.
func (obj IRObject) GetString(key string) (string, bool) {
	return AsString(obj[key])
}

// GetBool returns obj[key] as a bool.
func (obj IRObject) GetBool(key string) (bool, bool) {
	return AsBool(obj[key])
}

// Clone returns a deep copy of obj. A nil object clones to an empty one.
func (obj IRObject) Clone() IRObject {
	out := make(IRObject, len(obj))
	for k, v := range obj {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v IRValue) IRValue {
	switch val := v.(type) {
	case IRObject:
		return val.Clone()
	case IRArray:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			arr[i] = cloneValue(elem)
		}
		return arr
	default:
		return v
	}
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings uses UTF-8 byte order, which differs outside the BMP.
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	return len(a16) - len(b16)
}

// UnmarshalJSON decodes a JSON object. Floats are rejected; null members
// become IRNull.
func (obj *IRObject) UnmarshalJSON(data []byte) error {
	if isJSONNull(data) {
		return nil
	}
	v, err := decodeJSON(data, true)
	if err != nil {
		return err
	}
	o, ok := v.(IRObject)
	if !ok {
		return fmt.Errorf("want JSON object, got %T", v)
	}
	*obj = o
	return nil
}

// UnmarshalJSON decodes a JSON array with the same rules as IRObject.
func (arr *IRArray) UnmarshalJSON(data []byte) error {
	if isJSONNull(data) {
		return nil
	}
	v, err := decodeJSON(data, true)
	if err != nil {
		return err
	}
	a, ok := v.(IRArray)
	if !ok {
		return fmt.Errorf("want JSON array, got %T", v)
	}
	*arr = a
	return nil
}

// MarshalJSON writes obj with keys in canonical order. Strings are not
// NFC-normalized; use MarshalCanonical for hashing.
func (obj IRObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := appendJSON(&buf, obj); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalJSON writes arr as a JSON array.
func (arr IRArray) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := appendJSON(&buf, arr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalIRValue marshals an IRValue to JSON bytes. A nil value is null.
func MarshalIRValue(v IRValue) ([]byte, error) {
	var buf bytes.Buffer
	if err := appendJSON(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func appendJSON(buf *bytes.Buffer, v IRValue) error {
	switch val := v.(type) {
	case nil, IRNull:
		buf.WriteString("null")
	case IRString:
		b, err := json.Marshal(string(val))
		if err != nil {
			return err
		}
		buf.Write(b)
	case IRInt:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case IRBool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case IRArray:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendJSON(buf, elem); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case IRObject:
		buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			_ = appendJSON(buf, IRString(k))
			buf.WriteByte(':')
			if err := appendJSON(buf, val[k]); err != nil {
				return fmt.Errorf("%q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown IRValue type: %T", v)
	}
	return nil
}

func isJSONNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

// UnmarshalIRValue decodes one JSON value. Floats and a top-level null are
// rejected.
func UnmarshalIRValue(data []byte) (IRValue, error) {
	return decodeJSON(data, false)
}

// decodeJSON decodes data with json.Number so integers keep full precision.
// nested reports whether null is accepted (as IRNull) inside containers.
func decodeJSON(data []byte, nested bool) (IRValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("null is forbidden in IR")
	}
	return fromGo(raw, nested)
}

// FromGo converts decoded Go data (JSON, YAML or CUE) into an IRValue.
// Accepts bool, string, all integer kinds, json.Number, []any and
// map[string]any. Rejects null and floats.
func FromGo(v any) (IRValue, error) {
	return fromGo(v, false)
}

func fromGo(v any, allowNull bool) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		if allowNull {
			return IRNull{}, nil
		}
		return nil, fmt.Errorf("null is forbidden in IR")
	case IRValue:
		return val, nil
	case bool:
		return IRBool(val), nil
	case string:
		return IRString(val), nil
	case int:
		return IRInt(val), nil
	case int32:
		return IRInt(val), nil
	case int64:
		return IRInt(val), nil
	case uint64:
		return IRInt(int64(val)), nil
	case json.Number:
		s := string(val)
		if strings.ContainsAny(s, ".eE") {
			return nil, fmt.Errorf("floats are forbidden in IR: %s", val)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", val)
		}
		return IRInt(n), nil
	case float32, float64:
		return nil, fmt.Errorf("floats are forbidden in IR: %v", val)
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			irElem, err := fromGo(elem, allowNull)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			irElem, err := fromGo(elem, allowNull)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = irElem
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// ToGo converts an IRValue into plain Go data for display and YAML/JSON output.
func ToGo(v IRValue) any {
	switch val := v.(type) {
	case IRString:
		return string(val)
	case IRInt:
		return int64(val)
	case IRBool:
		return bool(val)
	case IRArray:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToGo(elem)
		}
		return out
	case IRObject:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToGo(elem)
		}
		return out
	default:
		return nil
	}
}
