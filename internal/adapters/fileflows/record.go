package fileflows

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
)

// Record is one JSON object returned by FileFlows after key normalization.
// Unknown fields are kept as-is.
type Record map[string]interface{}

// Normalize rewrites every object key in v to PascalCase, recursing through
// nested objects and lists. FileFlows mixes "Uid"/"uid" and "Name"/"name"
// across versions; after Normalize only the capitalized form exists.
// When both spellings are present the capitalized one wins.
func Normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(Record, len(t))
		for k, val := range t {
			key := canonicalKey(k)
			if _, exists := out[key]; exists && key != k {
				continue
			}
			out[key] = Normalize(val)
		}
		return out
	case Record:
		return Normalize(map[string]interface{}(t))
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = Normalize(val)
		}
		return out
	case []Record:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = Normalize(val)
		}
		return out
	default:
		return v
	}
}

func canonicalKey(k string) string {
	r, size := utf8.DecodeRuneInString(k)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return k
	}
	return string(unicode.ToUpper(r)) + k[size:]
}

// Has reports whether key is present and non-nil.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// String returns the field as a string, or "" when absent or not convertible.
func (r Record) String(key string) string {
	return strings.TrimSpace(cast.ToString(r[key]))
}

// Int returns the field as an int, or 0.
func (r Record) Int(key string) int {
	return cast.ToInt(r[key])
}

// Int64 returns the field as an int64, or 0.
func (r Record) Int64(key string) int64 {
	return cast.ToInt64(r[key])
}

// Float returns the field as a float64, or 0.
func (r Record) Float(key string) float64 {
	return cast.ToFloat64(r[key])
}

// Bool returns the field as a bool, or false.
func (r Record) Bool(key string) bool {
	return cast.ToBool(r[key])
}

// Record returns a nested object, or an empty Record.
func (r Record) Record(key string) Record {
	return asRecord(r[key])
}

// List returns a nested list of objects, skipping non-object elements.
func (r Record) List(key string) []Record {
	return asRecords(r[key])
}

// First returns the first non-empty string among keys.
func (r Record) First(keys ...string) string {
	for _, k := range keys {
		if s := r.String(k); s != "" {
			return s
		}
	}
	return ""
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return Record{}
	}
	return deepCopy(r).(Record)
}

// Decode copies r into the struct pointed to by out, converting loosely typed
// values ("1" to int, 0/1 to bool). Fields that cannot be converted are left
// at their zero value and reported in the returned error.
func (r Record) Decode(out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(map[string]interface{}(r))
}

func asRecord(v interface{}) Record {
	switch t := v.(type) {
	case Record:
		return t
	case map[string]interface{}:
		return Record(t)
	default:
		return Record{}
	}
}

func asRecords(v interface{}) []Record {
	switch t := v.(type) {
	case []Record:
		return t
	case []interface{}:
		out := make([]Record, 0, len(t))
		for _, item := range t {
			switch m := item.(type) {
			case Record:
				out = append(out, m)
			case map[string]interface{}:
				out = append(out, Record(m))
			}
		}
		return out
	default:
		return []Record{}
	}
}

func deepCopy(v interface{}) interface{} {
	switch t := v.(type) {
	case Record:
		out := make(Record, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case map[string]interface{}:
		out := make(Record, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []Record:
		out := make([]Record, len(t))
		for i, val := range t {
			out[i] = deepCopy(val).(Record)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}

// CloneValue deep-copies a decoded resource value.
func CloneValue(v interface{}) interface{} {
	return deepCopy(v)
}
