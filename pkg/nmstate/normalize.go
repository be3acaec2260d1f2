package nmstate

import (
	"strconv"
	"strings"

	"github.com/nmstate-go/nmstate/pkg/nmerr"
)

const nbsp = " "

// normalizeTree walks a parsed YAML/JSON document (maps, slices, scalars)
// replacing non-breaking spaces with ASCII spaces in every string, per
// spec.md §4.1. It returns a new tree; scalars that aren't strings pass
// through untouched.
func normalizeTree(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[normalizeString(k)] = normalizeTree(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeTree(val)
		}
		return out
	case string:
		return normalizeString(t)
	default:
		return v
	}
}

func normalizeString(s string) string {
	return strings.ReplaceAll(s, nbsp, " ")
}

// boolTokens maps the string-ized booleans spec.md §4.1 and §8 scenario S3/
// testable-property 6 require the parser to coerce.
var boolTokens = map[string]bool{
	"true": true, "yes": true, "1": true, "y": true,
	"false": false, "no": false, "0": false, "n": false,
}

// coerceBool accepts a native bool or one of the recognized string tokens
// (case-insensitive), returning ok=false for anything else.
func coerceBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, ok := boolTokens[strings.ToLower(t)]
		return b, ok
	}
	return false, false
}

// coerceInt accepts a native int/float64 (YAML/JSON decode numbers as one
// of those) or a string-ized integer, e.g. "1500" for mtu (spec.md §8 S3).
func coerceInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func coerceString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case int:
		return strconv.Itoa(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	}
	return "", false
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asSlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

// field is a typed accessor over a generic document map that records
// whether the key was present (vs. simply absent), per spec.md §9's
// presence-vs-empty invariant.
type field struct {
	m  map[string]any
	ok bool
}

func get(m map[string]any, key string) field {
	v, ok := m[key]
	if !ok {
		return field{}
	}
	return field{m: map[string]any{key: v}, ok: true}
}

func (f field) raw() (any, bool) {
	if !f.ok {
		return nil, false
	}
	for _, v := range f.m {
		return v, true
	}
	return nil, false
}

func (f field) String(path string) (*string, error) {
	v, ok := f.raw()
	if !ok {
		return nil, nil
	}
	if v == nil {
		return nil, nil
	}
	s, ok := coerceString(v)
	if !ok {
		return nil, nmerr.New(nmerr.InvalidArgument, path, "expected a string, got %T", v)
	}
	return &s, nil
}

func (f field) Bool(path string) (*bool, error) {
	v, ok := f.raw()
	if !ok {
		return nil, nil
	}
	if v == nil {
		return nil, nil
	}
	b, ok := coerceBool(v)
	if !ok {
		return nil, nmerr.New(nmerr.InvalidArgument, path, "expected a boolean, got %v", v)
	}
	return &b, nil
}

func (f field) Int(path string) (*int, error) {
	v, ok := f.raw()
	if !ok {
		return nil, nil
	}
	if v == nil {
		return nil, nil
	}
	n, ok := coerceInt(v)
	if !ok {
		return nil, nmerr.New(nmerr.InvalidArgument, path, "expected an integer, got %v", v)
	}
	return &n, nil
}

func (f field) Map(path string) (map[string]any, bool, error) {
	v, ok := f.raw()
	if !ok || v == nil {
		return nil, ok, nil
	}
	m, ok := asMap(v)
	if !ok {
		return nil, true, nmerr.New(nmerr.InvalidArgument, path, "expected a mapping, got %T", v)
	}
	return m, true, nil
}

func (f field) Slice(path string) ([]any, bool, error) {
	v, ok := f.raw()
	if !ok || v == nil {
		return nil, ok, nil
	}
	s, ok := asSlice(v)
	if !ok {
		return nil, true, nmerr.New(nmerr.InvalidArgument, path, "expected a list, got %T", v)
	}
	return s, true, nil
}

func (f field) StringSlice(path string) (*[]string, error) {
	s, present, err := f.Slice(path)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	out := make([]string, len(s))
	for idx, v := range s {
		str, ok := coerceString(v)
		if !ok {
			return nil, nmerr.New(nmerr.InvalidArgument, path, "element %d: expected a string", idx)
		}
		out[idx] = str
	}
	return &out, nil
}
