package docstore

import (
	"fmt"
	"strings"
	"time"
)

// Properties holds the data of a record. Values are normalised to string,
// bool, float64, time.Time, nil, []any or map[string]any.
type Properties map[string]any

// Clone returns a deep copy of p.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = cloneValue(vv)
		}
		return s
	default:
		return v
	}
}

// normalize converts supported Go values into the property value model.
func normalize(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, bool, float64:
		return t, nil
	case time.Time:
		return t.UTC(), nil
	case *time.Time:
		if t == nil {
			return nil, nil
		}
		return t.UTC(), nil
	case int:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case float32:
		return float64(t), nil
	case []string:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = vv
		}
		return s, nil
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			n, err := normalize(vv)
			if err != nil {
				return nil, err
			}
			s[i] = n
		}
		return s, nil
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			n, err := normalize(vv)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			m[k] = n
		}
		return m, nil
	case []map[string]any:
		s := make([]any, len(t))
		for i, vv := range t {
			n, err := normalize(vv)
			if err != nil {
				return nil, err
			}
			s[i] = n
		}
		return s, nil
	default:
		return nil, fmt.Errorf("docstore: unsupported property type %T", v)
	}
}

// normalizeProperties normalises every value of p into a new map.
func normalizeProperties(p Properties) (Properties, error) {
	out := make(Properties, len(p))
	for k, v := range p {
		n, err := normalize(v)
		if err != nil {
			return nil, fmt.Errorf("docstore: property %q: %w", k, err)
		}
		out[k] = n
	}
	return out, nil
}

// compareValues orders two normalised scalar values of the same type.
// ok is false when the values are not comparable.
func compareValues(a, b any) (c int, ok bool) {
	switch x := a.(type) {
	case string:
		y, isStr := b.(string)
		if !isStr {
			return 0, false
		}
		return strings.Compare(x, y), true
	case float64:
		y, isNum := b.(float64)
		if !isNum {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case bool:
		y, isBool := b.(bool)
		if !isBool {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	case time.Time:
		y, isTime := b.(time.Time)
		if !isTime {
			return 0, false
		}
		return x.Compare(y), true
	}
	return 0, false
}
