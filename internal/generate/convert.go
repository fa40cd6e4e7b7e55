package generate

import "fmt"

// ToInt64 converts a kwargs value to int64.
// Supports the integer and float types YAML decoding produces.
func ToInt64(v interface{}) int64 {
	switch i := v.(type) {
	case int64:
		return i
	case int:
		return int64(i)
	case int32:
		return int64(i)
	case int16:
		return int64(i)
	case int8:
		return int64(i)
	case uint:
		return int64(i)
	case uint64:
		return int64(i)
	case uint32:
		return int64(i)
	case uint16:
		return int64(i)
	case uint8:
		return int64(i)
	case float64:
		return int64(i)
	case float32:
		return int64(i)
	default:
		return 0
	}
}

// ToFloat64 converts a kwargs value to float64.
func ToFloat64(v interface{}) float64 {
	switch f := v.(type) {
	case float64:
		return f
	case float32:
		return float64(f)
	case int:
		return float64(f)
	case int64:
		return float64(f)
	case uint64:
		return float64(f)
	default:
		return 0
	}
}

// ToBool converts a kwargs value to bool.
func ToBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

// ToString converts a kwargs value to its string form.
func ToString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// ToStringSlice converts a kwargs value to a list of strings.
func ToStringSlice(v interface{}) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []interface{}:
		out := make([]string, 0, len(s))
		for _, e := range s {
			out = append(out, ToString(e))
		}
		return out
	case string:
		return []string{s}
	default:
		return nil
	}
}
