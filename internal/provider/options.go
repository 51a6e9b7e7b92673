package provider

import (
	"encoding/json"
	"fmt"
	"strings"
)

// The extractors below read loosely typed values out of RequestOptions.Extra.
// Values decoded from JSON arrive as float64/[]any/map[string]any, values set
// in Go code arrive with their native types; both are accepted.

func ExtractFloat(options map[string]any, key string) (float64, bool) {
	if options == nil {
		return 0, false
	}
	if value, ok := options[key]; ok {
		switch v := value.(type) {
		case float64:
			return v, true
		case float32:
			return float64(v), true
		case int:
			return float64(v), true
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func ExtractInt(options map[string]any, key string) (int, bool) {
	if options == nil {
		return 0, false
	}
	if value, ok := options[key]; ok {
		switch v := value.(type) {
		case int:
			return v, true
		case int64:
			return int(v), true
		case float64:
			return int(v), true
		case json.Number:
			if i, err := v.Int64(); err == nil {
				return int(i), true
			}
		}
	}
	return 0, false
}

func ExtractString(options map[string]any, key string) (string, bool) {
	if options == nil {
		return "", false
	}
	if value, ok := options[key]; ok {
		if str, ok := value.(string); ok && strings.TrimSpace(str) != "" {
			return str, true
		}
	}
	return "", false
}

// ExtractStringSlice accepts a single string as a one-element slice.
func ExtractStringSlice(options map[string]any, key string) ([]string, bool) {
	if options == nil {
		return nil, false
	}
	value, ok := options[key]
	if !ok {
		return nil, false
	}
	switch v := value.(type) {
	case string:
		return []string{v}, true
	case []string:
		return v, true
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			result = append(result, str)
		}
		return result, true
	}
	return nil, false
}

func ExtractMap(options map[string]any, key string) (map[string]any, bool) {
	if options == nil {
		return nil, false
	}
	if value, ok := options[key]; ok {
		switch m := value.(type) {
		case map[string]any:
			return m, true
		case map[string]string:
			out := make(map[string]any, len(m))
			for k, v := range m {
				out[k] = v
			}
			return out, true
		}
	}
	return nil, false
}

// Remaining returns the entries of options whose keys are not in known.
func Remaining(options map[string]any, known ...string) map[string]any {
	if len(options) == 0 {
		return nil
	}
	skip := make(map[string]struct{}, len(known))
	for _, k := range known {
		skip[k] = struct{}{}
	}
	out := make(map[string]any)
	for k, v := range options {
		if _, ok := skip[k]; ok {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// MergeExtra marshals base and overlays the extra keys onto the resulting
// object. Keys already produced by base win.
func MergeExtra(base any, extra map[string]any) ([]byte, error) {
	data, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return data, nil
	}
	merged := make(map[string]json.RawMessage, len(extra))
	for k, v := range extra {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal extra parameter %q: %w", k, err)
		}
		merged[k] = raw
	}
	var typed map[string]json.RawMessage
	if err := json.Unmarshal(data, &typed); err != nil {
		return nil, err
	}
	for k, v := range typed {
		merged[k] = v
	}
	return json.Marshal(merged)
}
