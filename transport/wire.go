package transport

import (
	"encoding/json"

	"github.com/iancoleman/strcase"

	"github.com/vexlabs/vex-go/core"
)

// ToWire recursively rewrites map keys from the internal camelCase
// convention to the backend's snake_case wire convention. Values that are
// neither maps nor slices pass through unchanged.
func ToWire(v any) any { return convertKeys(v, strcase.ToSnake) }

// FromWire is the inverse of ToWire, rewriting snake_case keys back to
// camelCase. For any mapping of non-colliding key pairs the two functions
// are mutual inverses.
func FromWire(v any) any { return convertKeys(v, strcase.ToLowerCamel) }

func convertKeys(v any, convert func(string) string) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[convert(k)] = convertKeys(val, convert)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = convertKeys(val, convert)
		}
		return out
	default:
		return v
	}
}

// EventToWire renders an event as a generic map with wire-convention keys.
func EventToWire(ev core.ExecutionEvent) (map[string]any, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return ToWire(m).(map[string]any), nil
}
