// Package util holds small internal helpers shared across the SDK.
package util

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// NewID generates a new unique identifier for executions and sessions.
func NewID() string { return uuid.NewString() }

// Stringify renders an arbitrary value as a string for step records. Strings
// pass through unchanged; everything else is JSON encoded, falling back to
// fmt formatting for values JSON cannot represent.
func Stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
