package core

import "fmt"

// ThresholdConfig holds the three confidence cutoffs driving the verifier's
// verdict. The ordering invariant is strict: Block < Flag < Pass. An invalid
// set is a configuration failure at resolution time, never silently clamped.
type ThresholdConfig struct {
	Pass  float64 `json:"pass"`
	Flag  float64 `json:"flag"`
	Block float64 `json:"block"`
}

// Validate checks the strict ordering invariant.
func (t ThresholdConfig) Validate() error {
	if !(t.Block < t.Flag && t.Flag < t.Pass) {
		return &ConfigurationError{
			Field:  "threshold",
			Reason: fmt.Sprintf("thresholds must satisfy block < flag < pass, got block=%v flag=%v pass=%v", t.Block, t.Flag, t.Pass),
		}
	}
	return nil
}

// VexResult is the outcome returned to the caller for one trace. In async
// mode it is a pass-through (Action == ActionPass, nil Confidence, the output
// exactly as recorded). In sync mode it reflects the verifier's verdict,
// including any correction the backend applied.
type VexResult struct {
	ExecutionID string `json:"executionId"`
	// Action is the verdict: pass, flag or block.
	Action Action `json:"action"`
	// Confidence is the verifier's score; nil when no verification ran.
	Confidence *float64 `json:"confidence"`
	// Output is the (possibly corrected) output.
	Output any `json:"output"`
	// Corrections lists the backend's correction attempts, if any.
	Corrections []any `json:"corrections,omitempty"`
	// Verification carries the opaque verdict detail (per-check results).
	Verification any `json:"verification,omitempty"`
	// Corrected reports whether Output differs from what was recorded.
	Corrected bool `json:"corrected"`
	// OriginalOutput is populated only when a correction occurred and the
	// transparency mode reveals it.
	OriginalOutput any `json:"originalOutput,omitempty"`
}
