package core

import "fmt"

// ConfigurationError reports an invalid option at construction time (bad API
// key, bad threshold ordering). It is always fatal and never retried.
type ConfigurationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("vex: invalid configuration for %q: %s", e.Field, e.Reason)
}

// VerificationError reports that the verification endpoint was reached but
// returned a non-success status. It is raised without retry; callers can
// distinguish it from transport failures (which are retried) to decide
// whether to fail open.
type VerificationError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *VerificationError) Error() string {
	return fmt.Sprintf("vex: verification failed with status %d: %s", e.StatusCode, e.Body)
}

// BlockError signals an explicit block verdict from the verifier. It carries
// the full result so callers can branch on it with errors.As and inspect the
// blocked output, confidence and verification detail without string matching.
type BlockError struct {
	Result *VexResult
}

// Error implements the error interface.
func (e *BlockError) Error() string {
	if e.Result != nil && e.Result.Confidence != nil {
		return fmt.Sprintf("vex: output blocked by verifier (confidence=%.3f)", *e.Result.Confidence)
	}
	return "vex: output blocked by verifier"
}
