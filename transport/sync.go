package transport

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/vexlabs/vex-go/core"
	"github.com/vexlabs/vex-go/logging"
)

// CorrectionNone disables backend correction for a verify call.
const CorrectionNone = "none"

// VerifyOptions carries the per-call knobs merged into the outbound event's
// metadata: the threshold cutoffs, and the correction/transparency modes
// when correction is requested.
type VerifyOptions struct {
	Thresholds   *core.ThresholdConfig
	Correction   string
	Transparency string
}

// correctionActive reports whether a correction mode other than "none" was
// requested.
func (o VerifyOptions) correctionActive() bool {
	return o.Correction != "" && o.Correction != CorrectionNone
}

// SyncOptions holds configuration overrides passed to NewSyncTransport.
type SyncOptions struct {
	// Timeout bounds each HTTP attempt of a plain verification.
	Timeout time.Duration
	// CorrectionTimeout replaces Timeout when correction is active; the
	// backend may run multiple correction rounds before responding.
	CorrectionTimeout time.Duration
	Logger            logging.Logger
}

// SyncTransport obtains an inline verification verdict for one event,
// blocking the caller. Transport failures are retried with the shared
// backoff policy; a received non-2xx response is converted immediately into
// a core.VerificationError and never retried.
type SyncTransport struct {
	cfg               Config
	timeout           time.Duration
	correctionTimeout time.Duration
	logger            logging.Logger
}

// NewSyncTransport constructs a SyncTransport with optional overrides.
func NewSyncTransport(cfg Config, optFns ...func(o *SyncOptions)) *SyncTransport {
	opts := SyncOptions{
		Timeout:           30 * time.Second,
		CorrectionTimeout: 60 * time.Second,
		Logger:            logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &SyncTransport{
		cfg:               cfg,
		timeout:           opts.Timeout,
		correctionTimeout: opts.CorrectionTimeout,
		logger:            opts.Logger,
	}
}

// Verify ships one event to the verification endpoint and returns the
// backend's verdict mapped to a VexResult.
func (t *SyncTransport) Verify(ctx context.Context, ev core.ExecutionEvent, opts VerifyOptions) (*core.VexResult, error) {
	wire, err := EventToWire(ev)
	if err != nil {
		return nil, err
	}

	meta, _ := wire["metadata"].(map[string]any)
	if meta == nil {
		meta = map[string]any{}
	}
	if opts.Thresholds != nil {
		meta["thresholds"] = map[string]any{
			"pass_threshold": opts.Thresholds.Pass,
			"flag_threshold": opts.Thresholds.Flag,
		}
	}

	timeout := t.timeout
	if opts.correctionActive() {
		meta["correction"] = opts.Correction
		if opts.Transparency != "" {
			meta["transparency"] = opts.Transparency
		}
		timeout = t.correctionTimeout
	}
	if len(meta) > 0 {
		wire["metadata"] = meta
	}

	client := t.cfg.client()
	url := t.cfg.APIURL + verifyPath
	t.logger.Debug("verifying execution", "execution_id", ev.ExecutionID, "correction", opts.correctionActive())

	var respBody []byte
	operation := func() error {
		body, err := postJSON(ctx, client, url, t.cfg.APIKey, timeout, wire)
		if err == nil {
			respBody = body
			return nil
		}
		var statusErr *httpStatusError
		if errors.As(err, &statusErr) {
			// The backend was reached and rejected the call; never retried.
			return backoff.Permanent(&core.VerificationError{StatusCode: statusErr.status, Body: statusErr.body})
		}
		return err
	}
	if err := backoff.Retry(operation, newRetryBackoff(ctx)); err != nil {
		return nil, err
	}
	return parseVerifyResponse(ev, respBody)
}

// parseVerifyResponse converts the wire response back to the internal result
// shape. Unrecognized fields are ignored; missing fields fall back to the
// event's own values.
func parseVerifyResponse(ev core.ExecutionEvent, body []byte) (*core.VexResult, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &core.VerificationError{StatusCode: 200, Body: "malformed response body"}
	}
	m := FromWire(raw).(map[string]any)

	res := &core.VexResult{
		ExecutionID: ev.ExecutionID,
		Action:      core.ActionPass,
		Output:      ev.Output,
	}
	if id, ok := m["executionId"].(string); ok && id != "" {
		res.ExecutionID = id
	}
	if c, ok := m["confidence"].(float64); ok {
		res.Confidence = &c
	}
	if a, ok := m["action"].(string); ok && core.Action(a).Valid() {
		res.Action = core.Action(a)
	}
	if out, ok := m["output"]; ok && out != nil {
		res.Output = out
	}
	if corrections, ok := m["corrections"].([]any); ok {
		res.Corrections = corrections
	} else if attempts, ok := m["correctionAttempts"].([]any); ok {
		res.Corrections = attempts
	}
	if checks, ok := m["checks"]; ok {
		res.Verification = checks
	}
	if corrected, ok := m["corrected"].(bool); ok {
		res.Corrected = corrected
	}
	if orig, ok := m["originalOutput"]; ok {
		res.OriginalOutput = orig
	}
	return res, nil
}
