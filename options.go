package vex

import (
	"net/http"
	"strings"
	"time"

	"github.com/vexlabs/vex-go/core"
	"github.com/vexlabs/vex-go/logging"
)

// Mode selects how traced events are delivered.
type Mode string

const (
	// ModeAsync buffers events and ships them in background batches; Trace
	// returns a pass-through result immediately.
	ModeAsync Mode = "async"
	// ModeSync verifies every event inline and blocks until a verdict.
	ModeSync Mode = "sync"
)

// Correction modes.
const (
	// CorrectionNone disables backend output correction.
	CorrectionNone = "none"
	// CorrectionAuto lets the backend rewrite failing outputs before
	// returning them.
	CorrectionAuto = "auto"
)

// Transparency modes controlling whether corrected results reveal the
// original output.
const (
	TransparencyOpaque      = "opaque"
	TransparencyTransparent = "transparent"
)

// DefaultAPIURL is the hosted Vex backend.
const DefaultAPIURL = "https://api.vexlabs.dev"

// minAPIKeyLength is enforced on the trimmed key at construction.
const minAPIKeyLength = 8

// Options configures a Vex client. Zero values fall back to defaults.
type Options struct {
	// Mode selects sync or async delivery. Defaults to ModeAsync.
	Mode Mode
	// Correction selects the backend correction mode (sync mode only).
	Correction string
	// Transparency controls whether corrected results carry the original
	// output.
	Transparency string
	// APIURL overrides the backend base URL.
	APIURL string
	// Timeout bounds each individual HTTP attempt.
	Timeout time.Duration
	// CorrectionTimeout replaces Timeout for verify calls with correction
	// active.
	CorrectionTimeout time.Duration
	// FlushInterval is the period of the background flush loop.
	FlushInterval time.Duration
	// FlushBatchSize caps events per ingest request.
	FlushBatchSize int
	// ConversationWindowSize bounds session history injected per turn.
	ConversationWindowSize int
	// MaxBufferSize caps the async transport's pending buffer.
	MaxBufferSize int
	// Threshold holds the verdict cutoffs; must satisfy block < flag < pass.
	Threshold core.ThresholdConfig
	// LogEventIDs enables debug logging of execution IDs.
	LogEventIDs bool
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
	// HTTPClient overrides the default HTTP client (mainly for tests).
	HTTPClient *http.Client
}

func defaultOptions() Options {
	return Options{
		Mode:                   ModeAsync,
		Correction:             CorrectionNone,
		Transparency:           TransparencyOpaque,
		APIURL:                 DefaultAPIURL,
		Timeout:                30 * time.Second,
		CorrectionTimeout:      60 * time.Second,
		FlushInterval:          10 * time.Second,
		FlushBatchSize:         100,
		ConversationWindowSize: 10,
		MaxBufferSize:          10000,
		Threshold:              core.ThresholdConfig{Pass: 0.8, Flag: 0.5, Block: 0.2},
		Logger:                 logging.NoOpLogger{},
	}
}

// resolveOptions merges overrides onto defaults and validates the result.
func resolveOptions(apiKey string, optFns ...func(o *Options)) (string, Options, error) {
	key := strings.TrimSpace(apiKey)
	if len(key) < minAPIKeyLength {
		return "", Options{}, &core.ConfigurationError{Field: "apiKey", Reason: "API key must be non-empty and at least 8 characters"}
	}

	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Mode != ModeSync && opts.Mode != ModeAsync {
		return "", Options{}, &core.ConfigurationError{Field: "mode", Reason: "mode must be \"sync\" or \"async\""}
	}
	if err := opts.Threshold.Validate(); err != nil {
		return "", Options{}, err
	}
	if opts.Timeout <= 0 || opts.FlushInterval <= 0 {
		return "", Options{}, &core.ConfigurationError{Field: "timeout", Reason: "timeout and flush interval must be positive"}
	}
	if opts.CorrectionTimeout <= 0 {
		opts.CorrectionTimeout = opts.Timeout
	}
	if opts.MaxBufferSize <= 0 || opts.FlushBatchSize <= 0 || opts.ConversationWindowSize <= 0 {
		return "", Options{}, &core.ConfigurationError{Field: "buffers", Reason: "buffer, batch and window sizes must be positive"}
	}
	return key, opts, nil
}
