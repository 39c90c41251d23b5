package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vexlabs/vex-go/core"
	"github.com/vexlabs/vex-go/internal/testutil"
)

func newTestSync(srv *httptest.Server, optFns ...func(o *SyncOptions)) *SyncTransport {
	cfg := Config{APIURL: srv.URL, APIKey: "test-key-123"}
	return NewSyncTransport(cfg, optFns...)
}

func TestSyncTransport_VerifyMapsResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/v1/verify", req.URL.Path)
		assert.Equal(t, "test-key-123", req.Header.Get("X-Vex-Key"))

		json.NewEncoder(w).Encode(map[string]any{
			"execution_id":    "exec-7",
			"confidence":      0.92,
			"action":          "flag",
			"output":          "corrected text",
			"corrected":       true,
			"original_output": "raw text",
			"checks":          map[string]any{"toxicity": "ok"},
			"correction_attempts": []any{
				map[string]any{"round": float64(1)},
			},
		})
	}))
	defer srv.Close()

	st := newTestSync(srv)
	ev := testutil.NewEventBuilder().ExecutionID("exec-7").Output("raw text").Build()

	res, err := st.Verify(context.Background(), ev, VerifyOptions{})
	require.NoError(t, err)

	assert.Equal(t, "exec-7", res.ExecutionID)
	assert.Equal(t, core.ActionFlag, res.Action)
	require.NotNil(t, res.Confidence)
	assert.Equal(t, 0.92, *res.Confidence)
	assert.Equal(t, "corrected text", res.Output)
	assert.True(t, res.Corrected)
	assert.Equal(t, "raw text", res.OriginalOutput)
	assert.NotNil(t, res.Verification)
	assert.Len(t, res.Corrections, 1)
}

func TestSyncTransport_RequestCarriesThresholdsAndCorrection(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		require.NoError(t, json.NewDecoder(req.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]any{"action": "pass"})
	}))
	defer srv.Close()

	st := newTestSync(srv)
	ev := testutil.NewEventBuilder().ExecutionID("exec-1").Output("x").Build()

	_, err := st.Verify(context.Background(), ev, VerifyOptions{
		Thresholds:   &core.ThresholdConfig{Pass: 0.8, Flag: 0.5, Block: 0.2},
		Correction:   "auto",
		Transparency: "transparent",
	})
	require.NoError(t, err)

	assert.Equal(t, "exec-1", captured["execution_id"])
	meta := captured["metadata"].(map[string]any)
	thresholds := meta["thresholds"].(map[string]any)
	assert.Equal(t, 0.8, thresholds["pass_threshold"])
	assert.Equal(t, 0.5, thresholds["flag_threshold"])
	assert.Equal(t, "auto", meta["correction"])
	assert.Equal(t, "transparent", meta["transparency"])
}

func TestSyncTransport_NoCorrectionMetadataWhenNone(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		require.NoError(t, json.NewDecoder(req.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]any{"action": "pass"})
	}))
	defer srv.Close()

	st := newTestSync(srv)
	ev := testutil.NewEventBuilder().Output("x").Build()

	_, err := st.Verify(context.Background(), ev, VerifyOptions{Correction: CorrectionNone})
	require.NoError(t, err)

	if meta, ok := captured["metadata"].(map[string]any); ok {
		assert.NotContains(t, meta, "correction")
		assert.NotContains(t, meta, "transparency")
	}
}

func TestSyncTransport_HTTPErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		http.Error(w, "unprocessable", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	st := newTestSync(srv)
	ev := testutil.NewEventBuilder().Output("x").Build()

	_, err := st.Verify(context.Background(), ev, VerifyOptions{})
	require.Error(t, err)

	var verr *core.VerificationError
	require.True(t, errors.As(err, &verr), "expected VerificationError, got %T", err)
	assert.Equal(t, http.StatusUnprocessableEntity, verr.StatusCode)
	assert.Equal(t, int32(1), calls.Load(), "a received non-2xx must not be retried")
}

func TestSyncTransport_TransportFailureIsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		panic(http.ErrAbortHandler) // drop the connection mid-request
	}))
	defer srv.Close()

	st := newTestSync(srv, func(o *SyncOptions) { o.Timeout = time.Second })
	ev := testutil.NewEventBuilder().Output("x").Build()

	_, err := st.Verify(context.Background(), ev, VerifyOptions{})
	require.Error(t, err)

	var verr *core.VerificationError
	assert.False(t, errors.As(err, &verr), "transport failures are not verification errors")
	assert.Equal(t, int32(3), calls.Load(), "expected 3 total attempts")
}

func TestSyncTransport_CorrectionTimeoutApplies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		time.Sleep(100 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]any{"action": "pass"})
	}))
	defer srv.Close()

	// The base timeout would fire before the handler responds; the
	// correction-aware timeout must be selected instead.
	st := newTestSync(srv, func(o *SyncOptions) {
		o.Timeout = 10 * time.Millisecond
		o.CorrectionTimeout = 2 * time.Second
	})
	ev := testutil.NewEventBuilder().Output("x").Build()

	_, err := st.Verify(context.Background(), ev, VerifyOptions{Correction: "auto"})
	require.NoError(t, err)
}
