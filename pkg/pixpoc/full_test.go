package pixpoc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullDataHandler(failTranscript, failAnalysis bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/transcript"):
			if failTranscript {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    map[string]any{"transcript": "hello"},
			})
		case strings.HasSuffix(r.URL.Path, "/analysis"):
			if failAnalysis {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data": map[string]any{
					"status":   "COMPLETED",
					"metadata": map[string]any{"goals": []any{"retirement"}},
				},
			})
		default:
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data": map[string]any{
					"call": map[string]any{"id": "call-abc", "trackingId": "sid-xyz", "status": "completed"},
				},
			})
		}
	})
}

func TestFullCallData_AllSucceed(t *testing.T) {
	c := newTestClient(t, fullDataHandler(false, false))

	full, err := c.FullCallData(context.Background(), "call-abc")
	require.NoError(t, err)
	require.NotNil(t, full.Call)
	require.NotNil(t, full.Analysis)
	require.NotNil(t, full.Transcript)
	assert.Equal(t, "call-abc", full.Call.ID)
	assert.Equal(t, "hello", full.Transcript.Transcript)
	assert.Contains(t, full.Memory, "goals")
}

func TestFullCallData_TranscriptFailureDegrades(t *testing.T) {
	c := newTestClient(t, fullDataHandler(true, false))

	full, err := c.FullCallData(context.Background(), "call-abc")
	require.NoError(t, err)
	require.NotNil(t, full.Call)
	require.NotNil(t, full.Analysis)
	assert.Nil(t, full.Transcript)
}

func TestFullCallData_AnalysisFailureDegrades(t *testing.T) {
	c := newTestClient(t, fullDataHandler(false, true))

	full, err := c.FullCallData(context.Background(), "call-abc")
	require.NoError(t, err)
	assert.Nil(t, full.Analysis)
	assert.NotNil(t, full.Transcript)
	assert.NotNil(t, full.Memory)
	assert.Empty(t, full.Memory)
}

func TestFullCallData_Cancelled(t *testing.T) {
	srv := httptest.NewServer(fullDataHandler(false, false))
	t.Cleanup(srv.Close)

	c := NewClient("test-key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithRetry(noRetry()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FullCallData(ctx, "call-abc")
	require.Error(t, err)
}
