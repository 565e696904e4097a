package webhook

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// AnalysisData is the platform's post-call analysis block. Metadata is an
// opaque tree handed to the planner unmodified.
type AnalysisData struct {
	Status      string         `json:"status"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	RawResponse string         `json:"rawResponse,omitempty"`
}

// CallbackPayload is the analysis-completed callback. The platform sends the
// tracking identifier as callSid; older senders used trackingId, which is
// accepted as an alias.
type CallbackPayload struct {
	Event      string        `json:"event"`
	CallSid    string        `json:"callSid,omitempty"`
	CallID     string        `json:"callId,omitempty"`
	TrackingID string        `json:"trackingId,omitempty"`
	CallType   string        `json:"callType,omitempty"`
	Status     string        `json:"status"`
	Analysis   *AnalysisData `json:"analysis,omitempty"`
	Error      string        `json:"error,omitempty"`
	Timestamp  string        `json:"timestamp,omitempty"`
}

// Tracking returns the tracking identifier regardless of which field name
// the sender used.
func (p *CallbackPayload) Tracking() string {
	if p.CallSid != "" {
		return p.CallSid
	}
	return p.TrackingID
}

// decodeCallback parses and validates the callback envelope. Only a
// malformed body or a payload carrying neither identifier is rejected;
// everything else is a business condition handled downstream.
func decodeCallback(r io.Reader) (*CallbackPayload, error) {
	var p CallbackPayload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, eris.Wrap(err, "webhook: decode callback")
	}
	if p.Status == "" {
		return nil, eris.New("webhook: status is required")
	}
	if p.Tracking() == "" && p.CallID == "" {
		return nil, eris.New("webhook: callSid or callId is required")
	}
	return &p, nil
}
