package pixpoc

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FullCallData combines the three per-call fetches. Any leg that failed is
// nil; Memory carries the analysis metadata when the analysis leg succeeded.
type FullCallData struct {
	CallID     string
	Call       *CallDetails
	Analysis   *Analysis
	Transcript *Transcript
	Memory     map[string]any
}

// FullCallData fetches details, analysis, and transcript concurrently.
//
// Partial failure is part of the contract: a failing sub-fetch is logged and
// resolves to a nil field in the combined result, and the aggregate itself
// never returns an error for it. Downstream consumers must treat nil
// analysis/transcript as degraded-but-valid input.
func (c *httpClient) FullCallData(ctx context.Context, callID string) (*FullCallData, error) {
	out := &FullCallData{CallID: callID}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		details, err := c.GetCallDetails(gCtx, callID)
		if err != nil {
			zap.L().Error("pixpoc: call details fetch failed",
				zap.String("call_id", callID), zap.Error(err))
			return nil
		}
		out.Call = details
		return nil
	})

	g.Go(func() error {
		analysis, err := c.GetCallAnalysis(gCtx, callID)
		if err != nil {
			zap.L().Error("pixpoc: analysis fetch failed",
				zap.String("call_id", callID), zap.Error(err))
			return nil
		}
		out.Analysis = analysis
		return nil
	})

	g.Go(func() error {
		transcript, err := c.GetCallTranscript(gCtx, callID)
		if err != nil {
			zap.L().Error("pixpoc: transcript fetch failed",
				zap.String("call_id", callID), zap.Error(err))
			return nil
		}
		out.Transcript = transcript
		return nil
	})

	// Sub-fetch errors are swallowed above; only cancellation aborts the
	// aggregate.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if out.Analysis != nil && out.Analysis.Metadata != nil {
		out.Memory = out.Analysis.Metadata
	} else {
		out.Memory = map[string]any{}
	}

	return out, nil
}
