package webhook

import (
	"context"

	"go.uber.org/zap"

	"github.com/financebot/financebot/internal/model"
	"github.com/financebot/financebot/internal/report"
	"github.com/financebot/financebot/internal/store"
)

// Processor runs the post-call pipeline: narrative, PDF artifact, and
// bookkeeping. It is invoked out of band via the Dispatcher.
type Processor struct {
	store      store.Store
	reports    *report.Generator
	reportType model.ReportType
}

// NewProcessor wires the pipeline. reportType selects the planning agent run
// after every call.
func NewProcessor(st store.Store, gen *report.Generator, reportType model.ReportType) *Processor {
	if reportType == "" {
		reportType = model.ReportTypeComprehensivePlanning
	}
	return &Processor{store: st, reports: gen, reportType: reportType}
}

// Process generates and persists the report for a resolved call. Any failure
// marks the call failed and is logged, never returned; there is no
// interactive caller once processing runs out of band. No report record is
// written for a failed pipeline.
func (p *Processor) Process(ctx context.Context, call *model.CallRecord, analysis *AnalysisData) {
	logger := zap.L().With(
		zap.String("call_id", call.CallID),
		zap.String("owner_id", call.OwnerID),
	)
	logger.Info("processing completed call")

	if analysis == nil {
		logger.Error("callback carried no analysis data")
		p.fail(ctx, call.CallID)
		return
	}

	payload := plannerPayload(analysis)

	meta, err := p.reports.Generate(ctx, call.OwnerID, payload, p.reportType)
	if err != nil {
		logger.Error("report generation failed", zap.Error(err))
		p.fail(ctx, call.CallID)
		return
	}

	if err := p.store.UpdateCallStatus(ctx, call.CallID, model.CallStatusCompleted, call.ContactID); err != nil {
		logger.Error("call status update failed", zap.Error(err))
		p.fail(ctx, call.CallID)
		return
	}

	if err := p.store.SaveReport(ctx, model.ReportRecord{
		ReportID:    meta.ReportID,
		OwnerID:     call.OwnerID,
		CallID:      call.CallID,
		Type:        p.reportType,
		Filename:    meta.Filename,
		StoragePath: meta.Path,
	}); err != nil {
		logger.Error("report record insert failed", zap.Error(err))
		p.fail(ctx, call.CallID)
		return
	}

	p.updateSnapshot(ctx, call.OwnerID, payload)

	logger.Info("call processing completed", zap.String("report_id", meta.ReportID))
}

func (p *Processor) fail(ctx context.Context, callID string) {
	if err := p.store.UpdateCallStatus(ctx, callID, model.CallStatusFailed, ""); err != nil {
		zap.L().Error("failed-status update failed",
			zap.String("call_id", callID), zap.Error(err))
	}
}

// plannerPayload shapes the callback analysis for the planner: the opaque
// metadata tree plus the conversational memory, which some platform versions
// nest under metadata["memory"] and others flatten into metadata itself.
func plannerPayload(a *AnalysisData) map[string]any {
	memory := a.Metadata
	if nested, ok := a.Metadata["memory"].(map[string]any); ok {
		memory = nested
	}
	if memory == nil {
		memory = map[string]any{}
	}
	return map[string]any{
		"status":      a.Status,
		"metadata":    a.Metadata,
		"memory":      memory,
		"rawResponse": a.RawResponse,
	}
}

// updateSnapshot refreshes the owner's dashboard aggregate from the call's
// collected financials. Best effort: the report is already persisted, so a
// snapshot failure is logged and dropped.
func (p *Processor) updateSnapshot(ctx context.Context, ownerID string, payload map[string]any) {
	memory, _ := payload["memory"].(map[string]any)
	fin, ok := memory["financials"].(map[string]any)
	if !ok {
		return
	}

	income := numAt(fin, "income", "monthly_salary")
	expenses := numAt(fin, "expenses", "monthly_fixed") + numAt(fin, "expenses", "monthly_variable")
	if income == 0 && expenses == 0 {
		return
	}

	snap := &model.FinancialSnapshot{
		OwnerID:  ownerID,
		Income:   income,
		Savings:  income - expenses,
		Expenses: expenses,
		Extra:    fin,
	}
	if err := p.store.UpsertFinancialSnapshot(ctx, snap); err != nil {
		zap.L().Warn("financial snapshot update failed",
			zap.String("owner_id", ownerID), zap.Error(err))
	}
}

func numAt(m map[string]any, section, key string) float64 {
	sub, _ := m[section].(map[string]any)
	v, _ := sub[key].(float64)
	return v
}
