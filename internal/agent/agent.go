package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/financebot/financebot/internal/model"
	"github.com/financebot/financebot/pkg/anthropic"
)

// Error wraps any failure inside narrative generation so callers can
// distinguish it from storage or transport errors.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("agent: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

const systemPrompt = `You are a certified financial planner preparing a written report for a client in India. You are given structured data collected during a phone conversation: personal details, income, expenses, assets, liabilities, goals, risk profile, and insurance cover.

Write a complete report in markdown with these sections: Executive Summary, Financial Snapshot, Key Recommendations (emergency fund, investment strategy, insurance coverage, tax optimization), Goals Analysis, Action Plan, and Conclusion. Use rupee amounts and Indian tax instruments (Section 80C, ELSS, PPF, NPS) where they apply. Base every figure on the data provided; do not invent account balances. Output only the markdown report.`

// Service turns call payloads into markdown financial reports.
type Service struct {
	llm       anthropic.Client
	model     string
	maxTokens int64
	allowDemo bool
}

// Option configures the service.
type Option func(*Service)

// WithModel overrides the default model ID.
func WithModel(m string) Option {
	return func(s *Service) {
		if m != "" {
			s.model = m
		}
	}
}

// WithMaxTokens overrides the response token cap.
func WithMaxTokens(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

// WithDemoFallback permits the canned demo report when no model client is
// configured at all. A configured client that fails still fails; demo mode
// never masks provider errors.
func WithDemoFallback(allow bool) Option {
	return func(s *Service) {
		s.allowDemo = allow
	}
}

// New creates a report-generation service. llm may be nil when the deployment
// carries no API key; GenerateReport then either serves the demo report or
// errors, depending on WithDemoFallback.
func New(llm anthropic.Client, opts ...Option) *Service {
	s := &Service{
		llm:       llm,
		model:     "claude-sonnet-4-5-20250929",
		maxTokens: 8192,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GenerateReport distills the opaque call payload into planner input and asks
// the model for a markdown report.
func (s *Service) GenerateReport(ctx context.Context, payload map[string]any, reportType model.ReportType) (string, error) {
	input := ParseCallData(payload)

	if s.llm == nil {
		if s.allowDemo {
			zap.L().Warn("agent: no model client configured, serving demo report",
				zap.String("phone", input.Personal.Phone))
			return DemoReport(input, reportType), nil
		}
		return "", &Error{Op: "generate report", Err: eris.New("no model client configured")}
	}

	data, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return "", &Error{Op: "generate report", Err: eris.Wrap(err, "marshal planner input")}
	}

	resp, err := s.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		System: []anthropic.SystemBlock{
			{Text: systemPrompt, CacheControl: &anthropic.CacheControl{TTL: "5m"}},
		},
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf("Report type: %s\n\nClient data:\n%s", reportType.Title(), data)},
		},
	})
	if err != nil {
		return "", &Error{Op: "generate report", Err: err}
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", &Error{Op: "generate report", Err: eris.New("model returned no text")}
	}

	resp.Usage.LogCost(s.model, "report_generation")
	return text, nil
}
