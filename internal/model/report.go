package model

import "time"

// ReportType categorizes a generated report by the planning agent that
// produced it.
type ReportType string

const (
	ReportTypeFinancialPlanning     ReportType = "financial_planning"
	ReportTypeTaxPlanning           ReportType = "tax_planning"
	ReportTypeComprehensivePlanning ReportType = "comprehensive_planning"
)

// Title returns a human-readable title for the report type.
func (t ReportType) Title() string {
	switch t {
	case ReportTypeFinancialPlanning:
		return "Financial Planning Report"
	case ReportTypeTaxPlanning:
		return "Tax Planning Report"
	case ReportTypeComprehensivePlanning:
		return "Comprehensive Planning Report"
	default:
		return "Financial Report"
	}
}

// ReportRecord describes one stored report artifact. Records are immutable
// once written; inserting the same ReportID twice is a no-op.
type ReportRecord struct {
	ReportID    string     `json:"report_id"`
	OwnerID     string     `json:"owner_id"`
	CallID      string     `json:"call_id"`
	Type        ReportType `json:"type"`
	Filename    string     `json:"filename"`
	StoragePath string     `json:"storage_path"`
	CreatedAt   time.Time  `json:"created_at"`
}
