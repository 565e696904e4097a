package agent

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/financebot/financebot/internal/model"
)

// DemoReport renders a canned financial plan from whatever numbers the call
// collected. It exists for keyless deployments only; see WithDemoFallback.
func DemoReport(input PlanInput, reportType model.ReportType) string {
	p := message.NewPrinter(language.English)

	income := subMap(input.Financials, "income")
	expenses := subMap(input.Financials, "expenses")

	monthlyIncome := num(income, "monthly_salary", 75000)
	monthlyExpenses := num(expenses, "monthly_fixed", 30000) + num(expenses, "monthly_variable", 20000)
	monthlySavings := monthlyIncome - monthlyExpenses

	var savingsRate float64
	if monthlyIncome > 0 {
		savingsRate = monthlySavings / monthlyIncome * 100
	}

	var b strings.Builder
	b.WriteString("# Financial Planning Report\n\n")
	b.WriteString("## Executive Summary\n\n")
	p.Fprintf(&b, "**Client:** %s  \n", input.Personal.Name)
	p.Fprintf(&b, "**Date:** %s  \n", time.Now().Format("January 2, 2006"))
	p.Fprintf(&b, "**Report Type:** %s\n\n---\n\n", reportType.Title())

	b.WriteString("## Financial Snapshot\n\n### Income\n")
	p.Fprintf(&b, "- **Monthly Income:** ₹%.0f\n", monthlyIncome)
	p.Fprintf(&b, "- **Annual Income:** ₹%.0f\n\n", monthlyIncome*12)
	b.WriteString("### Expenses\n")
	p.Fprintf(&b, "- **Monthly Expenses:** ₹%.0f\n", monthlyExpenses)
	p.Fprintf(&b, "- **Annual Expenses:** ₹%.0f\n\n", monthlyExpenses*12)
	b.WriteString("### Savings\n")
	p.Fprintf(&b, "- **Monthly Savings:** ₹%.0f\n", monthlySavings)
	p.Fprintf(&b, "- **Savings Rate:** %.1f%%\n\n---\n\n", savingsRate)

	b.WriteString("## Key Recommendations\n\n")
	b.WriteString("### 1. Emergency Fund\n")
	p.Fprintf(&b, "**Target:** ₹%.0f (6 months expenses)  \n", monthlyExpenses*6)
	p.Fprintf(&b, "**Action:** Save ₹%.0f/month until the target is reached\n\n", monthlySavings*0.3)

	b.WriteString("### 2. Investment Strategy\n")
	p.Fprintf(&b, "**Risk Profile:** %s  \n", input.RiskProfile)
	b.WriteString("**Recommended Allocation:**\n")
	p.Fprintf(&b, "- Equity (60%%): ₹%.0f/month\n", monthlySavings*0.6)
	p.Fprintf(&b, "- Debt (30%%): ₹%.0f/month\n", monthlySavings*0.3)
	p.Fprintf(&b, "- Gold (10%%): ₹%.0f/month\n\n", monthlySavings*0.1)

	b.WriteString("### 3. Insurance Coverage\n")
	p.Fprintf(&b, "**Life Insurance:** Recommended cover of ₹%.0f (10x annual income)  \n", monthlyIncome*12*10)
	b.WriteString("**Health Insurance:** Family floater of ₹10,00,000 minimum\n\n")

	b.WriteString("### 4. Tax Optimization\n")
	b.WriteString("Optimize Section 80C (₹1.5L limit):\n")
	b.WriteString("- ELSS Mutual Funds: ₹1,00,000\n")
	b.WriteString("- PPF: ₹50,000\n")
	b.WriteString("- NPS (80CCD): ₹50,000 additional deduction\n\n---\n\n")

	b.WriteString("## Goals Analysis\n")
	b.WriteString(formatGoals(p, input.Goals))
	b.WriteString("\n\n---\n\n")

	b.WriteString("## Action Plan\n\n")
	b.WriteString("### Immediate (Next 30 days)\n")
	b.WriteString("- [ ] Open emergency fund account\n")
	b.WriteString("- [ ] Start SIP for ELSS mutual funds\n")
	b.WriteString("- [ ] Review and optimize insurance coverage\n\n")
	b.WriteString("### Short-term (3-6 months)\n")
	b.WriteString("- [ ] Build emergency fund to 3 months expenses\n")
	b.WriteString("- [ ] Set up automated investments\n")
	b.WriteString("- [ ] Complete tax planning for the current year\n\n")
	b.WriteString("### Long-term (1+ year)\n")
	b.WriteString("- [ ] Achieve 6-month emergency fund\n")
	b.WriteString("- [ ] Rebalance the portfolio annually\n")
	b.WriteString("- [ ] Review goals quarterly\n\n---\n\n")

	b.WriteString("## Conclusion\n\n")
	p.Fprintf(&b, "Your savings rate is %.1f%%. Following this plan keeps your goals on a systematic track.\n\n", savingsRate)
	b.WriteString("*This report is generated by FinanceBot AI. Please consult a certified financial advisor for personalized advice.*\n")

	return b.String()
}

func formatGoals(p *message.Printer, goals []any) string {
	if len(goals) == 0 {
		return "\nNo specific goals mentioned. Recommend setting SMART financial goals."
	}

	var b strings.Builder
	for i, g := range goals {
		switch goal := g.(type) {
		case map[string]any:
			name := str(goal, "name", fmt.Sprintf("Goal %d", i+1))
			amount := num(goal, "target_amount", 0)
			years := num(goal, "timeline_years", 5)
			if years <= 0 {
				years = 5
			}
			p.Fprintf(&b, "\n### Goal %d: %s\n", i+1, name)
			p.Fprintf(&b, "- **Target Amount:** ₹%.0f\n", amount)
			p.Fprintf(&b, "- **Timeline:** %.0f years\n", years)
			p.Fprintf(&b, "- **Monthly SIP Required:** ₹%.0f\n", amount/(years*12))
		default:
			fmt.Fprintf(&b, "\n### Goal %d: %v\n", i+1, g)
		}
	}
	return b.String()
}
