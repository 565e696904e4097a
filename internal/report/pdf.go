package report

import (
	"strings"

	"github.com/go-pdf/fpdf"
)

// markers the core latin-1 fonts cannot carry, mapped before translation.
var pdfSanitizer = strings.NewReplacer(
	"**", "",
	"₹", "Rs ",
	"- [ ] ", "- ",
	"- [x] ", "- ",
)

// renderPDF renders the markdown narrative into a simple paginated PDF.
// Layout fidelity is deliberately modest: headings, bullets, rules, and
// body text are enough for an advisory report.
func renderPDF(title, markdown, path string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 18)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	width, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := width - left - right

	for _, raw := range strings.Split(markdown, "\n") {
		line := pdfSanitizer.Replace(strings.TrimRight(raw, " \t"))

		switch {
		case line == "":
			pdf.Ln(2)
		case line == "---":
			pdf.Ln(1)
			x, y := pdf.GetXY()
			pdf.Line(x, y, x+usable, y)
			pdf.Ln(3)
		case strings.HasPrefix(line, "### "):
			pdf.SetFont("Helvetica", "B", 12)
			pdf.MultiCell(usable, 6, tr(strings.TrimPrefix(line, "### ")), "", "L", false)
			pdf.Ln(1)
		case strings.HasPrefix(line, "## "):
			pdf.SetFont("Helvetica", "B", 14)
			pdf.MultiCell(usable, 7, tr(strings.TrimPrefix(line, "## ")), "", "L", false)
			pdf.Ln(1)
		case strings.HasPrefix(line, "# "):
			pdf.SetFont("Helvetica", "B", 18)
			pdf.MultiCell(usable, 9, tr(strings.TrimPrefix(line, "# ")), "", "L", false)
			pdf.Ln(2)
		case strings.HasPrefix(line, "- "):
			pdf.SetFont("Helvetica", "", 11)
			pdf.MultiCell(usable-4, 5.5, tr("• "+strings.TrimPrefix(line, "- ")), "", "L", false)
		default:
			pdf.SetFont("Helvetica", "", 11)
			pdf.MultiCell(usable, 5.5, tr(line), "", "L", false)
		}
	}

	return pdf.OutputFileAndClose(path)
}
