package certificate

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Details carries everything printed on one completion certificate.
type Details struct {
	StudentName string
	CourseTitle string
	CompletedAt time.Time
	Percentage  int
	Serial      string
}

// Render produces the completion certificate as a single-page landscape
// PDF and returns the raw bytes for download.
func Render(d Details) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Certificate of Completion", false)
	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()

	// Border
	pdf.SetLineWidth(1.2)
	pdf.SetDrawColor(30, 64, 124)
	pdf.Rect(10, 10, pageW-20, pageH-20, "D")
	pdf.SetLineWidth(0.3)
	pdf.Rect(13, 13, pageW-26, pageH-26, "D")

	pdf.SetFont("Helvetica", "B", 30)
	pdf.SetTextColor(30, 64, 124)
	pdf.SetY(40)
	pdf.CellFormat(0, 14, "Certificate of Completion", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 14)
	pdf.SetTextColor(60, 60, 60)
	pdf.Ln(8)
	pdf.CellFormat(0, 8, "This certifies that", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)
	pdf.CellFormat(0, 12, d.StudentName, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 14)
	pdf.SetTextColor(60, 60, 60)
	pdf.Ln(4)
	pdf.CellFormat(0, 8, "has successfully completed the course", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)
	pdf.CellFormat(0, 10, d.CourseTitle, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	pdf.SetTextColor(60, 60, 60)
	pdf.Ln(6)
	completed := fmt.Sprintf("with a final test score of %d%% on %s",
		d.Percentage, d.CompletedAt.Format("January 2, 2006"))
	pdf.CellFormat(0, 8, completed, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetY(pageH - 28)
	pdf.CellFormat(0, 6, "Serial: "+d.Serial, "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return buf.Bytes(), nil
}
