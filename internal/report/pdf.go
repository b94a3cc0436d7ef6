package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

// Page layout in PDF points (US Letter).
const (
	marginLeft    = 50
	marginRight   = 50
	marginTop     = 50
	contentBottom = 64
	lineHeight    = 15
	sectionGap    = 12
	headerBandH   = 26
	rowWrapChars  = 86

	// DefaultWrapChars is the WrapLines width used outside PDF rows.
	DefaultWrapChars = 88
)

// Section is a headed block of bullet rows in a report.
type Section struct {
	Heading string   `json:"heading"`
	Rows    []string `json:"rows"`
}

// WrapLines greedily packs the words of text into lines of at most
// maxChars characters. A single word longer than maxChars gets its own line.
// Empty text yields one empty line.
func WrapLines(text string, maxChars int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	lines := []string{}
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if len([]rune(candidate)) <= maxChars {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}

type pdfDocument struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newPDFDocument(title, subtitle string, compress bool) *pdfDocument {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetCompression(compress)
	pdf.SetMargins(marginLeft, marginTop, marginRight)
	pdf.SetAutoPageBreak(true, contentBottom)
	pdf.SetCreator("emianalyzer", false)

	d := &pdfDocument{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.SetTitle(d.tr(title), false)
	pdf.SetHeaderFunc(func() { d.header(title, subtitle) })
	return d
}

// header draws the title band repeated at the top of every page.
func (d *pdfDocument) header(title, subtitle string) {
	pdf := d.pdf
	pageW, _ := pdf.GetPageSize()
	bandW := pageW - marginLeft - marginRight
	top := pdf.GetY()

	pdf.SetFillColor(237, 242, 252)
	pdf.SetDrawColor(189, 201, 230)
	pdf.SetLineWidth(1)
	pdf.Rect(marginLeft, top, bandW, headerBandH, "FD")

	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft+8, top+2)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(bandW-16, 12, d.tr(title), "", 1, "L", false, 0, "")

	pdf.SetXY(marginLeft+8, top+14)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(bandW-88, 10, d.tr(subtitle), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(72, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 1, "R", false, 0, "")

	pdf.SetY(top + headerBandH + sectionGap)
}

func (d *pdfDocument) section(s Section) {
	pdf := d.pdf
	_, pageH := pdf.GetPageSize()
	if pdf.GetY() > pageH-contentBottom-28 {
		pdf.AddPage()
	}

	if heading := strings.TrimSpace(s.Heading); heading != "" {
		y := pdf.GetY()
		pdf.SetFillColor(56, 84, 135)
		pdf.Rect(marginLeft, y+4, 6, 6, "F")
		pdf.SetXY(marginLeft+12, y)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, lineHeight+2, d.tr(heading), "", 1, "L", false, 0, "")
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, row := range s.Rows {
		for i, line := range WrapLines(row, rowWrapChars) {
			prefix := "- "
			if i > 0 {
				prefix = "  "
			}
			pdf.SetX(marginLeft)
			pdf.CellFormat(0, lineHeight, d.tr(prefix+line), "", 1, "L", false, 0, "")
		}
	}

	pdf.Ln(sectionGap)
}

func (d *pdfDocument) render(sections []Section) ([]byte, error) {
	d.pdf.AddPage()
	for _, s := range sections {
		d.section(s)
	}

	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// BuildPDF renders a paginated PDF: every page carries a header band with
// title, subtitle and page number, followed by the sections as a heading and
// wrapped bullet rows. Text outside Windows-1252 is replaced with '.'.
func BuildPDF(title, subtitle string, sections []Section) ([]byte, error) {
	return newPDFDocument(title, subtitle, true).render(sections)
}
