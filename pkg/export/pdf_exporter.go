package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Letter describes a single-page formal letter such as a bootcamp offer letter.
type Letter struct {
	Organization string
	Title        string
	Date         string
	Recipient    string
	Paragraphs   []string
	Signature    string
}

// PDFExporter renders datasets and letters into PDF documents.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(title), "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	pdf.SetFont("Arial", "B", 10)
	colWidth := 277.0 / float64(len(data.Headers))
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, tr(header), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 7, tr(truncate(row[header], 48)), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	return output(pdf)
}

// RenderLetter lays out a letter with a letterhead, body paragraphs and a signature block.
func (e *PDFExporter) RenderLetter(letter Letter) ([]byte, error) {
	if letter.Recipient == "" || len(letter.Paragraphs) == 0 {
		return nil, fmt.Errorf("letter requires a recipient and at least one paragraph")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 10, tr(strings.ToUpper(letter.Organization)), "", 1, "L", false, 0, "")
	pdf.SetDrawColor(40, 40, 40)
	pdf.Line(20, pdf.GetY()+1, 190, pdf.GetY()+1)
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	if letter.Date != "" {
		pdf.CellFormat(0, 6, tr(letter.Date), "", 1, "R", false, 0, "")
		pdf.Ln(4)
	}
	if letter.Title != "" {
		pdf.SetFont("Arial", "B", 13)
		pdf.CellFormat(0, 8, tr(letter.Title), "", 1, "L", false, 0, "")
		pdf.Ln(2)
	}

	pdf.SetFont("Arial", "", 11)
	pdf.MultiCell(0, 6, tr("Dear "+letter.Recipient+","), "", "L", false)
	pdf.Ln(3)
	for _, paragraph := range letter.Paragraphs {
		pdf.MultiCell(0, 6, tr(paragraph), "", "J", false)
		pdf.Ln(3)
	}

	if letter.Signature != "" {
		pdf.Ln(8)
		pdf.MultiCell(0, 6, tr("Sincerely,\n"+letter.Signature), "", "L", false)
	}

	return output(pdf)
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-1]) + "…"
}
