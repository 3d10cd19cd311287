package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Field is a label/value pair printed in a document header block.
type Field struct {
	Label string
	Value string
}

// Section is a titled table inside a document.
type Section struct {
	Title string
	Data  Dataset
}

// Document describes a printable multi-section report.
type Document struct {
	Title    string
	Subtitle string
	Fields   []Field
	Sections []Section
	Footer   string
}

// PDFExporter renders documents into A4 PDFs.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

const pageWidth = 190.0

// Render creates a PDF with the header block followed by one table per section.
func (e *PDFExporter) Render(doc Document) ([]byte, error) {
	if doc.Title == "" && len(doc.Sections) == 0 {
		return nil, fmt.Errorf("pdf requires a title or at least one section")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if doc.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 8, tr(strings.ToUpper(doc.Title)), "", 1, "C", false, 0, "")
	}
	if doc.Subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, tr(doc.Subtitle), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	if len(doc.Fields) > 0 {
		half := pageWidth / 2
		for i, field := range doc.Fields {
			pdf.SetFont("Arial", "B", 9)
			pdf.CellFormat(half*0.4, 6, tr(field.Label), "", 0, "", false, 0, "")
			pdf.SetFont("Arial", "", 9)
			ln := 0
			if i%2 == 1 {
				ln = 1
			}
			pdf.CellFormat(half*0.6, 6, tr(field.Value), "", ln, "", false, 0, "")
		}
		if len(doc.Fields)%2 == 1 {
			pdf.Ln(-1)
		}
		pdf.Ln(3)
	}

	for _, section := range doc.Sections {
		if len(section.Data.Headers) == 0 {
			continue
		}
		if section.Title != "" {
			pdf.SetFont("Arial", "B", 11)
			pdf.CellFormat(0, 8, tr(section.Title), "", 1, "", false, 0, "")
		}
		colWidth := pageWidth / float64(len(section.Data.Headers))
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for _, header := range section.Data.Headers {
			pdf.CellFormat(colWidth, 7, tr(header), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 9)
		for _, row := range section.Data.Rows {
			for _, header := range section.Data.Headers {
				pdf.CellFormat(colWidth, 6, tr(row[header]), "1", 0, "", false, 0, "")
			}
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}

	if doc.Footer != "" {
		pdf.SetFont("Arial", "I", 8)
		pdf.MultiCell(0, 5, tr(doc.Footer), "", "L", false)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
