package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

const (
	pageWidth   = 190.0
	lineHeight  = 7.0
	fontFamily  = "Helvetica"
	headerShade = 230
)

// Document is a single-column A4 report.
type Document struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func NewDocument(title, subtitle string) *Document {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("gradebook", true)
	pdf.AliasNbPages("")
	d := &Document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(fontFamily, "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont(fontFamily, "B", 18)
	pdf.CellFormat(0, 10, d.tr(title), "", 1, "C", false, 0, "")
	if subtitle != "" {
		pdf.SetFont(fontFamily, "", 11)
		pdf.CellFormat(0, lineHeight, d.tr(subtitle), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)
	return d
}

func (d *Document) Section(title string) {
	d.pdf.Ln(3)
	d.pdf.SetFont(fontFamily, "B", 13)
	d.pdf.CellFormat(0, 9, d.tr(title), "B", 1, "L", false, 0, "")
	d.pdf.Ln(2)
}

// KeyValues prints label/value pairs two per line.
func (d *Document) KeyValues(pairs [][2]string) {
	half := pageWidth / 2
	for i, kv := range pairs {
		d.pdf.SetFont(fontFamily, "B", 10)
		d.pdf.CellFormat(half*0.45, lineHeight, d.tr(kv[0]+":"), "", 0, "L", false, 0, "")
		d.pdf.SetFont(fontFamily, "", 10)
		ln := 0
		if i%2 == 1 || i == len(pairs)-1 {
			ln = 1
		}
		d.pdf.CellFormat(half*0.55, lineHeight, d.tr(kv[1]), "", ln, "L", false, 0, "")
	}
}

// Table draws a bordered grid. widths are fractions of the page width and
// fall back to equal columns when their count does not match header.
func (d *Document) Table(header []string, widths []float64, rows [][]string) {
	if len(widths) != len(header) {
		widths = make([]float64, len(header))
		for i := range widths {
			widths[i] = 1 / float64(len(header))
		}
	}

	d.pdf.SetFont(fontFamily, "B", 9)
	d.pdf.SetFillColor(headerShade, headerShade, headerShade)
	for i, h := range header {
		d.pdf.CellFormat(widths[i]*pageWidth, lineHeight, d.tr(h), "1", 0, "C", true, 0, "")
	}
	d.pdf.Ln(-1)

	d.pdf.SetFont(fontFamily, "", 9)
	for _, row := range rows {
		for i := range header {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			d.pdf.CellFormat(widths[i]*pageWidth, lineHeight, d.tr(cell), "1", 0, "L", false, 0, "")
		}
		d.pdf.Ln(-1)
	}
}

// Bullets prints one line per item.
func (d *Document) Bullets(items []string) {
	d.pdf.SetFont(fontFamily, "", 10)
	for _, item := range items {
		d.pdf.MultiCell(0, lineHeight-1, d.tr("- "+item), "", "L", false)
	}
}

func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	return buf.Bytes(), nil
}
