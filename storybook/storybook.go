// Package storybook renders a finished story session as an illustrated PDF.
package storybook

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	taleweave "github.com/taleweave/taleweave/src"
)

// Compiler turns session state into a storybook PDF: a title page, one
// chapter per turn with its illustration and the choice taken, then the
// epilogue.
type Compiler struct {
	chapterFont string
	textFont    string
	pageNumbers bool
}

func NewCompiler() *Compiler {
	return &Compiler{
		chapterFont: "Helvetica",
		textFont:    "Times",
		pageNumbers: true,
	}
}

func (c *Compiler) Compile(state taleweave.SessionState) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)

	if c.pageNumbers {
		pdf.SetFooterFunc(func() {
			if pdf.PageNo() == 1 {
				return
			}
			pdf.SetY(-15)
			pdf.SetFont(c.textFont, "I", 8)
			pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()),
				"", 0, "C", false, 0, "")
		})
	}

	c.titlePage(pdf, state)

	for _, rec := range state.History {
		c.chapter(pdf, rec)
	}

	if state.Narrative != "" {
		pdf.AddPage()
		pdf.SetFont(c.chapterFont, "B", 24)
		pdf.Cell(0, 10, "Epilogue")
		pdf.Ln(20)
		if state.Image != "" {
			c.illustration(pdf, state.Image)
		}
		c.renderMarkdown(pdf, state.Narrative)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *Compiler) titlePage(pdf *gofpdf.Fpdf, state taleweave.SessionState) {
	pdf.AddPage()

	r, g, b := parseHexColor(state.AccentColor)
	pdf.SetFillColor(r, g, b)
	pdf.Rect(0, 100, 210, 4, "F")

	pdf.SetY(110)
	pdf.SetFont(c.chapterFont, "B", 32)
	pdf.CellFormat(0, 16, fmt.Sprintf("A %s Story", state.Genre), "", 1, "C", false, 0, "")

	pdf.SetFont(c.textFont, "I", 12)
	pdf.CellFormat(0, 10, fmt.Sprintf("Told in %d turns", len(state.History)+1), "", 1, "C", false, 0, "")
}

func (c *Compiler) chapter(pdf *gofpdf.Fpdf, rec taleweave.TurnRecord) {
	pdf.AddPage()
	pdf.SetFont(c.chapterFont, "B", 24)
	pdf.Cell(0, 10, fmt.Sprintf("Chapter %d", rec.TurnNumber))
	pdf.Ln(20)

	if rec.Image != nil {
		c.illustration(pdf, *rec.Image)
	}

	c.renderMarkdown(pdf, rec.Narrative)

	if rec.ChoiceMade != nil {
		pdf.Ln(8)
		pdf.SetFont(c.textFont, "I", 12)
		pdf.Write(5, fmt.Sprintf("You chose: %s", *rec.ChoiceMade))
		pdf.Ln(5)
	}
}

// parseHexColor reads a #rrggbb accent color, falling back to a neutral
// gray.
func parseHexColor(s string) (int, int, int) {
	var r, g, b int
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return 128, 128, 128
	}
	return r, g, b
}
