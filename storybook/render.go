package storybook

import (
	"bytes"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/russross/blackfriday/v2"
	"golang.org/x/net/html"
)

// renderMarkdown converts narrative markdown to HTML and walks the node
// tree into the PDF. Model narratives are mostly plain paragraphs, but
// emphasis and headings do show up and should survive into print.
func (c *Compiler) renderMarkdown(pdf *gofpdf.Fpdf, markdown string) {
	htmlBytes := blackfriday.Run([]byte(markdown))
	doc, err := html.Parse(bytes.NewReader(htmlBytes))
	if err != nil {
		// Fall back to the raw text rather than losing the chapter.
		pdf.SetFont(c.textFont, "", 12)
		pdf.Write(5, markdown)
		pdf.Ln(8)
		return
	}
	c.renderNode(pdf, doc)
}

func (c *Compiler) renderNode(pdf *gofpdf.Fpdf, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		if text := cleanText(n.Data); strings.TrimSpace(text) != "" {
			pdf.Write(5, text)
		}
	case html.ElementNode:
		switch n.Data {
		case "h1", "h2":
			pdf.Ln(10)
			pdf.SetFont(c.chapterFont, "B", 18)
			c.renderChildren(pdf, n)
			pdf.SetFont(c.textFont, "", 12)
			pdf.Ln(10)
		case "h3", "h4":
			pdf.Ln(8)
			pdf.SetFont(c.chapterFont, "B", 14)
			c.renderChildren(pdf, n)
			pdf.SetFont(c.textFont, "", 12)
			pdf.Ln(8)
		case "p":
			pdf.SetFont(c.textFont, "", 12)
			c.renderChildren(pdf, n)
			pdf.Ln(8)
		case "em":
			pdf.SetFont(c.textFont, "I", 12)
			c.renderChildren(pdf, n)
			pdf.SetFont(c.textFont, "", 12)
		case "strong":
			pdf.SetFont(c.textFont, "B", 12)
			c.renderChildren(pdf, n)
			pdf.SetFont(c.textFont, "", 12)
		case "ul", "ol":
			pdf.Ln(5)
			c.renderChildren(pdf, n)
			pdf.Ln(5)
		case "li":
			pdf.SetX(pdf.GetX() + 10)
			pdf.Write(5, "- ")
			c.renderChildren(pdf, n)
			pdf.Ln(5)
		default:
			c.renderChildren(pdf, n)
		}
	default:
		c.renderChildren(pdf, n)
	}
}

func (c *Compiler) renderChildren(pdf *gofpdf.Fpdf, n *html.Node) {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.renderNode(pdf, child)
	}
}

// cleanText replaces characters outside the PDF core font encoding.
func cleanText(s string) string {
	r := strings.NewReplacer(
		"‘", "'", "’", "'",
		"“", `"`, "”", `"`,
		"–", "-", "—", "-",
		"…", "...",
	)
	return r.Replace(s)
}
