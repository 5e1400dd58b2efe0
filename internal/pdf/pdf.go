// Package pdf extracts page text from PDF files for downstream chunking.
//
// Extraction keeps page boundaries: each page's text is returned separately
// so chunks can carry page provenance for citations.
package pdf

import (
	"errors"
	"fmt"
	"strings"

	ledongthuc "github.com/ledongthuc/pdf"
)

// ErrNoText is returned when a document parses successfully but yields no
// extractable text on any page (scanned image PDFs, for example).
var ErrNoText = errors.New("pdf: no extractable text")

// Page holds the plain text of a single page. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// Document is the result of extracting a PDF file.
type Document struct {
	Pages     []Page
	PageCount int
}

// Text concatenates all page text with blank lines between pages.
func (d *Document) Text() string {
	parts := make([]string, 0, len(d.Pages))
	for _, p := range d.Pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n\n")
}

// Extract parses the PDF at path and returns per-page plain text.
//
// Pages that produce no text are skipped from Pages but still counted in
// PageCount. Extract returns ErrNoText when every page is empty.
func Extract(path string) (*Document, error) {
	f, rdr, err := ledongthuc.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pdf: open %s: %w", path, err)
	}
	defer f.Close()

	total := rdr.NumPage()
	doc := &Document{PageCount: total}

	for i := 1; i <= total; i++ {
		page := rdr.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Individual malformed pages are skipped rather than failing
			// the whole document.
			continue
		}
		text = normalize(text)
		if text == "" {
			continue
		}
		doc.Pages = append(doc.Pages, Page{Number: i, Text: text})
	}

	if len(doc.Pages) == 0 {
		return nil, ErrNoText
	}
	return doc, nil
}

// normalize collapses runs of whitespace that PDF text extraction tends to
// produce while preserving paragraph breaks.
func normalize(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
