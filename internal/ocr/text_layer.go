package ocr

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PageText is the text-layer content of one page, or the error reading it.
type PageText struct {
	Text string
	Err  error
}

// TextLayer reads the embedded text of a PDF page by page.
type TextLayer interface {
	Pages(path string) ([]PageText, error)
}

type pdfTextLayer struct{}

func (pdfTextLayer) Pages(path string) (pages []PageText, err error) {
	// the parser panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("open pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	n := r.NumPage()
	pages = make([]PageText, 0, n)
	for i := 1; i <= n; i++ {
		pages = append(pages, readPage(r, i))
	}
	return pages, nil
}

func readPage(r *pdf.Reader, i int) (pt PageText) {
	defer func() {
		if rec := recover(); rec != nil {
			pt = PageText{Err: fmt.Errorf("page %d: %v", i, rec)}
		}
	}()

	p := r.Page(i)
	if p.V.IsNull() {
		return PageText{}
	}
	txt, err := p.GetPlainText(nil)
	if err != nil {
		return PageText{Err: fmt.Errorf("page %d: %w", i, err)}
	}
	return PageText{Text: txt}
}
