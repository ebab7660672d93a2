// Package pdftext extracts plain text from PDF files page by page.
package pdftext

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ledongthuc/pdf"

	"github.com/ziadkadry99/docchat/internal/apperr"
)

// ExtractPages returns the plain text of every page in order. Pages with no
// content yield an empty string so page numbers stay aligned with indices.
// Malformed input fails with ErrUnreadableDocument.
func ExtractPages(data []byte) (pages []string, err error) {
	const op = "pdftext.ExtractPages"

	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = apperr.New(apperr.ErrUnreadableDocument, op, fmt.Sprint(r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrUnreadableDocument, op, err)
	}

	n := reader.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrUnreadableDocument, op, fmt.Errorf("page %d: %w", i, err))
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// ExtractFile reads path and calls ExtractPages.
func ExtractFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrIOFailure, "pdftext.ExtractFile", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrIOFailure, "pdftext.ExtractFile", err)
	}
	return ExtractPages(data)
}
