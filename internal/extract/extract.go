package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ledongthuc/pdf"
)

// MimePDF is the only document type the pipeline accepts.
const MimePDF = "application/pdf"

// ErrNotPDF is returned for payloads without a PDF header.
var ErrNotPDF = errors.New("not a PDF document")

// IsPDF reports whether data starts with a PDF header and sniffs as PDF.
func IsPDF(data []byte) bool {
	if !bytes.HasPrefix(bytes.TrimLeft(data[:min(len(data), 1024)], "\r\n\t "), []byte("%PDF-")) {
		return false
	}
	return http.DetectContentType(data) == MimePDF
}

// PageCount returns the number of pages in the document.
func PageCount(data []byte) (int, error) {
	r, err := open(data)
	if err != nil {
		return 0, err
	}
	return r.NumPage(), nil
}

// PDFText pulls plain text from every page of a PDF.
func PDFText(ctx context.Context, data []byte) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	// The parser panics on some malformed content streams.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("extract pdf text: malformed document: %v", rec)
		}
	}()
	r, err := open(data)
	if err != nil {
		return "", err
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func open(data []byte) (*pdf.Reader, error) {
	if !IsPDF(data) {
		return nil, ErrNotPDF
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return r, nil
}
