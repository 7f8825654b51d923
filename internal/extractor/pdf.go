package extractor

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

var ErrNotPDF = errors.New("file is not a valid PDF")

var pdfMagic = []byte("%PDF")

// ValidateHeader checks the %PDF magic prefix. This is the only format check
// uploads must pass; deeper parsing stays best-effort.
func ValidateHeader(data []byte) error {
	if len(data) < len(pdfMagic) || !bytes.Equal(data[:len(pdfMagic)], pdfMagic) {
		return ErrNotPDF
	}
	return nil
}

// PageCount parses the document and returns its page count. An error means
// "unknown", not "invalid upload".
func PageCount(data []byte) (count int, err error) {
	// The parser panics on some malformed files; treat that as a parse error.
	defer func() {
		if r := recover(); r != nil {
			count = 0
			err = fmt.Errorf("failed to parse PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("failed to parse PDF: %w", err)
	}

	return reader.NumPage(), nil
}
