package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrExtractionFailed  = errors.New("extraction failed")
)

// ParseFunc turns a document payload into plain text.
type ParseFunc func(data []byte) (string, error)

// Extractor converts uploaded resumes into plain text. PDF payloads are run
// through each PDF parser in order until one yields text.
type Extractor struct {
	pdfParsers []ParseFunc
	docxParser ParseFunc
}

// New returns an Extractor backed by MuPDF (go-fitz) with a pure Go PDF
// fallback, and the docx container reader.
func New() *Extractor {
	return &Extractor{
		pdfParsers: []ParseFunc{extractPDFFitz, extractPDFPlain},
		docxParser: extractDOCX,
	}
}

// NewWithParsers builds an Extractor with custom parsers.
func NewWithParsers(pdfParsers []ParseFunc, docxParser ParseFunc) *Extractor {
	return &Extractor{pdfParsers: pdfParsers, docxParser: docxParser}
}

// SupportedExtensions lists the file extensions Extract accepts.
func SupportedExtensions() []string {
	return []string{".pdf", ".txt", ".docx", ".doc"}
}

// Extract dispatches on the declared filename extension. Unknown extensions
// fail with ErrUnsupportedFormat before any parser runs; parser failures are
// reported as ErrExtractionFailed.
func (e *Extractor) Extract(ctx context.Context, data []byte, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(filename))

	var (
		text string
		err  error
	)
	switch ext {
	case ".pdf":
		text, err = e.extractPDF(data)
	case ".txt":
		text = decodeText(data)
	case ".docx", ".doc":
		text, err = safeParse(e.docxParser, data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	if err != nil {
		slog.Warn("text extraction failed", "filename", filename, "error", err)
		return "", fmt.Errorf("%w: %s: %v", ErrExtractionFailed, filename, err)
	}

	return strings.TrimSpace(text), nil
}

func (e *Extractor) extractPDF(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty pdf data")
	}

	var lastErr error
	for _, parse := range e.pdfParsers {
		text, err := safeParse(parse, data)
		if err != nil {
			lastErr = err
			continue
		}
		if strings.TrimSpace(text) == "" {
			lastErr = errors.New("pdf has no text layer")
			continue
		}
		return text, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no pdf parser configured")
	}
	return "", lastErr
}

// safeParse shields callers from parsers that panic on malformed input.
func safeParse(parse ParseFunc, data []byte) (text string, err error) {
	if parse == nil {
		return "", errors.New("no parser configured")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parser panic: %v", r)
		}
	}()
	return parse(data)
}

func decodeText(data []byte) string {
	text := strings.ToValidUTF8(string(data), "")
	return strings.TrimPrefix(text, "\ufeff")
}
