// Package extract turns uploaded documents into bounded plain text for grounded generation.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"quizgen-service/internal/domain"
)

// DefaultMaxChars approximates the usable model context for document mode.
const DefaultMaxChars = 12000

// Document is the text recovered from an upload.
type Document struct {
	Text string
	// Truncated is set when the text was cut to the budget. OriginalChars keeps the pre-cut length.
	Truncated     bool
	OriginalChars int
}

// Extractor converts raw document bytes into at most MaxChars characters of text.
type Extractor struct {
	MaxChars int
}

func New(maxChars int) *Extractor {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Extractor{MaxChars: maxChars}
}

// Extract sniffs the payload, extracts its text and applies the length budget.
// It fails with domain.ErrExtractionFailed for unparseable input and
// domain.ErrEmptyDocument when nothing readable is left (typically a scanned PDF).
func (e *Extractor) Extract(data []byte) (Document, error) {
	var (
		text string
		err  error
	)
	switch {
	case len(data) == 0:
		return Document{}, domain.ErrEmptyDocument
	case isPDF(data):
		text, err = extractPDF(data)
	case isProbablyText(data):
		text = string(data)
	default:
		return Document{}, fmt.Errorf("%w: unsupported document type (head=%x)", domain.ErrExtractionFailed, data[:min(len(data), 8)])
	}
	if err != nil {
		return Document{}, err
	}

	text = collapseWhitespace(text)
	if text == "" {
		return Document{}, domain.ErrEmptyDocument
	}

	doc := Document{Text: text, OriginalChars: utf8.RuneCountInString(text)}
	if doc.OriginalChars > e.MaxChars {
		doc.Text = truncateRunes(text, e.MaxChars)
		doc.Truncated = true
	}
	return doc, nil
}

func isPDF(b []byte) bool {
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}

// isProbablyText accepts valid UTF-8 without NULs.
func isProbablyText(b []byte) bool {
	sample := b[:min(len(b), 4096)]
	if bytes.IndexByte(sample, 0x00) >= 0 {
		return false
	}
	if utf8.Valid(sample) {
		return true
	}
	// the sample may end mid-rune
	for cut := 1; cut < utf8.UTFMax && len(b) > len(sample) && cut < len(sample); cut++ {
		if utf8.Valid(sample[:len(sample)-cut]) {
			return true
		}
	}
	return false
}

func extractPDF(data []byte) (text string, err error) {
	// the pdf package panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: pdf parser panic: %v", domain.ErrExtractionFailed, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: pdf reader: %v", domain.ErrExtractionFailed, err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: pdf plaintext: %v", domain.ErrExtractionFailed, err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("%w: pdf read: %v", domain.ErrExtractionFailed, err)
	}
	return string(b), nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
