// Package extract turns uploaded resume payloads into plain text.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"resume-critic/internal/shared/telemetry"
)

// ErrExtractionFailed marks payloads that could not be turned into usable
// text (corrupt files, scanned PDFs, undecodable base64).
var ErrExtractionFailed = errors.New("extraction failed")

// minTextLength is the smallest extraction considered readable; anything
// shorter is treated as a scanned or unreadable document.
const minTextLength = 10

// Result is the extractor output.
type Result struct {
	Text string
	// Pages is the page count for PDFs, the paragraph count for DOCX and
	// 1 for plain text.
	Pages int
}

// Decode strips an optional data-URL prefix and base64-decodes the payload.
func Decode(payload string) ([]byte, error) {
	trimmed := strings.TrimSpace(payload)
	if idx := strings.Index(trimmed, ";base64,"); strings.HasPrefix(trimmed, "data:") && idx >= 0 {
		trimmed = trimmed[idx+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		// Some producers emit unpadded base64.
		data, err = base64.RawStdEncoding.DecodeString(trimmed)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode base64: %v", ErrExtractionFailed, err)
	}
	return data, nil
}

// FromBase64 decodes a base64 payload (optionally data-URL prefixed) and
// extracts text from it.
func FromBase64(payload string) (Result, error) {
	data, err := Decode(payload)
	if err != nil {
		return Result{}, err
	}
	return FromBytes(data)
}

// FromBytes extracts text from raw file bytes. The format is detected from
// signature bytes, never from a declared content type.
func FromBytes(data []byte) (Result, error) {
	switch {
	case looksLikePDF(data):
		return extractPDF(data)
	case looksLikeZip(data):
		return extractDOCX(data)
	default:
		return passThroughText(data)
	}
}

func looksLikePDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

func looksLikeZip(data []byte) bool {
	return bytes.HasPrefix(data, []byte("PK\x03\x04"))
}

func extractPDF(data []byte) (_ Result, err error) {
	// The pdf library panics on some malformed files; report, don't crash.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: pdf parse panic: %v", ErrExtractionFailed, rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("%w: pdf open: %v", ErrExtractionFailed, err)
	}

	var b strings.Builder
	totalPages := reader.NumPage()
	for pageIndex := 1; pageIndex <= totalPages; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip unreadable pages; the length gate below catches
			// documents with nothing extractable.
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strings.TrimSpace(text))
	}

	text := strings.TrimSpace(b.String())
	if len(text) < minTextLength {
		return Result{}, fmt.Errorf("%w: pdf produced %d characters, likely scanned", ErrExtractionFailed, len(text))
	}
	return Result{Text: text, Pages: totalPages}, nil
}

func extractDOCX(data []byte) (Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("%w: open zip: %v", ErrExtractionFailed, err)
	}

	var docFile *zip.File
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return Result{}, fmt.Errorf("%w: document.xml not found", ErrExtractionFailed)
	}

	rc, err := docFile.Open()
	if err != nil {
		return Result{}, fmt.Errorf("%w: open document.xml: %v", ErrExtractionFailed, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return Result{}, fmt.Errorf("%w: read document.xml: %v", ErrExtractionFailed, err)
	}

	text, paragraphs := stripDocxXML(string(raw))
	if len(text) < minTextLength {
		return Result{}, fmt.Errorf("%w: docx produced %d characters", ErrExtractionFailed, len(text))
	}
	return Result{Text: text, Pages: paragraphs}, nil
}

func stripDocxXML(raw string) (string, int) {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	paragraphs := 0
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return strings.TrimSpace(raw), paragraphs
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
				if t.Name.Local == "p" {
					paragraphs++
				}
			}
		}
	}
	return strings.TrimSpace(buf.String()), paragraphs
}

// passThroughText returns the payload unchanged. The readability ratio is
// logged for diagnostics only; low-ratio text is still accepted.
func passThroughText(data []byte) (Result, error) {
	text := string(data)
	if len(strings.TrimSpace(text)) < minTextLength {
		return Result{}, fmt.Errorf("%w: text payload too short", ErrExtractionFailed)
	}

	ratio := readabilityRatio(text)
	if ratio < 0.5 {
		telemetry.Info("extract.low_readability", map[string]any{
			"ratio":  ratio,
			"length": len(text),
		})
	}
	return Result{Text: text, Pages: 1}, nil
}

// readabilityRatio samples the text and returns the share of characters
// that are letters, digits, punctuation or whitespace.
func readabilityRatio(text string) float64 {
	const sampleSize = 1000
	sample := text
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
	}
	if len(sample) == 0 {
		return 0
	}
	readable := 0
	total := 0
	for _, r := range sample {
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsPunct(r) || unicode.IsSpace(r) {
			readable++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}
