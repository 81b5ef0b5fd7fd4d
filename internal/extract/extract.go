// Package extract turns PDF, Word and plain-text documents into plain text.
package extract

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/pavelanni/studyroom/internal/model"
)

// Extract converts data to plain text. The format comes from filename's
// extension, then from hint, then from sniffing the content. Unsupported
// formats return model.ErrUnsupported and broken documents return
// model.ErrExtraction; callers decide whether that is fatal.
func Extract(data []byte, hint, filename string) (string, error) {
	format := Classify(filename, hint)
	if format == Unsupported && ambiguousExts[strings.ToLower(filepath.Ext(filename))] && hint == "" {
		format = classifyHint(mimetype.Detect(data).String())
	}

	switch format {
	case PlainText:
		return decodeText(data)
	case PDF:
		return extractPDF(data)
	case WordDoc:
		return extractDocx(data)
	case Unsupported:
		return "", fmt.Errorf("%w: %s", model.ErrUnsupported, filename)
	}
	return "", fmt.Errorf("%w: %s", model.ErrUnsupported, filename)
}

// decodeText honours UTF-8 and UTF-16 byte order marks and replaces invalid
// sequences instead of failing.
func decodeText(data []byte) (string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, data)
	if err != nil {
		return "", fmt.Errorf("%w: decode text: %v", model.ErrExtraction, err)
	}
	if !utf8.Valid(out) {
		out = bytes.ToValidUTF8(out, []byte("�"))
	}
	return string(out), nil
}

func extractPDF(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: corrupt pdf: %v", model.ErrExtraction, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %v", model.ErrExtraction, err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: read pdf text: %v", model.ErrExtraction, err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("%w: read pdf text: %v", model.ErrExtraction, err)
	}
	return buf.String(), nil
}
