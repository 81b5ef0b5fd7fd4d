package extract

import (
	"path/filepath"
	"strings"
)

// Format is the document family a file is extracted as.
type Format int

const (
	Unsupported Format = iota
	PlainText
	PDF
	WordDoc
)

func (f Format) String() string {
	switch f {
	case PlainText:
		return "plain-text"
	case PDF:
		return "pdf"
	case WordDoc:
		return "word-doc"
	default:
		return "unsupported"
	}
}

// Supported reports whether files of this format can be extracted.
func (f Format) Supported() bool {
	return f != Unsupported
}

var extFormats = map[string]Format{
	".txt":      PlainText,
	".text":     PlainText,
	".md":       PlainText,
	".markdown": PlainText,
	".csv":      PlainText,
	".pdf":      PDF,
	".docx":     WordDoc,
}

// Extensions that say nothing about the content; the hint decides instead.
var ambiguousExts = map[string]bool{
	"":     true,
	".bin": true,
	".dat": true,
	".tmp": true,
}

// Classify picks a format from the file extension, falling back to the
// MIME-like hint when the extension is absent or ambiguous.
func Classify(filename, hint string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	if f, ok := extFormats[ext]; ok {
		return f
	}
	if !ambiguousExts[ext] {
		return Unsupported
	}
	return classifyHint(hint)
}

func classifyHint(hint string) Format {
	mt, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(hint)), ";")
	mt = strings.TrimSpace(mt)
	switch {
	case mt == "application/pdf":
		return PDF
	case mt == "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return WordDoc
	case strings.HasPrefix(mt, "text/"):
		return PlainText
	}
	return Unsupported
}
