package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pavelanni/studyroom/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		hint     string
		want     Format
	}{
		{"txt", "notes.txt", "", PlainText},
		{"markdown upper", "README.MD", "", PlainText},
		{"pdf", "ch1.pdf", "", PDF},
		{"docx", "essay.docx", "", WordDoc},
		{"extension beats hint", "essay.docx", "application/pdf", WordDoc},
		{"unknown extension ignores hint", "photo.png", "text/plain", Unsupported},
		{"no extension uses hint", "upload", "application/pdf", PDF},
		{"hint with params", "upload", "text/plain; charset=utf-8", PlainText},
		{"ambiguous extension uses hint", "blob.bin", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", WordDoc},
		{"nothing to go on", "upload", "", Unsupported},
		{"legacy doc", "old.doc", "", Unsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.filename, tt.hint); got != tt.want {
				t.Errorf("Classify(%q, %q) = %v, want %v", tt.filename, tt.hint, got, tt.want)
			}
		})
	}
}

func TestExtractPlainText(t *testing.T) {
	got, err := Extract([]byte("hello\nworld"), "", "a.txt")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "hello\nworld" {
		t.Errorf("got %q", got)
	}
}

func TestExtractUTF16WithBOM(t *testing.T) {
	// "hi" in UTF-16LE with BOM.
	data := []byte{0xFF, 0xFE, 'h', 0x00, 'i', 0x00}
	got, err := Extract(data, "", "a.txt")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "hi" {
		t.Errorf("got %q, want %q", got, "hi")
	}
}

func TestExtractSniffsContentWithoutExtension(t *testing.T) {
	got, err := Extract([]byte("plain words only"), "", "README")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "plain words only" {
		t.Errorf("got %q", got)
	}
}

func TestExtractUnsupported(t *testing.T) {
	_, err := Extract([]byte{0x89, 'P', 'N', 'G'}, "", "image.png")
	if !errors.Is(err, model.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

// buildPDF writes a one-page PDF whose content stream shows text with the
// standard Helvetica font, with a correct cross-reference table.
func buildPDF(t *testing.T, text string) []byte {
	t.Helper()
	stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestExtractPDF(t *testing.T) {
	data := buildPDF(t, "Photosynthesis")

	for _, tt := range []struct{ name, filename, hint string }{
		{"by extension", "biology.pdf", ""},
		{"by hint", "upload", "application/pdf"},
		{"by sniffing", "upload.bin", ""},
	} {
		t.Run(tt.name, func(t *testing.T) {
			text, err := Extract(data, tt.hint, tt.filename)
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if !strings.Contains(text, "Photosynthesis") {
				t.Errorf("text = %q, want it to contain the page text", text)
			}
		})
	}
}

func TestExtractCorruptPDF(t *testing.T) {
	_, err := Extract([]byte("%PDF-1.4\nthis is not really a pdf"), "", "broken.pdf")
	if err == nil {
		t.Fatal("expected an error for a corrupt pdf")
	}
	if !errors.Is(err, model.ErrExtraction) {
		t.Errorf("expected ErrExtraction, got %v", err)
	}
	if !strings.Contains(err.Error(), "pdf") {
		t.Errorf("error should describe the pdf failure: %v", err)
	}
}

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("write entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractDocx(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:rPr><w:b/></w:rPr><w:t>Photosynthesis</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">Light </w:t></w:r><w:r><w:t>reactions</w:t><w:tab/><w:t>ATP</w:t></w:r></w:p>
</w:body>
</w:document>`
	got, err := Extract(buildDocx(t, doc), "", "bio.docx")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "Photosynthesis\nLight reactions\tATP"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractDocxErrors(t *testing.T) {
	t.Run("not a zip", func(t *testing.T) {
		_, err := Extract([]byte("nope"), "", "x.docx")
		if !errors.Is(err, model.ErrExtraction) {
			t.Errorf("expected ErrExtraction, got %v", err)
		}
	})

	t.Run("missing body", func(t *testing.T) {
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		if _, err := zw.Create("word/styles.xml"); err != nil {
			t.Fatal(err)
		}
		zw.Close()
		_, err := Extract(buf.Bytes(), "", "x.docx")
		if !errors.Is(err, model.ErrExtraction) {
			t.Errorf("expected ErrExtraction, got %v", err)
		}
	})
}
