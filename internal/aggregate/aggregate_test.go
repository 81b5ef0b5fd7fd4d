package aggregate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pavelanni/studyroom/internal/materials"
	"github.com/pavelanni/studyroom/internal/metrics"
	"github.com/pavelanni/studyroom/internal/model"
)

func newTestAggregator(t *testing.T, workers int, files map[string]string) *Aggregator {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	r, err := materials.NewResolver(root, materials.NewAliasTable(materials.DefaultAliases))
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return New(r, workers)
}

var mathFiles = map[string]string{
	"Math/b.txt":       "second file",
	"Math/a.txt":       "first file",
	"Math/sub/c.md":    "third file",
	"Math/picture.png": "not text",
}

func TestSubjectIncludesEverySupportedFileInOrder(t *testing.T) {
	a := newTestAggregator(t, 2, mathFiles)

	res, err := a.Subject(context.Background(), "Mathematics", Options{MaxChars: 10000})
	if err != nil {
		t.Fatalf("Subject: %v", err)
	}

	want := "--- Math/a.txt ---\nfirst file\n\n" +
		"--- Math/b.txt ---\nsecond file\n\n" +
		"--- Math/sub/c.md ---\nthird file"
	if res.Text != want {
		t.Errorf("Text =\n%q\nwant\n%q", res.Text, want)
	}
	if got := strings.Count(res.Text, "--- Math/"); got != 3 {
		t.Errorf("expected 3 provenance headers, got %d", got)
	}
	if res.Truncated {
		t.Error("did not expect truncation")
	}
	if len(res.Skipped) != 0 {
		t.Errorf("unsupported files are filtered before extraction, got skipped %v", res.Skipped)
	}
}

func TestSubjectIsDeterministicAcrossWorkerCounts(t *testing.T) {
	var texts []string
	for _, workers := range []int{1, 2, 8} {
		a := newTestAggregator(t, workers, mathFiles)
		res, err := a.Subject(context.Background(), "Math", Options{MaxChars: 10000})
		if err != nil {
			t.Fatalf("Subject(workers=%d): %v", workers, err)
		}
		texts = append(texts, res.Text)
	}
	for i := 1; i < len(texts); i++ {
		if texts[i] != texts[0] {
			t.Errorf("output differs between worker counts:\n%q\n%q", texts[0], texts[i])
		}
	}
}

func TestSubjectTruncatesToExactlyMaxChars(t *testing.T) {
	files := map[string]string{
		"Math/a.txt": strings.Repeat("α", 40),
		"Math/b.txt": strings.Repeat("b", 40),
		"Math/c.txt": strings.Repeat("c", 40),
	}
	for _, maxChars := range []int{1, 10, 25, 58, 60, 61, 75} {
		a := newTestAggregator(t, 2, files)
		res, err := a.Subject(context.Background(), "Math", Options{MaxChars: maxChars})
		if err != nil {
			t.Fatalf("Subject: %v", err)
		}
		if got := utf8.RuneCountInString(res.Text); got != maxChars {
			t.Errorf("maxChars=%d: got %d characters", maxChars, got)
		}
		if !utf8.ValidString(res.Text) {
			t.Errorf("maxChars=%d: truncation split a rune", maxChars)
		}
		if !res.Truncated {
			t.Errorf("maxChars=%d: expected Truncated", maxChars)
		}
	}
}

func TestSubjectStopsAddingOnceBudgetIsMet(t *testing.T) {
	files := map[string]string{
		"Math/a.txt": "0123456789",
		"Math/b.txt": "abcdefghij",
	}
	a := newTestAggregator(t, 1, files)
	// Header "--- Math/a.txt ---\n" is 19 characters; the block is 29.
	res, err := a.Subject(context.Background(), "Math", Options{MaxChars: 29})
	if err != nil {
		t.Fatalf("Subject: %v", err)
	}
	if len(res.Included) != 1 || res.Included[0] != "Math/a.txt" {
		t.Errorf("Included = %v, want only Math/a.txt", res.Included)
	}
	if res.Truncated {
		t.Error("an exact fit is not a truncation")
	}
	if res.Text != "--- Math/a.txt ---\n0123456789" {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestSubjectSkipsCorruptFiles(t *testing.T) {
	files := map[string]string{
		"Math/a.txt":   "good",
		"Math/bad.pdf": "%PDF-1.4 garbage",
		"Math/c.txt":   "also good",
	}
	a := newTestAggregator(t, 3, files)

	res, err := a.Subject(context.Background(), "Math", Options{MaxChars: 1000})
	if err != nil {
		t.Fatalf("Subject: %v", err)
	}
	if len(res.Included) != 2 {
		t.Errorf("Included = %v", res.Included)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Path != "Math/bad.pdf" {
		t.Errorf("Skipped = %v", res.Skipped)
	}
	if strings.Contains(res.Text, "bad.pdf") {
		t.Error("skipped file must not get a provenance header")
	}

	_, err = a.Subject(context.Background(), "Math", Options{MaxChars: 1000, Policy: Abort})
	if !errors.Is(err, model.ErrExtraction) {
		t.Errorf("Abort policy: expected ErrExtraction, got %v", err)
	}
}

func TestAbortReportsFailingFile(t *testing.T) {
	files := map[string]string{
		"Math/a.txt":   "good",
		"Math/bad.pdf": "%PDF-1.4 garbage",
		"Math/c.txt":   "also good",
		"Math/d.txt":   "more",
	}
	for _, workers := range []int{1, 4} {
		a := newTestAggregator(t, workers, files)
		_, err := a.Subject(context.Background(), "Math", Options{MaxChars: 1000, Policy: Abort})
		if !errors.Is(err, model.ErrExtraction) || !strings.Contains(err.Error(), "Math/bad.pdf") {
			t.Errorf("workers=%d: expected extraction error for Math/bad.pdf, got %v", workers, err)
		}
	}
}

func TestSkippedFilesCountedByFormat(t *testing.T) {
	a := newTestAggregator(t, 1, mathFiles)
	skippedText := metrics.ExtractedFiles.WithLabelValues("plain-text", "skipped")
	skippedUnsupported := metrics.ExtractedFiles.WithLabelValues("unsupported", "skipped")
	beforeText := testutil.ToFloat64(skippedText)
	beforeUnsupported := testutil.ToFloat64(skippedUnsupported)

	_, err := a.Files(context.Background(), []string{"Math/missing.txt", "../outside.txt"}, Options{MaxChars: 1000})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if got := testutil.ToFloat64(skippedText) - beforeText; got != 2 {
		t.Errorf("plain-text skips = %v, want 2", got)
	}
	if got := testutil.ToFloat64(skippedUnsupported) - beforeUnsupported; got != 0 {
		t.Errorf("unsupported skips = %v, want 0", got)
	}
}

func TestSubjectUnknown(t *testing.T) {
	a := newTestAggregator(t, 1, mathFiles)
	_, err := a.Subject(context.Background(), "Chemistry", Options{MaxChars: 100})
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFilesExplicitSelection(t *testing.T) {
	a := newTestAggregator(t, 2, mathFiles)

	t.Run("keeps caller order", func(t *testing.T) {
		res, err := a.Files(context.Background(), []string{"Math/sub/c.md", `Math\a.txt`}, Options{MaxChars: 1000})
		if err != nil {
			t.Fatalf("Files: %v", err)
		}
		want := "--- Math/sub/c.md ---\nthird file\n\n--- Math/a.txt ---\nfirst file"
		if res.Text != want {
			t.Errorf("Text = %q, want %q", res.Text, want)
		}
	})

	t.Run("skips bad paths", func(t *testing.T) {
		res, err := a.Files(context.Background(), []string{
			"../outside.txt",
			"Math/missing.txt",
			"Math/picture.png",
			"Math/a.txt",
		}, Options{MaxChars: 1000})
		if err != nil {
			t.Fatalf("Files: %v", err)
		}
		if len(res.Included) != 1 || res.Included[0] != "Math/a.txt" {
			t.Errorf("Included = %v", res.Included)
		}
		if len(res.Skipped) != 3 {
			t.Errorf("Skipped = %v", res.Skipped)
		}
	})

	t.Run("skips directories", func(t *testing.T) {
		res, err := a.Files(context.Background(), []string{"Math/sub", "Math/", "Math/a.txt"}, Options{MaxChars: 1000})
		if err != nil {
			t.Fatalf("Files: %v", err)
		}
		if len(res.Included) != 1 || res.Included[0] != "Math/a.txt" {
			t.Errorf("Included = %v", res.Included)
		}
		if len(res.Skipped) != 2 {
			t.Errorf("Skipped = %v", res.Skipped)
		}
	})

	t.Run("abort on directory", func(t *testing.T) {
		_, err := a.Files(context.Background(), []string{"Math/sub"}, Options{MaxChars: 1000, Policy: Abort})
		if !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("abort on traversal", func(t *testing.T) {
		_, err := a.Files(context.Background(), []string{"Math/a.txt", "../../etc/passwd"}, Options{MaxChars: 1000, Policy: Abort})
		if !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("abort on unsupported", func(t *testing.T) {
		_, err := a.Files(context.Background(), []string{"Math/picture.png"}, Options{MaxChars: 1000, Policy: Abort})
		if !errors.Is(err, model.ErrUnsupported) {
			t.Errorf("expected ErrUnsupported, got %v", err)
		}
	})

	t.Run("empty selection", func(t *testing.T) {
		_, err := a.Files(context.Background(), nil, Options{MaxChars: 1000})
		if !errors.Is(err, model.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})
}

func TestInvalidBudget(t *testing.T) {
	a := newTestAggregator(t, 1, mathFiles)
	_, err := a.Subject(context.Background(), "Math", Options{MaxChars: 0})
	if !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestCancelledContext(t *testing.T) {
	a := newTestAggregator(t, 1, mathFiles)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Subject(ctx, "Math", Options{MaxChars: 1000})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestExtractFile(t *testing.T) {
	a := newTestAggregator(t, 1, mathFiles)

	text, err := a.ExtractFile("Math/b.txt")
	if err != nil || text != "second file" {
		t.Errorf("ExtractFile = %q, %v", text, err)
	}
	if _, err := a.ExtractFile("Math/picture.png"); !errors.Is(err, model.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
	if _, err := a.ExtractFile("Math"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("directory: expected ErrNotFound, got %v", err)
	}
	if _, err := a.ExtractFile("../Math/b.txt"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 3, "hel"},
		{"héllo", 2, "hé"},
		{"abc", 5, "abc"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := truncateRunes(tt.in, tt.n); got != tt.want {
			t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
