// Package aggregate concatenates the text of many source files into one
// bounded blob used as grounding context for generation.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/pavelanni/studyroom/internal/extract"
	"github.com/pavelanni/studyroom/internal/materials"
	"github.com/pavelanni/studyroom/internal/metrics"
	"github.com/pavelanni/studyroom/internal/model"
)

// FailurePolicy decides what happens when one file cannot be extracted.
type FailurePolicy int

const (
	// Skip logs the failure and continues with the next file.
	Skip FailurePolicy = iota
	// Abort returns the first failure to the caller.
	Abort
)

func (p FailurePolicy) String() string {
	if p == Abort {
		return "abort"
	}
	return "skip"
}

// DefaultMaxChars is the budget used when the caller does not set one.
const DefaultMaxChars = 120000

const separator = "\n\n"

// Options control a single aggregation.
type Options struct {
	MaxChars int
	Policy   FailurePolicy
}

// SkippedFile records a file left out because it could not be extracted.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Result is the outcome of an aggregation. Text is at most MaxChars
// characters long.
type Result struct {
	Text      string        `json:"text"`
	Included  []string      `json:"included"`
	Skipped   []SkippedFile `json:"skipped,omitempty"`
	Truncated bool          `json:"truncated"`
}

// Aggregator reads files through a materials.Resolver and extracts them
// concurrently.
type Aggregator struct {
	resolver *materials.Resolver
	workers  int
}

// New creates an Aggregator that extracts up to workers files at a time.
func New(r *materials.Resolver, workers int) *Aggregator {
	if workers < 1 {
		workers = 1
	}
	return &Aggregator{resolver: r, workers: workers}
}

// Subject aggregates every supported file under a subject folder in
// lexicographic order of relative path.
func (a *Aggregator) Subject(ctx context.Context, subject string, opts Options) (*Result, error) {
	files, err := a.resolver.SupportedFiles(subject)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return a.run(ctx, paths, opts)
}

// Files aggregates an explicit, ordered selection of root-relative paths.
// Every path is checked by the resolver on its own.
func (a *Aggregator) Files(ctx context.Context, paths []string, opts Options) (*Result, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no files selected", model.ErrValidation)
	}
	return a.run(ctx, paths, opts)
}

// ExtractFile extracts a single file and fails on any problem.
func (a *Aggregator) ExtractFile(rel string) (string, error) {
	o := a.extractOne(rel)
	return o.text, o.err
}

type outcome struct {
	rel    string
	format extract.Format
	text   string
	err    error
	done   bool
}

func (a *Aggregator) run(ctx context.Context, paths []string, opts Options) (*Result, error) {
	maxChars := opts.MaxChars
	if maxChars <= 0 {
		return nil, fmt.Errorf("%w: max chars must be positive", model.ErrValidation)
	}

	res := &Result{Included: []string{}}
	var sb strings.Builder
	n := 0

	// Files are extracted in windows of a.workers so the budget can stop the
	// walk early; results are appended in input order.
	for start := 0; start < len(paths) && n < maxChars; start += a.workers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+a.workers, len(paths))
		window := paths[start:end]
		outcomes := make([]outcome, len(window))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(a.workers)
		for i, p := range window {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				outcomes[i] = a.extractOne(p)
				outcomes[i].done = true
				if opts.Policy == Abort {
					// Stops siblings that have not started yet.
					return outcomes[i].err
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}

		for _, o := range outcomes {
			if n >= maxChars {
				break
			}
			if !o.done {
				// Cancelled after an earlier failure under Abort.
				continue
			}
			if o.err != nil {
				if opts.Policy == Abort {
					return nil, fmt.Errorf("aggregate %s: %w", o.rel, o.err)
				}
				slog.Warn("skipping file during aggregation", "path", o.rel, "error", o.err)
				metrics.ExtractedFiles.WithLabelValues(o.format.String(), "skipped").Inc()
				res.Skipped = append(res.Skipped, SkippedFile{Path: o.rel, Reason: o.err.Error()})
				continue
			}

			if len(res.Included) > 0 {
				sb.WriteString(separator)
				n += len(separator)
			}
			block := "--- " + o.rel + " ---\n" + o.text
			sb.WriteString(block)
			n += utf8.RuneCountInString(block)
			res.Included = append(res.Included, o.rel)
			metrics.ExtractedFiles.WithLabelValues(o.format.String(), "included").Inc()
		}
	}

	res.Text = sb.String()
	if n > maxChars {
		res.Text = truncateRunes(res.Text, maxChars)
		res.Truncated = true
	}
	metrics.AggregatedChars.Observe(float64(min(n, maxChars)))
	slog.Debug("aggregated materials",
		"files", len(res.Included),
		"skipped", len(res.Skipped),
		"chars", min(n, maxChars),
		"truncated", res.Truncated,
		"policy", opts.Policy.String(),
	)
	return res, nil
}

func (a *Aggregator) extractOne(rel string) outcome {
	o := outcome{rel: rel, format: extract.Classify(rel, "")}
	abs, ok := a.resolver.Resolve(rel)
	if !ok {
		o.err = fmt.Errorf("%w: %q is outside the materials root", model.ErrNotFound, rel)
		return o
	}
	if clean, ok := a.resolver.Rel(abs); ok {
		o.rel = clean
	}
	o.format = extract.Classify(abs, "")
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			o.err = fmt.Errorf("%w: %s", model.ErrNotFound, o.rel)
		} else {
			o.err = fmt.Errorf("stat %s: %w", o.rel, err)
		}
		return o
	}
	if !info.Mode().IsRegular() {
		o.err = fmt.Errorf("%w: %s is not a file", model.ErrNotFound, o.rel)
		return o
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			o.err = fmt.Errorf("%w: %s", model.ErrNotFound, o.rel)
		} else {
			o.err = fmt.Errorf("read %s: %w", o.rel, err)
		}
		return o
	}
	o.text, o.err = extract.Extract(data, "", filepath.Base(abs))
	return o
}

// truncateRunes cuts s to at most n runes without splitting a rune.
func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
