package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pavelanni/studyroom/internal/llm/prompts"
	"github.com/pavelanni/studyroom/internal/model"
	"github.com/pavelanni/studyroom/internal/quiz"
	"github.com/pavelanni/studyroom/internal/review"
)

// ErrBadOutput marks generated text that could not be turned into a resource.
var ErrBadOutput = errors.New("generator returned unusable content")

// MaxItems bounds how many questions or cards one generation may ask for.
const MaxItems = 50

// Generator produces validated resource content from aggregated material.
type Generator struct {
	llm Completer
	// tries is how many completions are requested before unusable output is
	// reported as an error.
	tries int
}

// NewGenerator wraps a completer. Prompt templates must already be loaded.
func NewGenerator(c Completer) *Generator {
	return &Generator{llm: c, tries: 2}
}

// GenerateInput describes one generation request.
type GenerateInput struct {
	Subject  string
	Material string
	Count    int
	Focus    string
}

// Generate asks for a quiz or a flashcard deck and returns its canonical
// stored content.
func (g *Generator) Generate(ctx context.Context, typ model.ResourceType, in GenerateInput) (string, error) {
	if in.Count < 1 || in.Count > MaxItems {
		return "", fmt.Errorf("%w: count must be between 1 and %d", model.ErrValidation, MaxItems)
	}

	var kind prompts.Kind
	var canonicalize func(string) (string, error)
	switch typ {
	case model.ResourceQuiz:
		kind, canonicalize = prompts.KindQuiz, quiz.Canonicalize
	case model.ResourceFlashcards:
		kind, canonicalize = prompts.KindFlashcards, review.Canonicalize
	default:
		return "", fmt.Errorf("%w: unknown resource type %q", model.ErrValidation, typ)
	}

	system, err := prompts.Build(kind, prompts.GenerateData{Subject: in.Subject, Count: in.Count, Focus: in.Focus})
	if err != nil {
		return "", fmt.Errorf("build prompt: %w", err)
	}
	req := Request{System: system, User: prompts.WrapMaterial(in.Material), JSON: true, Temperature: 0.4}

	var lastErr error
	for try := 1; try <= g.tries; try++ {
		raw, err := g.llm.Complete(ctx, req)
		if err != nil {
			return "", err
		}
		content, err := canonicalize(raw)
		if err == nil {
			return content, nil
		}
		lastErr = err
		slog.Warn("generator returned unusable content", "type", typ, "try", try, "error", err)
	}
	return "", fmt.Errorf("generate %s: %w: %w", typ, ErrBadOutput, lastErr)
}

// Tips asks for improvement suggestions based on a quiz report.
func (g *Generator) Tips(ctx context.Context, title, summary string) (string, error) {
	system, err := prompts.Build(prompts.KindTips, prompts.TipsData{Title: title})
	if err != nil {
		return "", fmt.Errorf("build prompt: %w", err)
	}
	return g.llm.Complete(ctx, Request{System: system, User: prompts.WrapSummary(summary), Temperature: 0.3})
}
