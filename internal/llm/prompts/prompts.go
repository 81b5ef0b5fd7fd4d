// Package prompts renders the system prompts sent to the text-completion
// collaborator.
package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"
)

// Templates holds the built-in prompt templates.
//
//go:embed templates/*.txt
var Templates embed.FS

// Kind names a prompt template.
type Kind string

const (
	KindQuiz       Kind = "quiz"
	KindFlashcards Kind = "flashcards"
	KindTips       Kind = "tips"
)

var kinds = []Kind{KindQuiz, KindFlashcards, KindTips}

// MaxMaterialChars bounds the material placed in a single prompt.
const MaxMaterialChars = 200000

var wrapperTagRegex = regexp.MustCompile(`(?i)</?\s*(source-material|quiz-summary|system-instructions)\b[^>]*>`)

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[Kind]*template.Template
)

// GenerateData holds template data for quiz and flashcard generation.
type GenerateData struct {
	Subject string
	Count   int
	Focus   string
}

// TipsData holds template data for improvement tips.
type TipsData struct {
	Title string
}

// Load parses prompt templates from fsys once. Later calls return the first
// result.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		templates = make(map[Kind]*template.Template)
		for _, k := range kinds {
			name := "templates/" + string(k) + ".txt"
			content, err := fs.ReadFile(fsys, name)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", name, err)
				return
			}
			tmpl, err := template.New(string(k)).Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", name, err)
				return
			}
			templates[k] = tmpl
		}
	})
	return loadErr
}

// Build renders the system prompt of kind k.
func Build(k Kind, data any) (string, error) {
	if templates == nil {
		if loadErr != nil {
			return "", fmt.Errorf("templates load failed: %w", loadErr)
		}
		return "", errors.New("templates not initialized: call Load first")
	}
	tmpl, ok := templates[k]
	if !ok {
		return "", errors.New("unknown prompt kind: " + string(k))
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WrapMaterial places aggregated material inside delimiter tags after
// removing any tags that could close the block early.
func WrapMaterial(material string) string {
	return wrap("source-material", material, "[No material provided]")
}

// WrapSummary places a quiz report inside delimiter tags.
func WrapSummary(summary string) string {
	return wrap("quiz-summary", summary, "[No attempts]")
}

func wrap(tag, s, empty string) string {
	s = strings.TrimSpace(wrapperTagRegex.ReplaceAllString(s, ""))
	if s == "" {
		s = empty
	}
	if utf8.RuneCountInString(s) > MaxMaterialChars {
		s = string([]rune(s)[:MaxMaterialChars]) + "\n\n[Truncated due to length]"
	}
	return "<" + tag + ">\n" + s + "\n</" + tag + ">"
}
