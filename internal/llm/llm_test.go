package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pavelanni/studyroom/internal/llm/prompts"
	"github.com/pavelanni/studyroom/internal/model"
)

type stubCompleter struct {
	replies []string
	err     error
	calls   []Request
}

func (s *stubCompleter) Complete(_ context.Context, req Request) (string, error) {
	s.calls = append(s.calls, req)
	if s.err != nil {
		return "", s.err
	}
	reply := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return reply, nil
}

func loadPrompts(t *testing.T) {
	t.Helper()
	if err := prompts.Load(prompts.Templates); err != nil {
		t.Fatalf("prompts.Load: %v", err)
	}
}

const validQuiz = "```json\n" + `{"questions":[{"question":"2+2?","choices":["3","4","5","6"],"correctIndex":1}]}` + "\n```"

func TestGenerateQuiz(t *testing.T) {
	loadPrompts(t)
	stub := &stubCompleter{replies: []string{validQuiz}}
	g := NewGenerator(stub)

	content, err := g.Generate(context.Background(), model.ResourceQuiz, GenerateInput{
		Subject: "Math", Material: "--- Math/a.txt ---\narithmetic", Count: 1,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := `{"questions":[{"question":"2+2?","options":["3","4","5","6"],"correct_index":1}]}`
	if content != want {
		t.Errorf("content = %s, want %s", content, want)
	}

	req := stub.calls[0]
	if !req.JSON {
		t.Error("generation should request JSON output")
	}
	if !strings.Contains(req.System, "Math") || !strings.Contains(req.System, "exactly 1 questions") {
		t.Errorf("system prompt missing subject or count:\n%s", req.System)
	}
	if !strings.HasPrefix(req.User, "<source-material>\n--- Math/a.txt ---") {
		t.Errorf("material not wrapped: %q", req.User)
	}
}

func TestGenerateRetriesUnusableOutput(t *testing.T) {
	loadPrompts(t)
	cards := `{"cards":[{"front":"H2O","back":"water"}]}`

	stub := &stubCompleter{replies: []string{"Sure! Here are your cards.", cards}}
	content, err := NewGenerator(stub).Generate(context.Background(), model.ResourceFlashcards, GenerateInput{Subject: "Chem", Count: 1})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if content != cards || len(stub.calls) != 2 {
		t.Errorf("content = %s after %d calls", content, len(stub.calls))
	}

	stub = &stubCompleter{replies: []string{"no"}}
	_, err = NewGenerator(stub).Generate(context.Background(), model.ResourceFlashcards, GenerateInput{Subject: "Chem", Count: 1})
	if !errors.Is(err, ErrBadOutput) || !errors.Is(err, model.ErrMalformedDeck) {
		t.Errorf("expected ErrBadOutput wrapping ErrMalformedDeck, got %v", err)
	}
}

func TestGenerateValidation(t *testing.T) {
	loadPrompts(t)
	g := NewGenerator(&stubCompleter{replies: []string{validQuiz}})
	tests := []struct {
		name string
		typ  model.ResourceType
		n    int
	}{
		{"zero count", model.ResourceQuiz, 0},
		{"too many", model.ResourceQuiz, MaxItems + 1},
		{"unknown type", model.ResourceType("essay"), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Generate(context.Background(), tt.typ, GenerateInput{Count: tt.n})
			if !errors.Is(err, model.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestTips(t *testing.T) {
	loadPrompts(t)
	stub := &stubCompleter{replies: []string{"1. Revisit primes."}}
	tips, err := NewGenerator(stub).Tips(context.Background(), "Primes", "Attempts: 3\nCorrect: 1/3")
	if err != nil {
		t.Fatalf("Tips: %v", err)
	}
	if tips != "1. Revisit primes." {
		t.Errorf("tips = %q", tips)
	}
	req := stub.calls[0]
	if req.JSON || !strings.Contains(req.System, `"Primes"`) || !strings.Contains(req.User, "Correct: 1/3") {
		t.Errorf("unexpected request %+v", req)
	}
}

func TestDisabled(t *testing.T) {
	c, err := NewCompleter("none", "", "", "")
	if err != nil {
		t.Fatalf("NewCompleter: %v", err)
	}
	if _, err := c.Complete(context.Background(), Request{}); !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
	if _, err := NewCompleter("bard", "", "", ""); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestOpenAIComplete(t *testing.T) {
	var got struct {
		Model          string `json:"model"`
		ResponseFormat *struct {
			Type string `json:"type"`
		} `json:"response_format"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"test",
			"choices":[{"index":0,"message":{"role":"assistant","content":"{\"ok\":true}"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`)
	}))
	defer srv.Close()

	c := NewOpenAI(srv.URL+"/v1", "key", "test-model")
	out, err := c.Complete(context.Background(), Request{System: "sys", User: "usr", JSON: true})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != `{"ok":true}` {
		t.Errorf("out = %q", out)
	}
	if got.Model != "test-model" || got.ResponseFormat == nil || got.ResponseFormat.Type != "json_object" {
		t.Errorf("unexpected request %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "usr" {
		t.Errorf("unexpected messages %+v", got.Messages)
	}
}

func TestAnthropicComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
			"content":[{"type":"text","text":"tips here"}],
			"stop_reason":"end_turn","usage":{"input_tokens":4,"output_tokens":2}}`)
	}))
	defer srv.Close()

	c := NewAnthropic(srv.URL, "key", "claude-test")
	out, err := c.Complete(context.Background(), Request{System: "sys", User: "usr"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "tips here" {
		t.Errorf("out = %q", out)
	}
}
