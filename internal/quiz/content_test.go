package quiz

import (
	"errors"
	"testing"

	"github.com/pavelanni/studyroom/internal/model"
)

func TestParseContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []model.QuizQuestion
	}{
		{
			name:    "wrapped object",
			content: `{"questions":[{"question":"2+2?","options":["3","4","5","6"],"correct_index":1,"rationale":"basic"}]}`,
			want:    []model.QuizQuestion{{Question: "2+2?", Options: []string{"3", "4", "5", "6"}, CorrectIndex: 1, Rationale: "basic"}},
		},
		{
			name:    "bare list with camel case keys",
			content: `[{"questionText":"Capital of France?","choices":["Rome","Paris","Berlin","Madrid"],"correctIndex":1,"explanation":"It is Paris."}]`,
			want:    []model.QuizQuestion{{Question: "Capital of France?", Options: []string{"Rome", "Paris", "Berlin", "Madrid"}, CorrectIndex: 1, Rationale: "It is Paris."}},
		},
		{
			name:    "code fence and string index",
			content: "```json\n[{\"prompt\":\"Pick A\",\"options\":[\"A\",\"B\",\"C\",\"D\"],\"answer_index\":\"0\"}]\n```",
			want:    []model.QuizQuestion{{Question: "Pick A", Options: []string{"A", "B", "C", "D"}, CorrectIndex: 0}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseContent(tt.content)
			if err != nil {
				t.Fatalf("ParseContent: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d questions, want %d", len(got), len(tt.want))
			}
			for i := range got {
				g, w := got[i], tt.want[i]
				if g.Question != w.Question || g.CorrectIndex != w.CorrectIndex || g.Rationale != w.Rationale {
					t.Errorf("question %d = %+v, want %+v", i, g, w)
				}
				for j := range w.Options {
					if g.Options[j] != w.Options[j] {
						t.Errorf("question %d option %d = %q, want %q", i, j, g.Options[j], w.Options[j])
					}
				}
			}
		})
	}
}

func TestParseContentRejectsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", `questions: none`},
		{"scalar", `42`},
		{"object without questions", `{"items":[]}`},
		{"empty list", `[]`},
		{"question not object", `["what?"]`},
		{"missing text", `[{"options":["a","b","c","d"],"correct_index":0}]`},
		{"three options", `[{"question":"q","options":["a","b","c"],"correct_index":0}]`},
		{"non string option", `[{"question":"q","options":["a","b","c",4],"correct_index":0}]`},
		{"index out of range", `[{"question":"q","options":["a","b","c","d"],"correct_index":4}]`},
		{"negative index", `[{"question":"q","options":["a","b","c","d"],"correct_index":-1}]`},
		{"fractional index", `[{"question":"q","options":["a","b","c","d"],"correct_index":1.5}]`},
		{"missing index", `[{"question":"q","options":["a","b","c","d"]}]`},
		{"one bad among good", `[{"question":"q","options":["a","b","c","d"],"correct_index":0},{"question":"q2"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseContent(tt.content)
			if !errors.Is(err, model.ErrMalformedQuiz) {
				t.Errorf("expected ErrMalformedQuiz, got %v", err)
			}
			if !errors.Is(err, model.ErrValidation) {
				t.Errorf("malformed quiz should be a validation error, got %v", err)
			}
		})
	}
}

func TestCanonicalize(t *testing.T) {
	got, err := Canonicalize(`[{"questionText":"q","choices":["a","b","c","d"],"correctIndex":2}]`)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	want := `{"questions":[{"question":"q","options":["a","b","c","d"],"correct_index":2}]}`
	if got != want {
		t.Errorf("Canonicalize = %s, want %s", got, want)
	}
}
