// Package quiz grades single quiz attempts and summarizes them for instructors.
package quiz

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pavelanni/studyroom/internal/model"
)

// OptionCount is the number of options every question must carry.
const OptionCount = 4

// Field aliases accepted in stored or generated payloads, in priority order.
var (
	questionKeys  = []string{"question", "questionText", "prompt", "text"}
	optionsKeys   = []string{"options", "choices", "answers"}
	correctKeys   = []string{"correct_index", "correctIndex", "correctAnswerIndex", "answer_index", "answerIndex"}
	rationaleKeys = []string{"rationale", "explanation"}
)

// ParseContent canonicalizes a stored quiz payload. The payload may be a bare
// list of questions or an object with a "questions" key, optionally wrapped
// in a Markdown code fence. Any malformed question fails the whole quiz.
func ParseContent(content string) ([]model.QuizQuestion, error) {
	raw := model.TrimCodeFence(content)
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("%w: not valid JSON", model.ErrMalformedQuiz)
	}

	list := gjson.Parse(raw)
	if list.IsObject() {
		list = list.Get("questions")
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("%w: expected a list of questions", model.ErrMalformedQuiz)
	}

	items := list.Array()
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no questions", model.ErrMalformedQuiz)
	}
	questions := make([]model.QuizQuestion, 0, len(items))
	for i, item := range items {
		q, err := parseQuestion(item)
		if err != nil {
			return nil, fmt.Errorf("%w: question %d: %s", model.ErrMalformedQuiz, i+1, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func parseQuestion(item gjson.Result) (model.QuizQuestion, error) {
	var q model.QuizQuestion
	if !item.IsObject() {
		return q, fmt.Errorf("not an object")
	}

	text := firstOf(item, questionKeys)
	if text.Type != gjson.String || strings.TrimSpace(text.Str) == "" {
		return q, fmt.Errorf("missing question text")
	}
	q.Question = strings.TrimSpace(text.Str)

	opts := firstOf(item, optionsKeys)
	if !opts.IsArray() {
		return q, fmt.Errorf("missing options")
	}
	for _, o := range opts.Array() {
		if o.Type != gjson.String {
			return q, fmt.Errorf("option %s is not a string", o.Raw)
		}
		q.Options = append(q.Options, o.Str)
	}
	if len(q.Options) != OptionCount {
		return q, fmt.Errorf("want %d options, got %d", OptionCount, len(q.Options))
	}

	idx, err := parseIndex(firstOf(item, correctKeys))
	if err != nil {
		return q, err
	}
	if idx < 0 || idx >= OptionCount {
		return q, fmt.Errorf("correct index %d out of range", idx)
	}
	q.CorrectIndex = idx

	if r := firstOf(item, rationaleKeys); r.Type == gjson.String {
		q.Rationale = r.Str
	}
	return q, nil
}

func parseIndex(r gjson.Result) (int, error) {
	switch r.Type {
	case gjson.Number:
		if r.Num != float64(int(r.Num)) {
			return 0, fmt.Errorf("correct index %s is not an integer", r.Raw)
		}
		return int(r.Num), nil
	case gjson.String:
		n, err := strconv.Atoi(strings.TrimSpace(r.Str))
		if err != nil {
			return 0, fmt.Errorf("correct index %q is not an integer", r.Str)
		}
		return n, nil
	}
	return 0, fmt.Errorf("missing correct index")
}

func firstOf(obj gjson.Result, keys []string) gjson.Result {
	for _, k := range keys {
		if r := obj.Get(k); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}

// MarshalContent renders questions in the canonical stored form.
func MarshalContent(questions []model.QuizQuestion) (string, error) {
	b, err := json.Marshal(struct {
		Questions []model.QuizQuestion `json:"questions"`
	}{questions})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Canonicalize parses content and re-renders it in canonical form.
func Canonicalize(content string) (string, error) {
	qs, err := ParseContent(content)
	if err != nil {
		return "", err
	}
	return MarshalContent(qs)
}
