package quiz

import (
	"errors"
	"strings"
	"testing"

	"github.com/pavelanni/studyroom/internal/model"
)

func TestReportScenario(t *testing.T) {
	f := newFixture(t)
	// Question 1: one student is right, the other two both pick "B".
	quiz := f.resource(t, model.Resource{Type: model.ResourceQuiz, Title: "Letters", Published: true, Content: `[
		{"question":"First letter?","options":["A","B","C","D"],"correct_index":0},
		{"question":"Last letter?","options":["A","B","C","Z"],"correct_index":3}
	]`})
	answers := [][]int{{0, 3}, {1, 3}, {1, 2}}
	for i, a := range answers {
		id := f.student(t, []string{"ann", "bob", "cat"}[i], nil)
		if _, err := f.svc.Submit(quiz, id, a); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	sum, err := f.svc.Report(quiz, f.teacher)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	text := sum.String()
	for _, want := range []string{
		"Attempts: 3",
		"Q1: First letter?\nCorrect: 1/3\nCommon wrong answers: \"B\" (2)\n",
		"Q2: Last letter?\nCorrect: 2/3\nCommon wrong answers: \"C\" (1)\n",
		"Average score: 1.00/2 (50.0%)",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q:\n%s", want, text)
		}
	}
}

func TestSummarizeTopThreeAndUnanswered(t *testing.T) {
	res := &model.Resource{ID: 1, Title: "T"}
	opts := []string{"a", "b", "c", "d"}
	attempt := func(sel int) model.QuizAttempt {
		return model.QuizAttempt{Score: 0, MaxScore: 1, Results: []model.AttemptResult{
			{Question: "q", Options: opts, SelectedIndex: sel, CorrectIndex: 0, Correct: sel == 0},
		}}
	}
	var attempts []model.QuizAttempt
	for _, sel := range []int{1, 1, 1, 2, 2, 3, model.Unanswered, model.Unanswered, 0} {
		attempts = append(attempts, attempt(sel))
	}

	sum := Summarize(res, attempts)
	q := sum.Questions[0]
	if q.Correct != 1 || q.Unanswered != 2 || q.Answered != 7 {
		t.Errorf("stats = %+v", q)
	}
	want := []WrongAnswer{{"b", 3}, {"c", 2}, {"d", 1}}
	if len(q.TopWrong) != len(want) {
		t.Fatalf("TopWrong = %v", q.TopWrong)
	}
	for i := range want {
		if q.TopWrong[i] != want[i] {
			t.Errorf("TopWrong[%d] = %v, want %v", i, q.TopWrong[i], want[i])
		}
	}
	if !strings.Contains(sum.String(), "Unanswered: 2\n") {
		t.Errorf("missing unanswered line:\n%s", sum.String())
	}
}

func TestSummarizeTiesAreStable(t *testing.T) {
	res := &model.Resource{ID: 1, Title: "T"}
	opts := []string{"w", "x", "y", "z"}
	var attempts []model.QuizAttempt
	for _, sel := range []int{3, 1, 2, 0} {
		attempts = append(attempts, model.QuizAttempt{MaxScore: 1, Results: []model.AttemptResult{
			{Question: "q", Options: opts, SelectedIndex: sel, CorrectIndex: 0, Correct: sel == 0},
		}})
	}
	got := Summarize(res, attempts).Questions[0].TopWrong
	if len(got) != 3 || got[0].Option != "x" || got[1].Option != "y" || got[2].Option != "z" {
		t.Errorf("ties should sort by option text, got %v", got)
	}
}

func TestReportWithoutAttempts(t *testing.T) {
	f := newFixture(t)
	sum, err := f.svc.Report(f.quizID, f.teacher)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if sum.Attempts != 0 || !strings.Contains(sum.String(), "No attempts yet.") {
		t.Errorf("unexpected empty report:\n%s", sum.String())
	}
}

func TestReportAuthorization(t *testing.T) {
	f := newFixture(t)
	otherID, _ := f.st.CreateUser(model.User{Username: "other", PasswordHash: "x", Role: model.UserRoleTeacher, Active: true})
	other, _ := f.st.GetUserByID(otherID)
	adminID, _ := f.st.CreateUser(model.User{Username: "root", PasswordHash: "x", Role: model.UserRoleAdmin, Active: true})
	admin, _ := f.st.GetUserByID(adminID)
	studentID := f.student(t, "alice", nil)
	student, _ := f.st.GetUserByID(studentID)

	if _, err := f.svc.Report(f.quizID, other); !errors.Is(err, model.ErrNotOwner) {
		t.Errorf("other teacher: expected ErrNotOwner, got %v", err)
	}
	if _, err := f.svc.Report(f.quizID, student); !errors.Is(err, model.ErrForbidden) {
		t.Errorf("student: expected ErrForbidden, got %v", err)
	}
	if _, err := f.svc.Report(f.quizID, admin); err != nil {
		t.Errorf("admin: %v", err)
	}
}
