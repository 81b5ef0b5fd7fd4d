package quiz

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/studyroom/internal/metrics"
	"github.com/pavelanni/studyroom/internal/model"
)

// Store is the persistence the quiz service needs.
type Store interface {
	GetResource(id int64) (*model.Resource, error)
	GetUserByID(id int64) (*model.User, error)
	HasAttempt(resourceID, studentID int64) (bool, error)
	CreateAttempt(a model.QuizAttempt) (int64, error)
	GetAttempt(resourceID, studentID int64) (*model.QuizAttempt, error)
	ListAttempts(resourceID int64) ([]model.QuizAttempt, error)
}

// Service grades submissions and builds reports over stored attempts.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a quiz service backed by st.
func NewService(st Store) *Service {
	return &Service{store: st, now: time.Now}
}

// Grade scores answers against questions. A missing or out-of-range answer
// counts as unanswered and is never correct. MaxScore is len(questions).
func Grade(questions []model.QuizQuestion, answers []int) (results []model.AttemptResult, score int) {
	results = make([]model.AttemptResult, len(questions))
	for i, q := range questions {
		sel := model.Unanswered
		if i < len(answers) && answers[i] >= 0 && answers[i] < len(q.Options) {
			sel = answers[i]
		}
		correct := sel == q.CorrectIndex
		if correct {
			score++
		}
		results[i] = model.AttemptResult{
			Question:      q.Question,
			Options:       append([]string(nil), q.Options...),
			SelectedIndex: sel,
			CorrectIndex:  q.CorrectIndex,
			Correct:       correct,
			Rationale:     q.Rationale,
		}
	}
	return results, score
}

// quizResource loads a resource and checks that it is a quiz.
func (s *Service) quizResource(resourceID int64) (*model.Resource, error) {
	res, err := s.store.GetResource(resourceID)
	if err != nil {
		return nil, fmt.Errorf("get resource %d: %w", resourceID, err)
	}
	if res == nil || res.Type != model.ResourceQuiz {
		return nil, fmt.Errorf("%w: quiz %d", model.ErrNotFound, resourceID)
	}
	return res, nil
}

// Submit grades and stores a student's only attempt at a quiz. Preconditions
// are checked in order: the quiz exists, it is published, the student is in
// the quiz's class (unless it is school-wide), and no attempt exists yet.
func (s *Service) Submit(resourceID, studentID int64, answers []int) (*model.QuizAttempt, error) {
	attempt, err := s.submit(resourceID, studentID, answers)
	if err != nil {
		outcome := "error"
		if errors.Is(err, model.ErrForbidden) || errors.Is(err, model.ErrNotFound) {
			outcome = "rejected"
		}
		metrics.QuizSubmissions.WithLabelValues(outcome).Inc()
		return nil, err
	}
	metrics.QuizSubmissions.WithLabelValues("graded").Inc()
	return attempt, nil
}

func (s *Service) submit(resourceID, studentID int64, answers []int) (*model.QuizAttempt, error) {
	res, err := s.quizResource(resourceID)
	if err != nil {
		return nil, err
	}
	if !res.Published {
		return nil, model.ErrNotPublished
	}

	student, err := s.store.GetUserByID(studentID)
	if err != nil {
		return nil, fmt.Errorf("get student %d: %w", studentID, err)
	}
	if student == nil {
		return nil, fmt.Errorf("%w: student %d", model.ErrNotFound, studentID)
	}
	if !student.InClass(res) {
		return nil, model.ErrWrongClass
	}

	done, err := s.store.HasAttempt(resourceID, studentID)
	if err != nil {
		return nil, fmt.Errorf("check attempt: %w", err)
	}
	if done {
		return nil, model.ErrAlreadyAttempted
	}

	questions, err := ParseContent(res.Content)
	if err != nil {
		slog.Error("stored quiz is malformed", "resource_id", resourceID, "error", err)
		return nil, err
	}

	results, score := Grade(questions, answers)
	normalized := make([]int, len(results))
	for i, r := range results {
		normalized[i] = r.SelectedIndex
	}
	attempt := model.QuizAttempt{
		ResourceID:  resourceID,
		StudentID:   studentID,
		StudentName: student.DisplayName,
		Answers:     normalized,
		Score:       score,
		MaxScore:    len(questions),
		Results:     results,
		SubmittedAt: s.now(),
	}

	id, err := s.store.CreateAttempt(attempt)
	if errors.Is(err, model.ErrDuplicate) {
		// A concurrent submission won the race past the pre-check.
		return nil, model.ErrAlreadyAttempted
	}
	if err != nil {
		return nil, fmt.Errorf("store attempt: %w", err)
	}
	attempt.ID = id
	slog.Info("quiz graded", "resource_id", resourceID, "student_id", studentID, "score", score, "max_score", attempt.MaxScore)
	return &attempt, nil
}

// Attempt returns a student's stored attempt at a quiz.
func (s *Service) Attempt(resourceID, studentID int64) (*model.QuizAttempt, error) {
	if _, err := s.quizResource(resourceID); err != nil {
		return nil, err
	}
	a, err := s.store.GetAttempt(resourceID, studentID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if a == nil {
		return nil, fmt.Errorf("%w: no attempt on quiz %d", model.ErrNotFound, resourceID)
	}
	return a, nil
}

// StudentQuestion is a question as shown to a student taking the quiz.
type StudentQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// Questions returns the questions of a quiz as a student sees them, without
// the answer key. Students only see published quizzes of their own class.
func (s *Service) Questions(resourceID int64, viewer *model.User) ([]StudentQuestion, error) {
	res, err := s.quizResource(resourceID)
	if err != nil {
		return nil, err
	}
	if err := model.CheckAccess(viewer, res); err != nil {
		return nil, err
	}
	qs, err := ParseContent(res.Content)
	if err != nil {
		return nil, err
	}
	out := make([]StudentQuestion, len(qs))
	for i, q := range qs {
		out[i] = StudentQuestion{Question: q.Question, Options: q.Options}
	}
	return out, nil
}
