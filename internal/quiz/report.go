package quiz

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/pavelanni/studyroom/internal/model"
)

// TopWrongAnswers is how many wrong options a report lists per question.
const TopWrongAnswers = 3

// WrongAnswer is an incorrect option and how many students chose it.
type WrongAnswer struct {
	Option string `json:"option"`
	Count  int    `json:"count"`
}

// QuestionStats summarizes one question across attempts.
type QuestionStats struct {
	Question   string        `json:"question"`
	Correct    int           `json:"correct"`
	Answered   int           `json:"answered"`
	Unanswered int           `json:"unanswered"`
	TopWrong   []WrongAnswer `json:"top_wrong"`
}

// Summary holds the statistics of all attempts on a quiz.
type Summary struct {
	ResourceID   int64           `json:"resource_id"`
	Title        string          `json:"title"`
	Attempts     int             `json:"attempts"`
	AverageScore float64         `json:"average_score"`
	MaxScore     int             `json:"max_score"`
	Percentage   float64         `json:"percentage"`
	Questions    []QuestionStats `json:"questions"`
}

// Summarize computes statistics from attempt snapshots only, so edits to the
// quiz after students submitted do not change the report.
func Summarize(res *model.Resource, attempts []model.QuizAttempt) *Summary {
	sum := &Summary{ResourceID: res.ID, Title: res.Title, Attempts: len(attempts), Questions: []QuestionStats{}}
	if len(attempts) == 0 {
		return sum
	}

	var score, maxScore int
	nq := 0
	for _, a := range attempts {
		score += a.Score
		maxScore += a.MaxScore
		sum.MaxScore = max(sum.MaxScore, a.MaxScore)
		nq = max(nq, len(a.Results))
	}
	sum.AverageScore = float64(score) / float64(len(attempts))
	if maxScore > 0 {
		sum.Percentage = float64(score) * 100 / float64(maxScore)
	}

	for i := range nq {
		qs := QuestionStats{TopWrong: []WrongAnswer{}}
		wrong := map[string]int{}
		for _, a := range attempts {
			if i >= len(a.Results) {
				continue
			}
			r := a.Results[i]
			if qs.Question == "" {
				qs.Question = r.Question
			}
			switch {
			case r.Correct:
				qs.Correct++
				qs.Answered++
			case r.SelectedIndex < 0 || r.SelectedIndex >= len(r.Options):
				qs.Unanswered++
			default:
				qs.Answered++
				wrong[r.Options[r.SelectedIndex]]++
			}
		}
		for opt, n := range wrong {
			qs.TopWrong = append(qs.TopWrong, WrongAnswer{Option: opt, Count: n})
		}
		slices.SortFunc(qs.TopWrong, func(a, b WrongAnswer) int {
			if c := cmp.Compare(b.Count, a.Count); c != 0 {
				return c
			}
			return cmp.Compare(a.Option, b.Option)
		})
		if len(qs.TopWrong) > TopWrongAnswers {
			qs.TopWrong = qs.TopWrong[:TopWrongAnswers]
		}
		sum.Questions = append(sum.Questions, qs)
	}
	return sum
}

// String renders the plain-text report handed to the tips generator.
func (s *Summary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Quiz: %s\n", s.Title)
	fmt.Fprintf(&sb, "Attempts: %d\n", s.Attempts)
	if s.Attempts == 0 {
		sb.WriteString("No attempts yet.\n")
		return sb.String()
	}
	fmt.Fprintf(&sb, "Average score: %.2f/%d (%.1f%%)\n", s.AverageScore, s.MaxScore, s.Percentage)

	for i, q := range s.Questions {
		fmt.Fprintf(&sb, "\nQ%d: %s\n", i+1, q.Question)
		fmt.Fprintf(&sb, "Correct: %d/%d\n", q.Correct, s.Attempts)
		if len(q.TopWrong) > 0 {
			parts := make([]string, len(q.TopWrong))
			for j, w := range q.TopWrong {
				parts[j] = fmt.Sprintf("%q (%d)", w.Option, w.Count)
			}
			fmt.Fprintf(&sb, "Common wrong answers: %s\n", strings.Join(parts, ", "))
		}
		if q.Unanswered > 0 {
			fmt.Fprintf(&sb, "Unanswered: %d\n", q.Unanswered)
		}
	}
	return sb.String()
}

// Report builds the summary of a quiz for a viewer who manages it.
func (s *Service) Report(resourceID int64, viewer *model.User) (*Summary, error) {
	res, err := s.quizResource(resourceID)
	if err != nil {
		return nil, err
	}
	if !viewer.CanManage(res) {
		return nil, model.ErrNotOwner
	}
	attempts, err := s.store.ListAttempts(resourceID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return Summarize(res, attempts), nil
}

// SummaryText is Report without authorization, for offline tooling.
func (s *Service) SummaryText(resourceID int64) (string, error) {
	res, err := s.quizResource(resourceID)
	if err != nil {
		return "", err
	}
	attempts, err := s.store.ListAttempts(resourceID)
	if err != nil {
		return "", fmt.Errorf("list attempts: %w", err)
	}
	return Summarize(res, attempts).String(), nil
}
