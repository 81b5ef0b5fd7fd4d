package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pavelanni/studyroom/internal/model"
)

// CreateAttempt records a graded submission. A second attempt by the same
// student on the same quiz fails with model.ErrDuplicate, whichever request
// reaches the database first.
func (s *Store) CreateAttempt(a model.QuizAttempt) (int64, error) {
	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return 0, fmt.Errorf("marshal answers: %w", err)
	}
	results, err := json.Marshal(a.Results)
	if err != nil {
		return 0, fmt.Errorf("marshal results: %w", err)
	}
	res, err := s.db.Exec(
		`INSERT INTO quiz_attempts (resource_id, student_id, answers, score, max_score, results, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ResourceID, a.StudentID, string(answers), a.Score, a.MaxScore, string(results), a.SubmittedAt,
	)
	if err != nil {
		return 0, duplicate(err, fmt.Sprintf("attempt by student %d on quiz %d", a.StudentID, a.ResourceID))
	}
	return res.LastInsertId()
}

// HasAttempt reports whether a student has already submitted a quiz.
func (s *Store) HasAttempt(resourceID, studentID int64) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM quiz_attempts WHERE resource_id = ? AND student_id = ?`,
		resourceID, studentID,
	).Scan(&n)
	return n > 0, err
}

const attemptSelect = `SELECT a.id, a.resource_id, a.student_id, COALESCE(NULLIF(u.display_name, ''), u.username),
	a.answers, a.score, a.max_score, a.results, a.submitted_at
	FROM quiz_attempts a JOIN users u ON u.id = a.student_id`

func scanAttempt(row interface{ Scan(...any) error }) (*model.QuizAttempt, error) {
	var a model.QuizAttempt
	var answers, results string
	err := row.Scan(&a.ID, &a.ResourceID, &a.StudentID, &a.StudentName,
		&answers, &a.Score, &a.MaxScore, &results, &a.SubmittedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(answers), &a.Answers); err != nil {
		return nil, fmt.Errorf("attempt %d answers: %w", a.ID, err)
	}
	if err := json.Unmarshal([]byte(results), &a.Results); err != nil {
		return nil, fmt.Errorf("attempt %d results: %w", a.ID, err)
	}
	return &a, nil
}

// GetAttempt returns a student's attempt on a quiz, or nil if there is none.
func (s *Store) GetAttempt(resourceID, studentID int64) (*model.QuizAttempt, error) {
	a, err := scanAttempt(s.db.QueryRow(
		attemptSelect+` WHERE a.resource_id = ? AND a.student_id = ?`, resourceID, studentID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

// ListAttempts returns every attempt on a quiz in submission order.
func (s *Store) ListAttempts(resourceID int64) ([]model.QuizAttempt, error) {
	rows, err := s.db.Query(attemptSelect+` WHERE a.resource_id = ? ORDER BY a.submitted_at, a.id`, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.QuizAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
