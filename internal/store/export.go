package store

import (
	"fmt"
	"time"

	"github.com/pavelanni/studyroom/internal/model"
)

// ExportQuizAttempts builds an export of every attempt on a quiz. It returns
// nil when the resource does not exist.
func (s *Store) ExportQuizAttempts(resourceID int64) (*model.QuizExport, error) {
	res, err := s.GetResource(resourceID)
	if err != nil {
		return nil, fmt.Errorf("get resource %d: %w", resourceID, err)
	}
	if res == nil {
		return nil, nil
	}

	attempts, err := s.ListAttempts(resourceID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	export := &model.QuizExport{
		ResourceID: res.ID,
		Title:      res.Title,
		Subject:    res.Subject,
		ExportedAt: time.Now().UTC(),
		Results:    []model.StudentResult{},
	}
	for _, a := range attempts {
		user, err := s.GetUserByID(a.StudentID)
		if err != nil {
			return nil, fmt.Errorf("get user %d: %w", a.StudentID, err)
		}
		var username, displayName string
		if user != nil {
			username = user.Username
			displayName = user.DisplayName
		}
		if len(a.Results) > export.Questions {
			export.Questions = len(a.Results)
		}
		export.Results = append(export.Results, model.StudentResult{
			Username:    username,
			DisplayName: displayName,
			Score:       a.Score,
			MaxScore:    a.MaxScore,
			SubmittedAt: a.SubmittedAt,
			Questions:   a.Results,
		})
	}
	return export, nil
}
