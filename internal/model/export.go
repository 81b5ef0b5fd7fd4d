package model

import "time"

// QuizExport is the top-level JSON structure for quiz attempt export.
type QuizExport struct {
	ResourceID int64           `json:"resource_id"`
	Title      string          `json:"title"`
	Subject    string          `json:"subject"`
	ExportedAt time.Time       `json:"exported_at"`
	Questions  int             `json:"num_questions"`
	Results    []StudentResult `json:"results"`
}

// StudentResult holds one student's attempt for export.
type StudentResult struct {
	Username    string          `json:"username"`
	DisplayName string          `json:"display_name"`
	Score       int             `json:"score"`
	MaxScore    int             `json:"max_score"`
	SubmittedAt time.Time       `json:"submitted_at"`
	Questions   []AttemptResult `json:"questions"`
}
