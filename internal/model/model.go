package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleTeacher is a teacher user role.
	UserRoleTeacher UserRole = "teacher"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user. ClassID is nil for staff and unassigned students.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	ClassID      *int64
	Active       bool
	CreatedAt    time.Time
}

// CanManage reports whether the user may edit a resource and read its
// aggregate views: admins always, teachers only for resources they own.
func (u *User) CanManage(r *Resource) bool {
	switch u.Role {
	case UserRoleAdmin:
		return true
	case UserRoleTeacher:
		return r.OwnerID == u.ID
	}
	return false
}

// InClass reports whether the user belongs to the class a resource is
// assigned to. School-wide resources (nil ClassID) match everyone.
func (u *User) InClass(r *Resource) bool {
	return r.ClassID == nil || (u.ClassID != nil && *u.ClassID == *r.ClassID)
}

// CheckAccess returns nil if u may use r as a learner: managers always, others
// only once it is published and assigned to their class.
func CheckAccess(u *User, r *Resource) error {
	if u.CanManage(r) {
		return nil
	}
	if !r.Published {
		return ErrNotPublished
	}
	if !u.InClass(r) {
		return ErrWrongClass
	}
	return nil
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// ResourceType distinguishes the kinds of generated study resources.
type ResourceType string

const (
	ResourceQuiz       ResourceType = "quiz"
	ResourceFlashcards ResourceType = "flashcards"
)

// Resource is a stored quiz or flashcard deck. Content holds the raw JSON payload.
type Resource struct {
	ID        int64        `json:"id"`
	Type      ResourceType `json:"type"`
	Title     string       `json:"title"`
	Subject   string       `json:"subject"`
	OwnerID   int64        `json:"owner_id"`
	ClassID   *int64       `json:"class_id,omitempty"`
	Published bool         `json:"published"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"created_at"`
}

// QuizQuestion is the canonical form of one generated multiple-choice question.
type QuizQuestion struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Rationale    string   `json:"rationale,omitempty"`
}

// Unanswered marks a question the student left blank.
const Unanswered = -1

// AttemptResult is the per-question snapshot stored with an attempt.
type AttemptResult struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	SelectedIndex int      `json:"selected_index"`
	CorrectIndex  int      `json:"correct_index"`
	Correct       bool     `json:"correct"`
	Rationale     string   `json:"rationale,omitempty"`
}

// QuizAttempt is a student's single, immutable submission for a quiz.
type QuizAttempt struct {
	ID          int64           `json:"id"`
	ResourceID  int64           `json:"resource_id"`
	StudentID   int64           `json:"student_id"`
	StudentName string          `json:"student_name,omitempty"`
	Answers     []int           `json:"answers"`
	Score       int             `json:"score"`
	MaxScore    int             `json:"max_score"`
	Results     []AttemptResult `json:"results"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// Rating is a student's self-assessed difficulty for a flashcard.
type Rating string

const (
	RatingEasy   Rating = "easy"
	RatingMedium Rating = "medium"
	RatingHard   Rating = "hard"
)

// Valid reports whether r is one of the known ratings.
func (r Rating) Valid() bool {
	switch r {
	case RatingEasy, RatingMedium, RatingHard:
		return true
	}
	return false
}

// FlashCard is one front/back pair in a flashcard deck.
type FlashCard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// FlashCardRating is the current rating of one card by one student.
// NextReviewAt is nil for rows written before scheduling existed.
type FlashCardRating struct {
	ID           int64      `json:"id"`
	ResourceID   int64      `json:"resource_id"`
	StudentID    int64      `json:"student_id"`
	StudentName  string     `json:"student_name,omitempty"`
	CardIndex    int        `json:"card_index"`
	Rating       Rating     `json:"rating"`
	NextReviewAt *time.Time `json:"next_review_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// SourceFile is a document found under a subject folder.
type SourceFile struct {
	Path        string `json:"path"`
	DisplayName string `json:"display_name"`
	Format      string `json:"format"`
}

// Subject is a folder under the materials root together with the aliases that resolve to it.
type Subject struct {
	Folder  string   `json:"folder"`
	Aliases []string `json:"aliases,omitempty"`
}

// ResourceImport is used for seeding resources from JSON files.
type ResourceImport struct {
	Type      ResourceType `json:"type"`
	Title     string       `json:"title"`
	Subject   string       `json:"subject"`
	ClassID   *int64       `json:"class_id,omitempty"`
	Published bool         `json:"published"`
	Content   any          `json:"content"`
}
