// Package review schedules flashcard reviews from per-card difficulty ratings.
package review

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/pavelanni/studyroom/internal/metrics"
	"github.com/pavelanni/studyroom/internal/model"
)

// Interval returns how long a card rated r waits before it is due again.
func Interval(r model.Rating) time.Duration {
	switch r {
	case model.RatingHard:
		return time.Minute
	case model.RatingMedium:
		return 24 * time.Hour
	case model.RatingEasy:
		return 3 * 24 * time.Hour
	}
	return 0
}

// Store is the persistence the scheduler needs.
type Store interface {
	GetResource(id int64) (*model.Resource, error)
	UpsertRating(r model.FlashCardRating) error
	ListStudentRatings(resourceID, studentID int64) ([]model.FlashCardRating, error)
	ListRatings(resourceID int64) ([]model.FlashCardRating, error)
}

// Scheduler records ratings and answers "what is due" questions.
type Scheduler struct {
	store Store
	now   func() time.Time
}

// NewScheduler creates a scheduler using the wall clock.
func NewScheduler(st Store) *Scheduler {
	return &Scheduler{store: st, now: time.Now}
}

func (s *Scheduler) deck(resourceID int64) (*model.Resource, []model.FlashCard, error) {
	res, err := s.store.GetResource(resourceID)
	if err != nil {
		return nil, nil, fmt.Errorf("get resource %d: %w", resourceID, err)
	}
	if res == nil || res.Type != model.ResourceFlashcards {
		return nil, nil, fmt.Errorf("%w: flashcard deck %d", model.ErrNotFound, resourceID)
	}
	cards, err := ParseCards(res.Content)
	if err != nil {
		return nil, nil, err
	}
	return res, cards, nil
}

// Cards returns the cards of a deck the student may study.
func (s *Scheduler) Cards(resourceID int64, student *model.User) ([]model.FlashCard, error) {
	res, cards, err := s.deck(resourceID)
	if err != nil {
		return nil, err
	}
	if err := model.CheckAccess(student, res); err != nil {
		return nil, err
	}
	return cards, nil
}

// Rate stores the student's rating for one card, replacing any earlier one,
// and schedules the next review at now + Interval(rating).
func (s *Scheduler) Rate(resourceID int64, student *model.User, cardIndex int, rating model.Rating) (*model.FlashCardRating, error) {
	if !rating.Valid() {
		return nil, fmt.Errorf("%w: unknown rating %q", model.ErrValidation, rating)
	}
	res, cards, err := s.deck(resourceID)
	if err != nil {
		return nil, err
	}
	if err := model.CheckAccess(student, res); err != nil {
		return nil, err
	}
	if cardIndex < 0 || cardIndex >= len(cards) {
		return nil, fmt.Errorf("%w: card %d out of range (deck has %d)", model.ErrValidation, cardIndex, len(cards))
	}

	now := s.now().UTC()
	next := now.Add(Interval(rating))
	r := model.FlashCardRating{
		ResourceID:   resourceID,
		StudentID:    student.ID,
		CardIndex:    cardIndex,
		Rating:       rating,
		NextReviewAt: &next,
		UpdatedAt:    now,
	}
	if err := s.store.UpsertRating(r); err != nil {
		return nil, fmt.Errorf("store rating: %w", err)
	}
	metrics.CardRatings.WithLabelValues(string(rating)).Inc()
	slog.Debug("card rated", "resource_id", resourceID, "student_id", student.ID, "card", cardIndex, "rating", rating)
	return &r, nil
}

// CardState is a student's current standing on one card.
type CardState struct {
	Rating       model.Rating `json:"rating"`
	NextReviewAt time.Time    `json:"next_review_at"`
	Due          bool         `json:"due"`
}

// legacyDue is reported for ratings stored without a next review time.
var legacyDue = time.Unix(0, 0).UTC()

// StudentView maps card index to the student's current rating. Cards never
// rated are absent.
func (s *Scheduler) StudentView(resourceID int64, student *model.User) (map[int]CardState, error) {
	res, _, err := s.deck(resourceID)
	if err != nil {
		return nil, err
	}
	if err := model.CheckAccess(student, res); err != nil {
		return nil, err
	}
	ratings, err := s.store.ListStudentRatings(resourceID, student.ID)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	now := s.now()
	view := make(map[int]CardState, len(ratings))
	for _, r := range ratings {
		next := legacyDue
		if r.NextReviewAt != nil {
			next = *r.NextReviewAt
		}
		view[r.CardIndex] = CardState{Rating: r.Rating, NextReviewAt: next, Due: !next.After(now)}
	}
	return view, nil
}

// CardTally counts ratings of one card across all students.
type CardTally struct {
	CardIndex int `json:"card_index"`
	Easy      int `json:"easy"`
	Medium    int `json:"medium"`
	Hard      int `json:"hard"`
}

func (c *CardTally) add(r model.Rating) {
	switch r {
	case model.RatingEasy:
		c.Easy++
	case model.RatingMedium:
		c.Medium++
	case model.RatingHard:
		c.Hard++
	}
}

// StudentRating is one entry of the per-student breakdown.
type StudentRating struct {
	StudentID   int64        `json:"student_id"`
	StudentName string       `json:"student_name"`
	CardIndex   int          `json:"card_index"`
	Rating      model.Rating `json:"rating"`
}

// Tally is the instructor view of a deck.
type Tally struct {
	ResourceID int64           `json:"resource_id"`
	Cards      []CardTally     `json:"cards"`
	Students   []StudentRating `json:"students"`
}

// InstructorView tallies every rating of a deck. Only the owning teacher and
// admins may read it.
func (s *Scheduler) InstructorView(resourceID int64, viewer *model.User) (*Tally, error) {
	res, cards, err := s.deck(resourceID)
	if err != nil {
		return nil, err
	}
	if !viewer.CanManage(res) {
		return nil, model.ErrNotOwner
	}
	ratings, err := s.store.ListRatings(resourceID)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}

	t := &Tally{ResourceID: resourceID, Cards: make([]CardTally, len(cards)), Students: []StudentRating{}}
	for i := range t.Cards {
		t.Cards[i].CardIndex = i
	}
	for _, r := range ratings {
		if r.CardIndex >= 0 && r.CardIndex < len(t.Cards) {
			t.Cards[r.CardIndex].add(r.Rating)
		}
		t.Students = append(t.Students, StudentRating{
			StudentID:   r.StudentID,
			StudentName: r.StudentName,
			CardIndex:   r.CardIndex,
			Rating:      r.Rating,
		})
	}
	slices.SortFunc(t.Students, func(a, b StudentRating) int {
		return cmp.Or(
			cmp.Compare(a.StudentName, b.StudentName),
			cmp.Compare(a.StudentID, b.StudentID),
			cmp.Compare(a.CardIndex, b.CardIndex),
		)
	})
	return t, nil
}
