package store

import (
	"database/sql"

	"github.com/pavelanni/studyroom/internal/model"
)

// UpsertRating stores the current rating for one card. Rating the same card
// again replaces the previous row.
func (s *Store) UpsertRating(r model.FlashCardRating) error {
	_, err := s.db.Exec(
		`INSERT INTO flashcard_ratings (resource_id, student_id, card_index, rating, next_review_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(resource_id, student_id, card_index) DO UPDATE SET
		   rating = excluded.rating,
		   next_review_at = excluded.next_review_at,
		   updated_at = excluded.updated_at`,
		r.ResourceID, r.StudentID, r.CardIndex, r.Rating, r.NextReviewAt, r.UpdatedAt,
	)
	return err
}

const ratingSelect = `SELECT r.id, r.resource_id, r.student_id, COALESCE(NULLIF(u.display_name, ''), u.username),
	r.card_index, r.rating, r.next_review_at, r.updated_at
	FROM flashcard_ratings r JOIN users u ON u.id = r.student_id`

func scanRatings(rows *sql.Rows) ([]model.FlashCardRating, error) {
	defer rows.Close()
	var out []model.FlashCardRating
	for rows.Next() {
		var r model.FlashCardRating
		var next sql.NullTime
		if err := rows.Scan(&r.ID, &r.ResourceID, &r.StudentID, &r.StudentName,
			&r.CardIndex, &r.Rating, &next, &r.UpdatedAt); err != nil {
			return nil, err
		}
		if next.Valid {
			t := next.Time
			r.NextReviewAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListStudentRatings returns one student's ratings for a deck ordered by card.
func (s *Store) ListStudentRatings(resourceID, studentID int64) ([]model.FlashCardRating, error) {
	rows, err := s.db.Query(ratingSelect+` WHERE r.resource_id = ? AND r.student_id = ? ORDER BY r.card_index`,
		resourceID, studentID)
	if err != nil {
		return nil, err
	}
	return scanRatings(rows)
}

// ListRatings returns every rating for a deck ordered by student and card.
func (s *Store) ListRatings(resourceID int64) ([]model.FlashCardRating, error) {
	rows, err := s.db.Query(ratingSelect+` WHERE r.resource_id = ? ORDER BY r.student_id, r.card_index`, resourceID)
	if err != nil {
		return nil, err
	}
	return scanRatings(rows)
}
