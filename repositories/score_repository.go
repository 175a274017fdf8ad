package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/blindcellar/tasting-system/models"
	"github.com/lib/pq"
)

var (
	ErrScoreNotFound           = errors.New("score not found")
	ErrScoreParticipantInvalid = errors.New("score participant reference invalid")
)

type ScoreRepository interface {
	// Upsert сохраняет оценку по ключу (participant, wine_number); последняя
	// запись побеждает.
	Upsert(ctx context.Context, score *models.Score) error
	ListByEvent(ctx context.Context, eventID int) ([]*models.Score, error)
}

type postgresScoreRepository struct {
	db *sql.DB
}

func NewPostgresScoreRepository(db *sql.DB) ScoreRepository {
	return &postgresScoreRepository{db: db}
}

func (r *postgresScoreRepository) Upsert(ctx context.Context, s *models.Score) error {
	query := `
		INSERT INTO scores (event_id, participant_id, wine_number, rating)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (participant_id, wine_number)
		DO UPDATE SET rating = EXCLUDED.rating
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		s.EventID, s.ParticipantID, s.WineNumber, s.Rating,
	).Scan(&s.ID, &s.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrScoreParticipantInvalid
		}
		return fmt.Errorf("failed to upsert score: %w", err)
	}
	return nil
}

func (r *postgresScoreRepository) ListByEvent(ctx context.Context, eventID int) ([]*models.Score, error) {
	query := `
		SELECT id, event_id, participant_id, wine_number, rating, created_at
		FROM scores
		WHERE event_id = $1
		ORDER BY wine_number ASC, participant_id ASC`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scores by event: %w", err)
	}
	defer rows.Close()

	scores := make([]*models.Score, 0)
	for rows.Next() {
		var s models.Score
		if err := rows.Scan(&s.ID, &s.EventID, &s.ParticipantID, &s.WineNumber, &s.Rating, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan score row: %w", err)
		}
		scores = append(scores, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating score rows: %w", err)
	}
	return scores, nil
}
