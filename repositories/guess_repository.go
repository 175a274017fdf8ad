package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/blindcellar/tasting-system/models"
)

var ErrGuessNotFound = errors.New("guess not found")

type GuessRepository interface {
	// ReplaceForWine заменяет догадки участника только для одного номера вина,
	// не трогая догадки по другим винам. Вызывается внутри транзакции.
	ReplaceForWine(ctx context.Context, exec SQLExecutor, participantID, wineNumber int, guesses []*models.Guess) error
	ListByParticipant(ctx context.Context, participantID int) ([]*models.Guess, error)
	ListByEvent(ctx context.Context, eventID int) ([]*models.Guess, error)
}

type postgresGuessRepository struct {
	db *sql.DB
}

func NewPostgresGuessRepository(db *sql.DB) GuessRepository {
	return &postgresGuessRepository{db: db}
}

func (r *postgresGuessRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresGuessRepository) ReplaceForWine(ctx context.Context, exec SQLExecutor, participantID, wineNumber int, guesses []*models.Guess) error {
	executor := r.getExecutor(exec)

	if _, err := executor.ExecContext(ctx,
		`DELETE FROM guesses WHERE participant_id = $1 AND wine_number = $2`,
		participantID, wineNumber); err != nil {
		return fmt.Errorf("failed to delete prior guesses for participant %d wine %d: %w", participantID, wineNumber, err)
	}

	query := `
		INSERT INTO guesses (participant_id, category_id, wine_number, value)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	for _, g := range guesses {
		err := executor.QueryRowContext(ctx, query,
			g.ParticipantID, g.CategoryID, g.WineNumber, g.Value,
		).Scan(&g.ID, &g.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert guess for participant %d wine %d: %w", participantID, wineNumber, err)
		}
	}
	return nil
}

func (r *postgresGuessRepository) scanGuesses(rows *sql.Rows) ([]*models.Guess, error) {
	guesses := make([]*models.Guess, 0)
	for rows.Next() {
		var g models.Guess
		if err := rows.Scan(&g.ID, &g.ParticipantID, &g.CategoryID, &g.WineNumber, &g.Value, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan guess row: %w", err)
		}
		guesses = append(guesses, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating guess rows: %w", err)
	}
	return guesses, nil
}

func (r *postgresGuessRepository) ListByParticipant(ctx context.Context, participantID int) ([]*models.Guess, error) {
	query := `
		SELECT id, participant_id, category_id, wine_number, value, created_at
		FROM guesses
		WHERE participant_id = $1
		ORDER BY wine_number ASC, category_id ASC`

	rows, err := r.db.QueryContext(ctx, query, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list guesses by participant: %w", err)
	}
	defer rows.Close()
	return r.scanGuesses(rows)
}

func (r *postgresGuessRepository) ListByEvent(ctx context.Context, eventID int) ([]*models.Guess, error) {
	query := `
		SELECT g.id, g.participant_id, g.category_id, g.wine_number, g.value, g.created_at
		FROM guesses g
		JOIN participants p ON g.participant_id = p.id
		WHERE p.event_id = $1 AND p.active = TRUE
		ORDER BY g.wine_number ASC, g.participant_id ASC, g.category_id ASC`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list guesses by event: %w", err)
	}
	defer rows.Close()
	return r.scanGuesses(rows)
}
