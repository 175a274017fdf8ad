package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/blindcellar/tasting-system/models"
)

var ErrAnswerNotFound = errors.New("answer not found")

type AnswerRepository interface {
	// ReplaceForParticipant атомарно заменяет все ответы участника: delete-all,
	// insert-all. Должен вызываться внутри транзакции сервисного слоя.
	ReplaceForParticipant(ctx context.Context, exec SQLExecutor, participantID int, answers []*models.Answer) error
	ListByParticipant(ctx context.Context, participantID int) ([]*models.Answer, error)
	ListByEvent(ctx context.Context, eventID int) ([]*models.Answer, error)
}

type postgresAnswerRepository struct {
	db *sql.DB
}

func NewPostgresAnswerRepository(db *sql.DB) AnswerRepository {
	return &postgresAnswerRepository{db: db}
}

func (r *postgresAnswerRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresAnswerRepository) ReplaceForParticipant(ctx context.Context, exec SQLExecutor, participantID int, answers []*models.Answer) error {
	executor := r.getExecutor(exec)

	if _, err := executor.ExecContext(ctx,
		`DELETE FROM answers WHERE participant_id = $1`, participantID); err != nil {
		return fmt.Errorf("failed to delete prior answers for participant %d: %w", participantID, err)
	}

	query := `
		INSERT INTO answers (participant_id, category_id, value)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	for _, a := range answers {
		err := executor.QueryRowContext(ctx, query, a.ParticipantID, a.CategoryID, a.Value).
			Scan(&a.ID, &a.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert answer for participant %d: %w", participantID, err)
		}
	}
	return nil
}

func (r *postgresAnswerRepository) scanAnswers(rows *sql.Rows) ([]*models.Answer, error) {
	answers := make([]*models.Answer, 0)
	for rows.Next() {
		var a models.Answer
		if err := rows.Scan(&a.ID, &a.ParticipantID, &a.CategoryID, &a.Value, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan answer row: %w", err)
		}
		answers = append(answers, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating answer rows: %w", err)
	}
	return answers, nil
}

func (r *postgresAnswerRepository) ListByParticipant(ctx context.Context, participantID int) ([]*models.Answer, error) {
	query := `
		SELECT id, participant_id, category_id, value, created_at
		FROM answers
		WHERE participant_id = $1
		ORDER BY category_id ASC`

	rows, err := r.db.QueryContext(ctx, query, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers by participant: %w", err)
	}
	defer rows.Close()
	return r.scanAnswers(rows)
}

// ListByEvent возвращает ответы всех активных участников события одним запросом,
// чтобы скоринговый движок читал согласованный снимок.
func (r *postgresAnswerRepository) ListByEvent(ctx context.Context, eventID int) ([]*models.Answer, error) {
	query := `
		SELECT a.id, a.participant_id, a.category_id, a.value, a.created_at
		FROM answers a
		JOIN participants p ON a.participant_id = p.id
		WHERE p.event_id = $1 AND p.active = TRUE
		ORDER BY a.participant_id ASC, a.category_id ASC`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers by event: %w", err)
	}
	defer rows.Close()
	return r.scanAnswers(rows)
}
