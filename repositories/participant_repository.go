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
	ErrParticipantNotFound     = errors.New("participant not found")
	ErrParticipantEventInvalid = errors.New("participant event reference invalid")
	ErrParticipantOrderTaken   = errors.New("presentation order already taken for this event")
)

type ParticipantRepository interface {
	Create(ctx context.Context, p *models.Participant) error
	FindByID(ctx context.Context, id int) (*models.Participant, error)
	ListActiveByEvent(ctx context.Context, eventID int) ([]*models.Participant, error)
	CountActiveByEvent(ctx context.Context, eventID int) (int, error)
	UpdateOrder(ctx context.Context, exec SQLExecutor, id int, order int) error
	OffsetOrdersByEvent(ctx context.Context, exec SQLExecutor, eventID int, offset int) error
	CompactOffsetOrders(ctx context.Context, exec SQLExecutor, eventID int, offset int, base int) error
	SetReady(ctx context.Context, id int, ready bool) error
	Deactivate(ctx context.Context, id int) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresParticipantRepository) Create(ctx context.Context, p *models.Participant) error {
	query := `
		INSERT INTO participants (event_id, name, presentation_order)
		VALUES ($1, $2, $3)
		RETURNING id, ready, active, created_at`

	err := r.db.QueryRowContext(ctx, query,
		p.EventID,
		p.Name,
		p.PresentationOrder,
	).Scan(&p.ID, &p.Ready, &p.Active, &p.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // unique_violation
				if pqErr.Constraint == "participants_event_id_presentation_order_key" {
					return ErrParticipantOrderTaken
				}
			case "23503": // foreign_key_violation
				if pqErr.Constraint == "participants_event_id_fkey" {
					return ErrParticipantEventInvalid
				}
			}
		}
		return fmt.Errorf("failed to create participant: %w", err)
	}
	return nil
}

func (r *postgresParticipantRepository) scanParticipant(rowScanner interface {
	Scan(dest ...interface{}) error
}, p *models.Participant) error {
	return rowScanner.Scan(
		&p.ID,
		&p.EventID,
		&p.Name,
		&p.PresentationOrder,
		&p.Ready,
		&p.Active,
		&p.CreatedAt,
	)
}

func (r *postgresParticipantRepository) FindByID(ctx context.Context, id int) (*models.Participant, error) {
	query := `
		SELECT id, event_id, name, presentation_order, ready, active, created_at
		FROM participants WHERE id = $1`

	p := &models.Participant{}
	row := r.db.QueryRowContext(ctx, query, id)
	if err := r.scanParticipant(row, p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to find participant: %w", err)
	}
	return p, nil
}

func (r *postgresParticipantRepository) ListActiveByEvent(ctx context.Context, eventID int) ([]*models.Participant, error) {
	query := `
		SELECT id, event_id, name, presentation_order, ready, active, created_at
		FROM participants
		WHERE event_id = $1 AND active = TRUE
		ORDER BY presentation_order ASC`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants by event: %w", err)
	}
	defer rows.Close()

	participants := make([]*models.Participant, 0)
	for rows.Next() {
		var p models.Participant
		if err := r.scanParticipant(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", err)
		}
		participants = append(participants, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participant rows: %w", err)
	}
	return participants, nil
}

func (r *postgresParticipantRepository) CountActiveByEvent(ctx context.Context, eventID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM participants WHERE event_id = $1 AND active = TRUE`, eventID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants by event: %w", err)
	}
	return count, nil
}

func (r *postgresParticipantRepository) UpdateOrder(ctx context.Context, exec SQLExecutor, id int, order int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE participants SET presentation_order = $1 WHERE id = $2 AND active = TRUE`, order, id)
	if err != nil {
		return fmt.Errorf("failed to update participant order: %w", err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

// OffsetOrdersByEvent сдвигает все порядки в событии на offset. Используется как
// первая фаза переназначения порядков внутри транзакции, чтобы промежуточные
// значения не конфликтовали с уникальным индексом (event_id, presentation_order).
func (r *postgresParticipantRepository) OffsetOrdersByEvent(ctx context.Context, exec SQLExecutor, eventID int, offset int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx,
		`UPDATE participants SET presentation_order = presentation_order + $1
		 WHERE event_id = $2 AND active = TRUE`, offset, eventID)
	if err != nil {
		return fmt.Errorf("failed to offset participant orders: %w", err)
	}
	return nil
}

// CompactOffsetOrders присваивает участникам, оставшимся сдвинутыми после
// частичного переназначения (порядок выше offset), плотные номера начиная с
// base+1 в их прежнем относительном порядке.
func (r *postgresParticipantRepository) CompactOffsetOrders(ctx context.Context, exec SQLExecutor, eventID int, offset int, base int) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE participants AS p
		SET presentation_order = $1 + ranked.rn
		FROM (
			SELECT id, ROW_NUMBER() OVER (ORDER BY presentation_order) AS rn
			FROM participants
			WHERE event_id = $2 AND active = TRUE AND presentation_order > $3
		) AS ranked
		WHERE p.id = ranked.id`

	if _, err := executor.ExecContext(ctx, query, base, eventID, offset); err != nil {
		return fmt.Errorf("failed to compact offset participant orders: %w", err)
	}
	return nil
}

func (r *postgresParticipantRepository) SetReady(ctx context.Context, id int, ready bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE participants SET ready = $1 WHERE id = $2 AND active = TRUE`, ready, id)
	if err != nil {
		return fmt.Errorf("failed to update participant ready flag: %w", err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) Deactivate(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE participants SET active = FALSE WHERE id = $1 AND active = TRUE`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate participant: %w", err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}
