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
	ErrEventNotFound         = errors.New("event not found")
	ErrEventJoinCodeConflict = errors.New("event join code already in use")
)

type EventRepository interface {
	Create(ctx context.Context, exec SQLExecutor, event *models.Event) error
	GetByID(ctx context.Context, id int) (*models.Event, error)
	FindActiveByJoinCode(ctx context.Context, joinCode string) (*models.Event, error)
	List(ctx context.Context, limit, offset int) ([]models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	SetStarted(ctx context.Context, id int, started bool) error
	SetCurrentWineNumber(ctx context.Context, id int, wineNumber int) error
	SetAutoShuffle(ctx context.Context, id int, autoShuffle bool) error
	UpdateCoverKey(ctx context.Context, id int, coverKey *string) error
	SoftDelete(ctx context.Context, id int) error
}

type postgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) EventRepository {
	return &postgresEventRepository{db: db}
}

func (r *postgresEventRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const eventColumns = `
	id, name, date, max_participants, wine_type, location, description,
	budget, duration, notes, join_code, auto_shuffle, started,
	current_wine_number, active, created_at, cover_key`

func (r *postgresEventRepository) scanEvent(rowScanner interface {
	Scan(dest ...interface{}) error
}, e *models.Event) error {
	return rowScanner.Scan(
		&e.ID, &e.Name, &e.Date, &e.MaxParticipants, &e.WineType, &e.Location,
		&e.Description, &e.Budget, &e.Duration, &e.Notes, &e.JoinCode,
		&e.AutoShuffle, &e.Started, &e.CurrentWineNumber, &e.Active,
		&e.CreatedAt, &e.CoverKey,
	)
}

func (r *postgresEventRepository) Create(ctx context.Context, exec SQLExecutor, e *models.Event) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO events (
			name, date, max_participants, wine_type, location, description,
			budget, duration, notes, join_code, auto_shuffle, current_wine_number
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, started, active, created_at`

	err := executor.QueryRowContext(ctx, query,
		e.Name, e.Date, e.MaxParticipants, e.WineType, e.Location, e.Description,
		e.Budget, e.Duration, e.Notes, e.JoinCode, e.AutoShuffle, e.CurrentWineNumber,
	).Scan(&e.ID, &e.Started, &e.Active, &e.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			// 23505 unique_violation: частичный уникальный индекс на join_code
			// среди активных событий.
			if pqErr.Code == "23505" && pqErr.Constraint == "events_join_code_active_key" {
				return ErrEventJoinCodeConflict
			}
		}
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (r *postgresEventRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.Event, error) {
	e := &models.Event{}
	row := r.db.QueryRowContext(ctx, query, args...)
	if err := r.scanEvent(row, e); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to find event: %w", err)
	}
	return e, nil
}

func (r *postgresEventRepository) GetByID(ctx context.Context, id int) (*models.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events WHERE id = $1 AND active = TRUE`, eventColumns)
	return r.findOne(ctx, query, id)
}

func (r *postgresEventRepository) FindActiveByJoinCode(ctx context.Context, joinCode string) (*models.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events WHERE join_code = $1 AND active = TRUE`, eventColumns)
	return r.findOne(ctx, query, joinCode)
}

func (r *postgresEventRepository) List(ctx context.Context, limit, offset int) ([]models.Event, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM events
		WHERE active = TRUE
		ORDER BY date DESC, id DESC
		LIMIT $1 OFFSET $2`, eventColumns)

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := make([]models.Event, 0)
	for rows.Next() {
		var e models.Event
		if err := r.scanEvent(rows, &e); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}
	return events, nil
}

func (r *postgresEventRepository) Update(ctx context.Context, e *models.Event) error {
	query := `
		UPDATE events SET
			name = $1, date = $2, max_participants = $3, wine_type = $4,
			location = $5, description = $6, budget = $7, duration = $8, notes = $9
		WHERE id = $10 AND active = TRUE`

	result, err := r.db.ExecContext(ctx, query,
		e.Name, e.Date, e.MaxParticipants, e.WineType,
		e.Location, e.Description, e.Budget, e.Duration, e.Notes, e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) SetStarted(ctx context.Context, id int, started bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE events SET started = $1 WHERE id = $2 AND active = TRUE`, started, id)
	if err != nil {
		return fmt.Errorf("failed to update event started flag: %w", err)
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) SetCurrentWineNumber(ctx context.Context, id int, wineNumber int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE events SET current_wine_number = $1 WHERE id = $2 AND active = TRUE`, wineNumber, id)
	if err != nil {
		return fmt.Errorf("failed to update event current wine number: %w", err)
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) SetAutoShuffle(ctx context.Context, id int, autoShuffle bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE events SET auto_shuffle = $1 WHERE id = $2 AND active = TRUE`, autoShuffle, id)
	if err != nil {
		return fmt.Errorf("failed to update event auto shuffle flag: %w", err)
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) UpdateCoverKey(ctx context.Context, id int, coverKey *string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE events SET cover_key = $1 WHERE id = $2 AND active = TRUE`, coverKey, id)
	if err != nil {
		return fmt.Errorf("failed to update event cover key: %w", err)
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) SoftDelete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE events SET active = FALSE WHERE id = $1 AND active = TRUE`, id)
	if err != nil {
		return fmt.Errorf("failed to soft delete event: %w", err)
	}
	return checkAffectedRows(result, ErrEventNotFound)
}
