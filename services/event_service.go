package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/blindcellar/tasting-system/models"
	"github.com/blindcellar/tasting-system/realtime"
	"github.com/blindcellar/tasting-system/repositories"
	"github.com/blindcellar/tasting-system/storage"
	"golang.org/x/sync/errgroup"
)

const joinCodeAttempts = 5

// EventService инкапсулирует жизненный цикл дегустации: создание с набором
// категорий, метаданные, старт, продвижение текущего вина, обложка.
type EventService struct {
	transactor      Transactor
	eventRepo       repositories.EventRepository
	participantRepo repositories.ParticipantRepository
	categoryRepo    repositories.CategoryRepository
	ordering        *OrderingService
	uploader        storage.FileUploader
	hub             Notifier
	logger          *slog.Logger
}

func NewEventService(
	transactor Transactor,
	eventRepo repositories.EventRepository,
	participantRepo repositories.ParticipantRepository,
	categoryRepo repositories.CategoryRepository,
	ordering *OrderingService,
	uploader storage.FileUploader,
	hub Notifier,
	logger *slog.Logger,
) *EventService {
	return &EventService{
		transactor:      transactor,
		eventRepo:       eventRepo,
		participantRepo: participantRepo,
		categoryRepo:    categoryRepo,
		ordering:        ordering,
		uploader:        uploader,
		hub:             hub,
		logger:          logger,
	}
}

type CategoryInput struct {
	Name       string `json:"name"`
	Difficulty int    `json:"difficulty"`
}

type CreateEventInput struct {
	Name            string          `json:"name"`
	Date            time.Time       `json:"date"`
	MaxParticipants int             `json:"max_participants"`
	WineType        *string         `json:"wine_type"`
	Location        *string         `json:"location"`
	Description     *string         `json:"description"`
	Budget          *string         `json:"budget"`
	Duration        *string         `json:"duration"`
	Notes           *string         `json:"notes"`
	AutoShuffle     bool            `json:"auto_shuffle"`
	Categories      []CategoryInput `json:"categories"`
}

func (in *CreateEventInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrEventNameRequired
	}
	if in.Date.IsZero() {
		return ErrEventDateRequired
	}
	if in.MaxParticipants <= 0 {
		return ErrEventInvalidCapacity
	}
	if len(in.Categories) == 0 {
		return ErrCategoriesRequired
	}
	for _, c := range in.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("%w: category name is required", ErrValidationFailed)
		}
		if c.Difficulty <= 0 {
			return ErrCategoryInvalidPoints
		}
	}
	return nil
}

// CreateEvent создаёт событие вместе с набором категорий одной транзакцией.
// Код приглашения генерируется заново при коллизии, уникальность обеспечивает
// индекс по активным событиям.
func (s *EventService) CreateEvent(ctx context.Context, input CreateEventInput) (*models.Event, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < joinCodeAttempts; attempt++ {
		joinCode, err := generateJoinCode()
		if err != nil {
			return nil, err
		}

		event := &models.Event{
			Name:              strings.TrimSpace(input.Name),
			Date:              input.Date,
			MaxParticipants:   input.MaxParticipants,
			WineType:          input.WineType,
			Location:          input.Location,
			Description:       input.Description,
			Budget:            input.Budget,
			Duration:          input.Duration,
			Notes:             input.Notes,
			JoinCode:          joinCode,
			AutoShuffle:       input.AutoShuffle,
			CurrentWineNumber: 1,
		}

		created, err := s.createEventTx(ctx, event, input.Categories)
		if err != nil {
			if errors.Is(err, repositories.ErrEventJoinCodeConflict) {
				s.logger.Warn("join code collision, regenerating", slog.String("join_code", joinCode))
				continue
			}
			return nil, err
		}
		return created, nil
	}
	return nil, ErrJoinCodeConflict
}

func (s *EventService) createEventTx(ctx context.Context, event *models.Event, categoryInputs []CategoryInput) (*models.Event, error) {
	categories := make([]*models.Category, len(categoryInputs))
	err := s.transactor.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.eventRepo.Create(ctx, exec, event); err != nil {
			return err
		}
		for i, in := range categoryInputs {
			categories[i] = &models.Category{
				EventID:    event.ID,
				Name:       strings.TrimSpace(in.Name),
				Difficulty: in.Difficulty,
			}
		}
		return s.categoryRepo.CreateBatch(ctx, exec, categories)
	})
	if err != nil {
		return nil, err
	}

	event.Categories = CategoriesToValues(categories)
	s.logger.Info("event created",
		slog.Int("event_id", event.ID),
		slog.Int("categories", len(categories)),
	)
	return event, nil
}

// GetEvent возвращает событие с участниками и категориями.
func (s *EventService) GetEvent(ctx context.Context, id int) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapEventRepoError(err)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		participants, err := s.participantRepo.ListActiveByEvent(gCtx, id)
		if err != nil {
			return fmt.Errorf("failed to fetch participants for event %d: %w", id, err)
		}
		event.Participants = ParticipantsToValues(participants)
		return nil
	})
	g.Go(func() error {
		categories, err := s.categoryRepo.ListByEvent(gCtx, id)
		if err != nil {
			return fmt.Errorf("failed to fetch categories for event %d: %w", id, err)
		}
		event.Categories = CategoriesToValues(categories)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	populateEventCoverURL(event, s.uploader)
	return event, nil
}

func (s *EventService) ListEvents(ctx context.Context, limit, offset int) ([]models.Event, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	events, err := s.eventRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	for i := range events {
		populateEventCoverURL(&events[i], s.uploader)
	}
	return events, nil
}

type UpdateEventInput struct {
	Name            *string    `json:"name"`
	Date            *time.Time `json:"date"`
	MaxParticipants *int       `json:"max_participants"`
	WineType        *string    `json:"wine_type"`
	Location        *string    `json:"location"`
	Description     *string    `json:"description"`
	Budget          *string    `json:"budget"`
	Duration        *string    `json:"duration"`
	Notes           *string    `json:"notes"`
	AutoShuffle     *bool      `json:"auto_shuffle"`
}

// UpdateEvent частично обновляет метаданные события. Включение auto_shuffle
// немедленно запускает одну перетасовку.
func (s *EventService) UpdateEvent(ctx context.Context, id int, input UpdateEventInput) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapEventRepoError(err)
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, ErrEventNameRequired
		}
		event.Name = strings.TrimSpace(*input.Name)
	}
	if input.Date != nil {
		if input.Date.IsZero() {
			return nil, ErrEventDateRequired
		}
		event.Date = *input.Date
	}
	if input.MaxParticipants != nil {
		if *input.MaxParticipants <= 0 {
			return nil, ErrEventInvalidCapacity
		}
		event.MaxParticipants = *input.MaxParticipants
	}
	if input.WineType != nil {
		event.WineType = input.WineType
	}
	if input.Location != nil {
		event.Location = input.Location
	}
	if input.Description != nil {
		event.Description = input.Description
	}
	if input.Budget != nil {
		event.Budget = input.Budget
	}
	if input.Duration != nil {
		event.Duration = input.Duration
	}
	if input.Notes != nil {
		event.Notes = input.Notes
	}

	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, mapEventRepoError(err)
	}

	if input.AutoShuffle != nil && *input.AutoShuffle != event.AutoShuffle {
		if err := s.eventRepo.SetAutoShuffle(ctx, id, *input.AutoShuffle); err != nil {
			return nil, mapEventRepoError(err)
		}
		event.AutoShuffle = *input.AutoShuffle
		if *input.AutoShuffle {
			if _, err := s.ordering.Shuffle(ctx, id); err != nil {
				return nil, fmt.Errorf("auto shuffle after enabling flag failed for event %d: %w", id, err)
			}
		}
	}

	s.hub.BroadcastToEvent(id, realtime.TopicEventUpdated, event)
	return event, nil
}

// StartEvent запускает дегустацию и устанавливает указатель на первое вино.
func (s *EventService) StartEvent(ctx context.Context, id int) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapEventRepoError(err)
	}
	if event.Started {
		return nil, ErrEventAlreadyStarted
	}

	if err := s.eventRepo.SetStarted(ctx, id, true); err != nil {
		return nil, mapEventRepoError(err)
	}
	if err := s.eventRepo.SetCurrentWineNumber(ctx, id, 1); err != nil {
		return nil, mapEventRepoError(err)
	}
	event.Started = true
	event.CurrentWineNumber = 1

	s.logger.Info("event started", slog.Int("event_id", id))
	s.hub.BroadcastToEvent(id, realtime.TopicEventStarted, event)
	return event, nil
}

// AdvanceWine сдвигает указатель текущего вина на следующую позицию подачи.
func (s *EventService) AdvanceWine(ctx context.Context, id int) (int, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return 0, mapEventRepoError(err)
	}

	count, err := s.participantRepo.CountActiveByEvent(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants for event %d: %w", id, err)
	}

	next := event.CurrentWineNumber + 1
	if next > count {
		return 0, ErrInvalidWineNumber
	}
	if err := s.eventRepo.SetCurrentWineNumber(ctx, id, next); err != nil {
		return 0, mapEventRepoError(err)
	}

	s.hub.BroadcastToEvent(id, realtime.TopicWineAdvanced, map[string]int{"current_wine_number": next})
	return next, nil
}

// DeleteEvent мягко удаляет событие; дочерние сущности остаются до каскадной
// очистки на уровне БД.
func (s *EventService) DeleteEvent(ctx context.Context, id int) error {
	if err := s.eventRepo.SoftDelete(ctx, id); err != nil {
		return mapEventRepoError(err)
	}
	s.logger.Info("event deleted", slog.Int("event_id", id))
	return nil
}

// UploadCover загружает обложку события и заменяет предыдущую.
func (s *EventService) UploadCover(ctx context.Context, id int, contentType string, reader io.Reader) (string, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return "", mapEventRepoError(err)
	}

	key := fmt.Sprintf("events/%d/cover_%d", id, time.Now().UnixNano())
	result, err := s.uploader.Upload(ctx, key, contentType, reader)
	if err != nil {
		return "", fmt.Errorf("failed to upload cover for event %d: %w", id, err)
	}

	if err := s.eventRepo.UpdateCoverKey(ctx, id, &result.Key); err != nil {
		return "", mapEventRepoError(err)
	}

	// Старую обложку убираем по принципу best effort.
	if event.CoverKey != nil && *event.CoverKey != "" {
		if err := s.uploader.Delete(ctx, *event.CoverKey); err != nil {
			s.logger.Warn("failed to delete previous event cover",
				slog.Int("event_id", id), slog.Any("error", err))
		}
	}

	return result.Location, nil
}
