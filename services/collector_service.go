package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/blindcellar/tasting-system/models"
	"github.com/blindcellar/tasting-system/realtime"
	"github.com/blindcellar/tasting-system/repositories"
)

// CollectorService принимает ответы участников о собственном вине, догадки о
// чужих винах и числовые оценки. Любая мутация, влияющая на счёт, запускает
// пересчёт и рассылку консолидированного состояния.
type CollectorService struct {
	transactor      Transactor
	participantRepo repositories.ParticipantRepository
	categoryRepo    repositories.CategoryRepository
	answerRepo      repositories.AnswerRepository
	guessRepo       repositories.GuessRepository
	scoreRepo       repositories.ScoreRepository
	scoring         *ScoringService
	hub             Notifier
	logger          *slog.Logger
}

func NewCollectorService(
	transactor Transactor,
	participantRepo repositories.ParticipantRepository,
	categoryRepo repositories.CategoryRepository,
	answerRepo repositories.AnswerRepository,
	guessRepo repositories.GuessRepository,
	scoreRepo repositories.ScoreRepository,
	scoring *ScoringService,
	hub Notifier,
	logger *slog.Logger,
) *CollectorService {
	return &CollectorService{
		transactor:      transactor,
		participantRepo: participantRepo,
		categoryRepo:    categoryRepo,
		answerRepo:      answerRepo,
		guessRepo:       guessRepo,
		scoreRepo:       scoreRepo,
		scoring:         scoring,
		hub:             hub,
		logger:          logger,
	}
}

type AnswerEntry struct {
	CategoryID int    `json:"category_id"`
	Value      string `json:"value"`
}

type GuessEntry struct {
	CategoryID int    `json:"category_id"`
	Value      string `json:"value"`
}

// activeParticipant возвращает участника или ErrParticipantNotFound, если он
// отсутствует либо деактивирован.
func (s *CollectorService) activeParticipant(ctx context.Context, participantID int) (*models.Participant, error) {
	p, err := s.participantRepo.FindByID(ctx, participantID)
	if err != nil {
		return nil, mapParticipantRepoError(err)
	}
	if !p.Active {
		return nil, ErrParticipantNotFound
	}
	return p, nil
}

// validateCategories проверяет до записи, что каждый id категории принадлежит
// событию участника.
func (s *CollectorService) validateCategories(ctx context.Context, eventID int, categoryIDs []int) error {
	categories, err := s.categoryRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to fetch categories for event %d: %w", eventID, err)
	}
	known := make(map[int]bool, len(categories))
	for _, c := range categories {
		known[c.ID] = true
	}
	for _, id := range categoryIDs {
		if !known[id] {
			return ErrInvalidCategory
		}
	}
	return nil
}

// SubmitAnswers атомарно заменяет все ответы участника новым набором
// (delete-all, insert-all, не diff). Валидация выполняется до любой записи.
func (s *CollectorService) SubmitAnswers(ctx context.Context, participantID int, entries []AnswerEntry) error {
	p, err := s.activeParticipant(ctx, participantID)
	if err != nil {
		return err
	}

	categoryIDs := make([]int, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.Value) == "" {
			return fmt.Errorf("%w: answer value is required", ErrValidationFailed)
		}
		categoryIDs[i] = e.CategoryID
	}
	if err := s.validateCategories(ctx, p.EventID, categoryIDs); err != nil {
		return err
	}

	answers := make([]*models.Answer, len(entries))
	for i, e := range entries {
		answers[i] = &models.Answer{
			ParticipantID: participantID,
			CategoryID:    e.CategoryID,
			Value:         e.Value,
		}
	}

	err = s.transactor.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.answerRepo.ReplaceForParticipant(ctx, exec, participantID, answers)
	})
	if err != nil {
		return fmt.Errorf("failed to replace answers for participant %d: %w", participantID, err)
	}

	s.broadcastTastingUpdate(ctx, p.EventID)
	return nil
}

// SubmitGuesses заменяет догадки участника только для указанного номера вина.
// Принадлежность категорий событию проверяется так же, как для ответов.
func (s *CollectorService) SubmitGuesses(ctx context.Context, participantID, wineNumber int, entries []GuessEntry) error {
	if wineNumber <= 0 {
		return ErrInvalidWineNumber
	}

	p, err := s.activeParticipant(ctx, participantID)
	if err != nil {
		return err
	}

	categoryIDs := make([]int, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.Value) == "" {
			return fmt.Errorf("%w: guess value is required", ErrValidationFailed)
		}
		categoryIDs[i] = e.CategoryID
	}
	if err := s.validateCategories(ctx, p.EventID, categoryIDs); err != nil {
		return err
	}

	guesses := make([]*models.Guess, len(entries))
	for i, e := range entries {
		guesses[i] = &models.Guess{
			ParticipantID: participantID,
			CategoryID:    e.CategoryID,
			WineNumber:    wineNumber,
			Value:         e.Value,
		}
	}

	err = s.transactor.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.guessRepo.ReplaceForWine(ctx, exec, participantID, wineNumber, guesses)
	})
	if err != nil {
		return fmt.Errorf("failed to replace guesses for participant %d wine %d: %w", participantID, wineNumber, err)
	}

	s.broadcastTastingUpdate(ctx, p.EventID)
	return nil
}

// SubmitScore сохраняет оценку вина по ключу (участник, номер вина); последняя
// запись побеждает.
func (s *CollectorService) SubmitScore(ctx context.Context, eventID, participantID, wineNumber int, rating float64) error {
	if wineNumber <= 0 {
		return ErrInvalidWineNumber
	}
	if rating <= 0 {
		return ErrInvalidRating
	}

	p, err := s.activeParticipant(ctx, participantID)
	if err != nil {
		return err
	}
	if p.EventID != eventID {
		return fmt.Errorf("%w: participant %d does not belong to event %d", ErrValidationFailed, participantID, eventID)
	}

	score := &models.Score{
		EventID:       eventID,
		ParticipantID: participantID,
		WineNumber:    wineNumber,
		Rating:        rating,
	}
	if err := s.scoreRepo.Upsert(ctx, score); err != nil {
		return err
	}

	s.broadcastTastingUpdate(ctx, eventID)
	return nil
}

// broadcastTastingUpdate пересчитывает состояние игры и рассылает его всем
// подписчикам события. Рассылка fire-and-forget: сбой пересчёта логируется,
// но не откатывает вызвавшую мутацию.
func (s *CollectorService) broadcastTastingUpdate(ctx context.Context, eventID int) {
	state, err := s.scoring.ComputeState(ctx, eventID)
	if err != nil {
		s.logger.Error("failed to recompute tasting state for broadcast",
			slog.Int("event_id", eventID), slog.Any("error", err))
		return
	}
	s.hub.BroadcastToEvent(eventID, realtime.TopicTastingUpdated, state)
}
