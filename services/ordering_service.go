package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/blindcellar/tasting-system/models"
	"github.com/blindcellar/tasting-system/realtime"
	"github.com/blindcellar/tasting-system/repositories"
)

// Первая фаза переназначения порядков сдвигает все значения за пределы
// используемого диапазона, чтобы не ловить конфликты уникального индекса
// на промежуточных состояниях.
const orderReassignOffset = 1000000

// Сколько раз повторяем вставку при гонке за один и тот же порядок.
const joinRetryAttempts = 3

// OrderingService управляет порядком подачи участников: последовательное
// назначение при входе, полная перетасовка, ручная перестановка.
type OrderingService struct {
	transactor      Transactor
	eventRepo       repositories.EventRepository
	participantRepo repositories.ParticipantRepository
	hub             Notifier
	logger          *slog.Logger
}

func NewOrderingService(
	transactor Transactor,
	eventRepo repositories.EventRepository,
	participantRepo repositories.ParticipantRepository,
	hub Notifier,
	logger *slog.Logger,
) *OrderingService {
	return &OrderingService{
		transactor:      transactor,
		eventRepo:       eventRepo,
		participantRepo: participantRepo,
		hub:             hub,
		logger:          logger,
	}
}

// Join добавляет участника в активное событие по коду приглашения.
// Порядок подачи = максимальный занятый порядок + 1: после ухода участника
// его номер не переиспользуется, поэтому счётчик активных здесь не годится.
func (s *OrderingService) Join(ctx context.Context, joinCode, name string) (*models.Participant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrParticipantName
	}

	event, err := s.eventRepo.FindActiveByJoinCode(ctx, strings.TrimSpace(joinCode))
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrInvalidJoinCode
		}
		return nil, fmt.Errorf("failed to look up event by join code: %w", err)
	}

	var participant *models.Participant
	for attempt := 0; attempt < joinRetryAttempts; attempt++ {
		active, err := s.participantRepo.ListActiveByEvent(ctx, event.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list participants for event %d: %w", event.ID, err)
		}
		if len(active) >= event.MaxParticipants {
			return nil, ErrEventFull
		}

		// Список отсортирован по порядку подачи: последний элемент - максимум.
		nextOrder := 1
		if len(active) > 0 {
			nextOrder = active[len(active)-1].PresentationOrder + 1
		}

		p := &models.Participant{
			EventID:           event.ID,
			Name:              name,
			PresentationOrder: nextOrder,
		}
		err = s.participantRepo.Create(ctx, p)
		if err == nil {
			participant = p
			break
		}
		// Два одновременных входа могли взять один и тот же порядок:
		// пересчитываем и пробуем снова.
		if errors.Is(err, repositories.ErrParticipantOrderTaken) {
			continue
		}
		return nil, fmt.Errorf("failed to create participant for event %d: %w", event.ID, err)
	}
	if participant == nil {
		return nil, fmt.Errorf("failed to join event %d: %w", event.ID, repositories.ErrParticipantOrderTaken)
	}

	s.hub.BroadcastToEvent(event.ID, realtime.TopicParticipantJoined, participant)
	return participant, nil
}

// Shuffle производит равномерно случайную перестановку активных участников и
// плотно переназначает порядки 1..N одной транзакцией.
func (s *OrderingService) Shuffle(ctx context.Context, eventID int) ([]models.Participant, error) {
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return nil, mapEventRepoError(err)
	}

	participants, err := s.participantRepo.ListActiveByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants for shuffle of event %d: %w", eventID, err)
	}
	if len(participants) == 0 {
		return []models.Participant{}, nil
	}

	// Несмещённый Fisher-Yates; сортировка по случайному компаратору,
	// как делают на скорую руку, даёт перекошенное распределение.
	rand.Shuffle(len(participants), func(i, j int) {
		participants[i], participants[j] = participants[j], participants[i]
	})
	for i, p := range participants {
		p.PresentationOrder = i + 1
	}

	if err := s.reassignOrders(ctx, eventID, participants); err != nil {
		return nil, err
	}

	s.logger.Info("participants shuffled", slog.Int("event_id", eventID), slog.Int("count", len(participants)))

	result := ParticipantsToValues(participants)
	s.hub.BroadcastToEvent(eventID, realtime.TopicOrderUpdated, result)
	return result, nil
}

// Reorder назначает порядок = позиция в переданной последовательности (с 1).
// ID из чужих событий молча игнорируются: это страховочный фильтр, а не ошибка.
// Участники, не попавшие в последовательность, получают номера после
// перечисленных, сохраняя свой прежний относительный порядок.
func (s *OrderingService) Reorder(ctx context.Context, eventID int, participantIDs []int) error {
	if len(participantIDs) == 0 {
		return ErrEmptyOrderSequence
	}
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return mapEventRepoError(err)
	}

	scoped := make([]*models.Participant, 0, len(participantIDs))
	for i, id := range participantIDs {
		p, err := s.participantRepo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrParticipantNotFound) {
				continue
			}
			return fmt.Errorf("failed to find participant %d for reorder: %w", id, err)
		}
		if p.EventID != eventID || !p.Active {
			continue
		}
		p.PresentationOrder = i + 1
		scoped = append(scoped, p)
	}
	if len(scoped) == 0 {
		return nil
	}

	if err := s.reassignOrders(ctx, eventID, scoped); err != nil {
		return err
	}

	participants, err := s.participantRepo.ListActiveByEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to list participants after reorder of event %d: %w", eventID, err)
	}
	s.hub.BroadcastToEvent(eventID, realtime.TopicOrderUpdated, ParticipantsToValues(participants))
	return nil
}

// reassignOrders записывает PresentationOrder каждого участника одной
// транзакцией: сбой посередине не оставит дубликатов или дыр.
func (s *OrderingService) reassignOrders(ctx context.Context, eventID int, participants []*models.Participant) error {
	base := 0
	for _, p := range participants {
		if p.PresentationOrder > base {
			base = p.PresentationOrder
		}
	}

	err := s.transactor.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.participantRepo.OffsetOrdersByEvent(ctx, exec, eventID, orderReassignOffset); err != nil {
			return err
		}
		for _, p := range participants {
			if err := s.participantRepo.UpdateOrder(ctx, exec, p.ID, p.PresentationOrder); err != nil {
				return mapParticipantRepoError(err)
			}
		}
		// Участники вне явного списка (частичный Reorder) получают номера
		// после назначенных: возврат на исходные значения столкнулся бы с
		// уникальным индексом, когда исходный номер уже занят новым.
		return s.participantRepo.CompactOffsetOrders(ctx, exec, eventID, orderReassignOffset, base)
	})
	if err != nil {
		return fmt.Errorf("failed to reassign orders for event %d: %w", eventID, err)
	}
	return nil
}

// Leave деактивирует участника. Порядки оставшихся участников намеренно не
// уплотняются: номера вин уже прозвучали за столом, и сдвиг сделал бы
// существующие догадки бессмысленными.
func (s *OrderingService) Leave(ctx context.Context, participantID int) error {
	p, err := s.participantRepo.FindByID(ctx, participantID)
	if err != nil {
		return mapParticipantRepoError(err)
	}
	if !p.Active {
		return ErrParticipantNotFound
	}
	if err := s.participantRepo.Deactivate(ctx, participantID); err != nil {
		return mapParticipantRepoError(err)
	}

	s.hub.BroadcastToEvent(p.EventID, realtime.TopicParticipantLeft, map[string]int{"participant_id": participantID})
	return nil
}

// SetReady помечает готовность участника к следующему вину.
func (s *OrderingService) SetReady(ctx context.Context, participantID int, ready bool) error {
	p, err := s.participantRepo.FindByID(ctx, participantID)
	if err != nil {
		return mapParticipantRepoError(err)
	}
	if !p.Active {
		return ErrParticipantNotFound
	}
	if err := s.participantRepo.SetReady(ctx, participantID, ready); err != nil {
		return mapParticipantRepoError(err)
	}
	s.hub.BroadcastToEvent(p.EventID, realtime.TopicEventUpdated, map[string]interface{}{
		"participant_id": participantID,
		"ready":          ready,
	})
	return nil
}
