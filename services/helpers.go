package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"

	"github.com/blindcellar/tasting-system/models"
	"github.com/blindcellar/tasting-system/repositories"
	"github.com/blindcellar/tasting-system/storage"
)

// Notifier - интерфейс рассылки событий подписчикам комнаты. Реализуется
// realtime.Hub; рассылка fire-and-forget, ошибки не возвращаются.
type Notifier interface {
	BroadcastToEvent(eventID int, topic string, payload interface{})
}

const (
	joinCodeMin = 100000
	joinCodeMax = 999999
)

// generateJoinCode возвращает 6-значный числовой код приглашения.
// Уникальность среди активных событий обеспечивается индексом в БД,
// вызывающий повторяет попытку при конфликте.
func generateJoinCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(joinCodeMax-joinCodeMin+1))
	if err != nil {
		return "", fmt.Errorf("failed to generate join code: %w", err)
	}
	return strconv.FormatInt(joinCodeMin+n.Int64(), 10), nil
}

// roundToOneDecimal округляет до одного знака после запятой.
func roundToOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}

// formatAccuracy форматирует точность в строку с одним знаком, "0.0" при нуле догадок.
func formatAccuracy(correct, total int) string {
	if total == 0 {
		return "0.0"
	}
	return strconv.FormatFloat(roundToOneDecimal(float64(correct)/float64(total)*100), 'f', 1, 64)
}

// mapEventRepoError переводит ошибки репозитория событий в сервисные.
func mapEventRepoError(err error) error {
	if errors.Is(err, repositories.ErrEventNotFound) {
		return ErrEventNotFound
	}
	return err
}

func mapParticipantRepoError(err error) error {
	if errors.Is(err, repositories.ErrParticipantNotFound) {
		return ErrParticipantNotFound
	}
	return err
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ParticipantsToValues разыменовывает срез указателей для включения в ответ.
func ParticipantsToValues(slice []*models.Participant) []models.Participant {
	if slice == nil {
		return []models.Participant{}
	}
	result := make([]models.Participant, len(slice))
	for i, ptr := range slice {
		if ptr != nil {
			result[i] = *ptr
		}
	}
	return result
}

func CategoriesToValues(slice []*models.Category) []models.Category {
	if slice == nil {
		return []models.Category{}
	}
	result := make([]models.Category, len(slice))
	for i, ptr := range slice {
		if ptr != nil {
			result[i] = *ptr
		}
	}
	return result
}

func populateEventCoverURL(event *models.Event, uploader storage.FileUploader) {
	if event != nil && event.CoverKey != nil && *event.CoverKey != "" && uploader != nil {
		url := uploader.GetPublicURL(*event.CoverKey)
		event.CoverURL = &url
	}
}
