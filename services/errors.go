package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed      = errors.New("validation failed")
	ErrEventNameRequired     = errors.New("event name is required")
	ErrEventDateRequired     = errors.New("event date is required")
	ErrEventInvalidCapacity  = errors.New("event max participants must be positive")
	ErrCategoriesRequired    = errors.New("at least one guessing category is required")
	ErrCategoryInvalidPoints = errors.New("category difficulty must be a positive point value")
	ErrParticipantName       = errors.New("participant name is required")
	ErrInvalidJoinCode       = errors.New("no active event matches the join code")
	ErrEventFull             = errors.New("event is at capacity")
	ErrEventAlreadyStarted   = errors.New("event has already started")
	ErrInvalidCategory       = errors.New("category does not belong to the participant's event")
	ErrInvalidWineNumber     = errors.New("wine number must be positive")
	ErrInvalidRating         = errors.New("rating must be positive")
	ErrEmptyOrderSequence    = errors.New("order sequence must not be empty")

	// Ошибки конфликтов
	ErrJoinCodeConflict = errors.New("join code collision, retry exhausted")

	// Ошибки, специфичные для сущностей
	ErrEventNotFound       = errors.New("event not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrCategoryNotFound    = errors.New("category not found")
)
