package models

import "time"

// Answer - то, что участник сообщил о своём собственном вине в одной категории.
// Не более одного актуального ответа на пару (participant, category).
type Answer struct {
	ID            int       `json:"id" db:"id"`
	ParticipantID int       `json:"participant_id" db:"participant_id"`
	CategoryID    int       `json:"category_id" db:"category_id"`
	Value         string    `json:"value" db:"value"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
