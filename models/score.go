package models

import "time"

// Score - субъективная числовая оценка вина (не связана с очками за угадывание).
// Не более одной актуальной оценки на пару (participant, wine_number) - upsert.
type Score struct {
	ID            int       `json:"id" db:"id"`
	EventID       int       `json:"event_id" db:"event_id"`
	ParticipantID int       `json:"participant_id" db:"participant_id"`
	WineNumber    int       `json:"wine_number" db:"wine_number"`
	Rating        float64   `json:"rating" db:"rating"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
