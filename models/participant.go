package models

import "time"

// Participant - участник дегустации. PresentationOrder также является номером вина,
// которое этот участник принёс: порядок подачи и есть номер вина.
type Participant struct {
	ID                int       `json:"id" db:"id"`
	EventID           int       `json:"event_id" db:"event_id"`
	Name              string    `json:"name" db:"name"`
	PresentationOrder int       `json:"presentation_order" db:"presentation_order"`
	Ready             bool      `json:"ready" db:"ready"`
	Active            bool      `json:"-" db:"active"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}
