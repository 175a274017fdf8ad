package models

import "time"

// Guess - догадка участника об атрибуте чужого вина.
//
// WineNumber ссылается на presentation_order целевого участника, а не на его ID.
// Это намеренно: догадки привязаны к позиции подачи, поэтому остаются осмысленными,
// даже если личность владельца вина на этой позиции меняется по ходу вечера.
type Guess struct {
	ID            int       `json:"id" db:"id"`
	ParticipantID int       `json:"participant_id" db:"participant_id"`
	CategoryID    int       `json:"category_id" db:"category_id"`
	WineNumber    int       `json:"wine_number" db:"wine_number"`
	Value         string    `json:"value" db:"value"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
