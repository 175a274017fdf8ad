package models

import "time"

// Event - одна слепая дегустация. Участники входят по join_code, вина подаются
// по позициям подачи участников, текущее вино продвигает организатор.
type Event struct {
	ID                int       `json:"id" db:"id"`
	Name              string    `json:"name" db:"name"`
	Date              time.Time `json:"date" db:"date"`
	MaxParticipants   int       `json:"max_participants" db:"max_participants"`
	WineType          *string   `json:"wine_type,omitempty" db:"wine_type"`
	Location          *string   `json:"location,omitempty" db:"location"`
	Description       *string   `json:"description,omitempty" db:"description"`
	Budget            *string   `json:"budget,omitempty" db:"budget"`
	Duration          *string   `json:"duration,omitempty" db:"duration"`
	Notes             *string   `json:"notes,omitempty" db:"notes"`
	JoinCode          string    `json:"join_code" db:"join_code"`
	AutoShuffle       bool      `json:"auto_shuffle" db:"auto_shuffle"`
	Started           bool      `json:"started" db:"started"`
	CurrentWineNumber int       `json:"current_wine_number" db:"current_wine_number"`
	Active            bool      `json:"-" db:"active"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	CoverKey          *string   `json:"-" db:"cover_key"`
	CoverURL          *string   `json:"cover_url,omitempty" db:"-"`

	// Заполняются сервисным слоем при детальном чтении, в базе не хранятся.
	Participants []Participant `json:"participants,omitempty" db:"-"`
	Categories   []Category    `json:"categories,omitempty" db:"-"`
}
