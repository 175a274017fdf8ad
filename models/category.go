package models

// Category - один угадываемый атрибут вина ("guessing element", например сорт винограда).
// Difficulty - количество очков за правильный ответ в этой категории.
type Category struct {
	ID         int    `json:"id" db:"id"`
	EventID    int    `json:"event_id" db:"event_id"`
	Name       string `json:"name" db:"name"`
	Difficulty int    `json:"difficulty" db:"difficulty"`
}
