package models

// LeaderboardEntry - строка таблицы лидеров для одного участника-угадывающего.
type LeaderboardEntry struct {
	ParticipantID     int    `json:"participant_id"`
	Name              string `json:"name"`
	PresentationOrder int    `json:"presentation_order"`
	TotalPoints       int    `json:"total_points"`
	CorrectGuesses    int    `json:"correct_guesses"`
	TotalGuesses      int    `json:"total_guesses"`
	Accuracy          string `json:"accuracy"`
}

// CategoryGuess - одна догадка в разрезе категории, аннотированная данными
// угадывающего. Используется для обзора организатором, не для подсчёта очков.
type CategoryGuess struct {
	WineNumber   int    `json:"wine_number"`
	GuesserID    int    `json:"guesser_id"`
	GuesserName  string `json:"guesser_name"`
	GuesserOrder int    `json:"guesser_order"`
	Value        string `json:"value"`
}

// CategoryGuessView группирует все догадки одной категории.
type CategoryGuessView struct {
	CategoryID   int             `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Difficulty   int             `json:"difficulty"`
	Guesses      []CategoryGuess `json:"guesses"`
}

// TastingState - консолидированный снимок состояния игры, который рассылается
// всем подписчикам события после каждой мутации, влияющей на счёт.
type TastingState struct {
	EventID           int                 `json:"event_id"`
	CurrentWineNumber int                 `json:"current_wine_number"`
	Leaderboard       []LeaderboardEntry  `json:"leaderboard"`
	WineAverages      map[int]float64     `json:"wine_averages"`
	CategoryGuesses   []CategoryGuessView `json:"category_guesses"`
}
