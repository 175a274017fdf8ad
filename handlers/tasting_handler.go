package handlers

import (
	"net/http"

	"github.com/blindcellar/tasting-system/services"
)

// TastingHandler обслуживает игровой цикл: ответы, догадки, оценки и
// производные представления (таблица лидеров, обзор догадок).
type TastingHandler struct {
	collectorService *services.CollectorService
	scoringService   *services.ScoringService
}

func NewTastingHandler(cs *services.CollectorService, ss *services.ScoringService) *TastingHandler {
	return &TastingHandler{
		collectorService: cs,
		scoringService:   ss,
	}
}

// SubmitAnswers godoc
// @Summary Сообщить атрибуты собственного вина
// @Description Полностью заменяет прежний набор ответов участника.
// @Tags tasting
// @Accept json
// @Param participantID path int true "Participant ID"
// @Param body body object true "answers: список (category_id, value)"
// @Success 204 "Ответы сохранены"
// @Failure 400 {object} map[string]string "Категория чужого события"
// @Failure 404 {object} map[string]string "Участник не найден"
// @Router /participants/{participantID}/answers [put]
func (h *TastingHandler) SubmitAnswers(w http.ResponseWriter, r *http.Request) {
	participantID, err := getIDFromURL(r, "participantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Answers []services.AnswerEntry `json:"answers"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.collectorService.SubmitAnswers(r.Context(), participantID, input.Answers); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitGuesses godoc
// @Summary Отправить догадки по одному вину
// @Description Заменяет догадки участника только для указанного номера вина.
// @Tags tasting
// @Accept json
// @Param participantID path int true "Participant ID"
// @Param wineNumber path int true "Wine number (позиция подачи)"
// @Param body body object true "guesses: список (category_id, value)"
// @Success 204 "Догадки сохранены"
// @Failure 400 {object} map[string]string "Некорректный номер вина или категория"
// @Failure 404 {object} map[string]string "Участник не найден"
// @Router /participants/{participantID}/guesses/{wineNumber} [put]
func (h *TastingHandler) SubmitGuesses(w http.ResponseWriter, r *http.Request) {
	participantID, err := getIDFromURL(r, "participantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	wineNumber, err := getIDFromURL(r, "wineNumber")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Guesses []services.GuessEntry `json:"guesses"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.collectorService.SubmitGuesses(r.Context(), participantID, wineNumber, input.Guesses); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitScore godoc
// @Summary Поставить вину числовую оценку
// @Description Upsert по ключу (участник, номер вина); последняя запись побеждает.
// @Tags tasting
// @Accept json
// @Param eventID path int true "Event ID"
// @Param body body object true "participant_id, wine_number, rating"
// @Success 204 "Оценка сохранена"
// @Failure 400 {object} map[string]string "Некорректная оценка"
// @Failure 404 {object} map[string]string "Участник не найден"
// @Router /events/{eventID}/scores [put]
func (h *TastingHandler) SubmitScore(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		ParticipantID int     `json:"participant_id"`
		WineNumber    int     `json:"wine_number"`
		Rating        float64 `json:"rating"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.collectorService.SubmitScore(r.Context(), eventID, input.ParticipantID, input.WineNumber, input.Rating); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Leaderboard godoc
// @Summary Таблица лидеров и средние оценки вин
// @Tags tasting
// @Produce json
// @Param eventID path int true "Event ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Событие не найдено"
// @Router /events/{eventID}/leaderboard [get]
func (h *TastingHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	state, err := h.scoringService.ComputeState(r.Context(), eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"leaderboard":         state.Leaderboard,
		"wine_averages":       state.WineAverages,
		"current_wine_number": state.CurrentWineNumber,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CategoryGuesses godoc
// @Summary Все догадки в разрезе категорий (обзор организатора)
// @Tags tasting
// @Produce json
// @Param eventID path int true "Event ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Событие не найдено"
// @Router /events/{eventID}/guesses [get]
func (h *TastingHandler) CategoryGuesses(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	state, err := h.scoringService.ComputeState(r.Context(), eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"category_guesses": state.CategoryGuesses}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
