package handlers

import (
	"net/http"

	"github.com/blindcellar/tasting-system/services"
)

type ParticipantHandler struct {
	orderingService *services.OrderingService
}

func NewParticipantHandler(os *services.OrderingService) *ParticipantHandler {
	return &ParticipantHandler{orderingService: os}
}

// Join godoc
// @Summary Войти в событие по коду приглашения
// @Tags participants
// @Accept json
// @Produce json
// @Param body body object true "join_code и name"
// @Success 201 {object} map[string]interface{} "Участник создан"
// @Failure 400 {object} map[string]string "Ошибка валидации"
// @Failure 404 {object} map[string]string "Код не найден"
// @Failure 409 {object} map[string]string "Событие заполнено"
// @Router /join [post]
func (h *ParticipantHandler) Join(w http.ResponseWriter, r *http.Request) {
	var input struct {
		JoinCode string `json:"join_code"`
		Name     string `json:"name"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participant, err := h.orderingService.Join(r.Context(), input.JoinCode, input.Name)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"participant": participant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Leave godoc
// @Summary Покинуть событие (деактивация)
// @Tags participants
// @Param participantID path int true "Participant ID"
// @Success 204 "Участник деактивирован"
// @Failure 404 {object} map[string]string "Участник не найден"
// @Router /participants/{participantID}/leave [post]
func (h *ParticipantHandler) Leave(w http.ResponseWriter, r *http.Request) {
	participantID, err := getIDFromURL(r, "participantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.orderingService.Leave(r.Context(), participantID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetReady godoc
// @Summary Отметить готовность участника
// @Tags participants
// @Accept json
// @Param participantID path int true "Participant ID"
// @Param body body object true "ready"
// @Success 204 "Готовность обновлена"
// @Failure 404 {object} map[string]string "Участник не найден"
// @Router /participants/{participantID}/ready [post]
func (h *ParticipantHandler) SetReady(w http.ResponseWriter, r *http.Request) {
	participantID, err := getIDFromURL(r, "participantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Ready bool `json:"ready"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.orderingService.SetReady(r.Context(), participantID, input.Ready); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Shuffle godoc
// @Summary Перетасовать порядок подачи
// @Tags participants
// @Produce json
// @Param eventID path int true "Event ID"
// @Success 200 {object} map[string]interface{} "Новый порядок"
// @Failure 404 {object} map[string]string "Событие не найдено"
// @Router /events/{eventID}/shuffle [post]
func (h *ParticipantHandler) Shuffle(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participants, err := h.orderingService.Shuffle(r.Context(), eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"participants": participants}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Reorder godoc
// @Summary Задать порядок подачи явно
// @Description Порядок равен позиции ID в переданной последовательности.
// @Tags participants
// @Accept json
// @Param eventID path int true "Event ID"
// @Param body body object true "participant_ids"
// @Success 204 "Порядок обновлён"
// @Failure 400 {object} map[string]string "Пустая последовательность"
// @Failure 404 {object} map[string]string "Событие не найдено"
// @Router /events/{eventID}/order [put]
func (h *ParticipantHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		ParticipantIDs []int `json:"participant_ids"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.orderingService.Reorder(r.Context(), eventID, input.ParticipantIDs); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
