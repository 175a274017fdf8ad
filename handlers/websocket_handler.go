package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/blindcellar/tasting-system/realtime"
	"github.com/blindcellar/tasting-system/services"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// В продакшене здесь должна быть проверка Origin.
		return true
	},
}

type WebSocketHandler struct {
	hub          *realtime.Hub
	eventService *services.EventService
}

func NewWebSocketHandler(hub *realtime.Hub, es *services.EventService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:          hub,
		eventService: es,
	}
}

// ServeWs подключает клиента к комнате события: /ws/events/{eventID}.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	// Комнату заводим только для существующего активного события.
	if _, err := h.eventService.GetEvent(r.Context(), eventID); err != nil {
		if errors.Is(err, services.ErrEventNotFound) {
			notFoundResponse(w, r)
			return
		}
		serverErrorResponse(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader.Upgrade сам отправляет HTTP-ошибку клиенту.
		log.Printf("failed to upgrade connection for event %d: %v", eventID, err)
		return
	}

	client := realtime.NewClient(h.hub, conn, realtime.RoomForEvent(eventID))
	client.Register()

	go client.WritePump()
	go client.ReadPump()
}
