package handlers

import (
	"log/slog"
	"net/http"

	"github.com/fishram/Rankly/live"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: ограничить список origin перед продакшен-деплоем.
		return true
	},
}

type WebSocketHandler struct {
	hub *live.Hub
}

func NewWebSocketHandler(hub *live.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// ServeRankings подключает клиента к live-ленте рейтинга.
func (h *WebSocketHandler) ServeRankings(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отправляет HTTP-ошибку клиенту.
		slog.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	live.NewClient(h.hub, conn).Register()
}
