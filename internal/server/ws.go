package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/lingocast/lingocast/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func registerWSRoute(mux *http.ServeMux, manager *session.Manager) {
	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error().Err(err).Str("module", "server").Msg("ws upgrade")
			return
		}

		conn := NewConn(ws)
		go conn.WritePump()

		client := manager.NewClient(conn)
		client.Establish()

		defer func() {
			client.Close()
			_ = conn.Close()
		}()

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "server").Msg("ws read loop closing")
				return
			}
			client.HandleMessage(r.Context(), data)
		}
	})
}
