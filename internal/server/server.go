package server

import (
	"net/http"

	"github.com/lingocast/lingocast/internal/session"
)

// Handler assembles the HTTP surface: the websocket entry point and the
// small JSON API over the event store.
func Handler(store EventStore, manager *session.Manager, warnings func() []string) http.Handler {
	mux := http.NewServeMux()

	registerWSRoute(mux, manager)
	registerAPIRoutes(mux, store, warnings)

	return mux
}
