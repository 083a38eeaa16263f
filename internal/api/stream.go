package api

import (
	"errors"
	"log/slog"
	"net/http"

	"querybridge/internal/result"
	"querybridge/internal/security"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS middleware owns origin policy for HTTP; ws clients pass a token instead
	},
}

// streamMessage is one websocket frame of a staged-result stream.
type streamMessage struct {
	Page *result.PageResponse `json:"page,omitempty"`
	Done bool                 `json:"done,omitempty"`
	Err  string               `json:"error,omitempty"`
}

// HandleStream pushes every page of a staged result over a websocket,
// in order, then closes. Clients that want one page at a time use the
// paging endpoint instead.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	if h.Secret != "" {
		if _, err := security.VerifyToken(h.Secret, r.URL.Query().Get("token")); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Missing id", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for pageIdx := 0; ; pageIdx++ {
		page, err := h.Svc.GetQueryPage(r.Context(), id, pageIdx)
		if err != nil {
			msg := "stream failed"
			if errors.Is(err, result.ErrResultNotFound) {
				msg = "staged result not found or expired"
			}
			_ = conn.WriteJSON(streamMessage{Err: msg})
			return
		}

		if err := conn.WriteJSON(streamMessage{Page: page}); err != nil {
			slog.Info("Stream client gone", "result_id", id, "error", err)
			return
		}

		if !page.Metadata.HasNextPage {
			break
		}
	}

	_ = conn.WriteJSON(streamMessage{Done: true})
	slog.Info("Stream complete", "result_id", id)
}

// HandleDashboard attaches a dashboard websocket to the export hub.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if h.Secret != "" {
		if _, err := security.VerifyToken(h.Secret, r.URL.Query().Get("token")); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Dashboard upgrade failed", "error", err)
		return
	}

	h.Hub.Register(conn)

	for {
		if _, _, err := conn.NextReader(); err != nil {
			h.Hub.Unregister(conn)
			break
		}
	}
}
