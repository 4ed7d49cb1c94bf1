package http

import (
	"net/http"

	"escape-progress-service/internal/app"
	"escape-progress-service/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WSHandler streams progress updates for a team over a websocket. It is a
// one-way feed; submissions go through the REST API.
type WSHandler struct {
	service  *app.SubmissionService
	upgrader websocket.Upgrader
	log      *logrus.Entry
}

func NewWSHandler(service *app.SubmissionService, log *logrus.Entry) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS upgrades the request and pushes progress snapshots until the
// client disconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	teamID := r.URL.Query().Get("teamId")
	if teamID == "" {
		http.Error(w, "missing teamId", http.StatusBadRequest)
		return
	}

	updates, cancel, err := h.service.Watch(r.Context(), teamID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		// Reader exists only to notice the peer going away.
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case view, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage[domain.ProgressView]{Type: "progress", Payload: view}); err != nil {
				h.log.WithError(err).Debug("ws write error")
				return
			}
		case <-closed:
			return
		}
	}
}
