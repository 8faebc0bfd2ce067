// Package ws exposes the relay protocol over WebSocket: one text frame per
// input line, one text frame per output line.
package ws

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cwrk-planet/chat-relay/internal/service"

	"github.com/gorilla/websocket"
)

type ConnHandler interface {
	Serve(ctx context.Context, conn service.LineConn)
}

type Server struct {
	upgrader websocket.Upgrader
	handler  ConnHandler
	opts     Options
	log      *slog.Logger
}

func NewServer(h ConnHandler, opts Options, log *slog.Logger) *Server {
	opts = opts.withDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		handler: h,
		opts:    opts,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// HandleWS upgrades GET /ws and runs the session until either side closes.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		s.log.Warn("ws upgrade failed", slog.Any("err", err))
		return
	}

	c := newWsConn(conn, r.RemoteAddr, s.opts)
	go c.pingLoop()

	s.handler.Serve(r.Context(), c)
}
