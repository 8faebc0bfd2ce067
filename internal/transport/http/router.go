package http

import (
	"log/slog"
	"net/http"
	"time"

	httpmw "github.com/cwrk-planet/chat-relay/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterDeps struct {
	Handler     *Handler
	Metrics     http.Handler     // optional
	WS          http.HandlerFunc // optional
	CORSOrigins []string
	Log         *slog.Logger // access log; slog.Default when nil
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)

	// the websocket route must not sit behind Timeout
	if d.WS != nil {
		r.Get("/ws", d.WS)
	}

	r.Group(func(pr chi.Router) {
		pr.Use(cors.Handler(cors.Options{
			AllowedOrigins: d.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			MaxAge:         300,
		}))
		pr.Use(httpmw.Logging(d.Log))
		pr.Use(middlewareChi.Timeout(10 * time.Second))

		pr.Get("/healthz", d.Handler.Health)
		pr.Route("/rooms", func(rm chi.Router) {
			rm.Get("/", d.Handler.ListRooms)
			rm.Get("/{name}/members", d.Handler.ListMembers)
		})
		if d.Metrics != nil {
			pr.Method(http.MethodGet, "/metrics", d.Metrics)
		}
	})

	return r
}
