package ws

import "net/http"

func httpHandler(s *Server) http.Handler {
	return http.HandlerFunc(s.HandleWS)
}
