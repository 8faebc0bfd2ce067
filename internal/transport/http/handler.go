package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cwrk-planet/chat-relay/internal/domain"

	"github.com/go-chi/chi/v5"
)

type RoomReader interface {
	Rooms() []domain.RoomInfo
	Members(name string) ([]*domain.Client, error)
	Stats() domain.Stats
}

type Handler struct {
	rooms RoomReader
}

func NewHandler(rooms RoomReader) *Handler {
	return &Handler{rooms: rooms}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	st := h.rooms.Stats()
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Rooms: st.Rooms, Members: st.Members})
}

// GET /rooms
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms := h.rooms.Rooms()
	resp := RoomsListResponse{Items: make([]RoomItem, 0, len(rooms))}
	for _, rm := range rooms {
		resp.Items = append(resp.Items, RoomItem{Name: rm.Name, Members: rm.Members})
	}

	writeJSON(w, http.StatusOK, resp)
}

// GET /rooms/{name}/members
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	members, err := h.rooms.Members(name)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		slog.Error("handler.ListMembers:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp := MembersResponse{Room: name, Items: make([]MemberItem, 0, len(members))}
	for _, m := range members {
		resp.Items = append(resp.Items, MemberItem{ID: m.ID().String(), Name: m.Name()})
	}

	writeJSON(w, http.StatusOK, resp)
}
