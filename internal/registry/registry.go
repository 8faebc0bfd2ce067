// Package registry is the in-memory source of truth for room membership.
package registry

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/cwrk-planet/chat-relay/internal/domain"
	"github.com/cwrk-planet/chat-relay/internal/metrics"

	"github.com/google/uuid"
)

type room struct {
	members []*domain.Client // join order
	index   map[uuid.UUID]int
}

func (r *room) remove(id uuid.UUID) bool {
	i, ok := r.index[id]
	if !ok {
		return false
	}
	r.members = slices.Delete(r.members, i, i+1)
	delete(r.index, id)
	for j := i; j < len(r.members); j++ {
		r.index[r.members[j].ID()] = j
	}
	return true
}

// RoomRegistry maps room names to ordered member sets. Rooms are never
// dropped when they become empty.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]*room
	order []string // creation order

	log     *slog.Logger
	metrics *metrics.Metrics
}

func New(log *slog.Logger, m *metrics.Metrics) *RoomRegistry {
	if log == nil {
		log = slog.Default()
	}
	return &RoomRegistry{
		rooms:   make(map[string]*room),
		log:     log,
		metrics: m,
	}
}

func (r *RoomRegistry) Create(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[name]; ok {
		return domain.ErrRoomExists
	}
	r.rooms[name] = &room{index: make(map[uuid.UUID]int)}
	r.order = append(r.order, name)
	r.metrics.RoomCreated()
	r.log.Debug("room created", slog.String("room", name))
	return nil
}

func (r *RoomRegistry) Join(name string, c *domain.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[name]
	if !ok {
		return domain.ErrRoomNotFound
	}
	if _, ok := rm.index[c.ID()]; ok {
		return domain.ErrAlreadyMember
	}
	rm.index[c.ID()] = len(rm.members)
	rm.members = append(rm.members, c)
	return nil
}

// Leave removes c from the room. Removing an absent member is a no-op.
func (r *RoomRegistry) Leave(name string, c *domain.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[name]
	if !ok {
		return domain.ErrRoomNotFound
	}
	rm.remove(c.ID())
	return nil
}

func (r *RoomRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Members returns a copy of the room's members in join order.
func (r *RoomRegistry) Members(name string) ([]*domain.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[name]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return slices.Clone(rm.members), nil
}

func (r *RoomRegistry) IsMember(name string, c *domain.Client) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[name]
	if !ok {
		return false
	}
	_, ok = rm.index[c.ID()]
	return ok
}

func (r *RoomRegistry) Rooms() []domain.RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.RoomInfo, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, domain.RoomInfo{Name: name, Members: len(r.rooms[name].members)})
	}
	return out
}

func (r *RoomRegistry) Stats() domain.Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := domain.Stats{Rooms: len(r.rooms)}
	for _, rm := range r.rooms {
		st.Members += len(rm.members)
	}
	return st
}
