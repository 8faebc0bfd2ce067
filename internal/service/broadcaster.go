package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwrk-planet/chat-relay/internal/domain"
	"github.com/cwrk-planet/chat-relay/internal/metrics"
)

const defaultWriteTimeout = 5 * time.Second

type MemberStore interface {
	Members(room string) ([]*domain.Client, error)
	Leave(room string, c *domain.Client) error
}

type BroadcastResult struct {
	Delivered int
	Failed    int
}

// Broadcaster fans a chat line out to a snapshot of a room's members, one
// goroutine per member. A member whose write fails is evicted from the room.
type Broadcaster struct {
	members      MemberStore
	writeTimeout time.Duration
	log          *slog.Logger
	metrics      *metrics.Metrics
}

func NewBroadcaster(members MemberStore, writeTimeout time.Duration, log *slog.Logger, m *metrics.Metrics) *Broadcaster {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Broadcaster{
		members:      members,
		writeTimeout: writeTimeout,
		log:          log,
		metrics:      m,
	}
}

// Broadcast returns once every delivery has been attempted. Cancelling ctx
// does not abort deliveries already under way; each is bounded by the write
// timeout instead.
func (b *Broadcaster) Broadcast(ctx context.Context, room, from, text string, at time.Time) BroadcastResult {
	members, err := b.members.Members(room)
	if err != nil {
		b.log.Warn("broadcast: members lookup failed", slog.String("room", room), slog.Any("err", err))
		return BroadcastResult{}
	}

	line := domain.ChatLine(from, at, text)
	base := context.WithoutCancel(ctx)

	var (
		wg     sync.WaitGroup
		failed atomic.Int64
	)
	for _, m := range members {
		wg.Add(1)
		go func(m *domain.Client) {
			defer wg.Done()

			dctx, cancel := context.WithTimeout(base, b.writeTimeout)
			defer cancel()
			if err := m.Send(dctx, line); err != nil {
				failed.Add(1)
				b.evict(room, m, err)
			}
		}(m)
	}
	wg.Wait()

	res := BroadcastResult{Failed: int(failed.Load())}
	res.Delivered = len(members) - res.Failed
	b.metrics.Broadcast(res.Delivered, res.Failed)
	return res
}

func (b *Broadcaster) evict(room string, m *domain.Client, cause error) {
	b.log.Warn("delivery failed, removing member",
		slog.String("room", room),
		slog.String("client", m.Name()),
		slog.String("client_id", m.ID().String()),
		slog.Any("err", cause))

	if err := b.members.Leave(room, m); err != nil {
		b.log.Debug("evict: leave failed", slog.String("room", room), slog.Any("err", err))
		return
	}
	b.metrics.MemberEvicted()
}
