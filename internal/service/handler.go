package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"

	"github.com/cwrk-planet/chat-relay/internal/domain"
	"github.com/cwrk-planet/chat-relay/internal/metrics"
	"github.com/cwrk-planet/chat-relay/pkg/logger"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// LineConn is one client stream as seen by the relay: newline-framed input,
// atomic line output.
type LineConn interface {
	domain.LineWriter
	ReadLine() (string, error)
	Close() error
	RemoteAddr() string
}

// ErrLineTooLong and ErrInvalidUTF8 are returned by LineConn implementations
// when input cannot be decoded into a line.
var (
	ErrLineTooLong = errors.New("line exceeds read buffer")
	ErrInvalidUTF8 = errors.New("line is not valid UTF-8")
)

// ConnHandler drives one Session per connection.
type ConnHandler struct {
	rooms   RoomStore
	bc      Announcer
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

func NewConnHandler(rooms RoomStore, bc Announcer, m *metrics.Metrics) *ConnHandler {
	return &ConnHandler{
		rooms:   rooms,
		bc:      bc,
		metrics: m,
		tracer:  otel.Tracer("github.com/cwrk-planet/chat-relay/internal/service"),
	}
}

// Serve runs the read loop until the session closes or the stream fails.
// A failed read counts as /exit: membership is released before the
// connection is closed.
func (h *ConnHandler) Serve(ctx context.Context, conn LineConn) {
	id := uuid.New()
	ctx, span := h.tracer.Start(ctx, "relay.session",
		trace.WithAttributes(
			attribute.String("session.id", id.String()),
			attribute.String("net.peer", conn.RemoteAddr()),
		))
	defer span.End()

	log := logger.FromCtx(ctx).With(
		slog.String("session", id.String()),
		slog.String("remote", conn.RemoteAddr()),
	)

	h.metrics.ConnOpened()
	defer h.metrics.ConnClosed()
	defer func() {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Debug("conn close failed", slog.Any("err", err))
		}
	}()

	sess := NewSession(id, conn, h.rooms, h.bc, log)
	defer sess.Close()

	log.Debug("connection accepted")
	if err := sess.Start(ctx); err != nil {
		log.Debug("greeting failed", slog.Any("err", err))
		return
	}

	for sess.State() != StateClosed {
		line, err := conn.ReadLine()
		if err != nil {
			logConnLost(log, sess, err)
			return
		}
		if err := sess.Handle(ctx, line); err != nil {
			log.Warn("session aborted", slog.String("state", sess.State().String()), slog.Any("err", err))
			return
		}
	}
	log.Debug("session closed")
}

func logConnLost(log *slog.Logger, sess *Session, err error) {
	attrs := []any{slog.String("state", sess.State().String())}
	if room := sess.Room(); room != "" {
		attrs = append(attrs, slog.String("room", room))
	}
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		log.Info("connection lost", attrs...)
	default:
		log.Warn("connection lost", append(attrs, slog.Any("err", err))...)
	}
}
