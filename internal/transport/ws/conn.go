package ws

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cwrk-planet/chat-relay/internal/service"

	"github.com/gorilla/websocket"
)

type Options struct {
	MaxLineBytes int
	WriteTimeout time.Duration
	PingEvery    time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxLineBytes <= 0 {
		o.MaxLineBytes = 1024
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.PingEvery <= 0 {
		o.PingEvery = 15 * time.Second
	}
	return o
}

type wsConn struct {
	conn   *websocket.Conn
	remote string
	opts   Options
	sendMu chan struct{}
	closed chan struct{}

	pending []string // lines left over from a multi-line frame
}

func newWsConn(c *websocket.Conn, remote string, opts Options) *wsConn {
	c.SetReadLimit(int64(opts.MaxLineBytes))
	_ = c.SetReadDeadline(time.Now().Add(2 * opts.PingEvery))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(2 * opts.PingEvery))
	})

	return &wsConn{
		conn:   c,
		remote: remote,
		opts:   opts,
		sendMu: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// ReadLine returns the next input line. A text frame carrying several
// newline-separated lines is queued and handed out one line per call, so a
// line never contains a newline. Binary frames are skipped.
func (c *wsConn) ReadLine() (string, error) {
	for len(c.pending) == 0 {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				return "", service.ErrLineTooLong
			}
			return "", err
		}
		if typ != websocket.TextMessage {
			continue
		}
		if !utf8.Valid(data) {
			return "", service.ErrInvalidUTF8
		}
		c.pending = splitLines(string(data))
	}

	line := c.pending[0]
	c.pending = c.pending[1:]
	return line, nil
}

// splitLines splits a frame on "\n", dropping one trailing terminator and
// a "\r" before each "\n".
func splitLines(frame string) []string {
	frame = strings.TrimSuffix(frame, "\n")
	lines := strings.Split(frame, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// WriteLine sends line, minus its trailing newline, as one text frame.
func (c *wsConn) WriteLine(ctx context.Context, line string) error {
	select {
	case c.sendMu <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-c.sendMu }()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.opts.WriteTimeout)
	}
	_ = c.conn.SetWriteDeadline(deadline)

	return c.conn.WriteMessage(websocket.TextMessage, []byte(strings.TrimSuffix(line, "\n")))
}

func (c *wsConn) pingLoop() {
	ticker := time.NewTicker(c.opts.PingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.WriteTimeout))
		case <-c.closed:
			return
		}
	}
}

func (c *wsConn) Close() error {
	select {
	case <-c.closed:
		return nil
	default:
		close(c.closed)
	}

	return c.conn.Close()
}

func (c *wsConn) RemoteAddr() string { return c.remote }
