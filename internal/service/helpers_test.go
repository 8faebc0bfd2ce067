package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cwrk-planet/chat-relay/internal/domain"
	"github.com/cwrk-planet/chat-relay/internal/registry"

	"github.com/google/uuid"
)

var errBrokenPipe = errors.New("broken pipe")

// recorder is an in-memory LineWriter.
type recorder struct {
	mu    sync.Mutex
	lines []string

	failAll  bool
	failChat bool          // fail only room broadcasts, keep server replies
	block    chan struct{} // when set, writes wait for close(block) or ctx
}

func (r *recorder) WriteLine(ctx context.Context, line string) error {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll || (r.failChat && !strings.HasPrefix(line, domain.ServerPrefix)) {
		return errBrokenPipe
	}
	r.lines = append(r.lines, line)
	return nil
}

func (r *recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

func (r *recorder) Last() string {
	lines := r.Lines()
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}

func (r *recorder) Contains(sub string) bool {
	for _, l := range r.Lines() {
		if strings.Contains(l, sub) {
			return true
		}
	}
	return false
}

type relay struct {
	reg *registry.RoomRegistry
	bc  *Broadcaster
}

func newRelay(timeout time.Duration) *relay {
	reg := registry.New(nil, nil)
	return &relay{reg: reg, bc: NewBroadcaster(reg, timeout, nil, nil)}
}

var fixedNow = time.Date(2024, 5, 1, 12, 30, 45, 0, time.Local)

func (r *relay) session(t *testing.T) (*Session, *recorder) {
	t.Helper()
	out := &recorder{}
	s := NewSession(uuid.New(), out, r.reg, r.bc, nil)
	s.now = func() time.Time { return fixedNow }
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	return s, out
}

func feed(t *testing.T, s *Session, lines ...string) {
	t.Helper()
	for _, l := range lines {
		if err := s.Handle(context.Background(), l); err != nil {
			t.Fatalf("handle %q: %v", l, err)
		}
	}
}

func wantState(t *testing.T, s *Session, want State) {
	t.Helper()
	if got := s.State(); got != want {
		t.Fatalf("state = %s, want %s", got, want)
	}
}

func wantLast(t *testing.T, r *recorder, want string) {
	t.Helper()
	if got := r.Last(); got != domain.ServerMessage(want) {
		t.Fatalf("last reply = %q, want %q", got, domain.ServerMessage(want))
	}
}

func memberCount(t *testing.T, reg *registry.RoomRegistry, room string) int {
	t.Helper()
	m, err := reg.Members(room)
	if err != nil {
		t.Fatalf("members(%s): %v", room, err)
	}
	return len(m)
}

// pipeConn is a LineConn fed from a channel. Closing in yields io.EOF.
type pipeConn struct {
	recorder
	in      chan string
	closeMu sync.Mutex
	closed  bool
}

func newPipeConn() *pipeConn {
	return &pipeConn{in: make(chan string, 16)}
}

func (p *pipeConn) ReadLine() (string, error) {
	line, ok := <-p.in
	if !ok {
		return "", io.EOF
	}
	return line, nil
}

func (p *pipeConn) Close() error {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	p.closed = true
	return nil
}

func (p *pipeConn) IsClosed() bool {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	return p.closed
}

func (p *pipeConn) RemoteAddr() string { return "pipe" }
