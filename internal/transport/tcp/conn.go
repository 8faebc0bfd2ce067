package tcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/cwrk-planet/chat-relay/internal/service"
)

// lineConn adapts a net.Conn to service.LineConn.
type lineConn struct {
	conn         net.Conn
	scanner      *bufio.Scanner
	writeTimeout time.Duration

	writeMu sync.Mutex
}

func newLineConn(c net.Conn, maxLine int, writeTimeout time.Duration) *lineConn {
	sc := bufio.NewScanner(c)
	// +1 leaves room for the terminating newline
	sc.Buffer(make([]byte, 0, min(maxLine+1, 4096)), maxLine+1)
	return &lineConn{conn: c, scanner: sc, writeTimeout: writeTimeout}
}

func (c *lineConn) ReadLine() (string, error) {
	if !c.scanner.Scan() {
		err := c.scanner.Err()
		switch {
		case err == nil:
			return "", io.EOF
		case errors.Is(err, bufio.ErrTooLong):
			return "", service.ErrLineTooLong
		default:
			return "", err
		}
	}
	line := strings.TrimSuffix(c.scanner.Text(), "\r")
	if !utf8.ValidString(line) {
		return "", service.ErrInvalidUTF8
	}
	return line, nil
}

// WriteLine writes line in one Write call under the connection's write lock.
// The deadline comes from ctx, or writeTimeout when ctx has none.
func (c *lineConn) WriteLine(ctx context.Context, line string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.writeTimeout)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	_, err := io.WriteString(c.conn, line)
	return err
}

func (c *lineConn) Close() error       { return c.conn.Close() }
func (c *lineConn) RemoteAddr() string { return c.conn.RemoteAddr().String() }
