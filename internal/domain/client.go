package domain

import (
	"context"

	"github.com/google/uuid"
)

// LineWriter is the send half of a client stream. Implementations write
// line as a single atomic write and honour the ctx deadline.
type LineWriter interface {
	WriteLine(ctx context.Context, line string) error
}

// Client is a named connection identity. The registry keeps *Client
// back-references keyed by ID and only ever calls Send.
type Client struct {
	id   uuid.UUID
	name string
	out  LineWriter
}

func NewClient(id uuid.UUID, name string, out LineWriter) *Client {
	return &Client{id: id, name: name, out: out}
}

func (c *Client) ID() uuid.UUID { return c.id }
func (c *Client) Name() string  { return c.name }

func (c *Client) Send(ctx context.Context, line string) error {
	return c.out.WriteLine(ctx, line)
}
