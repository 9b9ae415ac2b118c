package channel

import (
	"context"
	"io"
	"net"

	"github.com/pkg/errors"

	"github.com/r0lh/poverlay/render"
)

// Client is a controller connection. Commands are fire and forget; the
// overlay never answers.
type Client struct {
	conn net.Conn
}

// Dial connects to an overlay listening on addr.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "channel: dial %s", addr)
	}
	return &Client{conn: conn}, nil
}

// DrawRect sends one draw_rect command.
func (c *Client) DrawRect(cmd render.DrawCommand) error {
	_, err := io.WriteString(c.conn, Format(cmd))
	return errors.Wrap(err, "channel: send draw_rect")
}

// Close closes the connection, which ends the overlay's session.
func (c *Client) Close() error {
	return c.conn.Close()
}
