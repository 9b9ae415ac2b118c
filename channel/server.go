// Package channel implements the plain text command channel that feeds the
// overlay's render state.
package channel

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/r0lh/poverlay/render"
)

// DefaultAddr is the loopback endpoint the controller connects to.
const DefaultAddr = "127.0.0.1:54321"

// MaxLineLength bounds a single protocol line. Longer input tears the session
// down.
const MaxLineLength = 4096

var (
	// ErrConnectionClosed is returned when the controller goes away.
	ErrConnectionClosed = errors.New("channel: connection closed")
	// ErrNotLoopback is returned by Listen for non loopback addresses.
	ErrNotLoopback = errors.New("channel: listen address is not loopback")
)

// Server accepts controller connections and applies their commands to a
// render.State.
type Server struct {
	ln        net.Listener
	state     *render.State
	log       logrus.FieldLogger
	reconnect bool

	closeOnce sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) { s.log = l }
}

// WithReconnect makes the server accept a new controller after the previous
// one disconnects. Controllers are still served one at a time.
func WithReconnect(on bool) Option {
	return func(s *Server) { s.reconnect = on }
}

// Listen binds addr, which must resolve to a loopback address.
func Listen(addr string, state *render.State, opts ...Option) (*Server, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, errors.Wrapf(err, "channel: bad address %q", addr)
	}
	if !isLoopback(host) {
		return nil, errors.Wrap(ErrNotLoopback, addr)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "channel: listen %s", addr)
	}
	return NewServer(ln, state, opts...), nil
}

// NewServer wraps an existing listener.
func NewServer(ln net.Listener, state *render.State, opts ...Option) *Server {
	s := &Server{
		ln:    ln,
		state: state,
		log:   logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.WithField("addr", ln.Addr().String())
	return s
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Close stops accepting connections.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.ln.Close() })
	return err
}

// Serve accepts a controller and processes its commands until it disconnects.
// In reconnect mode it then waits for the next controller. Serve returns
// ErrConnectionClosed when a single session ends and ctx.Err() on cancellation.
func (s *Server) Serve(ctx context.Context) error {
	defer s.Close()

	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "channel: accept")
		}

		log := s.log.WithField("peer", conn.RemoteAddr().String())
		log.Info("controller connected")
		err = s.serveConn(ctx, conn)
		log.WithError(err).Info("controller disconnected")

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !s.reconnect {
			return err
		}
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) error {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	return ServeReader(ctx, conn, s.state, s.log)
}

// scanTerminatedLines is bufio.ScanLines without the final unterminated line:
// data left over at EOF is discarded.
func scanTerminatedLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, bytes.TrimSuffix(data[:i], []byte{'\r'}), nil
	}
	if atEOF && len(data) > 0 {
		return len(data), nil, nil
	}
	return 0, nil, nil
}

// ServeReader splits r into lines and appends every valid command to state.
// A trailing line without a newline is held until more data arrives, so the
// result does not depend on how the stream is chunked. A line cut off by the
// end of the stream is dropped.
func ServeReader(ctx context.Context, r io.Reader, state *render.State, log logrus.FieldLogger) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 512), MaxLineLength)
	sc.Split(scanTerminatedLines)

	for sc.Scan() {
		line := sc.Text()
		cmd, ok := Parse(line)
		if !ok {
			log.WithField("line", line).Debug("dropping malformed command")
			continue
		}
		state.Append(cmd)
	}

	if err := sc.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrap(err, "channel: read")
	}
	return ErrConnectionClosed
}
