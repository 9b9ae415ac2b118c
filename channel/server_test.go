package channel

import (
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/r0lh/poverlay/render"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// chunkReader returns the given chunks one per Read call.
type chunkReader struct {
	chunks []string
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if r.chunks[0] == "" {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func serveChunks(t *testing.T, chunks ...string) []render.DrawCommand {
	t.Helper()
	state := render.NewState()
	err := ServeReader(context.Background(), &chunkReader{chunks: chunks}, state, quietLogger())
	if !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("ServeReader error = %v, want ErrConnectionClosed", err)
	}
	return state.Snapshot()
}

func TestServeReaderReadBoundaries(t *testing.T) {
	first := "draw_rect 10 20 30 40 1.0 0.0 0.0 0.5\n"
	second := "draw_rect 1 2 3 4 0.1 0.2 0.3 0.4\n"

	want := serveChunks(t, first, second)
	if len(want) != 2 {
		t.Fatalf("separate reads produced %d commands, want 2", len(want))
	}

	cases := map[string][]string{
		"single read":   {first + second},
		"split line":    {first[:13], first[13:] + second[:5], second[5:]},
		"newline alone": {strings.TrimSuffix(first, "\n"), "\n", second},
	}
	for name, chunks := range cases {
		t.Run(name, func(t *testing.T) {
			got := serveChunks(t, chunks...)
			if len(got) != len(want) {
				t.Fatalf("got %d commands, want %d", len(got), len(want))
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("command %d = %+v, want %+v", i, got[i], want[i])
				}
			}
		})
	}
}

func TestServeReaderOneByte(t *testing.T) {
	state := render.NewState()
	r := iotest.OneByteReader(strings.NewReader("draw_rect 1 2 3 4 1 1 1 1\ndraw_rect 5 6 7 8 0 0 0 0\n"))
	if err := ServeReader(context.Background(), r, state, quietLogger()); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("ServeReader error = %v", err)
	}
	if state.Len() != 2 {
		t.Fatalf("Len = %d, want 2", state.Len())
	}
}

func TestServeReaderDropsMalformed(t *testing.T) {
	got := serveChunks(t,
		"draw_rect 1 2 3\n",
		"foo 1 2 3 4 1 1 1 1\n",
		"\n",
		"draw_rect 10 20 30 40 1.0 0.0 0.0 0.5\n",
	)
	want := render.DrawCommand{X: 10, Y: 20, W: 30, H: 40, R: 1, A: 0.5}
	if len(got) != 1 || got[0] != want {
		t.Fatalf("got %+v, want [%+v]", got, want)
	}
}

func TestServeReaderDropsUnterminatedTail(t *testing.T) {
	got := serveChunks(t,
		"draw_rect 1 2 3 4 1 1 1 1\n",
		"draw_rect 9 9 9 9 0 0 0 1",
	)
	want := render.DrawCommand{X: 1, Y: 2, W: 3, H: 4, R: 1, G: 1, B: 1, A: 1}
	if len(got) != 1 || got[0] != want {
		t.Fatalf("got %+v, want [%+v]", got, want)
	}

	if got := serveChunks(t, "draw_rect 1 2 3 4 1 1 1 1"); len(got) != 0 {
		t.Fatalf("got %+v from a stream without newline, want none", got)
	}
}

func TestServeReaderCRLF(t *testing.T) {
	got := serveChunks(t, "draw_rect 1 2 3 4 1 1 1 1\r\n")
	if len(got) != 1 {
		t.Fatalf("got %d commands, want 1", len(got))
	}
}

func TestServeReaderLineTooLong(t *testing.T) {
	state := render.NewState()
	long := "draw_rect " + strings.Repeat("1", MaxLineLength) + "\n"
	err := ServeReader(context.Background(), strings.NewReader(long), state, quietLogger())
	if err == nil || errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("ServeReader error = %v, want read error", err)
	}
	if state.Len() != 0 {
		t.Fatalf("Len = %d, want 0", state.Len())
	}
}

func TestListenRejectsNonLoopback(t *testing.T) {
	_, err := Listen("0.0.0.0:0", render.NewState())
	if !errors.Is(err, ErrNotLoopback) {
		t.Fatalf("Listen error = %v, want ErrNotLoopback", err)
	}
}

func waitLen(t *testing.T, state *render.State, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for state.Len() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d commands, have %d", n, state.Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServeSingleSession(t *testing.T) {
	state := render.NewState()
	srv, err := Listen("127.0.0.1:0", state, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, srv.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	want := render.DrawCommand{X: 10, Y: 20, W: 30, H: 40, R: 1, A: 0.5}
	if err := c.DrawRect(want); err != nil {
		t.Fatalf("DrawRect: %v", err)
	}
	waitLen(t, state, 1)
	c.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrConnectionClosed) {
			t.Fatalf("Serve error = %v, want ErrConnectionClosed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after disconnect")
	}

	if got := state.Snapshot()[0]; got != want {
		t.Fatalf("stored %+v, want %+v", got, want)
	}

	// The listener is gone; a second controller cannot connect.
	if conn, err := net.DialTimeout("tcp", srv.Addr().String(), time.Second); err == nil {
		conn.Close()
		t.Fatal("second connection accepted in single session mode")
	}
}

func TestServeReconnect(t *testing.T) {
	state := render.NewState()
	srv, err := Listen("127.0.0.1:0", state, WithLogger(quietLogger()), WithReconnect(true))
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	for i := 1; i <= 2; i++ {
		c, err := Dial(context.Background(), srv.Addr().String())
		if err != nil {
			t.Fatalf("Dial %d: %v", i, err)
		}
		if err := c.DrawRect(render.DrawCommand{X: int32(i)}); err != nil {
			t.Fatalf("DrawRect %d: %v", i, err)
		}
		waitLen(t, state, i)
		c.Close()
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Serve error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServeCancelWhileConnected(t *testing.T) {
	state := render.NewState()
	srv, err := Listen("127.0.0.1:0", state, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	c, err := Dial(context.Background(), srv.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()
	if err := c.DrawRect(render.DrawCommand{}); err != nil {
		t.Fatalf("DrawRect: %v", err)
	}
	waitLen(t, state, 1)

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Serve error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve blocked in receive after cancel")
	}
}
