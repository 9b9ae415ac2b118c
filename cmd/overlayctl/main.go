// Command overlayctl sends draw commands to an injected overlay.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/r0lh/poverlay/channel"
	"github.com/r0lh/poverlay/logging"
	"github.com/r0lh/poverlay/render"
)

const rectArgs = 8

type options struct {
	addr    string
	timeout time.Duration
	verbose bool
	stdin   bool
}

// parseRects reads rectangles from args, eight values each, then from in
// when it is not nil. Lines from in may carry the draw_rect keyword; blank
// lines are skipped.
func parseRects(args []string, in io.Reader) ([]render.DrawCommand, error) {
	if len(args)%rectArgs != 0 {
		return nil, errors.Errorf("got %d values, want groups of %d (x y w h r g b a)", len(args), rectArgs)
	}

	var rects []render.DrawCommand
	add := func(fields []string) error {
		line := channel.DrawRectKeyword + " " + strings.Join(fields, " ")
		rect, ok := channel.Parse(line)
		if !ok {
			return errors.Errorf("invalid rectangle %q", strings.Join(fields, " "))
		}
		rects = append(rects, rect)
		return nil
	}

	for i := 0; i < len(args); i += rectArgs {
		if err := add(args[i : i+rectArgs]); err != nil {
			return nil, err
		}
	}

	if in != nil {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			fields := strings.Fields(sc.Text())
			if len(fields) == 0 {
				continue
			}
			if fields[0] == channel.DrawRectKeyword {
				fields = fields[1:]
			}
			if err := add(fields); err != nil {
				return nil, err
			}
		}
		if err := sc.Err(); err != nil {
			return nil, errors.Wrap(err, "read stdin")
		}
	}

	if len(rects) == 0 {
		return nil, errors.New("no rectangles given")
	}
	return rects, nil
}

// send delivers rects over a single connection.
func send(ctx context.Context, addr string, rects []render.DrawCommand) error {
	c, err := channel.Dial(ctx, addr)
	if err != nil {
		return err
	}
	defer c.Close()
	for _, r := range rects {
		if err := c.DrawRect(r); err != nil {
			return err
		}
	}
	return nil
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "overlayctl",
		Short:         "Control an injected overlay",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.addr, "addr", "a", channel.DefaultAddr, "overlay command channel address")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "connect timeout")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	drawRect := &cobra.Command{
		Use:   "draw-rect [x y w h r g b a]...",
		Short: "Add filled rectangles to the overlay",
		Long: `Add filled rectangles to the overlay.

All rectangles of one invocation are sent over a single connection. The
overlay accepts one controller per session unless it runs with
reconnect: true, so later invocations against a default overlay are refused.
Use --stdin to stream further rectangles, one per line.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader
			if opts.stdin {
				in = cmd.InOrStdin()
			}
			rects, err := parseRects(args, in)
			if err != nil {
				return err
			}

			log := logging.NewCLI(cmd.ErrOrStderr(), opts.verbose)
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			if err := send(ctx, opts.addr, rects); err != nil {
				return err
			}
			log.WithFields(logrus.Fields{"addr": opts.addr, "count": len(rects)}).Info("rectangles sent")
			return nil
		},
	}
	drawRect.Flags().BoolVar(&opts.stdin, "stdin", false, "also read rectangles from stdin")
	root.AddCommand(drawRect)
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "[!] %v\n", err)
		os.Exit(1)
	}
}
