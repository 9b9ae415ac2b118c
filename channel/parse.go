package channel

import (
	"strconv"
	"strings"

	"github.com/r0lh/poverlay/render"
)

// DrawRectKeyword is the only command the protocol understands.
const DrawRectKeyword = "draw_rect"

const drawRectFields = 9

// Parse decodes one protocol line. It reports false for anything that is not a
// well formed draw_rect command; such lines are dropped by the server.
func Parse(line string) (render.DrawCommand, bool) {
	var cmd render.DrawCommand

	f := strings.Fields(line)
	if len(f) != drawRectFields || f[0] != DrawRectKeyword {
		return cmd, false
	}

	ints := [4]*int32{&cmd.X, &cmd.Y, &cmd.W, &cmd.H}
	for i, dst := range ints {
		v, err := strconv.ParseInt(f[1+i], 10, 32)
		if err != nil {
			return render.DrawCommand{}, false
		}
		*dst = int32(v)
	}

	floats := [4]*float32{&cmd.R, &cmd.G, &cmd.B, &cmd.A}
	for i, dst := range floats {
		v, err := strconv.ParseFloat(f[5+i], 32)
		if err != nil {
			return render.DrawCommand{}, false
		}
		*dst = float32(v)
	}
	return cmd, true
}

// Format encodes cmd as a newline terminated protocol line.
func Format(cmd render.DrawCommand) string {
	var b strings.Builder
	b.WriteString(DrawRectKeyword)
	for _, v := range [4]int32{cmd.X, cmd.Y, cmd.W, cmd.H} {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatInt(int64(v), 10))
	}
	for _, v := range [4]float32{cmd.R, cmd.G, cmd.B, cmd.A} {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte('\n')
	return b.String()
}
