package present

import (
	"github.com/sirupsen/logrus"

	"github.com/r0lh/poverlay/render"
)

// Canvas draws into the frame that is about to be presented, using whatever
// device context the host has bound.
type Canvas interface {
	// Begin prepares drawing and saves any state FillRect will change. It
	// returns false when nothing can be drawn this frame.
	Begin() bool
	FillRect(render.DrawCommand)
	// End restores the state saved by Begin.
	End()
}

// DrawFrame paints every command in state onto c, in order.
func DrawFrame(state *render.State, c Canvas) {
	if state == nil || !c.Begin() {
		return
	}
	defer c.End()
	state.Each(c.FillRect)
}

// Present is the body shared by all detours: draw the overlay, then run the
// original presentation call and return its result untouched. A panic while
// drawing is logged and swallowed so the host keeps rendering.
func Present(state *render.State, c Canvas, log logrus.FieldLogger, original func() uintptr) uintptr {
	drawSafely(state, c, log)
	return original()
}

func drawSafely(state *render.State, c Canvas, log logrus.FieldLogger) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("overlay draw failed")
		}
	}()
	DrawFrame(state, c)
}

// OrthoMatrix returns the column major projection mapping pixel coordinates
// with a top left origin onto clip space, the same as
// glOrtho(0, width, height, 0, -1, 1).
func OrthoMatrix(width, height int32) [16]float64 {
	var m [16]float64
	if width <= 0 || height <= 0 {
		m[0], m[5], m[10], m[15] = 1, 1, 1, 1
		return m
	}
	m[0] = 2 / float64(width)
	m[5] = -2 / float64(height)
	m[10] = -1
	m[12] = -1
	m[13] = 1
	m[15] = 1
	return m
}
