//go:build windows

package present

import (
	"sync/atomic"
	"unsafe"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"

	"github.com/r0lh/poverlay/hook"
	"github.com/r0lh/poverlay/render"
	"github.com/r0lh/poverlay/winsys"
)

// OpenGL hooks wglSwapBuffers, resolved by name from opengl32.dll.
type OpenGL struct {
	state *render.State
	log   logrus.FieldLogger

	swap atomic.Pointer[hook.Record]
}

// NewOpenGL returns a backend drawing the commands in state.
func NewOpenGL(state *render.State, log logrus.FieldLogger) *OpenGL {
	return &OpenGL{state: state, log: log.WithField("backend", "opengl")}
}

func (g *OpenGL) Name() string { return "opengl" }

func (g *OpenGL) Loaded() bool {
	return winsys.ModuleLoaded("opengl32.dll")
}

func (g *OpenGL) Resolve() ([]Target, error) {
	addr, err := winsys.ExportAddress("opengl32.dll", "wglSwapBuffers")
	if err != nil {
		return nil, err
	}
	return []Target{{
		Name:   "wglSwapBuffers",
		Addr:   addr,
		Detour: windows.NewCallback(g.onSwapBuffers),
		Bind:   func(r *hook.Record) { g.swap.Store(r) },
	}}, nil
}

func (g *OpenGL) onSwapBuffers(hdc uintptr) uintptr {
	return Present(g.state, g, g.log, func() uintptr {
		return g.swap.Load().Call(hdc)
	})
}

func gl(p *windows.LazyProc, args ...uintptr) {
	p.Call(args...)
}

// Begin saves the host's GL state and sets up a pixel space projection with
// alpha blending.
func (g *OpenGL) Begin() bool {
	if ctx, _, _ := winsys.ProcWglGetCurrentContext.Call(); ctx == 0 {
		return false
	}

	var vp [4]int32
	gl(winsys.ProcGlPushAttrib, winsys.GL_ALL_ATTRIB_BITS)
	gl(winsys.ProcGlGetIntegerv, winsys.GL_VIEWPORT, uintptr(unsafe.Pointer(&vp[0])))

	ortho := OrthoMatrix(vp[2], vp[3])
	gl(winsys.ProcGlMatrixMode, winsys.GL_PROJECTION)
	gl(winsys.ProcGlPushMatrix)
	gl(winsys.ProcGlLoadMatrixd, uintptr(unsafe.Pointer(&ortho[0])))
	gl(winsys.ProcGlMatrixMode, winsys.GL_MODELVIEW)
	gl(winsys.ProcGlPushMatrix)
	gl(winsys.ProcGlLoadIdentity)

	gl(winsys.ProcGlDisable, winsys.GL_DEPTH_TEST)
	gl(winsys.ProcGlDisable, winsys.GL_CULL_FACE)
	gl(winsys.ProcGlDisable, winsys.GL_TEXTURE_2D)
	gl(winsys.ProcGlDisable, winsys.GL_LIGHTING)
	gl(winsys.ProcGlEnable, winsys.GL_BLEND)
	gl(winsys.ProcGlBlendFunc, winsys.GL_SRC_ALPHA, winsys.GL_ONE_MINUS_SRC_ALPHA)
	return true
}

func (g *OpenGL) FillRect(c render.DrawCommand) {
	color := [4]float32{c.R, c.G, c.B, c.A}
	l, t, r, b := c.Rect()

	gl(winsys.ProcGlColor4fv, uintptr(unsafe.Pointer(&color[0])))
	gl(winsys.ProcGlBegin, winsys.GL_QUADS)
	gl(winsys.ProcGlVertex2i, uintptr(l), uintptr(t))
	gl(winsys.ProcGlVertex2i, uintptr(r), uintptr(t))
	gl(winsys.ProcGlVertex2i, uintptr(r), uintptr(b))
	gl(winsys.ProcGlVertex2i, uintptr(l), uintptr(b))
	gl(winsys.ProcGlEnd)
}

// End pops everything Begin pushed.
func (g *OpenGL) End() {
	gl(winsys.ProcGlMatrixMode, winsys.GL_PROJECTION)
	gl(winsys.ProcGlPopMatrix)
	gl(winsys.ProcGlMatrixMode, winsys.GL_MODELVIEW)
	gl(winsys.ProcGlPopMatrix)
	gl(winsys.ProcGlPopAttrib)
}
