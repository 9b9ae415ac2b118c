//go:build windows

package winsys

import "golang.org/x/sys/windows"

var (
	ModOpenGL32 = windows.NewLazySystemDLL("opengl32.dll")

	ProcWglGetCurrentContext = ModOpenGL32.NewProc("wglGetCurrentContext")
	ProcGlPushAttrib         = ModOpenGL32.NewProc("glPushAttrib")
	ProcGlPopAttrib          = ModOpenGL32.NewProc("glPopAttrib")
	ProcGlGetIntegerv        = ModOpenGL32.NewProc("glGetIntegerv")
	ProcGlMatrixMode         = ModOpenGL32.NewProc("glMatrixMode")
	ProcGlPushMatrix         = ModOpenGL32.NewProc("glPushMatrix")
	ProcGlPopMatrix          = ModOpenGL32.NewProc("glPopMatrix")
	ProcGlLoadMatrixd        = ModOpenGL32.NewProc("glLoadMatrixd")
	ProcGlLoadIdentity       = ModOpenGL32.NewProc("glLoadIdentity")
	ProcGlEnable             = ModOpenGL32.NewProc("glEnable")
	ProcGlDisable            = ModOpenGL32.NewProc("glDisable")
	ProcGlBlendFunc          = ModOpenGL32.NewProc("glBlendFunc")
	ProcGlColor4fv           = ModOpenGL32.NewProc("glColor4fv")
	ProcGlBegin              = ModOpenGL32.NewProc("glBegin")
	ProcGlEnd                = ModOpenGL32.NewProc("glEnd")
	ProcGlVertex2i           = ModOpenGL32.NewProc("glVertex2i")
)

const (
	GL_ALL_ATTRIB_BITS     = 0x000FFFFF
	GL_VIEWPORT            = 0x0BA2
	GL_PROJECTION          = 0x1701
	GL_MODELVIEW           = 0x1700
	GL_BLEND               = 0x0BE2
	GL_DEPTH_TEST          = 0x0B71
	GL_CULL_FACE           = 0x0B44
	GL_TEXTURE_2D          = 0x0DE1
	GL_LIGHTING            = 0x0B50
	GL_SRC_ALPHA           = 0x0302
	GL_ONE_MINUS_SRC_ALPHA = 0x0303
	GL_QUADS               = 0x0007
)
