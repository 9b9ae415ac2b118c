//go:build windows

package present

import (
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"

	"github.com/r0lh/poverlay/hook"
	"github.com/r0lh/poverlay/render"
	"github.com/r0lh/poverlay/winsys"
)

// D3D11 hooks IDXGISwapChain::Present for Direct3D 11 hosts. The address comes
// from the virtual table of a probe swap chain: every swap chain in the
// process shares the implementation in dxgi.dll.
type D3D11 struct {
	state *render.State
	log   logrus.FieldLogger

	present atomic.Pointer[hook.Record]
	resize  atomic.Pointer[hook.Record]

	// Touched only on the host's render thread.
	swapChain uintptr
	context   uintptr // ID3D11DeviceContext1
	rtv       uintptr
}

// NewD3D11 returns a backend drawing the commands in state.
func NewD3D11(state *render.State, log logrus.FieldLogger) *D3D11 {
	return &D3D11{state: state, log: log.WithField("backend", "d3d11")}
}

func (d *D3D11) Name() string { return "d3d11" }

func (d *D3D11) Loaded() bool {
	return winsys.ModuleLoaded("d3d11.dll")
}

func (d *D3D11) Resolve() ([]Target, error) {
	probe, err := winsys.NewProbeSwapChain()
	if err != nil {
		return nil, errors.Wrap(err, "probe swap chain")
	}
	present := winsys.VTableEntry(probe.SwapChain, winsys.IDXGISwapChain_Present)
	resize := winsys.VTableEntry(probe.SwapChain, winsys.IDXGISwapChain_ResizeBuffers)
	probe.Release()

	return []Target{
		{
			Name:   "IDXGISwapChain::Present",
			Addr:   present,
			Detour: windows.NewCallback(d.onPresent),
			Bind:   func(r *hook.Record) { d.present.Store(r) },
		},
		{
			Name:   "IDXGISwapChain::ResizeBuffers",
			Addr:   resize,
			Detour: windows.NewCallback(d.onResizeBuffers),
			Bind:   func(r *hook.Record) { d.resize.Store(r) },
		},
	}, nil
}

func (d *D3D11) onPresent(swapChain, syncInterval, flags uintptr) uintptr {
	if swapChain != d.swapChain {
		d.releaseTargets()
		d.swapChain = swapChain
	}
	return Present(d.state, d, d.log, func() uintptr {
		return d.present.Load().Call(swapChain, syncInterval, flags)
	})
}

// onResizeBuffers drops the render target view; the swap chain refuses to
// resize while views of its buffers exist.
func (d *D3D11) onResizeBuffers(swapChain, count, width, height, format, flags uintptr) uintptr {
	if swapChain == d.swapChain {
		d.releaseTargets()
	}
	return d.resize.Load().Call(swapChain, count, width, height, format, flags)
}

func (d *D3D11) releaseTargets() {
	winsys.Release(d.rtv)
	winsys.Release(d.context)
	d.rtv, d.context = 0, 0
}

// Begin lazily builds the render target view for the current back buffer.
func (d *D3D11) Begin() bool {
	if d.rtv != 0 {
		return true
	}
	if err := d.createTargets(); err != nil {
		d.log.WithError(err).Debug("render target unavailable")
		d.releaseTargets()
		return false
	}
	return true
}

func (d *D3D11) createTargets() error {
	var device uintptr
	hr := winsys.ComCall(d.swapChain, winsys.IDXGISwapChain_GetDevice,
		uintptr(unsafe.Pointer(winsys.IID_ID3D11Device)),
		uintptr(unsafe.Pointer(&device)))
	if err := winsys.HRESULTError(hr, "GetDevice"); err != nil {
		return err
	}
	defer winsys.Release(device)

	var immediate uintptr
	winsys.ComCall(device, winsys.ID3D11Device_GetImmediateContext, uintptr(unsafe.Pointer(&immediate)))
	if immediate == 0 {
		return errors.New("no immediate context")
	}
	ctx1, err := winsys.QueryInterface(immediate, winsys.IID_ID3D11DeviceContext1)
	winsys.Release(immediate)
	if err != nil {
		return errors.Wrap(err, "ID3D11DeviceContext1")
	}
	d.context = ctx1

	var backBuffer uintptr
	hr = winsys.ComCall(d.swapChain, winsys.IDXGISwapChain_GetBuffer, 0,
		uintptr(unsafe.Pointer(winsys.IID_ID3D11Texture2D)),
		uintptr(unsafe.Pointer(&backBuffer)))
	if err := winsys.HRESULTError(hr, "GetBuffer"); err != nil {
		return err
	}
	defer winsys.Release(backBuffer)

	hr = winsys.ComCall(device, winsys.ID3D11Device_CreateRenderTargetView,
		backBuffer, 0, uintptr(unsafe.Pointer(&d.rtv)))
	return winsys.HRESULTError(hr, "CreateRenderTargetView")
}

// FillRect clears the command's rectangle of the back buffer. ClearView
// takes its own rect list, so no pipeline state changes. The color replaces
// the pixels without blending; alpha lands in the buffer as is.
func (d *D3D11) FillRect(c render.DrawCommand) {
	var r winsys.D3D11_RECT
	r.Left, r.Top, r.Right, r.Bottom = c.Rect()
	color := [4]float32{c.R, c.G, c.B, c.A}
	winsys.ComCall(d.context, winsys.ID3D11DeviceContext1_ClearView,
		d.rtv,
		uintptr(unsafe.Pointer(&color[0])),
		uintptr(unsafe.Pointer(&r)),
		1)
}

func (d *D3D11) End() {}
