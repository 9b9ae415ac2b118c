//go:build windows

package winsys

import (
	"unsafe"

	ole "github.com/go-ole/go-ole"
	"github.com/lxn/win"
	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

var (
	ModD3D11 = windows.NewLazySystemDLL("d3d11.dll")

	ProcD3D11CreateDeviceAndSwapChain = ModD3D11.NewProc("D3D11CreateDeviceAndSwapChain")
)

const (
	D3D_DRIVER_TYPE_HARDWARE = 1
	D3D11_SDK_VERSION        = 7

	DXGI_FORMAT_R8G8B8A8_UNORM      = 28
	DXGI_USAGE_RENDER_TARGET_OUTPUT = 0x20
	DXGI_SWAP_EFFECT_DISCARD        = 0
)

// Virtual table slots.
const (
	IDXGISwapChain_GetDevice     = 7
	IDXGISwapChain_Present       = 8
	IDXGISwapChain_GetBuffer     = 9
	IDXGISwapChain_ResizeBuffers = 13

	ID3D11Device_CreateRenderTargetView = 9
	ID3D11Device_GetImmediateContext    = 40

	ID3D11DeviceContext1_ClearView = 132
)

var (
	IID_ID3D11Device         = ole.NewGUID("{db6f6ddb-ac77-4e88-8253-819df9bbf140}")
	IID_ID3D11Texture2D      = ole.NewGUID("{6f15aaf2-d208-4e89-9ab4-489535d34f9c}")
	IID_ID3D11DeviceContext1 = ole.NewGUID("{bb2c6faa-b5fb-4082-8e6b-388b8cfa90e1}")
)

type DXGI_RATIONAL struct {
	Numerator   uint32
	Denominator uint32
}

type DXGI_MODE_DESC struct {
	Width            uint32
	Height           uint32
	RefreshRate      DXGI_RATIONAL
	Format           uint32
	ScanlineOrdering uint32
	Scaling          uint32
}

type DXGI_SAMPLE_DESC struct {
	Count   uint32
	Quality uint32
}

type DXGI_SWAP_CHAIN_DESC struct {
	BufferDesc   DXGI_MODE_DESC
	SampleDesc   DXGI_SAMPLE_DESC
	BufferUsage  uint32
	BufferCount  uint32
	OutputWindow uintptr
	Windowed     int32
	SwapEffect   uint32
	Flags        uint32
}

type D3D11_RECT struct {
	Left, Top, Right, Bottom int32
}

// ProbeSwapChain is a throwaway device and swap chain created only to read
// the swap chain's virtual table.
type ProbeSwapChain struct {
	SwapChain uintptr
	Device    uintptr
	Context   uintptr
}

// NewProbeSwapChain creates a hardware device with a windowed swap chain on
// the foreground window.
func NewProbeSwapChain() (*ProbeSwapChain, error) {
	hwnd := win.GetForegroundWindow()
	if hwnd == 0 {
		hwnd = win.GetDesktopWindow()
	}

	desc := DXGI_SWAP_CHAIN_DESC{
		BufferDesc:   DXGI_MODE_DESC{Format: DXGI_FORMAT_R8G8B8A8_UNORM},
		SampleDesc:   DXGI_SAMPLE_DESC{Count: 1},
		BufferUsage:  DXGI_USAGE_RENDER_TARGET_OUTPUT,
		BufferCount:  1,
		OutputWindow: uintptr(hwnd),
		Windowed:     1,
		SwapEffect:   DXGI_SWAP_EFFECT_DISCARD,
	}

	if err := ProcD3D11CreateDeviceAndSwapChain.Find(); err != nil {
		return nil, errors.Wrap(err, "resolve D3D11CreateDeviceAndSwapChain")
	}

	var p ProbeSwapChain
	hr, _, _ := ProcD3D11CreateDeviceAndSwapChain.Call(
		0,
		D3D_DRIVER_TYPE_HARDWARE,
		0,
		0,
		0,
		0,
		D3D11_SDK_VERSION,
		uintptr(unsafe.Pointer(&desc)),
		uintptr(unsafe.Pointer(&p.SwapChain)),
		uintptr(unsafe.Pointer(&p.Device)),
		0,
		uintptr(unsafe.Pointer(&p.Context)))
	if err := HRESULTError(hr, "D3D11CreateDeviceAndSwapChain"); err != nil {
		p.Release()
		return nil, err
	}
	return &p, nil
}

// Release frees the probe objects.
func (p *ProbeSwapChain) Release() {
	Release(p.SwapChain)
	Release(p.Context)
	Release(p.Device)
	*p = ProbeSwapChain{}
}
