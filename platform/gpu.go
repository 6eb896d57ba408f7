package platform

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
)

// GPU holds the device and the swapchain surface of one window.
type GPU struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	window *Window
}

func NewGPU(win *Window) (*GPU, error) {
	instance := wgpu.CreateInstance(nil)
	// wraps the GLFW window into a wgpu surface
	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(win.GLFW))

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		surface.Release()
		instance.Release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "orbfield device",
	})
	if err != nil {
		adapter.Release()
		surface.Release()
		instance.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}

	caps := surface.GetCapabilities(adapter)
	if len(caps.Formats) == 0 || len(caps.AlphaModes) == 0 {
		device.Release()
		adapter.Release()
		surface.Release()
		instance.Release()
		return nil, fmt.Errorf("surface reports no formats")
	}
	width, height := win.FramebufferSize()
	cfg := &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(max(width, 1)),
		Height:      uint32(max(height, 1)),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   pickAlphaMode(caps.AlphaModes),
	}
	surface.Configure(adapter, device, cfg)

	return &GPU{
		Instance: instance,
		Adapter:  adapter,
		Device:   device,
		Queue:    device.GetQueue(),
		Surface:  surface,
		Config:   cfg,
		window:   win,
	}, nil
}

// pickAlphaMode prefers a mode that lets a transparent clear show through.
func pickAlphaMode(modes []wgpu.CompositeAlphaMode) wgpu.CompositeAlphaMode {
	for _, m := range modes {
		if m == wgpu.CompositeAlphaModePremultiplied {
			return m
		}
	}
	return modes[0]
}

func (g *GPU) Format() wgpu.TextureFormat { return g.Config.Format }

// SRGB reports whether the swapchain encodes to sRGB on write.
func (g *GPU) SRGB() bool {
	switch g.Config.Format {
	case wgpu.TextureFormatBGRA8UnormSrgb, wgpu.TextureFormatRGBA8UnormSrgb:
		return true
	}
	return false
}

func (g *GPU) FramebufferSize() (int, int) { return g.window.FramebufferSize() }

// Configure resizes the swapchain. Zero sizes and no-op changes are skipped.
func (g *GPU) Configure(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if g.Config.Width == uint32(width) && g.Config.Height == uint32(height) {
		return
	}
	g.Config.Width = uint32(width)
	g.Config.Height = uint32(height)
	g.Surface.Configure(g.Adapter, g.Device, g.Config)
}

func (g *GPU) Release() {
	if g.Device == nil {
		return
	}
	g.Queue.Release()
	g.Device.Release()
	g.Adapter.Release()
	g.Surface.Release()
	g.Instance.Release()
	g.Device = nil
}
