package compute

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Provider exposes a Context's device for sharing with other gogpu
// libraries. It satisfies both sharing contracts in the ecosystem:
// gpucontext.DeviceProvider, and the duck-typed HalDevice/HalQueue
// pair consumed by accelerators that need raw HAL handles.
//
// The provider does not transfer ownership; the Context still closes
// the device.
type Provider struct {
	ctx *Context
}

var _ gpucontext.DeviceProvider = (*Provider)(nil)

// Provider returns a sharing handle for this context's device.
func (c *Context) Provider() *Provider { return &Provider{ctx: c} }

// Device returns the shared device handle.
func (p *Provider) Device() gpucontext.Device { return &sharedDevice{dev: p.ctx.device} }

// Queue returns the shared submission queue handle.
func (p *Provider) Queue() gpucontext.Queue { return &sharedQueue{q: p.ctx.queue} }

// Adapter returns the shared adapter handle.
func (p *Provider) Adapter() gpucontext.Adapter { return &sharedAdapter{name: p.ctx.adapterName} }

// SurfaceFormat returns the conventional presentation format.
// Headless compute never presents; the value only matters to render
// consumers sharing the device.
func (p *Provider) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatBGRA8Unorm
}

// HalDevice returns the underlying hal.Device.
func (p *Provider) HalDevice() any { return p.ctx.device }

// HalQueue returns the underlying hal.Queue.
func (p *Provider) HalQueue() any { return p.ctx.queue }

type sharedDevice struct {
	dev hal.Device
}

// Poll is a no-op. Completion in this package is fence-based; there is
// no callback queue to pump.
func (d *sharedDevice) Poll(wait bool) {}

// Destroy is a no-op; the owning Context destroys the device.
func (d *sharedDevice) Destroy() {}

type sharedQueue struct {
	q hal.Queue
}

type sharedAdapter struct {
	name string
}

// NewContextFromProvider builds a Context over a device owned by an
// external provider, so the pipeline can run on a device shared with a
// renderer or another library. The provider must implement
// HalDevice() any and HalQueue() any returning wgpu/hal types.
// Closing the returned Context leaves the shared device alive.
func NewContextFromProvider(provider any) (*Context, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("compute: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("compute: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("compute: provider HalQueue is not hal.Queue")
	}
	ctx := &Context{
		device:      device,
		queue:       queue,
		limits:      gputypes.DefaultLimits(),
		adapterName: "shared",
		external:    true,
	}
	slogger().Info("compute: using shared device from provider")
	return ctx, nil
}
