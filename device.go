package compute

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Register the Vulkan HAL backend. Additional backends register the
	// same way and are selected via ContextOptions.Backend.
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// ContextOptions configures device acquisition.
type ContextOptions struct {
	// Backend selects the HAL backend. The zero value selects Vulkan.
	Backend gputypes.Backend

	// AllowFallbackAdapter accepts adapters that are neither discrete
	// nor integrated GPUs (software rasterizers, virtual devices) when
	// no preferred adapter is present. Default is to reject them.
	AllowFallbackAdapter bool
}

// Context owns an acquired GPU device and its submission queue.
// Acquisition runs strictly in order: backend probe, instance,
// adapter enumeration and selection, device open. A failure at any
// step releases everything created so far; no partial context is ever
// returned.
//
// A Context is safe for concurrent use; pipeline and buffer creation
// serialize on its mutex.
type Context struct {
	mu       sync.Mutex
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	limits   gputypes.Limits

	adapterName string
	deviceType  gputypes.DeviceType

	// external marks a device owned by an outside provider; Close must
	// not destroy it.
	external bool
	closed   bool
}

// Acquire probes the HAL backend, selects the best available adapter
// (discrete over integrated over anything else) and opens a device.
func Acquire(opts ContextOptions) (*Context, error) {
	backendID := opts.Backend
	var zeroBackend gputypes.Backend
	if backendID == zeroBackend {
		backendID = gputypes.BackendVulkan
	}
	backend, ok := hal.GetBackend(backendID)
	if !ok {
		return nil, fmt.Errorf("%w: backend %v not registered", ErrNoBackend, backendID)
	}

	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("compute: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	selected := selectAdapter(adapters, opts.AllowFallbackAdapter)
	if selected == nil {
		instance.Destroy()
		return nil, fmt.Errorf("%w: %d adapters enumerated, none usable", ErrNoAdapter, len(adapters))
	}

	limits := gputypes.DefaultLimits()
	openDev, err := selected.Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("%w: adapter %q: %w", ErrDeviceOpen, selected.Info.Name, err)
	}

	ctx := &Context{
		instance:    instance,
		device:      openDev.Device,
		queue:       openDev.Queue,
		limits:      limits,
		adapterName: selected.Info.Name,
		deviceType:  selected.Info.DeviceType,
	}
	slogger().Info("compute: device acquired",
		"adapter", ctx.adapterName,
		"type", ctx.deviceType,
		"max_threads_per_group", ctx.limits.MaxComputeWorkgroupSizeX)
	return ctx, nil
}

// selectAdapter picks a discrete GPU if present, then an integrated
// one, then (optionally) whatever came first.
func selectAdapter(adapters []hal.ExposedAdapter, allowFallback bool) *hal.ExposedAdapter {
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU {
			return &adapters[i]
		}
	}
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			return &adapters[i]
		}
	}
	if allowFallback {
		return &adapters[0]
	}
	return nil
}

// AdapterName returns the name reported by the selected adapter.
func (c *Context) AdapterName() string { return c.adapterName }

// DeviceType returns the selected adapter's device class.
func (c *Context) DeviceType() gputypes.DeviceType { return c.deviceType }

// Limits returns the limits the device was opened with.
func (c *Context) Limits() gputypes.Limits { return c.limits }

// MaxThreadsPerGroup returns the widest 1D workgroup the device
// supports.
func (c *Context) MaxThreadsPerGroup() uint32 {
	return c.limits.MaxComputeWorkgroupSizeX
}

// Close releases the device and instance. Devices adopted from an
// external provider are left alive; their owner closes them. Close is
// idempotent.
func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if !c.external && c.device != nil {
		c.device.Destroy()
	}
	c.device = nil
	c.queue = nil
	if c.instance != nil {
		c.instance.Destroy()
		c.instance = nil
	}
}

// ensureOpen reports ErrContextClosed after Close. Callers hold c.mu.
func (c *Context) ensureOpen() error {
	if c.closed || c.device == nil {
		return ErrContextClosed
	}
	return nil
}
