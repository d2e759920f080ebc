package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan" // register the vulkan HAL driver

	"github.com/gogpu/framebridge"
)

// Errors.
var (
	ErrReleased         = errors.New("wgpu: backend released")
	ErrNoCurrentSurface = errors.New("wgpu: no current surface")
	ErrUnknownSurface   = errors.New("wgpu: unknown surface")
	ErrUnknownProgram   = errors.New("wgpu: unknown program")
	ErrUnknownTexture   = errors.New("wgpu: unknown texture")
	ErrNilDevice        = errors.New("wgpu: device and queue must be non-nil")
)

// Backend implements framebridge.GraphicsBackend on the wgpu HAL.
//
// Not safe for concurrent use; the render bridge serializes all calls.
type Backend struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	// externalDevice marks a device borrowed from a host application.
	// Destroy leaves borrowed devices alive.
	externalDevice bool

	nextID   uint64
	surfaces map[framebridge.SurfaceID]*renderSurface
	programs map[framebridge.ProgramID]*blitProgram
	textures map[framebridge.TextureID]*frameTexture
	current  framebridge.SurfaceID
	released bool
}

// New creates a backend with its own GPU device. The first discrete or
// integrated adapter exposed by the Vulkan HAL backend is opened.
func New() (*Backend, error) {
	b := newBackend()
	if err := b.initGPU(); err != nil {
		return nil, err
	}
	return b, nil
}

// NewWithDevice creates a backend on a device owned by the caller, for
// example the device of a host window. Destroy releases the backend's
// resources but leaves the device and queue alive.
func NewWithDevice(device hal.Device, queue hal.Queue) (*Backend, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	b := newBackend()
	b.device = device
	b.queue = queue
	b.externalDevice = true
	return b, nil
}

func newBackend() *Backend {
	return &Backend{
		surfaces: make(map[framebridge.SurfaceID]*renderSurface),
		programs: make(map[framebridge.ProgramID]*blitProgram),
		textures: make(map[framebridge.TextureID]*frameTexture),
	}
}

// Available reports whether a GPU adapter can be reached. Used as the
// registry availability probe.
func Available() bool {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return false
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return false
	}
	defer instance.Destroy()
	return len(instance.EnumerateAdapters(nil)) > 0
}

func (b *Backend) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("wgpu: vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("wgpu: create instance: %w", err)
	}
	b.instance = instance
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		b.instance = nil
		return fmt.Errorf("wgpu: no GPU adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		b.instance = nil
		return fmt.Errorf("wgpu: open device: %w", err)
	}
	b.device = openDev.Device
	b.queue = openDev.Queue
	slogger().Info("wgpu backend initialized", "adapter", selected.Info.Name)
	return nil
}

func (b *Backend) id() uint64 {
	b.nextID++
	return b.nextID
}

// MakeCurrent selects the surface subsequent draws render into. The HAL
// has no context currency; this only validates and records the handle.
func (b *Backend) MakeCurrent(id framebridge.SurfaceID) error {
	if b.released {
		return ErrReleased
	}
	if _, ok := b.surfaces[id]; !ok {
		return ErrUnknownSurface
	}
	b.current = id
	return nil
}

// DestroySurface releases a surface. Unknown handles are tolerated.
func (b *Backend) DestroySurface(id framebridge.SurfaceID) {
	if b.released {
		return
	}
	if surf, ok := b.surfaces[id]; ok {
		surf.destroy(b.device)
		delete(b.surfaces, id)
	}
	if b.current == id {
		b.current = 0
	}
}

// DeleteProgram releases a program. Tolerates unknown handles.
func (b *Backend) DeleteProgram(id framebridge.ProgramID) {
	if b.released {
		return
	}
	if prog, ok := b.programs[id]; ok {
		prog.destroy(b.device)
		delete(b.programs, id)
	}
}

// DeleteTexture releases a texture. Tolerates unknown handles.
func (b *Backend) DeleteTexture(id framebridge.TextureID) {
	if b.released {
		return
	}
	if tex, ok := b.textures[id]; ok {
		tex.destroy(b.device)
		delete(b.textures, id)
	}
}

// Destroy releases all resources. An owned device and instance are
// destroyed with them; borrowed ones are left alive. Idempotent.
func (b *Backend) Destroy() {
	if b.released {
		return
	}
	for id, prog := range b.programs {
		prog.destroy(b.device)
		delete(b.programs, id)
	}
	for id, tex := range b.textures {
		tex.destroy(b.device)
		delete(b.textures, id)
	}
	for id, surf := range b.surfaces {
		surf.destroy(b.device)
		delete(b.surfaces, id)
	}
	b.current = 0
	if !b.externalDevice {
		if b.device != nil {
			b.device.Destroy()
		}
		if b.instance != nil {
			b.instance.Destroy()
		}
	}
	b.device = nil
	b.instance = nil
	b.queue = nil
	b.released = true
}
