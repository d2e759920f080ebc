// Package gpu registers the wgpu graphics backend with framebridge.
//
// Import this package to make the hardware backend available through
// the registry:
//
//	import _ "github.com/gogpu/framebridge/gpu"
//
// The backend registers as "wgpu" at priority 100, so it is preferred
// over the software backend whenever a GPU adapter is reachable. If no
// adapter is available, backend selection falls through to the next
// registered backend.
package gpu

import (
	"errors"
	"log/slog"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framebridge"
	gpuimpl "github.com/gogpu/framebridge/internal/gpu"
)

func init() {
	framebridge.Register("wgpu", 100, func(framebridge.BackendOptions) (framebridge.GraphicsBackend, error) {
		return gpuimpl.New()
	}, gpuimpl.Available)
}

// SetLogger routes the wgpu backend's internal logging to l. Passing
// nil restores the silent default. Typically called alongside
// framebridge.SetLogger.
func SetLogger(l *slog.Logger) {
	gpuimpl.SetLogger(l)
}

// NewBackendFromProvider creates a wgpu backend on a GPU device shared
// by a host application, instead of opening a standalone device. The
// provider must also expose HalDevice() any and HalQueue() any
// returning wgpu/hal types.
//
// Releasing a bridge built on the returned backend leaves the shared
// device alive; the host retains ownership.
func NewBackendFromProvider(provider gpucontext.DeviceProvider) (framebridge.GraphicsBackend, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, errors.New("gpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, errors.New("gpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, errors.New("gpu: provider HalQueue is not hal.Queue")
	}
	return gpuimpl.NewWithDevice(device, queue)
}
