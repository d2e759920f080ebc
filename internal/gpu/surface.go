package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framebridge"
)

// renderSurface is an offscreen render target bound to an output sink.
// Draws land in tex; Present reads tex back and hands the pixels to
// target with the frame timestamp.
type renderSurface struct {
	target framebridge.OutputTarget
	tex    hal.Texture
	view   hal.TextureView
	width  uint32
	height uint32
}

// CreateSurface allocates a render-attachment texture sized from the
// target. CopySrc is required for the Present readback.
func (b *Backend) CreateSurface(target framebridge.OutputTarget) (framebridge.SurfaceID, error) {
	if b.released {
		return 0, ErrReleased
	}
	w, h := target.Size()
	if w <= 0 || h <= 0 {
		return 0, fmt.Errorf("wgpu: invalid target size %dx%d", w, h)
	}
	width, height := uint32(w), uint32(h)

	tex, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "bridge_surface",
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return 0, fmt.Errorf("wgpu: create surface texture: %w", err)
	}
	view, err := b.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: "bridge_surface_view",
	})
	if err != nil {
		b.device.DestroyTexture(tex)
		return 0, fmt.Errorf("wgpu: create surface view: %w", err)
	}

	id := framebridge.SurfaceID(b.id())
	b.surfaces[id] = &renderSurface{
		target: target,
		tex:    tex,
		view:   view,
		width:  width,
		height: height,
	}
	return id, nil
}

func (s *renderSurface) destroy(device hal.Device) {
	if s.view != nil {
		device.DestroyTextureView(s.view)
		s.view = nil
	}
	if s.tex != nil {
		device.DestroyTexture(s.tex)
		s.tex = nil
	}
}
