package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framebridge"
)

// frameTexture holds the sampled texture camera frames are uploaded to.
type frameTexture struct {
	tex    hal.Texture
	view   hal.TextureView
	width  int
	height int
}

// CreateTexture allocates an RGBA8 texture for frame uploads.
func (b *Backend) CreateTexture(width, height int) (framebridge.TextureID, error) {
	if b.released {
		return 0, ErrReleased
	}
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("wgpu: invalid texture size %dx%d", width, height)
	}

	tex, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "bridge_frame",
		Size:          hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return 0, fmt.Errorf("wgpu: create frame texture: %w", err)
	}
	view, err := b.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "bridge_frame_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		b.device.DestroyTexture(tex)
		return 0, fmt.Errorf("wgpu: create frame texture view: %w", err)
	}

	id := framebridge.TextureID(b.id())
	b.textures[id] = &frameTexture{tex: tex, view: view, width: width, height: height}
	return id, nil
}

// WriteTexture uploads a frame's pixels. Padded rows are repacked tight
// before the upload because queue.WriteTexture takes a single pitch.
func (b *Backend) WriteTexture(id framebridge.TextureID, frame *framebridge.Frame) error {
	if b.released {
		return ErrReleased
	}
	tex, ok := b.textures[id]
	if !ok {
		return ErrUnknownTexture
	}
	if frame.Width != tex.width || frame.Height != tex.height {
		return fmt.Errorf("wgpu: frame size %dx%d does not match texture %dx%d",
			frame.Width, frame.Height, tex.width, tex.height)
	}

	rowBytes := frame.Width * 4
	data := frame.Pix
	if frame.Stride != rowBytes {
		data = make([]byte, rowBytes*frame.Height)
		for y := 0; y < frame.Height; y++ {
			copy(data[y*rowBytes:(y+1)*rowBytes], frame.Pix[y*frame.Stride:y*frame.Stride+rowBytes])
		}
	}

	w, h := uint32(tex.width), uint32(tex.height)
	b.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  tex.tex,
			MipLevel: 0,
		},
		data,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  w * 4,
			RowsPerImage: h,
		},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	return nil
}

func (t *frameTexture) destroy(device hal.Device) {
	if t.view != nil {
		device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		device.DestroyTexture(t.tex)
		t.tex = nil
	}
}
