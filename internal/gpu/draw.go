package gpu

import (
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framebridge"
)

// gpuTimeout bounds every fence wait.
const gpuTimeout = 5 * time.Second

// DrawTexturedQuad renders the texture onto the current surface through
// the blit pipeline, with texTransform applied to the quad's texture
// coordinates. The submission is fenced so the surface contents are
// complete when the call returns.
func (b *Backend) DrawTexturedQuad(program framebridge.ProgramID, texture framebridge.TextureID, texTransform framebridge.Matrix) error {
	if b.released {
		return ErrReleased
	}
	surf, ok := b.surfaces[b.current]
	if !ok {
		return ErrNoCurrentSurface
	}
	prog, ok := b.programs[program]
	if !ok {
		return ErrUnknownProgram
	}
	tex, ok := b.textures[texture]
	if !ok {
		return ErrUnknownTexture
	}

	b.queue.WriteBuffer(prog.uniformBuf, 0, makeBlitUniform(texTransform))

	bindGroup, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "blit_bind",
		Layout: prog.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: prog.uniformBuf.NativeHandle(), Offset: 0, Size: blitUniformSize,
			}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{
				TextureView: tex.view.NativeHandle(),
			}},
			{Binding: 2, Resource: gputypes.SamplerBinding{
				Sampler: prog.sampler.NativeHandle(),
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create blit bind group: %w", err)
	}
	defer b.device.DestroyBindGroup(bindGroup)

	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "blit_encoder",
	})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("blit_frame"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "blit_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       surf.view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	rp.SetPipeline(prog.pipeline)
	rp.SetBindGroup(0, bindGroup, nil)
	rp.SetVertexBuffer(0, prog.quadBuf, 0)
	rp.Draw(blitQuadVertexCount, 1, 0, 0)
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer b.device.FreeCommandBuffer(cmdBuf)

	return b.submitAndWait(cmdBuf)
}

// Present reads the surface's rendered pixels back through a staging
// buffer and submits them to the output target with the presentation
// timestamp.
func (b *Backend) Present(id framebridge.SurfaceID, ptsNanos int64) error {
	if b.released {
		return ErrReleased
	}
	surf, ok := b.surfaces[id]
	if !ok {
		return ErrUnknownSurface
	}

	w, h := surf.width, surf.height

	// Copy pitch must be 256-byte aligned for WebGPU and DX12.
	bytesPerRow := w * 4
	const copyPitchAlignment = 256
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	stagingBuf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "present_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create staging buffer: %w", err)
	}
	defer b.device.DestroyBuffer(stagingBuf)

	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "present_encoder",
	})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("present_readback"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	// The surface sits in render-attachment layout after a draw;
	// CopyTextureToBuffer needs transfer-source. No-op on backends
	// without explicit layouts.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: surf.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})

	encoder.CopyTextureToBuffer(surf.tex, stagingBuf, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: surf.tex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})

	// Back to render-attachment so the next frame's pass is valid.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: surf.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer b.device.FreeCommandBuffer(cmdBuf)

	if err := b.submitAndWait(cmdBuf); err != nil {
		return err
	}

	readback := make([]byte, stagingSize)
	if err := b.queue.ReadBuffer(stagingBuf, 0, readback); err != nil {
		return fmt.Errorf("wgpu: readback: %w", err)
	}

	pix := readback
	if alignedBytesPerRow != bytesPerRow {
		pix = make([]byte, uint64(bytesPerRow)*uint64(h))
		for row := uint32(0); row < h; row++ {
			srcOff := int(row) * int(alignedBytesPerRow)
			dstOff := int(row) * int(bytesPerRow)
			copy(pix[dstOff:dstOff+int(bytesPerRow)], readback[srcOff:srcOff+int(bytesPerRow)])
		}
	} else {
		pix = pix[:uint64(bytesPerRow)*uint64(h)]
	}

	return surf.target.SubmitFrame(pix, ptsNanos)
}

// submitAndWait submits one command buffer and blocks until the fence
// signals.
func (b *Backend) submitAndWait(cmdBuf hal.CommandBuffer) error {
	fence, err := b.device.CreateFence()
	if err != nil {
		return fmt.Errorf("wgpu: create fence: %w", err)
	}
	defer b.device.DestroyFence(fence)

	if err := b.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	fenceOK, err := b.device.Wait(fence, 1, gpuTimeout)
	if err != nil || !fenceOK {
		return fmt.Errorf("wgpu: wait for GPU: ok=%v err=%w", fenceOK, err)
	}
	return nil
}
