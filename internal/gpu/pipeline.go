package gpu

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framebridge"
)

//go:embed shaders/blit.wgsl
var blitShaderSource string

// blitVertexStride is the byte stride per vertex in the blit pipeline.
// Layout per vertex:
//
//	position  (vec2<f32>) = 8 bytes (location 0)
//	tex_coord (vec2<f32>) = 8 bytes (location 1)
//
// Total = 16 bytes per vertex.
const blitVertexStride = 16

// blitUniformSize is the byte size of the blit uniform buffer.
// Layout: mvp (mat4x4<f32>) = 64 bytes + tex (mat4x4<f32>) = 64 bytes.
const blitUniformSize = 128

// blitQuadVertexCount covers the surface with two triangles.
const blitQuadVertexCount = 6

// blitProgram holds the GPU objects for the fixed blit pass: shader,
// layouts, pipeline, sampler, the static full-screen quad, and the
// per-draw uniform buffer.
type blitProgram struct {
	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline
	sampler    hal.Sampler
	quadBuf    hal.Buffer
	uniformBuf hal.Buffer
}

// CompileBlitProgram validates and compiles the blit shader and builds
// the render pipeline around it.
func (b *Backend) CompileBlitProgram() (framebridge.ProgramID, error) {
	if b.released {
		return 0, ErrReleased
	}
	prog, err := b.createBlitProgram()
	if err != nil {
		return 0, err
	}
	id := framebridge.ProgramID(b.id())
	b.programs[id] = prog
	return id, nil
}

func (b *Backend) createBlitProgram() (*blitProgram, error) {
	if blitShaderSource == "" {
		return nil, fmt.Errorf("wgpu: blit shader source is empty")
	}
	// naga catches malformed WGSL with a readable error before the
	// driver sees it.
	if _, err := naga.Compile(blitShaderSource); err != nil {
		return nil, fmt.Errorf("wgpu: validate blit shader: %w", err)
	}

	prog := &blitProgram{}

	shader, err := b.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "blit_shader",
		Source: hal.ShaderSource{WGSL: blitShaderSource},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: compile blit shader: %w", err)
	}
	prog.shader = shader

	// Bind group layout:
	//   Binding 0: BlitUniforms (uniform buffer, vertex)
	//   Binding 1: frame texture (texture_2d, fragment)
	//   Binding 2: sampler (fragment)
	bindLayout, err := b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "blit_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		prog.destroy(b.device)
		return nil, fmt.Errorf("wgpu: create blit bind layout: %w", err)
	}
	prog.bindLayout = bindLayout

	pipeLayout, err := b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "blit_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{prog.bindLayout},
	})
	if err != nil {
		prog.destroy(b.device)
		return nil, fmt.Errorf("wgpu: create blit pipeline layout: %w", err)
	}
	prog.pipeLayout = pipeLayout

	// Linear filtering, clamped at the edges so correction transforms
	// that sample outside the frame stretch the border instead of
	// wrapping.
	sampler, err := b.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "blit_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		prog.destroy(b.device)
		return nil, fmt.Errorf("wgpu: create blit sampler: %w", err)
	}
	prog.sampler = sampler

	pipeline, err := b.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "blit_pipeline",
		Layout: prog.pipeLayout,
		Vertex: hal.VertexState{
			Module:     prog.shader,
			EntryPoint: "vs_main",
			Buffers:    blitVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     prog.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    gputypes.TextureFormatRGBA8Unorm,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		prog.destroy(b.device)
		return nil, fmt.Errorf("wgpu: create blit pipeline: %w", err)
	}
	prog.pipeline = pipeline

	quadBuf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "blit_quad",
		Size:  uint64(blitQuadVertexCount * blitVertexStride),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		prog.destroy(b.device)
		return nil, fmt.Errorf("wgpu: create blit quad buffer: %w", err)
	}
	prog.quadBuf = quadBuf
	b.queue.WriteBuffer(quadBuf, 0, blitQuadVertices())

	uniformBuf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "blit_uniform",
		Size:  blitUniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		prog.destroy(b.device)
		return nil, fmt.Errorf("wgpu: create blit uniform buffer: %w", err)
	}
	prog.uniformBuf = uniformBuf

	return prog, nil
}

// destroy releases all program resources in reverse creation order.
func (p *blitProgram) destroy(device hal.Device) {
	if p.uniformBuf != nil {
		device.DestroyBuffer(p.uniformBuf)
		p.uniformBuf = nil
	}
	if p.quadBuf != nil {
		device.DestroyBuffer(p.quadBuf)
		p.quadBuf = nil
	}
	if p.pipeline != nil {
		device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.sampler != nil {
		device.DestroySampler(p.sampler)
		p.sampler = nil
	}
	if p.pipeLayout != nil {
		device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.bindLayout != nil {
		device.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	if p.shader != nil {
		device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}

// blitVertexLayout returns the vertex buffer layout for the blit
// pipeline. Matches VertexInput in blit.wgsl.
func blitVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: blitVertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0}, // position
				{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1}, // tex_coord
			},
		},
	}
}

// blitQuadVertices serializes the full-screen quad: two clip-space
// triangles with unit texture coordinates, v=0 at the top edge.
func blitQuadVertices() []byte {
	verts := [blitQuadVertexCount][4]float32{
		{-1, -1, 0, 1},
		{1, -1, 1, 1},
		{1, 1, 1, 0},
		{-1, -1, 0, 1},
		{1, 1, 1, 0},
		{-1, 1, 0, 0},
	}
	data := make([]byte, blitQuadVertexCount*blitVertexStride)
	off := 0
	for _, v := range verts {
		for _, f := range v {
			binary.LittleEndian.PutUint32(data[off:], math.Float32bits(f))
			off += 4
		}
	}
	return data
}

// makeBlitUniform packs the 128-byte uniform buffer: an identity mvp
// followed by the texture-coordinate transform. WGSL mat4x4 columns are
// stored contiguously, so each affine column (a d / b e / c f) lands in
// its own vec4.
func makeBlitUniform(tex framebridge.Matrix) []byte {
	identity := [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
	m := [16]float32{
		float32(tex.A), float32(tex.D), 0, 0,
		float32(tex.B), float32(tex.E), 0, 0,
		0, 0, 1, 0,
		float32(tex.C), float32(tex.F), 0, 1,
	}
	buf := make([]byte, blitUniformSize)
	off := 0
	for _, v := range identity {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}
	for _, v := range m {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}
	return buf
}
