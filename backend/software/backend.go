package software

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/gogpu/framebridge"
)

// Errors.
var (
	ErrReleased         = errors.New("software: backend released")
	ErrNoCurrentSurface = errors.New("software: no current surface")
	ErrUnknownSurface   = errors.New("software: unknown surface")
	ErrUnknownProgram   = errors.New("software: unknown program")
	ErrUnknownTexture   = errors.New("software: unknown texture")
)

func init() {
	framebridge.Register("software", 10, func(opts framebridge.BackendOptions) (framebridge.GraphicsBackend, error) {
		return New(), nil
	}, nil)
}

type surface struct {
	target framebridge.OutputTarget
	img    *image.RGBA
}

// Backend is a CPU implementation of framebridge.GraphicsBackend.
// Surfaces and textures are image.RGBA buffers; DrawTexturedQuad warps
// the texture through the inverse texture transform with x/image/draw.
//
// Not safe for concurrent use; the render bridge serializes all calls.
type Backend struct {
	nextID   uint64
	surfaces map[framebridge.SurfaceID]*surface
	programs map[framebridge.ProgramID]bool
	textures map[framebridge.TextureID]*image.RGBA
	current  framebridge.SurfaceID
	released bool
}

// New creates an empty software backend.
func New() *Backend {
	return &Backend{
		surfaces: make(map[framebridge.SurfaceID]*surface),
		programs: make(map[framebridge.ProgramID]bool),
		textures: make(map[framebridge.TextureID]*image.RGBA),
	}
}

func (b *Backend) id() uint64 {
	b.nextID++
	return b.nextID
}

// CreateSurface allocates a render buffer sized from the target.
func (b *Backend) CreateSurface(target framebridge.OutputTarget) (framebridge.SurfaceID, error) {
	if b.released {
		return 0, ErrReleased
	}
	w, h := target.Size()
	if w <= 0 || h <= 0 {
		return 0, fmt.Errorf("software: invalid target size %dx%d", w, h)
	}
	id := framebridge.SurfaceID(b.id())
	b.surfaces[id] = &surface{
		target: target,
		img:    image.NewRGBA(image.Rect(0, 0, w, h)),
	}
	return id, nil
}

// DestroySurface releases a surface. Unknown handles are tolerated.
func (b *Backend) DestroySurface(id framebridge.SurfaceID) {
	delete(b.surfaces, id)
	if b.current == id {
		b.current = 0
	}
}

// MakeCurrent selects the surface subsequent draws render into.
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

// CompileBlitProgram returns a handle for the fixed blit pass. The CPU
// path has no shaders to compile; the warp in DrawTexturedQuad is the
// program.
func (b *Backend) CompileBlitProgram() (framebridge.ProgramID, error) {
	if b.released {
		return 0, ErrReleased
	}
	id := framebridge.ProgramID(b.id())
	b.programs[id] = true
	return id, nil
}

// DeleteProgram releases a program handle. Tolerates unknown handles.
func (b *Backend) DeleteProgram(id framebridge.ProgramID) {
	delete(b.programs, id)
}

// CreateTexture allocates an RGBA texture buffer.
func (b *Backend) CreateTexture(width, height int) (framebridge.TextureID, error) {
	if b.released {
		return 0, ErrReleased
	}
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("software: invalid texture size %dx%d", width, height)
	}
	id := framebridge.TextureID(b.id())
	b.textures[id] = image.NewRGBA(image.Rect(0, 0, width, height))
	return id, nil
}

// DeleteTexture releases a texture. Tolerates unknown handles.
func (b *Backend) DeleteTexture(id framebridge.TextureID) {
	delete(b.textures, id)
}

// WriteTexture copies a frame's pixels into a texture, row by row to
// honor the frame stride.
func (b *Backend) WriteTexture(id framebridge.TextureID, frame *framebridge.Frame) error {
	if b.released {
		return ErrReleased
	}
	img, ok := b.textures[id]
	if !ok {
		return ErrUnknownTexture
	}
	bounds := img.Bounds()
	if frame.Width != bounds.Dx() || frame.Height != bounds.Dy() {
		return fmt.Errorf("software: frame size %dx%d does not match texture %dx%d",
			frame.Width, frame.Height, bounds.Dx(), bounds.Dy())
	}
	rowBytes := frame.Width * 4
	for y := 0; y < frame.Height; y++ {
		src := frame.Pix[y*frame.Stride : y*frame.Stride+rowBytes]
		dst := img.Pix[y*img.Stride : y*img.Stride+rowBytes]
		copy(dst, src)
	}
	return nil
}

// DrawTexturedQuad clears the current surface to black and warps the
// texture over it through the texture-coordinate transform.
//
// A GPU samples the texture at transformed unit coordinates per
// destination pixel, which is a destination-to-source mapping. The
// x/image/draw transformer wants source-to-destination, so the composed
// pixel-space matrix is inverted before the warp.
func (b *Backend) DrawTexturedQuad(program framebridge.ProgramID, texture framebridge.TextureID, texTransform framebridge.Matrix) error {
	if b.released {
		return ErrReleased
	}
	surf, ok := b.surfaces[b.current]
	if !ok {
		return ErrNoCurrentSurface
	}
	if !b.programs[program] {
		return ErrUnknownProgram
	}
	tex, ok := b.textures[texture]
	if !ok {
		return ErrUnknownTexture
	}

	dstW := float64(surf.img.Bounds().Dx())
	dstH := float64(surf.img.Bounds().Dy())
	srcW := float64(tex.Bounds().Dx())
	srcH := float64(tex.Bounds().Dy())

	// dst pixel -> unit uv -> transformed uv -> src pixel, then inverted
	// to the src->dst form Transform expects.
	dstToSrc := framebridge.Scale(srcW, srcH).
		Multiply(texTransform).
		Multiply(framebridge.Scale(1/dstW, 1/dstH))
	m := dstToSrc.Invert()
	aff := f64.Aff3{m.A, m.B, m.C, m.D, m.E, m.F}

	draw.Draw(surf.img, surf.img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.ApproxBiLinear.Transform(surf.img, aff, tex, tex.Bounds(), draw.Src, nil)
	return nil
}

// Present hands the current contents of a surface to its output target
// with the presentation timestamp. The pixels are copied so the target
// may retain them past the call.
func (b *Backend) Present(id framebridge.SurfaceID, ptsNanos int64) error {
	if b.released {
		return ErrReleased
	}
	surf, ok := b.surfaces[id]
	if !ok {
		return ErrUnknownSurface
	}
	pix := make([]byte, len(surf.img.Pix))
	copy(pix, surf.img.Pix)
	return surf.target.SubmitFrame(pix, ptsNanos)
}

// Destroy releases all resources. Idempotent.
func (b *Backend) Destroy() {
	if b.released {
		return
	}
	b.surfaces = nil
	b.programs = nil
	b.textures = nil
	b.current = 0
	b.released = true
}
