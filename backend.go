package framebridge

// Opaque backend resource handles. Zero is never a valid handle.
type (
	// SurfaceID identifies a drawing surface bound to an output target.
	SurfaceID uint64
	// ProgramID identifies a compiled and linked shader program.
	ProgramID uint64
	// TextureID identifies a texture fed by an external frame producer.
	TextureID uint64
)

// GraphicsBackend is the minimal capability surface the render bridge
// needs from a GPU implementation. Implementations live in the gpu and
// backend/software sub-packages; tests substitute recording fakes.
//
// The "current" surface is process-wide mutable state shared across
// bridge instances, so every GPU-touching operation re-asserts currency
// through MakeCurrent before drawing. MakeCurrent is idempotent.
//
// Implementations need not be safe for concurrent use; the bridge
// serializes all calls per instance.
type GraphicsBackend interface {
	// CreateSurface binds a drawing surface to the given output target,
	// sized from target.Size().
	CreateSurface(target OutputTarget) (SurfaceID, error)

	// DestroySurface releases a surface. Unknown or already-destroyed
	// handles are tolerated.
	DestroySurface(id SurfaceID)

	// MakeCurrent establishes the surface as the active render target
	// for subsequent draws.
	MakeCurrent(id SurfaceID) error

	// CompileBlitProgram compiles and links the fixed textured-quad
	// shader pair: the vertex stage passes positions through an MVP
	// matrix (identity here) and transforms texture coordinates by a
	// per-frame texture matrix; the fragment stage samples the bound
	// texture.
	CompileBlitProgram() (ProgramID, error)

	// DeleteProgram releases a program. Tolerates unknown handles.
	DeleteProgram(id ProgramID)

	// CreateTexture allocates an RGBA texture of the given size that an
	// external producer can write frames into.
	CreateTexture(width, height int) (TextureID, error)

	// DeleteTexture releases a texture. Tolerates unknown handles.
	DeleteTexture(id TextureID)

	// WriteTexture uploads a frame's pixels into a texture. The frame
	// size must match the texture size.
	WriteTexture(id TextureID, frame *Frame) error

	// DrawTexturedQuad clears the current surface and draws the texture
	// as a full-surface quad, transforming texture coordinates by
	// texTransform.
	DrawTexturedQuad(program ProgramID, texture TextureID, texTransform Matrix) error

	// Present stamps the surface contents with the presentation
	// timestamp and hands them to the surface's output target.
	Present(id SurfaceID, ptsNanos int64) error

	// Destroy releases the backend and everything it still holds.
	// Idempotent.
	Destroy()
}
