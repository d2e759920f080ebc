// Package gpu implements the wgpu HAL graphics backend for framebridge.
//
// The backend owns (or borrows) a hal.Device and hal.Queue and maps the
// framebridge.GraphicsBackend surface onto HAL primitives: surfaces are
// offscreen render-attachment textures, the blit program is a WGSL
// render pipeline, and Present reads the rendered pixels back through a
// staging buffer before handing them to the output target.
package gpu
