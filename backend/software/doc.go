// Package software provides a pure-Go CPU implementation of the
// framebridge GraphicsBackend. Frames are warped through the
// texture-coordinate transform with golang.org/x/image/draw and written
// straight into the output target.
//
// The backend registers itself as "software" at priority 10, so it is
// picked automatically when no GPU backend is available. It also serves
// as a pixel-level oracle in tests: every draw is fully deterministic.
package software
