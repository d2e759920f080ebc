package software

import (
	"bytes"
	"testing"

	"github.com/gogpu/framebridge"
)

// captureTarget records every submitted frame.
type captureTarget struct {
	w, h   int
	frames [][]byte
	stamps []int64
}

func (t *captureTarget) Size() (int, int) { return t.w, t.h }

func (t *captureTarget) SubmitFrame(pix []byte, ptsNanos int64) error {
	t.frames = append(t.frames, pix)
	t.stamps = append(t.stamps, ptsNanos)
	return nil
}

func rgbaFrame(w, h int, colors [][4]byte) *framebridge.Frame {
	pix := make([]byte, w*h*4)
	for i, c := range colors {
		copy(pix[i*4:], c[:])
	}
	return &framebridge.Frame{Pix: pix, Stride: w * 4, Width: w, Height: h}
}

// setup creates a backend with a current surface, a program and a
// texture, ready to draw.
func setup(t *testing.T, w, h int) (*Backend, *captureTarget, framebridge.SurfaceID, framebridge.ProgramID, framebridge.TextureID) {
	t.Helper()
	b := New()
	target := &captureTarget{w: w, h: h}
	surf, err := b.CreateSurface(target)
	if err != nil {
		t.Fatalf("CreateSurface: %v", err)
	}
	if err := b.MakeCurrent(surf); err != nil {
		t.Fatalf("MakeCurrent: %v", err)
	}
	prog, err := b.CompileBlitProgram()
	if err != nil {
		t.Fatalf("CompileBlitProgram: %v", err)
	}
	tex, err := b.CreateTexture(w, h)
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	return b, target, surf, prog, tex
}

func TestIdentityBlitPreservesPixels(t *testing.T) {
	b, target, surf, prog, tex := setup(t, 2, 2)

	// Four distinct opaque colors.
	colors := [][4]byte{
		{255, 0, 0, 255}, {0, 255, 0, 255},
		{0, 0, 255, 255}, {255, 255, 255, 255},
	}
	if err := b.WriteTexture(tex, rgbaFrame(2, 2, colors)); err != nil {
		t.Fatalf("WriteTexture: %v", err)
	}
	if err := b.DrawTexturedQuad(prog, tex, framebridge.Identity()); err != nil {
		t.Fatalf("DrawTexturedQuad: %v", err)
	}
	if err := b.Present(surf, 99); err != nil {
		t.Fatalf("Present: %v", err)
	}

	if len(target.frames) != 1 {
		t.Fatalf("submitted frames = %d, want 1", len(target.frames))
	}
	if target.stamps[0] != 99 {
		t.Errorf("timestamp = %d, want 99", target.stamps[0])
	}
	got := target.frames[0]
	for i, c := range colors {
		if !bytes.Equal(got[i*4:i*4+4], c[:]) {
			t.Errorf("pixel %d = %v, want %v", i, got[i*4:i*4+4], c)
		}
	}
}

func TestFlippedYBlitSwapsRows(t *testing.T) {
	b, target, surf, prog, tex := setup(t, 2, 2)

	top := [4]byte{255, 0, 0, 255}
	bottom := [4]byte{0, 0, 255, 255}
	if err := b.WriteTexture(tex, rgbaFrame(2, 2, [][4]byte{top, top, bottom, bottom})); err != nil {
		t.Fatalf("WriteTexture: %v", err)
	}

	// Mirror v across the center of unit texture space.
	flip := framebridge.Matrix{A: 1, E: -1, F: 1}
	if err := b.DrawTexturedQuad(prog, tex, flip); err != nil {
		t.Fatalf("DrawTexturedQuad: %v", err)
	}
	if err := b.Present(surf, 1); err != nil {
		t.Fatalf("Present: %v", err)
	}

	got := target.frames[0]
	if !bytes.Equal(got[0:4], bottom[:]) {
		t.Errorf("top-left pixel = %v, want bottom color %v", got[0:4], bottom)
	}
	if !bytes.Equal(got[8:12], top[:]) {
		t.Errorf("bottom-left pixel = %v, want top color %v", got[8:12], top)
	}
}

func TestBlitScalesTextureToSurface(t *testing.T) {
	// A 1x1 texture must cover the whole 4x4 surface.
	b := New()
	target := &captureTarget{w: 4, h: 4}
	surf, err := b.CreateSurface(target)
	if err != nil {
		t.Fatalf("CreateSurface: %v", err)
	}
	if err := b.MakeCurrent(surf); err != nil {
		t.Fatalf("MakeCurrent: %v", err)
	}
	prog, err := b.CompileBlitProgram()
	if err != nil {
		t.Fatalf("CompileBlitProgram: %v", err)
	}
	tex, err := b.CreateTexture(1, 1)
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}

	red := [4]byte{255, 0, 0, 255}
	if err := b.WriteTexture(tex, rgbaFrame(1, 1, [][4]byte{red})); err != nil {
		t.Fatalf("WriteTexture: %v", err)
	}
	if err := b.DrawTexturedQuad(prog, tex, framebridge.Identity()); err != nil {
		t.Fatalf("DrawTexturedQuad: %v", err)
	}
	if err := b.Present(surf, 1); err != nil {
		t.Fatalf("Present: %v", err)
	}

	got := target.frames[0]
	for i := 0; i < 16; i++ {
		if !bytes.Equal(got[i*4:i*4+4], red[:]) {
			t.Fatalf("pixel %d = %v, want %v", i, got[i*4:i*4+4], red)
		}
	}
}

func TestWriteTextureHonorsStride(t *testing.T) {
	b, target, surf, prog, tex := setup(t, 2, 1)

	// Two pixels per row plus four bytes of row padding.
	red := [4]byte{255, 0, 0, 255}
	green := [4]byte{0, 255, 0, 255}
	pix := make([]byte, 12)
	copy(pix[0:4], red[:])
	copy(pix[4:8], green[:])
	frame := &framebridge.Frame{Pix: pix, Stride: 12, Width: 2, Height: 1}
	if err := b.WriteTexture(tex, frame); err != nil {
		t.Fatalf("WriteTexture: %v", err)
	}
	if err := b.DrawTexturedQuad(prog, tex, framebridge.Identity()); err != nil {
		t.Fatalf("DrawTexturedQuad: %v", err)
	}
	if err := b.Present(surf, 1); err != nil {
		t.Fatalf("Present: %v", err)
	}

	got := target.frames[0]
	if !bytes.Equal(got[0:4], red[:]) || !bytes.Equal(got[4:8], green[:]) {
		t.Errorf("pixels = %v, want red then green", got)
	}
}

func TestWriteTextureSizeMismatch(t *testing.T) {
	b := New()
	tex, err := b.CreateTexture(2, 2)
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	if err := b.WriteTexture(tex, rgbaFrame(4, 4, nil)); err == nil {
		t.Error("WriteTexture accepted a mismatched frame")
	}
}

func TestDrawWithoutCurrentSurface(t *testing.T) {
	b := New()
	prog, _ := b.CompileBlitProgram()
	tex, _ := b.CreateTexture(2, 2)
	if err := b.DrawTexturedQuad(prog, tex, framebridge.Identity()); err == nil {
		t.Error("DrawTexturedQuad succeeded without a current surface")
	}
}

func TestDestroyIdempotentAndTerminal(t *testing.T) {
	b := New()
	surf, err := b.CreateSurface(&captureTarget{w: 2, h: 2})
	if err != nil {
		t.Fatalf("CreateSurface: %v", err)
	}

	b.Destroy()
	b.Destroy() // must not panic

	if err := b.MakeCurrent(surf); err == nil {
		t.Error("MakeCurrent succeeded after Destroy")
	}
	if _, err := b.CreateTexture(2, 2); err == nil {
		t.Error("CreateTexture succeeded after Destroy")
	}
	// Deletes after Destroy are tolerated no-ops.
	b.DestroySurface(surf)
}

func TestRegisteredWithRegistry(t *testing.T) {
	names := framebridge.List()
	for _, n := range names {
		if n == "software" {
			return
		}
	}
	t.Errorf("software backend not registered, got %v", names)
}
