package icon

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRender(t *testing.T) {
	images, err := Render(testPNG(t))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(images) != len(iconSizes) {
		t.Fatalf("got %d images, want %d", len(images), len(iconSizes))
	}
	for i, img := range images {
		want := int(iconSizes[i])
		bounds := img.Bounds()
		if bounds.Dx() != want || bounds.Dy() != want {
			t.Errorf("image %d is %dx%d, want %dx%d", i, bounds.Dx(), bounds.Dy(), want, want)
		}
	}
}

func TestRenderRejectsNonPNG(t *testing.T) {
	if _, err := Render([]byte("not a png")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestEmbedPassesThroughNonPE(t *testing.T) {
	shell := []byte("\x7fELF fake elf binary")
	out, err := EmbedExecutableIcon(shell, testPNG(t))
	if err != nil {
		t.Fatalf("EmbedExecutableIcon: %v", err)
	}
	if !bytes.Equal(out, shell) {
		t.Error("non-PE shell was modified")
	}
}

func TestEmbedRejectsDamagedPE(t *testing.T) {
	// MZ magic with nothing behind it is not a rewritable PE.
	if _, err := EmbedExecutableIcon([]byte("MZ"), testPNG(t)); err == nil {
		t.Fatal("expected error for truncated PE")
	}
}
