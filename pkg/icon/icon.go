// Package icon converts a single PNG into the executable's icon resources.
// Embedding rewrites PE resources in memory, before the overlay is
// appended, so the container footer stays the last bytes of the file.
package icon

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/nfnt/resize"
	"github.com/tc-hib/winres"
)

// iconSizes are the square dimensions baked into the ICO group. Windows
// picks the nearest; providing the ladder avoids blurry upscales.
var iconSizes = []uint{16, 24, 32, 48, 64, 128, 256}

// Render decodes a PNG and produces the multi-size image set for an ICO.
func Render(pngData []byte) ([]image.Image, error) {
	src, err := png.Decode(bytes.NewReader(pngData))
	if err != nil {
		return nil, fmt.Errorf("decode icon PNG: %w", err)
	}

	images := make([]image.Image, 0, len(iconSizes))
	for _, size := range iconSizes {
		images = append(images, resize.Resize(size, size, src, resize.Lanczos3))
	}
	return images, nil
}

// EmbedExecutableIcon returns shell bytes with the icon installed as the
// executable's primary icon group. Non-PE shells (ELF, Mach-O) have no
// resource section to rewrite; they pass through unchanged and the icon
// only travels in the config block for the window.
func EmbedExecutableIcon(shell []byte, pngData []byte) ([]byte, error) {
	if !isPE(shell) {
		return shell, nil
	}

	images, err := Render(pngData)
	if err != nil {
		return nil, err
	}
	ico, err := winres.NewIconFromImages(images)
	if err != nil {
		return nil, fmt.Errorf("build ICO: %w", err)
	}

	rs, err := winres.LoadFromEXE(bytes.NewReader(shell))
	if err != nil {
		// A shell built without resources still accepts a fresh set.
		rs = &winres.ResourceSet{}
	}
	if err := rs.SetIcon(winres.ID(1), ico); err != nil {
		return nil, fmt.Errorf("set icon resource: %w", err)
	}

	var out bytes.Buffer
	if err := rs.WriteToEXE(&out, bytes.NewReader(shell)); err != nil {
		return nil, fmt.Errorf("rewrite PE resources: %w", err)
	}
	return out.Bytes(), nil
}

func isPE(data []byte) bool {
	return len(data) >= 2 && data[0] == 'M' && data[1] == 'Z'
}
