package assets

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	_ "golang.org/x/image/bmp" // register BMP decoder
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/gogpu/naga"
)

// DecodeImage decodes an encoded image and converts it to RGBA.
func DecodeImage(data []byte) (*image.RGBA, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba, nil
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Copy(dst, image.Point{}, img, b, xdraw.Src, nil)
	slogger().Debug("assets: decoded image", "format", format, "width", b.Dx(), "height", b.Dy())
	return dst, nil
}

// ValidateShader parses WGSL source and lowers it to IR so syntax and
// name-resolution errors surface at load time.
func ValidateShader(source string) error {
	ast, err := naga.Parse(source)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrShader, err)
	}
	if _, err := naga.LowerWithSource(ast, source); err != nil {
		return fmt.Errorf("%w: %w", ErrShader, err)
	}
	return nil
}
