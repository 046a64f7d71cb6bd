package render

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/gogpu/gg"
)

// Canvas is a raster backed by a gg Pixmap, which stores premultiplied
// RGBA. Readers (At, Image, flood fill sampling) see straight alpha.
// A Canvas is not safe for concurrent use.
type Canvas struct {
	width  int
	height int
	pixmap *gg.Pixmap

	dc     *gg.Context
	mask   *gg.Pixmap
	maskDC *gg.Context
}

// NewCanvas returns a fully transparent width x height canvas.
func NewCanvas(width, height int) *Canvas {
	return &Canvas{
		width:  width,
		height: height,
		pixmap: gg.NewPixmap(width, height),
	}
}

func (c *Canvas) Width() int  { return c.width }
func (c *Canvas) Height() int { return c.height }

// Pixels exposes the backing buffer, row-major, 4 premultiplied bytes
// per pixel.
func (c *Canvas) Pixels() []uint8 {
	return c.pixmap.Data()
}

func (c *Canvas) At(x, y int) color.NRGBA {
	if !c.inBounds(x, y) {
		return color.NRGBA{}
	}
	i := c.offset(x, y)
	p := unpremultiply(c.pixmap.Data()[i : i+4])
	return color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
}

// Image returns a straight-alpha copy of the pixels.
func (c *Canvas) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, c.width, c.height))
	src := c.pixmap.Data()
	for i := 0; i < len(src); i += 4 {
		p := unpremultiply(src[i : i+4])
		copy(img.Pix[i:i+4], p[:])
	}
	return img
}

func (c *Canvas) EncodePNG(w io.Writer) error {
	return png.Encode(w, c.Image())
}

// Clone copies the pixels only; drawing state is rebuilt lazily.
func (c *Canvas) Clone() *Canvas {
	out := NewCanvas(c.width, c.height)
	copy(out.pixmap.Data(), c.pixmap.Data())
	return out
}

// CopyFrom overwrites c with src. Both must have the same dimensions.
func (c *Canvas) CopyFrom(src *Canvas) {
	copy(c.pixmap.Data(), src.pixmap.Data())
}

func (c *Canvas) Reset() {
	clear(c.pixmap.Data())
}

// Close drops the drawing contexts. The pixels stay readable and the
// canvas can still be drawn on.
func (c *Canvas) Close() error {
	if c.dc != nil {
		c.dc.Close()
		c.dc = nil
	}
	if c.maskDC != nil {
		c.maskDC.Close()
		c.maskDC = nil
	}
	c.mask = nil
	return nil
}

func (c *Canvas) context() *gg.Context {
	if c.dc == nil {
		c.dc = gg.NewContext(c.width, c.height, gg.WithPixmap(c.pixmap))
	}
	return c.dc
}

func (c *Canvas) maskContext() (*gg.Pixmap, *gg.Context) {
	if c.maskDC == nil {
		c.mask = gg.NewPixmap(c.width, c.height)
		c.maskDC = gg.NewContext(c.width, c.height, gg.WithPixmap(c.mask))
	}
	return c.mask, c.maskDC
}

func (c *Canvas) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < c.width && y < c.height
}

func (c *Canvas) offset(x, y int) int {
	return (y*c.width + x) * 4
}

// rgbaBytes parses a #RRGGBB color into opaque bytes.
func rgbaBytes(hex string) [4]uint8 {
	col := gg.Hex(hex)
	return [4]uint8{toByte(col.R), toByte(col.G), toByte(col.B), 255}
}

// unpremultiply converts one premultiplied pixel to straight alpha, rounding
// to nearest like canvas getImageData.
func unpremultiply(p []uint8) [4]uint8 {
	a := uint32(p[3])
	switch a {
	case 0:
		return [4]uint8{}
	case 255:
		return [4]uint8{p[0], p[1], p[2], 255}
	}
	var out [4]uint8
	for ch := range 3 {
		out[ch] = uint8(min(255, (uint32(p[ch])*255+a/2)/a))
	}
	out[3] = uint8(a)
	return out
}

func toByte(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v*255))))
}
