package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/drawing"
	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/render"
	"github.com/jung-kurt/gofpdf"
)

// Background is what transparent pixels become in an export.
var Background color.Color = color.White

// Flatten composites the canvas over an opaque background.
func Flatten(c *render.Canvas, bg color.Color) *image.RGBA {
	bounds := image.Rect(0, 0, c.Width(), c.Height())
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(out, bounds, c.Image(), image.Point{}, draw.Over)
	return out
}

// PNG replays actions and writes the result as a PNG on a white
// background.
func PNG(w io.Writer, actions []drawing.Action, width, height int) error {
	c := render.Render(width, height, actions)
	if err := png.Encode(w, Flatten(c, Background)); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// PDF writes a single-page PDF whose page is exactly the canvas size, in
// points, with the replayed canvas as its only content.
func PDF(w io.Writer, actions []drawing.Action, width, height int, title string) error {
	var img bytes.Buffer
	if err := PNG(&img, actions, width, height); err != nil {
		return err
	}

	wd, ht := float64(width), float64(height)
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: wd, Ht: ht},
	})
	pdf.SetTitle(title, true)
	pdf.SetCreator("collaborative-canvas", true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("canvas", opts, &img)
	pdf.ImageOptions("canvas", 0, 0, wd, ht, false, opts, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("encode pdf: %w", err)
	}
	return nil
}
