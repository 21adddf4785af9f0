package render

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/ledongthuc/pdf"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// DefaultDPI matches a readable thumbnail of a letter page.
const DefaultDPI = 110

const (
	letterWidth  = 612.0
	letterHeight = 792.0
	maxPixels    = 4000
)

// Native lays out the first page's text and rules on a white canvas.
// It does not rasterize embedded images or vector paths beyond rectangles.
type Native struct {
	DPI int

	once sync.Once
	font *truetype.Font
	err  error
}

// NewNative returns a native renderer at the given resolution.
func NewNative(dpi int) *Native {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Native{DPI: dpi}
}

// FirstPage implements Converter.
func (n *Native) FirstPage(ctx context.Context, data []byte, fileName string) (img Image, err error) {
	if err := ctx.Err(); err != nil {
		return Image{}, err
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("native render: malformed document: %v", rec)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Image{}, fmt.Errorf("native render: %w", err)
	}
	if r.NumPage() < 1 {
		return Image{}, ErrNoOutput
	}
	page := r.Page(1)
	if page.V.IsNull() {
		return Image{}, ErrNoOutput
	}

	width, height := mediaBox(page)
	scale := float64(n.DPI) / 72.0
	if longest := math.Max(width, height) * scale; longest > maxPixels {
		scale *= maxPixels / longest
	}

	dc := gg.NewContext(int(math.Ceil(width*scale)), int(math.Ceil(height*scale)))
	dc.SetColor(color.White)
	dc.Clear()

	content := page.Content()

	dc.SetColor(color.Gray{Y: 0x99})
	dc.SetLineWidth(math.Max(1, scale*0.5))
	for _, rect := range content.Rect {
		x := rect.Min.X * scale
		y := (height - rect.Max.Y) * scale
		dc.DrawRectangle(x, y, (rect.Max.X-rect.Min.X)*scale, (rect.Max.Y-rect.Min.Y)*scale)
		dc.Stroke()
	}

	// truetype faces are not goroutine-safe; one cache per render.
	faces := make(map[int]font.Face)
	dc.SetColor(color.Black)
	for _, t := range content.Text {
		if t.S == "" {
			continue
		}
		face, err := n.face(faces, t.FontSize*scale)
		if err != nil {
			return Image{}, fmt.Errorf("native render font: %w", err)
		}
		dc.SetFontFace(face)
		dc.DrawString(t.S, t.X*scale, (height-t.Y)*scale)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return Image{}, fmt.Errorf("encode png: %w", err)
	}
	return newImage(buf.Bytes(), fileName)
}

// face caches font faces by rounded pixel size.
func (n *Native) face(faces map[int]font.Face, size float64) (font.Face, error) {
	n.once.Do(func() {
		n.font, n.err = truetype.Parse(goregular.TTF)
	})
	if n.err != nil {
		return nil, n.err
	}
	px := int(math.Round(size))
	if px < 4 {
		px = 4
	}
	if f, ok := faces[px]; ok {
		return f, nil
	}
	f := truetype.NewFace(n.font, &truetype.Options{
		Size:    float64(px),
		DPI:     72,
		Hinting: font.HintingNone,
	})
	faces[px] = f
	return f, nil
}

// mediaBox reads the page size, looking one level up the page tree.
func mediaBox(page pdf.Page) (float64, float64) {
	box := page.V.Key("MediaBox")
	if box.Kind() != pdf.Array {
		box = page.V.Key("Parent").Key("MediaBox")
	}
	if box.Kind() != pdf.Array || box.Len() != 4 {
		return letterWidth, letterHeight
	}
	w := box.Index(2).Float64() - box.Index(0).Float64()
	h := box.Index(3).Float64() - box.Index(1).Float64()
	if w <= 0 || h <= 0 {
		return letterWidth, letterHeight
	}
	return w, h
}
