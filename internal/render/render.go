// Package render turns the first page of a PDF into a PNG preview.
package render

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ContentTypePNG is the content type of every rendered image.
const ContentTypePNG = "image/png"

// ErrNoOutput is returned when a converter produced no image bytes.
var ErrNoOutput = errors.New("render: no image produced")

// Image is a rendered page.
type Image struct {
	Data        []byte
	ContentType string
	FileName    string
}

// Converter renders the first page of a PDF document.
type Converter interface {
	FirstPage(ctx context.Context, pdf []byte, fileName string) (Image, error)
}

// ImageName derives the preview file name from the PDF's name.
func ImageName(fileName string) string {
	base := filepath.Base(strings.TrimSpace(fileName))
	if base == "." || base == "/" || base == "" {
		base = "resume.pdf"
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".png"
}

func newImage(data []byte, fileName string) (Image, error) {
	if len(data) == 0 {
		return Image{}, ErrNoOutput
	}
	return Image{Data: data, ContentType: ContentTypePNG, FileName: ImageName(fileName)}, nil
}

// Chain tries each converter in order and returns the first image.
type Chain []Converter

// FirstPage implements Converter.
func (c Chain) FirstPage(ctx context.Context, pdf []byte, fileName string) (Image, error) {
	if len(c) == 0 {
		return Image{}, fmt.Errorf("render: no converters configured: %w", ErrNoOutput)
	}
	var errs []error
	for _, conv := range c {
		img, err := conv.FirstPage(ctx, pdf, fileName)
		if err == nil {
			return img, nil
		}
		if ctx.Err() != nil {
			return Image{}, ctx.Err()
		}
		errs = append(errs, err)
	}
	return Image{}, errors.Join(errs...)
}
