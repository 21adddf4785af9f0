package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

// DefaultPdftoppmTimeout bounds one conversion when Timeout is unset.
const DefaultPdftoppmTimeout = 60 * time.Second

// Pdftoppm renders with the poppler-utils binary.
type Pdftoppm struct {
	// Binary defaults to "pdftoppm" on PATH.
	Binary  string
	DPI     int
	Timeout time.Duration
}

// Available reports whether the binary can be found.
func (p Pdftoppm) Available() bool {
	_, err := exec.LookPath(p.binary())
	return err == nil
}

// FirstPage implements Converter.
func (p Pdftoppm) FirstPage(ctx context.Context, pdf []byte, fileName string) (Image, error) {
	dir, err := os.MkdirTemp("", "render-*")
	if err != nil {
		return Image{}, err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.pdf")
	if err := os.WriteFile(in, pdf, 0o600); err != nil {
		return Image{}, err
	}
	outPrefix := filepath.Join(dir, "page")
	dpi := p.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultPdftoppmTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.binary(),
		"-png", "-r", strconv.Itoa(dpi), "-f", "1", "-l", "1", "-singlefile", in, outPrefix)
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return Image{}, fmt.Errorf("pdftoppm: timed out after %s: %w", timeout, ctx.Err())
		}
		return Image{}, fmt.Errorf("pdftoppm: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	data, err := os.ReadFile(outPrefix + ".png")
	if err != nil {
		return Image{}, fmt.Errorf("pdftoppm output: %w", err)
	}
	return newImage(data, fileName)
}

func (p Pdftoppm) binary() string {
	if p.Binary != "" {
		return p.Binary
	}
	return "pdftoppm"
}
