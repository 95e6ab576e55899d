package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Derivative geometry.
const (
	ThumbnailSize = 200
	MaxEdge       = 1920
	Quality       = 85
)

// Mode selects how an image is fitted into the target box.
type Mode int

const (
	// ModeFill scales to cover the box and center-crops the overflow.
	ModeFill Mode = iota
	// ModeFit scales down so the longest edge fits; smaller images are kept.
	ModeFit
)

// Geometry describes one resize.
type Geometry struct {
	Width   int
	Height  int
	Mode    Mode
	Quality int
}

var (
	thumbnailGeometry = Geometry{Width: ThumbnailSize, Height: ThumbnailSize, Mode: ModeFill, Quality: Quality}
	optimizedGeometry = Geometry{Width: MaxEdge, Height: MaxEdge, Mode: ModeFit, Quality: Quality}
)

// Codec resizes src into dst.
type Codec interface {
	Resize(ctx context.Context, src, dst string, g Geometry) error
	// Extension is the file extension of produced images, without dot.
	Extension() string
	ContentType() string
}

// CodecError is returned when the image tool fails.
type CodecError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CodecError) Error() string {
	msg := fmt.Sprintf("image codec failed (exit %d)", e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

// ExecCodec shells out to ImageMagick and produces webp.
type ExecCodec struct {
	bin string
}

// NewExecCodec returns a codec invoking bin (usually "convert").
func NewExecCodec(bin string) *ExecCodec {
	if bin == "" {
		bin = "convert"
	}
	return &ExecCodec{bin: bin}
}

func (c *ExecCodec) Extension() string   { return "webp" }
func (c *ExecCodec) ContentType() string { return "image/webp" }

func (c *ExecCodec) Resize(ctx context.Context, src, dst string, g Geometry) error {
	cmd := exec.CommandContext(ctx, c.bin, convertArgs(src, dst, g)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return &CodecError{ExitCode: code, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return nil
}

func convertArgs(src, dst string, g Geometry) []string {
	box := strconv.Itoa(g.Width) + "x" + strconv.Itoa(g.Height)
	args := []string{src, "-auto-orient"}
	switch g.Mode {
	case ModeFill:
		args = append(args, "-thumbnail", box+"^", "-gravity", "center", "-extent", box)
	default:
		args = append(args, "-resize", box+">")
	}
	return append(args, "-quality", strconv.Itoa(g.Quality), dst)
}

// NativeCodec resizes in-process and encodes JPEG. It needs no external tool.
type NativeCodec struct{}

func NewNativeCodec() *NativeCodec { return &NativeCodec{} }

func (c *NativeCodec) Extension() string   { return "jpg" }
func (c *NativeCodec) ContentType() string { return "image/jpeg" }

func (c *NativeCodec) Resize(ctx context.Context, src, dst string, g Geometry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	img, _, err := image.Decode(in)
	in.Close()
	if err != nil {
		return &CodecError{ExitCode: 1, Err: fmt.Errorf("decode %s: %w", src, err)}
	}

	var out image.Image
	switch g.Mode {
	case ModeFill:
		out = fill(img, g.Width, g.Height)
	default:
		out = fit(img, g.Width, g.Height)
	}

	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, out, &jpeg.Options{Quality: g.Quality}); err != nil {
		f.Close()
		return &CodecError{ExitCode: 1, Err: fmt.Errorf("encode %s: %w", dst, err)}
	}
	return f.Close()
}

// fill scales img to cover w x h and crops the center.
func fill(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	sw, sh := b.Dx(), b.Dy()

	// Largest source rectangle with the target aspect ratio.
	cw, ch := sw, sw*h/w
	if ch > sh {
		cw, ch = sh*w/h, sh
	}
	x0 := b.Min.X + (sw-cw)/2
	y0 := b.Min.Y + (sh-ch)/2

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, image.Rect(x0, y0, x0+cw, y0+ch), draw.Src, nil)
	return dst
}

// fit scales img down so it fits in w x h, keeping the aspect ratio.
func fit(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	sw, sh := b.Dx(), b.Dy()
	if sw <= w && sh <= h {
		return img
	}
	dw, dh := w, sh*w/sw
	if dh > h {
		dw, dh = sw*h/sh, h
	}
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// dimensions reads the pixel size of an encoded image.
func dimensions(file string) (int, int, error) {
	f, err := os.Open(file)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("read dimensions of %s: %w", file, err)
	}
	return cfg.Width, cfg.Height, nil
}
