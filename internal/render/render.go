package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strconv"

	"github.com/park285/checkers-server/internal/checkers"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Options controls a board image.
type Options struct {
	// SquareSize in pixels; defaults to 64, clamped to [MinSquareSize, MaxSquareSize].
	SquareSize int
	// Highlight marks cells, e.g. the piece that must continue a capture chain.
	Highlight []int
}

// BoardRenderer draws a board snapshot as PNG.
type BoardRenderer interface {
	RenderPNG(ctx context.Context, snap checkers.Snapshot, opts Options) ([]byte, error)
}

type pngRenderer struct{}

func NewPNGRenderer() BoardRenderer { return &pngRenderer{} }

var (
	lightSquare         = color.RGBA{233, 207, 163, 255}
	darkSquare          = color.RGBA{120, 82, 56, 255}
	backgroundColor     = color.RGBA{28, 31, 46, 255}
	highlightColor      = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	coordinateTextColor = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

const margin = 24

// Square size bounds; each size in range gets its own piece cache entry.
const (
	MinSquareSize     = 16
	MaxSquareSize     = 256
	defaultSquareSize = 64
)

func clampSquareSize(n int) int {
	switch {
	case n <= 0:
		return defaultSquareSize
	case n < MinSquareSize:
		return MinSquareSize
	case n > MaxSquareSize:
		return MaxSquareSize
	}
	return n
}

func (r *pngRenderer) RenderPNG(ctx context.Context, snap checkers.Snapshot, opts Options) ([]byte, error) {
	board, err := checkers.FromSnapshot(snap)
	if err != nil {
		return nil, err
	}
	size := clampSquareSize(opts.SquareSize)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	boardSize := size * checkers.Width
	origin := image.Point{X: margin, Y: margin}
	img := image.NewRGBA(image.Rect(0, 0, boardSize+margin*2, boardSize+margin*2))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawSquares(img, size, origin)
	for _, i := range opts.Highlight {
		if checkers.InBounds(i) {
			imagedraw.Draw(img, squareRect(i, size, origin), image.NewUniform(highlightColor), image.Point{}, imagedraw.Over)
		}
	}
	if err := drawPieces(img, board, size, origin); err != nil {
		return nil, err
	}
	drawCoordinates(img, size, origin)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return pngBuf.Bytes(), nil
}

func squareRect(i, size int, origin image.Point) image.Rectangle {
	x, y := checkers.XY(i)
	px := origin.X + x*size
	py := origin.Y + y*size
	return image.Rect(px, py, px+size, py+size)
}

func drawSquares(dst imagedraw.Image, size int, origin image.Point) {
	for i := 0; i < checkers.Cells; i++ {
		clr := lightSquare
		if checkers.IsPlayable(i) {
			clr = darkSquare
		}
		imagedraw.Draw(dst, squareRect(i, size, origin), image.NewUniform(clr), image.Point{}, imagedraw.Src)
	}
}

func drawPieces(dst imagedraw.Image, b *checkers.Board, size int, origin image.Point) error {
	for i := 0; i < checkers.Cells; i++ {
		pc := b.At(i)
		if pc.IsEmpty() {
			continue
		}
		img, err := renderPieceImage(pc, size)
		if err != nil {
			return err
		}
		imagedraw.Draw(dst, squareRect(i, size, origin), img, image.Point{}, imagedraw.Over)
	}
	return nil
}

// drawCoordinates labels columns (x) along the bottom and rows (y) along the left edge.
func drawCoordinates(dst imagedraw.Image, size int, origin image.Point) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateTextColor)}
	ascent := face.Metrics().Ascent.Ceil()
	boardEnd := origin.Y + checkers.Height*size

	for n := 0; n < checkers.Width; n++ {
		label := strconv.Itoa(n)
		center := origin.X + n*size + size/2
		drawCenteredText(drawer, label, center, boardEnd+ascent+4)

		rowCenter := origin.Y + n*size + size/2
		drawCenteredText(drawer, label, origin.X-margin/2, rowCenter+ascent/2)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}
