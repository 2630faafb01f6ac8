package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	svg "github.com/ajstarks/svgo"
	"github.com/park285/checkers-server/internal/checkers"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// pieces are drawn on a 100x100 view box and scaled to the square size.
const viewBox = 100

type pieceStyle struct {
	fill, ring, stroke string
}

var pieceStyles = map[checkers.Player]pieceStyle{
	checkers.Player1: {fill: "#f4efe1", ring: "#d8cfb8", stroke: "#4a4036"},
	checkers.Player2: {fill: "#b3261e", ring: "#8c1d17", stroke: "#2b0b09"},
}

const crownStyle = "fill:#e8b923;stroke:#6b4f00;stroke-width:2"

// pieceSVG generates the markup for pc. Empty pieces have no image.
func pieceSVG(pc checkers.Piece) ([]byte, error) {
	st, ok := pieceStyles[pc.Owner]
	if !ok {
		return nil, fmt.Errorf("no style for %s", pc)
	}
	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Startview(viewBox, viewBox, 0, 0, viewBox, viewBox)
	canvas.Circle(50, 52, 40, "fill:#000000;fill-opacity:0.25")
	canvas.Circle(50, 50, 40, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:4", st.fill, st.stroke))
	canvas.Circle(50, 50, 28, fmt.Sprintf("fill:none;stroke:%s;stroke-width:5", st.ring))
	if pc.IsKing() {
		xs := []int{30, 30, 40, 50, 60, 70, 70}
		ys := []int{62, 38, 50, 34, 50, 38, 62}
		canvas.Polygon(xs, ys, crownStyle)
	}
	canvas.End()
	return buf.Bytes(), nil
}

type pieceCacheKey struct {
	piece checkers.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func renderPieceImage(pc checkers.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: pc, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	data, err := pieceSVG(pc)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()

	return img, nil
}
