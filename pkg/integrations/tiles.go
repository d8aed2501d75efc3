package integrations

import (
	"image"

	"golang.org/x/image/draw"
)

const (
	// TileDivide is the number of cells per grid side.
	TileDivide = 4
	// TileAlign is the pixel multiple every cell dimension is rounded down to.
	TileAlign = 8
)

// TileGrid is the 4x4 cell layout of a scrambled image. Only the aligned
// region [0, Divide*CellWidth) x [0, Divide*CellHeight) belongs to cells;
// the remainder on the right and bottom edges is never moved.
type TileGrid struct {
	Width      int
	Height     int
	Divide     int
	Align      int
	CellWidth  int
	CellHeight int
}

// TileMove describes one cell copy: the pixels in Src end up at Dst.
type TileMove struct {
	Src image.Rectangle
	Dst image.Rectangle
}

// NewTileGrid computes the grid for an image of the given size.
func NewTileGrid(width, height int) TileGrid {
	return TileGrid{
		Width:      width,
		Height:     height,
		Divide:     TileDivide,
		Align:      TileAlign,
		CellWidth:  width / (TileDivide * TileAlign) * TileAlign,
		CellHeight: height / (TileDivide * TileAlign) * TileAlign,
	}
}

// Region is the aligned area covered by cells.
func (g TileGrid) Region() image.Rectangle {
	return image.Rect(0, 0, g.Divide*g.CellWidth, g.Divide*g.CellHeight)
}

// Empty reports whether the image is too small to hold any cell.
func (g TileGrid) Empty() bool {
	return g.CellWidth == 0 || g.CellHeight == 0
}

// Cell returns the rectangle of the cell at grid position (row, col).
func (g TileGrid) Cell(row, col int) image.Rectangle {
	x, y := col*g.CellWidth, row*g.CellHeight
	return image.Rect(x, y, x+g.CellWidth, y+g.CellHeight)
}

// Moves lists the copies that undo the scramble. Cell e (row-major) moves to
// cell col*Divide+row, which is the transpose of the grid.
func (g TileGrid) Moves() []TileMove {
	moves := make([]TileMove, 0, g.Divide*g.Divide)
	for e := 0; e < g.Divide*g.Divide; e++ {
		row, col := e/g.Divide, e%g.Divide
		u := col*g.Divide + row
		moves = append(moves, TileMove{
			Src: g.Cell(row, col),
			Dst: g.Cell(u/g.Divide, u%g.Divide),
		})
	}
	return moves
}

// Descramble returns a new image with the 4x4 cell grid of src transposed.
// Pixels outside the aligned region are copied unchanged. The transform is
// its own inverse. Pixels are moved as raw bytes, so color channels of
// translucent pixels survive untouched.
func Descramble(src *image.NRGBA) *image.NRGBA {
	bounds := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	// Start from a verbatim copy so the unaligned border passes through.
	copyBlock(dst, dst.Bounds(), src, bounds.Min)

	grid := NewTileGrid(bounds.Dx(), bounds.Dy())
	if grid.Empty() {
		return dst
	}

	for _, move := range grid.Moves() {
		copyBlock(dst, move.Dst, src, move.Src.Min.Add(bounds.Min))
	}

	return dst
}

// copyBlock copies the pixels of src starting at sp into r of dst.
func copyBlock(dst *image.NRGBA, r image.Rectangle, src *image.NRGBA, sp image.Point) {
	width := r.Dx() * 4
	for y := 0; y < r.Dy(); y++ {
		d := dst.PixOffset(r.Min.X, r.Min.Y+y)
		s := src.PixOffset(sp.X, sp.Y+y)
		copy(dst.Pix[d:d+width], src.Pix[s:s+width])
	}
}

// toNRGBA converts any decoded image to a straight-alpha buffer anchored at
// the origin.
func toNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Bounds().Min == (image.Point{}) {
		return nrgba
	}
	b := img.Bounds()
	nrgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	return nrgba
}

// dropAlpha forces every pixel opaque, keeping the straight color channels.
func dropAlpha(img *image.NRGBA) {
	for y := 0; y < img.Rect.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+img.Rect.Dx()*4]
		for i := 3; i < len(row); i += 4 {
			row[i] = 0xff
		}
	}
}
