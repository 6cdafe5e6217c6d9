package parallel

import (
	"image"
	"math/bits"
	"sync/atomic"
)

// TileSize is the edge length, in pixels, of one dirty-tracking tile.
const TileSize = 64

// DirtyRegion records which tiles of a canvas were written since the last
// time it was drained, using an atomic bitmap with one bit per tile.
//
// Block writers mark the rectangle they touched; the frame loop drains the
// bitmap before a snapshot to learn whether anything changed. All methods
// are safe for concurrent use.
type DirtyRegion struct {
	// words holds 64 tiles per word; bit index = ty*tilesX + tx.
	words []atomic.Uint64

	tilesX int
	tilesY int
}

// NewDirtyRegion creates a tracker covering a width×height pixel canvas.
// All tiles start clean. Returns nil for an empty canvas.
func NewDirtyRegion(width, height int) *DirtyRegion {
	if width <= 0 || height <= 0 {
		return nil
	}

	tilesX := (width + TileSize - 1) / TileSize
	tilesY := (height + TileSize - 1) / TileSize
	return &DirtyRegion{
		words:  make([]atomic.Uint64, (tilesX*tilesY+63)/64),
		tilesX: tilesX,
		tilesY: tilesY,
	}
}

// Mark marks tile (tx, ty) as dirty. Out-of-range tiles are ignored.
func (d *DirtyRegion) Mark(tx, ty int) {
	if tx < 0 || tx >= d.tilesX || ty < 0 || ty >= d.tilesY {
		return
	}
	idx := ty*d.tilesX + tx
	d.words[idx/64].Or(1 << (idx & 63))
}

// MarkRect marks every tile intersecting the pixel rectangle r.
func (d *DirtyRegion) MarkRect(r image.Rectangle) {
	r = r.Canon()
	if r.Empty() {
		return
	}

	tx1 := max(r.Min.X/TileSize, 0)
	ty1 := max(r.Min.Y/TileSize, 0)
	tx2 := min((r.Max.X-1)/TileSize, d.tilesX-1)
	ty2 := min((r.Max.Y-1)/TileSize, d.tilesY-1)

	for ty := ty1; ty <= ty2; ty++ {
		for tx := tx1; tx <= tx2; tx++ {
			d.Mark(tx, ty)
		}
	}
}

// Drain atomically clears the bitmap and returns how many tiles were dirty.
// Marks that race with Drain land either in this result or the next one,
// never in neither.
func (d *DirtyRegion) Drain() int {
	count := 0
	for i := range d.words {
		count += bits.OnesCount64(d.words[i].Swap(0))
	}
	return count
}
