package mcpserver

import (
	"math"

	"pagebuilder/internal/domain"
)

const (
	GridSize = 10.0
	Padding  = 20.0 // 2 grid cells between elements
	MaxRowW  = 1280.0
)

// LayoutEngine places agent-created elements on the workspace so that they
// don't overlap existing ones.
type LayoutEngine struct {
	gridSize float64
	padding  float64
	maxRowW  float64
}

// NewLayoutEngine wraps rows at rowWidth; a non-positive width uses MaxRowW.
func NewLayoutEngine(rowWidth float64) *LayoutEngine {
	if rowWidth <= 0 {
		rowWidth = MaxRowW
	}
	return &LayoutEngine{
		gridSize: GridSize,
		padding:  Padding,
		maxRowW:  rowWidth,
	}
}

// snap rounds v to the nearest grid point.
func (le *LayoutEngine) snap(v float64) float64 {
	return math.Round(v/le.gridSize) * le.gridSize
}

// rect is a simple axis-aligned bounding box.
type rect struct {
	x, y, w, h float64
}

func (a rect) intersects(b rect) bool {
	return a.x < b.x+b.w && a.x+a.w > b.x &&
		a.y < b.y+b.h && a.y+a.h > b.y
}

func elementRect(el domain.Element) rect {
	return rect{el.X, el.Y, el.Width, el.Height}
}

// NextPosition finds the first free grid position, scanning rows top to
// bottom, for an element of size (newW, newH). Elements listed in skip are
// ignored, which lets a freshly created element look past itself.
func (le *LayoutEngine) NextPosition(existing []domain.Element, newW, newH float64, skip ...string) (float64, float64) {
	ignored := make(map[string]bool, len(skip))
	for _, id := range skip {
		ignored[id] = true
	}
	occupied := make([]rect, 0, len(existing))
	for _, el := range existing {
		if !ignored[el.ID] {
			occupied = append(occupied, elementRect(el))
		}
	}
	if len(occupied) == 0 {
		return 0, 0
	}

	candidate := rect{w: newW, h: newH}
	for y := 0.0; y < 100000; y += le.gridSize {
		for x := 0.0; x+newW <= le.maxRowW || x == 0; x += le.gridSize {
			candidate.x = le.snap(x)
			candidate.y = le.snap(y)

			overlaps := false
			for _, occ := range occupied {
				padded := rect{
					x: occ.x - le.padding,
					y: occ.y - le.padding,
					w: occ.w + le.padding*2,
					h: occ.h + le.padding*2,
				}
				if candidate.intersects(padded) {
					overlaps = true
					break
				}
			}
			if !overlaps {
				return candidate.x, candidate.y
			}
			if newW > le.maxRowW {
				break
			}
		}
	}

	// Fallback: place below everything
	maxY := 0.0
	for _, occ := range occupied {
		maxY = math.Max(maxY, occ.y+occ.h)
	}
	return 0, le.snap(maxY + le.padding)
}

// ArrangeGroup lays elements out in rows starting at (startX, startY),
// wrapping at the row width. Positions are updated in place.
func (le *LayoutEngine) ArrangeGroup(els []domain.Element, startX, startY float64) []domain.Element {
	x := le.snap(startX)
	y := le.snap(startY)
	rowHeight := 0.0

	for i := range els {
		if x > le.snap(startX) && x+els[i].Width > le.maxRowW {
			x = le.snap(startX)
			y += le.snap(rowHeight + le.padding)
			rowHeight = 0
		}

		els[i].X = x
		els[i].Y = y
		rowHeight = math.Max(rowHeight, els[i].Height)
		x += le.snap(els[i].Width + le.padding)
	}

	return els
}
