package replay

import "image"

// Surface is the drawing capability a replay renders onto.
//
// Implementations hold a fixed-size raster. Alpha returns the opacity plane
// that grading compares; it must reflect every Stroke and Text since the
// last Clear.
type Surface interface {
	Clear()
	Stroke(from, to Point, pen Pen)
	// Text draws text anchored at at, rotated clockwise by rotationDeg.
	Text(at Point, rotationDeg float64, text string, pen Pen, font Font)
	Alpha() *image.Alpha
	Bounds() image.Rectangle
}
