package evaluate

import "image"

// Pass tolerances in differing pixels.
const (
	DefaultTolerance = 150
	StrictTolerance  = 10
)

// AlphaDelta counts pixels that are opaque in one image and transparent in
// the other. Only the alpha channel matters. Pixels outside one image's
// bounds count as transparent there.
func AlphaDelta(user, answer *image.Alpha) int {
	var area image.Rectangle
	switch {
	case user == nil && answer == nil:
		return 0
	case user == nil:
		area = answer.Bounds()
	case answer == nil:
		area = user.Bounds()
	default:
		area = user.Bounds().Union(answer.Bounds())
	}

	delta := 0
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			if opaqueAt(user, x, y) != opaqueAt(answer, x, y) {
				delta++
			}
		}
	}
	return delta
}

func opaqueAt(img *image.Alpha, x, y int) bool {
	if img == nil || !(image.Point{X: x, Y: y}).In(img.Rect) {
		return false
	}
	return img.Pix[img.PixOffset(x, y)] != 0
}

// GoalReached reports whether delta is within tolerance.
func GoalReached(delta, tolerance int) bool {
	return delta <= tolerance
}
