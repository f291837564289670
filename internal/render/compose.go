package render

import (
	"image"
	"image/color"
)

// Surface is the output target for composed frames. The engine only
// needs a size and a way to hand a finished frame over; PNG encoding,
// websocket delivery or file output live behind implementations.
type Surface interface {
	Size() (w, h int)
	Present(img *image.RGBA) error
}

// Sky colors blended by ambient level.
var (
	skyNight = [3]float64{13, 20, 38}
	skyDay   = [3]float64{121, 183, 226}
)

// ComposeFrame paints a chunk bitmap onto a fresh frame. anchorX and
// anchorY give the chunk-projection-space point that should land at
// the frame center (the engine anchors on the chunk's mean surface
// height). ambient scales voxel brightness and blends the sky; chunk
// bitmaps stay ambient-independent so the render cache survives the
// day-night cycle.
func ComposeFrame(w, h int, bm *Bitmap, anchorX, anchorY float64, ambient float64) *image.RGBA {
	frame := image.NewRGBA(image.Rect(0, 0, w, h))

	sky := color.RGBA{
		R: uint8(skyNight[0] + (skyDay[0]-skyNight[0])*ambient),
		G: uint8(skyNight[1] + (skyDay[1]-skyNight[1])*ambient),
		B: uint8(skyNight[2] + (skyDay[2]-skyNight[2])*ambient),
		A: 255,
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			frame.SetRGBA(x, y, sky)
		}
	}
	if bm == nil || bm.Img == nil {
		return frame
	}

	dx := w/2 - int(anchorX) + bm.OffsetX
	dy := h/2 - int(anchorY) + bm.OffsetY
	src := bm.Img
	sb := src.Bounds()
	for sy := sb.Min.Y; sy < sb.Max.Y; sy++ {
		ty := sy + dy
		if ty < 0 || ty >= h {
			continue
		}
		for sx := sb.Min.X; sx < sb.Max.X; sx++ {
			tx := sx + dx
			if tx < 0 || tx >= w {
				continue
			}
			c := src.RGBAAt(sx, sy)
			if c.A == 0 {
				continue
			}
			frame.SetRGBA(tx, ty, color.RGBA{
				R: uint8(float64(c.R) * ambient),
				G: uint8(float64(c.G) * ambient),
				B: uint8(float64(c.B) * ambient),
				A: 255,
			})
		}
	}
	return frame
}
