package payload

import "lumina-core/internal/domain/model"

// RGBToRGBW converts a saturated RGB color into the color+white split a
// warm-white-capable output driver expects.
//
// When white is non-nil it is used verbatim and the RGB channels are
// left alone. With forceZeroWhite the white channel is pinned to zero.
// Otherwise w = min(r,g,b) and is subtracted from each channel, so the
// original color is recoverable as (r'+w, g'+w, b'+w).
func RGBToRGBW(r, g, b int, white *int, forceZeroWhite bool) model.Color {
	if white != nil {
		return model.Color{R: r, G: g, B: b, W: clampChannel(*white)}
	}
	if forceZeroWhite {
		return model.Color{R: r, G: g, B: b, W: 0}
	}
	w := r
	if g < w {
		w = g
	}
	if b < w {
		w = b
	}
	return model.Color{R: r - w, G: g - w, B: b - w, W: w}
}

func clampChannel(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
