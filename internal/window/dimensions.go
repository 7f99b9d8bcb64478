package window

// DefaultDPI is the dots-per-inch of a surface at scale factor 1.
const DefaultDPI = 96

// Dimensions is the size of a window's drawable area in device pixels.
type Dimensions struct {
	PixelWidth  int
	PixelHeight int
	DPI         int
}

// surfaceToPixels converts surface units to device pixels.
func surfaceToPixels(n, scale int) int {
	return n * scale
}

// pixelsToSurface converts device pixels to surface units, rounding up so
// the surface always covers the pixel area.
func pixelsToSurface(n, scale int) int {
	if scale <= 0 {
		return n
	}
	return (n + scale - 1) / scale
}
