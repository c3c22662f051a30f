// Package imaging loads photographs and holds the image types the estimators
// operate on.
//
// Decoded photographs are converted once, by FromImage, into a Gray: a
// single-channel float64 image with samples in [0, 1]. Every other package
// works on Gray and Mask values only.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Gray and Mask values are
// plain data; functions in this module never modify the ones they receive.
//
// # Performance Considerations
//
// Photographs are resampled to a fixed working size (DefaultWorkingSize) before
// measurement, which bounds the cost of the spectral and texture filters.
// Large originals still occupy memory while cached; use Evict() or Clear() in
// long-running processes.
package imaging
