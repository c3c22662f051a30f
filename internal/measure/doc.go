// Package measure reads the geometry of the ruled grid behind a pellet: the
// grid pitch along each image axis (ScaleEstimator) and its rotation relative
// to the image axes (SlopeEstimator).
//
// # Scale
//
// Grid lines one millimetre apart produce a periodic signal along every row
// and column. The frequency of that signal, in cycles per pixel, is also the
// number of millimetres per pixel, so the physical area of one pixel is
// Fx*Fy. Two interchangeable methods read the frequency:
//
//   - MethodPSD (default): gradients, Gaussian smoothing, the power spectral
//     density of every line, and the statistical mode of the per-line
//     arg-max frequencies.
//   - MethodPeaks: Farid directional responses, the second-ranked spectral
//     peak of every line, and the median of the estimates above the noise
//     floor.
//
// Estimates below the noise floor are clamped to it and flagged.
//
// # Slope
//
// Canny edges are voted into a Hough accumulator; every prominent peak gives
// a line angle, collapsed into [0, 90) because the grid has four-fold
// symmetry. The dominant angle is the mode of those slopes; the circular mean
// and deviation are reported alongside.
package measure
