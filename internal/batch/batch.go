// Package batch recomputes the per-sample summary of a labelled dataset.
//
// A dataset root holds one directory per split (train, test). Each sample is
// a photograph <area>.jpg, whose base name is the known pellet area in square
// millimetres, next to a label mask <area>.png. The summary has one row per
// sample with the columns area, train, freq, slope and label_pixel_area,
// sorted by area.
package batch

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/pellet-mcp/internal/imaging"
	"github.com/ironsheep/pellet-mcp/internal/logger"
	"github.com/ironsheep/pellet-mcp/internal/measure"
)

// Header is the column layout of the summary file.
var Header = []string{"area", "train", "freq", "slope", "label_pixel_area"}

// DefaultSplits are the split directories scanned under the dataset root.
var DefaultSplits = []string{"train", "test"}

// Sample is one row of the summary.
type Sample struct {
	Area  float64
	Split string
	// Freq is the pixel area Fx*Fy in square millimetres.
	Freq  float64
	Slope float64
	// LabelPixelArea is the fraction of the image covered by the label.
	LabelPixelArea float64
	Path           string
}

// Job scans a dataset and measures every sample.
type Job struct {
	Root        string
	Splits      []string
	Workers     int
	WorkingSize int
	Scale       measure.ScaleEstimator
	Slope       measure.SlopeEstimator
	Logger      logger.Logger
}

// Discover lists the photographs of every split, in split then name order.
func (j *Job) Discover() ([]string, error) {
	splits := j.Splits
	if len(splits) == 0 {
		splits = DefaultSplits
	}
	var paths []string
	for _, split := range splits {
		matches, err := filepath.Glob(filepath.Join(j.Root, split, "*.jpg"))
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", split, err)
		}
		sort.Strings(matches)
		paths = append(paths, matches...)
	}
	return paths, nil
}

// Collect measures every discovered sample on a pool of workers. The first
// failure cancels the remaining work and is returned.
func (j *Job) Collect(ctx context.Context) ([]Sample, error) {
	paths, err := j.Discover()
	if err != nil {
		return nil, err
	}
	log := logger.OrNop(j.Logger)

	workers := j.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	samples := make([]Sample, len(paths))
	jobs := make(chan int)
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				s, err := j.measure(paths[i])
				if err != nil {
					once.Do(func() {
						firstErr = err
						cancel()
					})
					continue
				}
				samples[i] = s
				log.Debug("batch", "sample measured", map[string]interface{}{"path": paths[i]})
			}
		}()
	}

feed:
	for i := range paths {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(samples, func(a, b int) bool { return samples[a].Area < samples[b].Area })
	log.Info("batch", "dataset measured", map[string]interface{}{"samples": len(samples)})
	return samples, nil
}

func (j *Job) measure(path string) (Sample, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	knownArea, err := strconv.ParseFloat(name, 64)
	if err != nil {
		return Sample{}, fmt.Errorf("%s: file name is not an area: %w", path, err)
	}

	cache := imaging.NewImageCache()
	img, _, err := imaging.LoadGray(cache, path, j.WorkingSize)
	if err != nil {
		return Sample{}, fmt.Errorf("%s: %w", path, err)
	}
	labelPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".png"
	label, _, err := imaging.LoadGray(cache, labelPath, j.WorkingSize)
	if err != nil {
		return Sample{}, fmt.Errorf("%s: label: %w", path, err)
	}

	scale, err := j.Scale.Estimate(img)
	if err != nil {
		return Sample{}, fmt.Errorf("%s: %w", path, err)
	}
	slope, err := j.Slope.Estimate(img)
	if err != nil {
		return Sample{}, fmt.Errorf("%s: %w", path, err)
	}

	return Sample{
		Area:           knownArea,
		Split:          filepath.Base(filepath.Dir(path)),
		Freq:           scale.PixelArea(),
		Slope:          slope.Angle,
		LabelPixelArea: stat.Mean(label.Pix, nil),
		Path:           path,
	}, nil
}

// WriteCSV writes the header and one row per sample.
func WriteCSV(w io.Writer, samples []Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, s := range samples {
		row := []string{
			formatFloat(s.Area),
			s.Split,
			formatFloat(s.Freq),
			formatFloat(s.Slope),
			formatFloat(s.LabelPixelArea),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Run measures the dataset and writes the summary to out, or to
// <root>/info.csv when out is empty.
func (j *Job) Run(ctx context.Context, out string) (int, error) {
	samples, err := j.Collect(ctx)
	if err != nil {
		return 0, err
	}
	if out == "" {
		out = filepath.Join(j.Root, "info.csv")
	}
	f, err := os.Create(out)
	if err != nil {
		return 0, fmt.Errorf("create summary: %w", err)
	}
	if err := WriteCSV(f, samples); err != nil {
		f.Close()
		return 0, fmt.Errorf("write summary: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close summary: %w", err)
	}
	return len(samples), nil
}
