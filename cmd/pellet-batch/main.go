// Command pellet-batch recomputes the summary of a labelled pellet dataset:
// the grid scale and slope of every photograph and the label coverage of its
// mask, written as CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/ironsheep/pellet-mcp/internal/batch"
	"github.com/ironsheep/pellet-mcp/internal/config"
	"github.com/ironsheep/pellet-mcp/internal/logger"
)

func main() {
	root := flag.String("root", "", "Dataset root holding one directory per split")
	out := flag.String("out", "", "Output CSV (default <root>/info.csv)")
	splits := flag.String("splits", strings.Join(batch.DefaultSplits, ","), "Comma-separated split directories")
	workers := flag.Int("workers", 0, "Parallel workers (default: number of CPUs)")
	configPath := flag.String("config", "", "YAML configuration file")
	flag.Parse()

	if *root == "" {
		fmt.Fprintln(os.Stderr, "Usage: pellet-batch -root <dataset> [-out info.csv] [-splits train,test] [-workers n] [-config path]")
		os.Exit(2)
	}

	cfg, err := config.Resolve(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pellet-batch: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewConsoleLogger(logger.LevelFromEnv(cfg.Log.Level))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	job := &batch.Job{
		Root:        *root,
		Splits:      strings.Split(*splits, ","),
		Workers:     *workers,
		WorkingSize: cfg.Image.WorkingSize,
		Scale:       cfg.ScaleEstimator(log),
		Slope:       cfg.SlopeEstimator(log),
		Logger:      log,
	}
	n, err := job.Run(ctx, *out)
	if err != nil {
		log.Error("main", err, map[string]interface{}{"root": *root})
		os.Exit(1)
	}
	log.Info("main", "summary written", map[string]interface{}{"samples": n})
}
